package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/osse101/MinerSync_Go/internal/config"
	"github.com/osse101/MinerSync_Go/internal/device"
)

func newDeviceCmd() *cobra.Command {
	var path string

	deviceCmd := &cobra.Command{
		Use:   "device",
		Short: "Show or reset this device's identity",
	}
	deviceCmd.PersistentFlags().StringVar(&path, "path", "", "device id file (default DEVICE_ID_PATH)")

	// Device management works without a complete environment.
	resolve := func() string {
		if path != "" {
			return path
		}
		if p := os.Getenv("DEVICE_ID_PATH"); p != "" {
			return p
		}
		return config.DefaultDeviceIDPath
	}

	deviceCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the device id, creating one on first use",
			RunE: func(cmd *cobra.Command, _ []string) error {
				id, err := device.LoadOrCreate(resolve())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
				return err
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Replace the device id with a new one",
			Long:  "reset gives this install a new identity. A session started under the old id is then treated as another device's session.",
			RunE: func(cmd *cobra.Command, _ []string) error {
				id, err := device.Reset(resolve())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
				return err
			},
		},
	)

	return deviceCmd
}
