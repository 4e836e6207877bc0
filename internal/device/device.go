// Package device manages the persisted identity of this installation.
package device

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/osse101/MinerSync_Go/internal/domain"
)

const (
	idFileMode = 0o600
	idDirMode  = 0o700
)

// LoadOrCreate returns the device id stored at path, generating and persisting a
// new UUID on first use.
func LoadOrCreate(path string) (domain.DeviceID, error) {
	id, err := Load(path)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	return Reset(path)
}

// Load reads the device id at path. A missing file returns an error wrapping os.ErrNotExist.
func Load(path string) (domain.DeviceID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read device id: %w", err)
	}
	raw := strings.TrimSpace(string(data))
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("device id file %s is malformed: %w", path, err)
	}
	return domain.DeviceID(parsed.String()), nil
}

// Reset writes a freshly generated device id to path, replacing any existing one.
func Reset(path string) (domain.DeviceID, error) {
	if err := os.MkdirAll(filepath.Dir(path), idDirMode); err != nil {
		return "", fmt.Errorf("create device id directory: %w", err)
	}
	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), idFileMode); err != nil {
		return "", fmt.Errorf("write device id: %w", err)
	}
	return domain.DeviceID(id), nil
}
