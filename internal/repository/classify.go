package repository

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/osse101/MinerSync_Go/internal/domain"
)

// Classify translates a remote-store failure into the domain error taxonomy.
// Errors already wrapping a domain sentinel pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	for _, known := range []error{
		domain.ErrTransient,
		domain.ErrUnauthenticated,
		domain.ErrAccountNotFound,
		domain.ErrClaimRejected,
	} {
		if errors.Is(err, known) {
			return err
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %s: %v", domain.ErrTransient, domain.ErrMsgConnectionTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "28000" || pgErr.Code == "28P01":
			return fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
		case isTransientSQLState(pgErr.Code):
			return fmt.Errorf("%w: %v", domain.ErrTransient, err)
		}
	}

	return err
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return errors.Is(Classify(err), domain.ErrTransient)
}

// isTransientSQLState matches connection exceptions (08), transaction rollbacks such as
// serialization failures and deadlocks (40), insufficient resources (53) and operator
// intervention (57).
func isTransientSQLState(code string) bool {
	if len(code) < 2 {
		return false
	}
	switch code[:2] {
	case "08", "40", "53", "57":
		return true
	}
	return false
}
