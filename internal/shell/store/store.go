package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store is the durable record of (repository, platform) outcomes.
//
// Records are append-only. Implementations serialize writes and make each
// Record call crash-consistent: after a crash a record is either fully
// present or absent.
type Store interface {
	// HasTerminal reports whether any record exists for unit.
	HasTerminal(ctx context.Context, unit domain.DeploymentUnit) (bool, error)

	// Latest returns the most recent record for unit, or ErrNotFound.
	Latest(ctx context.Context, unit domain.DeploymentUnit) (*domain.DeploymentRecord, error)

	// History returns every record for unit, oldest first.
	History(ctx context.Context, unit domain.DeploymentUnit) ([]domain.DeploymentRecord, error)

	// Record appends a terminal record. It fails with ErrInvalidData for
	// invalid records, ErrDuplicateRecord when the unit is already recorded
	// in the same run or already succeeded, and ErrWriteFailed when the
	// medium is unavailable.
	Record(ctx context.Context, rec domain.DeploymentRecord) error

	// List returns the latest record of every unit in first-recorded order.
	List(ctx context.Context) ([]domain.DeploymentRecord, error)

	// Close releases the underlying medium.
	Close() error
}

// =============================================================================
// Drivers
// =============================================================================

const (
	DriverSQLite = "sqlite"
	DriverCSV    = "csv"
)

// Open opens a store for the given driver and path.
func Open(driver, path string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", DriverSQLite:
		return NewSQLiteStore(path)
	case DriverCSV:
		return NewCSVStore(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}

// checkAppend enforces the append rules shared by every backend, given the
// existing records of the unit.
func checkAppend(rec domain.DeploymentRecord, existing []domain.DeploymentRecord) error {
	for _, e := range existing {
		if e.Succeeded() {
			return NewStoreError("Record", "deployment_record", rec.Key(), "unit already succeeded", ErrDuplicateRecord)
		}
		if e.RunID == rec.RunID {
			return NewStoreError("Record", "deployment_record", rec.Key(), "unit already recorded in this run", ErrDuplicateRecord)
		}
	}
	return nil
}

func validateRecord(rec domain.DeploymentRecord) error {
	if err := rec.Validate(); err != nil {
		return NewStoreError("Record", "deployment_record", rec.Key(), err.Error(), ErrInvalidData)
	}
	return nil
}
