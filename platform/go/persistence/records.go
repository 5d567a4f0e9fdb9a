package persistence

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vdgsa/rental-backend/platform/go/lifecycle"
)

// Table names, one per item kind plus the shared ledger and waitlist.
const (
	ViolsTable    = "rental_viols"
	BowsTable     = "rental_bows"
	CasesTable    = "rental_cases"
	HistoryTable  = "rental_history"
	WaitlistTable = "rental_waitlist"
)

func tableFor(kind lifecycle.Kind) string {
	switch kind {
	case lifecycle.KindViol:
		return ViolsTable
	case lifecycle.KindBow:
		return BowsTable
	case lifecycle.KindCase:
		return CasesTable
	}
	panic("unknown item kind " + string(kind))
}

// ItemRecord is one row of a kind table. Strings and RenterID are only
// meaningful on viols; ViolID only on bows and cases.
type ItemRecord struct {
	Kind          lifecycle.Kind
	ID            int64
	VdgsaNumber   int64
	Size          lifecycle.Size
	Status        lifecycle.Status
	Strings       *int
	Maker         string
	Provenance    string
	Description   string
	Notes         string
	Value         *float64
	AccessionDate *time.Time
	CustodianID   *int64
	RenterID      *int64
	ViolID        *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HistoryRecord is one ledger entry. Item columns are a snapshot taken at
// append time; they stay valid after the item row is hard-deleted.
type HistoryRecord struct {
	ID                int64
	OccurredAt        time.Time
	Event             lifecycle.Event
	ItemKind          lifecycle.Kind
	ItemID            int64
	ItemSize          lifecycle.Size
	VdgsaNumber       int64
	ViolID            *int64
	RenterID          *int64
	RentalStart       *time.Time
	RentalEnd         *time.Time
	ContractReference *string
	Notes             string
}

// WaitlistRecord is one waiting-list row.
type WaitlistRecord struct {
	ID                int64
	RequestedSize     lifecycle.Size
	FirstName         string
	LastName          string
	Email             string
	Phone             string
	AddressLine1      string
	AddressCity       string
	AddressState      string
	AddressPostalCode string
	Notes             string
	DateRequested     time.Time
	Status            lifecycle.WaitlistStatus
	ViolID            *int64
	MatchedItemID     *int64
	CreatedAt         time.Time
}

// mapPgError translates storage-level failures into the domain taxonomy:
// no rows becomes ErrNotFound, lock/serialization failures become
// ErrConflict so callers know a retry is reasonable.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return lifecycle.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03": // serialization, deadlock, lock not available
			return fmt.Errorf("%w: %s", lifecycle.ErrConflict, pgErr.Message)
		}
	}
	return err
}
