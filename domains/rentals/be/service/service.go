// Package service implements the rental workflow over the append-only
// history ledger: renting out, renewing and returning viols, and the
// ledger queries behind the member and item views.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vdgsa/rental-backend/platform/go/lifecycle"
)

// Entry is one ledger row. The item columns are a snapshot taken when the
// entry was appended, so history stays meaningful after the item is gone.
type Entry struct {
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

// RentOutInput carries the rental agreement details.
type RentOutInput struct {
	ViolID            int64
	RenterID          int64
	RentalStart       time.Time
	RentalEnd         time.Time
	ContractReference *string
	Notes             string
}

// Repository abstracts the ledger storage. RentOut, Renew and Return are
// atomic with their item status change.
type Repository interface {
	RentOut(ctx context.Context, input RentOutInput) (Entry, error)
	Renew(ctx context.Context, violID int64, newRentalEnd time.Time, notes string) (Entry, error)
	Return(ctx context.Context, violID int64, notes string) ([]Entry, error)
	LastRentalFor(ctx context.Context, kind lifecycle.Kind, id int64) (Entry, error)
	HistoryForPerson(ctx context.Context, personID int64, limit int) ([]Entry, error)
	HistoryForItem(ctx context.Context, kind lifecycle.Kind, id int64) ([]Entry, error)
}

// Service provides rental workflow operations.
type Service struct {
	repo Repository
}

// New constructs a Service with required dependencies.
func New(repo Repository) *Service {
	if repo == nil {
		panic("rentals repo is required")
	}
	return &Service{repo: repo}
}

// RentOut hands an available or reserved viol to a member. Attached accessories
// travel with it implicitly.
func (s *Service) RentOut(ctx context.Context, input RentOutInput) (Entry, error) {
	if input.RenterID <= 0 {
		return Entry{}, &lifecycle.ValidationError{Field: "renter_id", Msg: "must be a positive integer"}
	}
	if input.RentalStart.IsZero() || input.RentalEnd.IsZero() {
		return Entry{}, &lifecycle.ValidationError{Field: "rental_period", Msg: "rental start and end are required"}
	}
	if !input.RentalEnd.After(input.RentalStart) {
		return Entry{}, &lifecycle.ValidationError{Field: "rental_end", Msg: "must be after rental start"}
	}
	if input.ContractReference == nil {
		// Paper contracts carry their own number; everything else gets one.
		ref := "R-" + uuid.NewString()
		input.ContractReference = &ref
	}
	return s.repo.RentOut(ctx, input)
}

// Renew extends the current rental to a new end date.
func (s *Service) Renew(ctx context.Context, violID int64, newRentalEnd time.Time, notes string) (Entry, error) {
	if newRentalEnd.IsZero() {
		return Entry{}, &lifecycle.ValidationError{Field: "rental_end", Msg: "a new rental end date is required"}
	}
	return s.repo.Renew(ctx, violID, newRentalEnd, notes)
}

// Return takes a rented viol back into the available pool. Every item
// that came back with it (the viol plus attached accessories) gets its
// own ledger entry.
func (s *Service) Return(ctx context.Context, violID int64, notes string) ([]Entry, error) {
	return s.repo.Return(ctx, violID, notes)
}

// LastRentalFor returns the most recent rent-out entry for an item, or
// lifecycle.ErrNotFound when it has never been rented.
func (s *Service) LastRentalFor(ctx context.Context, kind lifecycle.Kind, id int64) (Entry, error) {
	return s.repo.LastRentalFor(ctx, kind, id)
}

// HistoryForPerson returns a member's rental trail, most recent first.
// A non-positive limit returns everything.
func (s *Service) HistoryForPerson(ctx context.Context, personID int64, limit int) ([]Entry, error) {
	if personID <= 0 {
		return nil, &lifecycle.ValidationError{Field: "person_id", Msg: "must be a positive integer"}
	}
	return s.repo.HistoryForPerson(ctx, personID, limit)
}

// HistoryForItem returns an item's full trail, most recent first.
func (s *Service) HistoryForItem(ctx context.Context, kind lifecycle.Kind, id int64) ([]Entry, error) {
	return s.repo.HistoryForItem(ctx, kind, id)
}
