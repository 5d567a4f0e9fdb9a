// Package repo provides rentals Repository implementations backed by
// Postgres and by the in-memory engine.
package repo

import (
	"context"
	"time"

	"github.com/vdgsa/rental-backend/domains/rentals/be/service"
	"github.com/vdgsa/rental-backend/platform/go/lifecycle"
	"github.com/vdgsa/rental-backend/platform/go/persistence"
)

func toEntry(rec persistence.HistoryRecord) service.Entry {
	return service.Entry{
		ID:                rec.ID,
		OccurredAt:        rec.OccurredAt,
		Event:             rec.Event,
		ItemKind:          rec.ItemKind,
		ItemID:            rec.ItemID,
		ItemSize:          rec.ItemSize,
		VdgsaNumber:       rec.VdgsaNumber,
		ViolID:            rec.ViolID,
		RenterID:          rec.RenterID,
		RentalStart:       rec.RentalStart,
		RentalEnd:         rec.RentalEnd,
		ContractReference: rec.ContractReference,
		Notes:             rec.Notes,
	}
}

func toEntries(recs []persistence.HistoryRecord) []service.Entry {
	entries := make([]service.Entry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, toEntry(rec))
	}
	return entries
}

// historyStore is the surface of the persistence layer the rentals domain
// uses; both *persistence.HistoryStore and *memory.Store satisfy it.
type historyStore interface {
	RentOut(ctx context.Context, violID int64, params persistence.RentOutParams) (persistence.HistoryRecord, error)
	Renew(ctx context.Context, violID int64, newRentalEnd time.Time, notes string) (persistence.HistoryRecord, error)
	Return(ctx context.Context, violID int64, notes string) ([]persistence.HistoryRecord, error)
	LastRentalFor(ctx context.Context, kind lifecycle.Kind, id int64) (persistence.HistoryRecord, error)
	HistoryForPerson(ctx context.Context, personID int64, limit int) ([]persistence.HistoryRecord, error)
	HistoryForItem(ctx context.Context, kind lifecycle.Kind, id int64) ([]persistence.HistoryRecord, error)
}

// Repository adapts a history store to the rentals service contract.
type Repository struct {
	store historyStore
}

// NewPostgres builds a Repository over the Postgres history store.
func NewPostgres(store *persistence.HistoryStore) *Repository {
	if store == nil {
		panic("history store is required")
	}
	return &Repository{store: store}
}

func (r *Repository) RentOut(ctx context.Context, input service.RentOutInput) (service.Entry, error) {
	rec, err := r.store.RentOut(ctx, input.ViolID, persistence.RentOutParams{
		RenterID:          input.RenterID,
		RentalStart:       input.RentalStart,
		RentalEnd:         input.RentalEnd,
		ContractReference: input.ContractReference,
		Notes:             input.Notes,
	})
	if err != nil {
		return service.Entry{}, err
	}
	return toEntry(rec), nil
}

func (r *Repository) Renew(ctx context.Context, violID int64, newRentalEnd time.Time, notes string) (service.Entry, error) {
	rec, err := r.store.Renew(ctx, violID, newRentalEnd, notes)
	if err != nil {
		return service.Entry{}, err
	}
	return toEntry(rec), nil
}

func (r *Repository) Return(ctx context.Context, violID int64, notes string) ([]service.Entry, error) {
	recs, err := r.store.Return(ctx, violID, notes)
	if err != nil {
		return nil, err
	}
	return toEntries(recs), nil
}

func (r *Repository) LastRentalFor(ctx context.Context, kind lifecycle.Kind, id int64) (service.Entry, error) {
	rec, err := r.store.LastRentalFor(ctx, kind, id)
	if err != nil {
		return service.Entry{}, err
	}
	return toEntry(rec), nil
}

func (r *Repository) HistoryForPerson(ctx context.Context, personID int64, limit int) ([]service.Entry, error) {
	recs, err := r.store.HistoryForPerson(ctx, personID, limit)
	if err != nil {
		return nil, err
	}
	return toEntries(recs), nil
}

func (r *Repository) HistoryForItem(ctx context.Context, kind lifecycle.Kind, id int64) ([]service.Entry, error) {
	recs, err := r.store.HistoryForItem(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return toEntries(recs), nil
}
