// Package repo provides waitlist Repository implementations backed by
// Postgres and by the in-memory engine.
package repo

import (
	"context"

	"github.com/vdgsa/rental-backend/domains/waitlist/be/service"
	"github.com/vdgsa/rental-backend/platform/go/lifecycle"
	"github.com/vdgsa/rental-backend/platform/go/persistence"
	"github.com/vdgsa/rental-backend/platform/go/persistence/memory"
)

func toEntry(rec persistence.WaitlistRecord) service.Entry {
	return service.Entry{
		ID:                rec.ID,
		RequestedSize:     rec.RequestedSize,
		FirstName:         rec.FirstName,
		LastName:          rec.LastName,
		Email:             rec.Email,
		Phone:             rec.Phone,
		AddressLine1:      rec.AddressLine1,
		AddressCity:       rec.AddressCity,
		AddressState:      rec.AddressState,
		AddressPostalCode: rec.AddressPostalCode,
		Notes:             rec.Notes,
		DateRequested:     rec.DateRequested,
		Status:            rec.Status,
		ViolID:            rec.ViolID,
		MatchedItemID:     rec.MatchedItemID,
		CreatedAt:         rec.CreatedAt,
	}
}

func toRecord(entry service.Entry) persistence.WaitlistRecord {
	return persistence.WaitlistRecord{
		RequestedSize:     entry.RequestedSize,
		FirstName:         entry.FirstName,
		LastName:          entry.LastName,
		Email:             entry.Email,
		Phone:             entry.Phone,
		AddressLine1:      entry.AddressLine1,
		AddressCity:       entry.AddressCity,
		AddressState:      entry.AddressState,
		AddressPostalCode: entry.AddressPostalCode,
		Notes:             entry.Notes,
		DateRequested:     entry.DateRequested,
		ViolID:            entry.ViolID,
	}
}

// Repository adapts a waitlist store to the service contract. The two
// store backends differ only in method naming, so each constructor
// installs its own thin call adapters.
type Repository struct {
	enqueue  func(ctx context.Context, rec persistence.WaitlistRecord) (persistence.WaitlistRecord, error)
	get      func(ctx context.Context, id int64) (persistence.WaitlistRecord, error)
	fulfill  func(ctx context.Context, entryID, violID int64) (persistence.WaitlistRecord, error)
	cancel   func(ctx context.Context, entryID int64) error
	listOpen func(ctx context.Context, size *lifecycle.Size) ([]persistence.WaitlistRecord, error)
}

// NewPostgres builds a Repository over the Postgres waitlist store.
func NewPostgres(store *persistence.WaitlistStore) *Repository {
	if store == nil {
		panic("waitlist store is required")
	}
	return &Repository{
		enqueue:  store.Enqueue,
		get:      store.Get,
		fulfill:  store.Fulfill,
		cancel:   store.Cancel,
		listOpen: store.ListOpen,
	}
}

// NewMemory builds a Repository over the in-memory engine, suitable for
// tests and early development.
func NewMemory(store *memory.Store) *Repository {
	if store == nil {
		panic("memory store is required")
	}
	return &Repository{
		enqueue:  store.Enqueue,
		get:      store.GetWaitlist,
		fulfill:  store.Fulfill,
		cancel:   store.CancelWaitlist,
		listOpen: store.ListOpen,
	}
}

func (r *Repository) Enqueue(ctx context.Context, entry service.Entry) (service.Entry, error) {
	rec, err := r.enqueue(ctx, toRecord(entry))
	if err != nil {
		return service.Entry{}, err
	}
	return toEntry(rec), nil
}

func (r *Repository) Get(ctx context.Context, id int64) (service.Entry, error) {
	rec, err := r.get(ctx, id)
	if err != nil {
		return service.Entry{}, err
	}
	return toEntry(rec), nil
}

func (r *Repository) Fulfill(ctx context.Context, entryID, violID int64) (service.Entry, error) {
	rec, err := r.fulfill(ctx, entryID, violID)
	if err != nil {
		return service.Entry{}, err
	}
	return toEntry(rec), nil
}

func (r *Repository) Cancel(ctx context.Context, entryID int64) error {
	return r.cancel(ctx, entryID)
}

func (r *Repository) ListOpen(ctx context.Context, size *lifecycle.Size) ([]service.Entry, error) {
	recs, err := r.listOpen(ctx, size)
	if err != nil {
		return nil, err
	}
	entries := make([]service.Entry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, toEntry(rec))
	}
	return entries, nil
}
