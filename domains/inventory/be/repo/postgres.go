// Package repo provides inventory Repository implementations backed by
// Postgres and by the in-memory engine.
package repo

import (
	"context"

	"github.com/vdgsa/rental-backend/domains/inventory/be/service"
	"github.com/vdgsa/rental-backend/platform/go/lifecycle"
	"github.com/vdgsa/rental-backend/platform/go/persistence"
)

func toItem(rec persistence.ItemRecord) service.Item {
	return service.Item{
		Kind:          rec.Kind,
		ID:            rec.ID,
		VdgsaNumber:   rec.VdgsaNumber,
		Size:          rec.Size,
		Status:        rec.Status,
		Strings:       rec.Strings,
		Maker:         rec.Maker,
		Provenance:    rec.Provenance,
		Description:   rec.Description,
		Notes:         rec.Notes,
		Value:         rec.Value,
		AccessionDate: rec.AccessionDate,
		CustodianID:   rec.CustodianID,
		RenterID:      rec.RenterID,
		ViolID:        rec.ViolID,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

func toRecord(item service.Item) persistence.ItemRecord {
	return persistence.ItemRecord{
		Kind:          item.Kind,
		ID:            item.ID,
		VdgsaNumber:   item.VdgsaNumber,
		Size:          item.Size,
		Status:        item.Status,
		Strings:       item.Strings,
		Maker:         item.Maker,
		Provenance:    item.Provenance,
		Description:   item.Description,
		Notes:         item.Notes,
		Value:         item.Value,
		AccessionDate: item.AccessionDate,
		CustodianID:   item.CustodianID,
	}
}

func toListParams(opts service.ListOptions) persistence.ListItemsParams {
	return persistence.ListItemsParams{
		Size:            opts.Size,
		FitViolSize:     opts.FitViolSize,
		Statuses:        opts.Statuses,
		IncludeInactive: opts.IncludeInactive,
		Unattached:      opts.Unattached,
	}
}

// itemStore is the surface of the persistence layer the inventory domain
// uses; both *persistence.ItemStore and *memory.Store satisfy it.
type itemStore interface {
	CreateItem(ctx context.Context, rec persistence.ItemRecord) (persistence.ItemRecord, error)
	NextSequence(ctx context.Context, kind lifecycle.Kind) (int64, error)
	GetItem(ctx context.Context, kind lifecycle.Kind, id int64) (persistence.ItemRecord, error)
	ListItems(ctx context.Context, kind lifecycle.Kind, params persistence.ListItemsParams) ([]persistence.ItemRecord, error)
	SoftDelete(ctx context.Context, kind lifecycle.Kind, id int64, notes string) error
	MarkAvailable(ctx context.Context, kind lifecycle.Kind, id int64, notes string) (persistence.ItemRecord, error)
	Attach(ctx context.Context, accKind lifecycle.Kind, accID, violID int64) error
	Detach(ctx context.Context, accKind lifecycle.Kind, accID int64) error
	Retire(ctx context.Context, kind lifecycle.Kind, id int64, reason string) error
	ChangeCustodian(ctx context.Context, kind lifecycle.Kind, id int64, custodianID *int64) error
}

// Repository adapts an item store to the inventory service contract.
type Repository struct {
	store itemStore
}

// NewPostgres builds a Repository over the Postgres item store.
func NewPostgres(store *persistence.ItemStore) *Repository {
	if store == nil {
		panic("item store is required")
	}
	return &Repository{store: store}
}

func (r *Repository) Create(ctx context.Context, item service.Item) (service.Item, error) {
	rec, err := r.store.CreateItem(ctx, toRecord(item))
	if err != nil {
		return service.Item{}, err
	}
	return toItem(rec), nil
}

func (r *Repository) NextSequence(ctx context.Context, kind lifecycle.Kind) (int64, error) {
	return r.store.NextSequence(ctx, kind)
}

func (r *Repository) Get(ctx context.Context, kind lifecycle.Kind, id int64) (service.Item, error) {
	rec, err := r.store.GetItem(ctx, kind, id)
	if err != nil {
		return service.Item{}, err
	}
	return toItem(rec), nil
}

func (r *Repository) List(ctx context.Context, kind lifecycle.Kind, opts service.ListOptions) ([]service.Item, error) {
	recs, err := r.store.ListItems(ctx, kind, toListParams(opts))
	if err != nil {
		return nil, err
	}
	items := make([]service.Item, 0, len(recs))
	for _, rec := range recs {
		items = append(items, toItem(rec))
	}
	return items, nil
}

func (r *Repository) SoftDelete(ctx context.Context, kind lifecycle.Kind, id int64, notes string) error {
	return r.store.SoftDelete(ctx, kind, id, notes)
}

func (r *Repository) MarkAvailable(ctx context.Context, kind lifecycle.Kind, id int64, notes string) (service.Item, error) {
	rec, err := r.store.MarkAvailable(ctx, kind, id, notes)
	if err != nil {
		return service.Item{}, err
	}
	return toItem(rec), nil
}

func (r *Repository) Attach(ctx context.Context, accKind lifecycle.Kind, accID, violID int64) error {
	return r.store.Attach(ctx, accKind, accID, violID)
}

func (r *Repository) Detach(ctx context.Context, accKind lifecycle.Kind, accID int64) error {
	return r.store.Detach(ctx, accKind, accID)
}

func (r *Repository) Retire(ctx context.Context, kind lifecycle.Kind, id int64, reason string) error {
	return r.store.Retire(ctx, kind, id, reason)
}

func (r *Repository) ChangeCustodian(ctx context.Context, kind lifecycle.Kind, id int64, custodianID *int64) error {
	return r.store.ChangeCustodian(ctx, kind, id, custodianID)
}
