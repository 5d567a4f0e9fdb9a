// Package service implements the rental instrument registry: intake,
// attachment, listing, custody and end-of-life for viols, bows and cases.
package service

import (
	"context"
	"time"

	"github.com/vdgsa/rental-backend/platform/go/lifecycle"
)

// Item is the domain model for one inventory entry. Strings and RenterID
// are only meaningful on viols; ViolID only on bows and cases.
type Item struct {
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

// CreateInput carries the intake form for a new item. Kind and Size are
// raw strings so the service owns enum validation.
type CreateInput struct {
	Kind          string
	Size          string
	VdgsaNumber   int64
	Strings       *int
	Maker         string
	Provenance    string
	Description   string
	Notes         string
	Value         *float64
	AccessionDate *time.Time
	CustodianID   *int64
}

// Filter selects one of the canned inventory views.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterAvailable  Filter = "available"
	FilterRented     Filter = "rented"
	FilterRetired    Filter = "retired"
	FilterAttachable Filter = "attachable"
	FilterUnattached Filter = "unattached"
)

// ParseFilter validates a raw filter string, defaulting to FilterAll when
// empty.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "":
		return FilterAll, nil
	case FilterAll, FilterAvailable, FilterRented, FilterRetired, FilterAttachable, FilterUnattached:
		return Filter(s), nil
	}
	return "", &lifecycle.ValidationError{Field: "filter", Msg: "unknown inventory filter " + s}
}

// Query selects items of one kind. ViolSize applies to accessory listings
// only: it restricts bows and cases to those that fit a viol of that size,
// including the bass-fits-seven-string rule. Size always matches exactly.
type Query struct {
	Kind     lifecycle.Kind
	Size     *lifecycle.Size
	ViolSize *lifecycle.Size
	Filter   Filter
}

// ListOptions is the storage-level shape of a Query.
type ListOptions struct {
	Size            *lifecycle.Size
	FitViolSize     *lifecycle.Size
	Statuses        []lifecycle.Status
	IncludeInactive bool
	Unattached      bool
}

// Repository abstracts persistence. All mutating operations are atomic:
// the item change and its ledger entry commit together or not at all.
type Repository interface {
	Create(ctx context.Context, item Item) (Item, error)
	NextSequence(ctx context.Context, kind lifecycle.Kind) (int64, error)
	Get(ctx context.Context, kind lifecycle.Kind, id int64) (Item, error)
	List(ctx context.Context, kind lifecycle.Kind, opts ListOptions) ([]Item, error)
	SoftDelete(ctx context.Context, kind lifecycle.Kind, id int64, notes string) error
	MarkAvailable(ctx context.Context, kind lifecycle.Kind, id int64, notes string) (Item, error)
	Attach(ctx context.Context, accKind lifecycle.Kind, accID, violID int64) error
	Detach(ctx context.Context, accKind lifecycle.Kind, accID int64) error
	Retire(ctx context.Context, kind lifecycle.Kind, id int64, reason string) error
	ChangeCustodian(ctx context.Context, kind lifecycle.Kind, id int64, custodianID *int64) error
}

// Service provides inventory operations.
type Service struct {
	repo Repository
}

// New constructs a Service with required dependencies.
func New(repo Repository) *Service {
	if repo == nil {
		panic("inventory repo is required")
	}
	return &Service{repo: repo}
}

// Create validates the intake form and registers a new item in status
// "new". A zero VdgsaNumber is assigned the next number for the kind.
func (s *Service) Create(ctx context.Context, input CreateInput) (Item, error) {
	kind, err := lifecycle.ParseKind(input.Kind)
	if err != nil {
		return Item{}, err
	}
	size, err := lifecycle.ParseSize(input.Size)
	if err != nil {
		return Item{}, err
	}
	if input.VdgsaNumber < 0 {
		return Item{}, &lifecycle.ValidationError{Field: "vdgsa_number", Msg: "must not be negative"}
	}
	if input.Strings != nil {
		if kind != lifecycle.KindViol {
			return Item{}, &lifecycle.ValidationError{Field: "strings", Msg: "only viols have a string count"}
		}
		if *input.Strings < 4 || *input.Strings > 8 {
			return Item{}, &lifecycle.ValidationError{Field: "strings", Msg: "string count must be between 4 and 8"}
		}
	}
	if input.Value != nil && *input.Value < 0 {
		return Item{}, &lifecycle.ValidationError{Field: "value", Msg: "must not be negative"}
	}

	return s.repo.Create(ctx, Item{
		Kind:          kind,
		VdgsaNumber:   input.VdgsaNumber,
		Size:          size,
		Strings:       input.Strings,
		Maker:         input.Maker,
		Provenance:    input.Provenance,
		Description:   input.Description,
		Notes:         input.Notes,
		Value:         input.Value,
		AccessionDate: input.AccessionDate,
		CustodianID:   input.CustodianID,
	})
}

// NextSequenceNumber previews the VdGSA number the next intake of this
// kind would receive.
func (s *Service) NextSequenceNumber(ctx context.Context, kind string) (int64, error) {
	k, err := lifecycle.ParseKind(kind)
	if err != nil {
		return 0, err
	}
	return s.repo.NextSequence(ctx, k)
}

// Get returns one item by kind and id. Soft-deleted items remain
// readable.
func (s *Service) Get(ctx context.Context, kind lifecycle.Kind, id int64) (Item, error) {
	return s.repo.Get(ctx, kind, id)
}

// List resolves a Query into the matching items, ordered by size then
// VdGSA number.
func (s *Service) List(ctx context.Context, q Query) ([]Item, error) {
	opts := ListOptions{Size: q.Size}
	if q.ViolSize != nil {
		if !q.Kind.IsAccessory() {
			return nil, &lifecycle.ValidationError{Field: "viol_size", Msg: "fit filtering applies to bows and cases only"}
		}
		opts.FitViolSize = q.ViolSize
	}
	switch q.Filter {
	case FilterAll, "":
	case FilterAvailable:
		opts.Statuses = []lifecycle.Status{lifecycle.StatusAvailable}
	case FilterRented:
		opts.Statuses = []lifecycle.Status{lifecycle.StatusRented}
	case FilterRetired:
		opts.Statuses = []lifecycle.Status{lifecycle.StatusRetired}
		opts.IncludeInactive = true
	case FilterAttachable:
		// Viols open to a new rental: not out on loan, not gone.
		if q.Kind != lifecycle.KindViol {
			return nil, &lifecycle.ValidationError{Field: "filter", Msg: "attachable lists viols only"}
		}
		opts.Statuses = []lifecycle.Status{lifecycle.StatusNew, lifecycle.StatusAvailable, lifecycle.StatusReserved}
	case FilterUnattached:
		if !q.Kind.IsAccessory() {
			return nil, &lifecycle.ValidationError{Field: "filter", Msg: "unattached applies to bows and cases only"}
		}
		opts.Unattached = true
	default:
		return nil, &lifecycle.ValidationError{Field: "filter", Msg: "unknown inventory filter " + string(q.Filter)}
	}
	return s.repo.List(ctx, q.Kind, opts)
}

// MarkAvailable moves a new item into the rental pool.
func (s *Service) MarkAvailable(ctx context.Context, kind lifecycle.Kind, id int64, notes string) (Item, error) {
	return s.repo.MarkAvailable(ctx, kind, id, notes)
}

// Attach bonds an accessory to a compatible viol.
func (s *Service) Attach(ctx context.Context, accKind lifecycle.Kind, accID, violID int64) error {
	return s.repo.Attach(ctx, accKind, accID, violID)
}

// Detach unbonds an accessory; custody moves to the viol's custodian.
func (s *Service) Detach(ctx context.Context, accKind lifecycle.Kind, accID int64) error {
	return s.repo.Detach(ctx, accKind, accID)
}

// Retire permanently removes an item from circulation. Retiring a viol
// retires its attached accessories in the same transaction.
func (s *Service) Retire(ctx context.Context, kind lifecycle.Kind, id int64, reason string) error {
	return s.repo.Retire(ctx, kind, id, reason)
}

// SoftDelete hides a mistakenly created item; its history remains.
func (s *Service) SoftDelete(ctx context.Context, kind lifecycle.Kind, id int64, notes string) error {
	return s.repo.SoftDelete(ctx, kind, id, notes)
}

// ChangeCustodian records who physically holds the item.
func (s *Service) ChangeCustodian(ctx context.Context, kind lifecycle.Kind, id int64, custodianID *int64) error {
	return s.repo.ChangeCustodian(ctx, kind, id, custodianID)
}
