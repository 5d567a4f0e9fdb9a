// Package service implements the rental waiting list: recording unmet
// demand, first-come-first-served matching, and viol reservations for
// entries pinned to a specific instrument.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/vdgsa/rental-backend/platform/go/lifecycle"
)

// Entry is one waiting-list row.
type Entry struct {
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

// EnqueueInput carries the request form. Size is raw so the service owns
// enum validation. ViolID pins the request to a specific viol, which is
// reserved on enqueue.
type EnqueueInput struct {
	Size              string
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
	ViolID            *int64
}

// Repository abstracts the waiting-list storage.
type Repository interface {
	Enqueue(ctx context.Context, entry Entry) (Entry, error)
	Get(ctx context.Context, id int64) (Entry, error)
	Fulfill(ctx context.Context, entryID, violID int64) (Entry, error)
	Cancel(ctx context.Context, entryID int64) error
	ListOpen(ctx context.Context, size *lifecycle.Size) ([]Entry, error)
}

// Service provides waiting-list operations.
type Service struct {
	repo Repository
}

// New constructs a Service with required dependencies.
func New(repo Repository) *Service {
	if repo == nil {
		panic("waitlist repo is required")
	}
	return &Service{repo: repo}
}

// Enqueue validates and records a request. An unset DateRequested
// defaults to now; position in line follows from it.
func (s *Service) Enqueue(ctx context.Context, input EnqueueInput) (Entry, error) {
	size, err := lifecycle.ParseSize(input.Size)
	if err != nil {
		return Entry{}, err
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return Entry{}, &lifecycle.ValidationError{Field: "name", Msg: "first and last name are required"}
	}
	if strings.TrimSpace(input.Email) == "" {
		return Entry{}, &lifecycle.ValidationError{Field: "email", Msg: "an email address is required"}
	}
	dateRequested := input.DateRequested
	if dateRequested.IsZero() {
		dateRequested = time.Now().UTC()
	}

	return s.repo.Enqueue(ctx, Entry{
		RequestedSize:     size,
		FirstName:         input.FirstName,
		LastName:          input.LastName,
		Email:             input.Email,
		Phone:             input.Phone,
		AddressLine1:      input.AddressLine1,
		AddressCity:       input.AddressCity,
		AddressState:      input.AddressState,
		AddressPostalCode: input.AddressPostalCode,
		Notes:             input.Notes,
		DateRequested:     dateRequested,
		ViolID:            input.ViolID,
	})
}

// Get returns one entry by id.
func (s *Service) Get(ctx context.Context, id int64) (Entry, error) {
	return s.repo.Get(ctx, id)
}

// Fulfill matches an open entry with a compatible viol that is available
// or reserved for the entry. The match is recorded; renting the viol out
// is a separate step.
func (s *Service) Fulfill(ctx context.Context, entryID, violID int64) (Entry, error) {
	return s.repo.Fulfill(ctx, entryID, violID)
}

// Cancel closes an open entry. A viol reserved for the entry goes back to
// the available pool.
func (s *Service) Cancel(ctx context.Context, entryID int64) error {
	return s.repo.Cancel(ctx, entryID)
}

// ListOpen returns open entries in first-come-first-served order,
// optionally restricted to one requested size.
func (s *Service) ListOpen(ctx context.Context, size *lifecycle.Size) ([]Entry, error) {
	return s.repo.ListOpen(ctx, size)
}
