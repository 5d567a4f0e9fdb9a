package repo

import (
	"github.com/vdgsa/rental-backend/platform/go/persistence/memory"
)

// NewMemory builds a Repository over the in-memory engine, suitable for
// tests and early development.
func NewMemory(store *memory.Store) *Repository {
	if store == nil {
		panic("memory store is required")
	}
	return &Repository{store: store}
}
