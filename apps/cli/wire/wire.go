// Package wire builds the service stack for CLI commands.
package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	inventoryrepo "github.com/vdgsa/rental-backend/domains/inventory/be/repo"
	inventoryservice "github.com/vdgsa/rental-backend/domains/inventory/be/service"
	rentalsrepo "github.com/vdgsa/rental-backend/domains/rentals/be/repo"
	rentalsservice "github.com/vdgsa/rental-backend/domains/rentals/be/service"
	waitlistrepo "github.com/vdgsa/rental-backend/domains/waitlist/be/repo"
	waitlistservice "github.com/vdgsa/rental-backend/domains/waitlist/be/service"
	"github.com/vdgsa/rental-backend/platform/go/persistence"
)

// Services bundles the domain services over one connection pool.
type Services struct {
	Inventory *inventoryservice.Service
	Rentals   *rentalsservice.Service
	Waitlist  *waitlistservice.Service

	close func()
}

// Open connects to the database and builds the service stack. An empty
// databaseURL falls back to the DATABASE_URL environment variable (a
// local .env file is honored).
func Open(ctx context.Context, databaseURL string) (*Services, error) {
	if databaseURL == "" {
		_ = godotenv.Load()
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL required: pass --database-url or set DATABASE_URL")
	}

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
	if err != nil {
		return nil, fmt.Errorf("init pool: %w", err)
	}
	if err := persistence.ApplySchema(ctx, pool); err != nil {
		persistence.ClosePool(pool)
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	itemStore, err := persistence.NewItemStore(pool)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, fmt.Errorf("init item store: %w", err)
	}
	historyStore, err := persistence.NewHistoryStore(pool)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, fmt.Errorf("init history store: %w", err)
	}
	waitlistStore, err := persistence.NewWaitlistStore(pool)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, fmt.Errorf("init waitlist store: %w", err)
	}

	return &Services{
		Inventory: inventoryservice.New(inventoryrepo.NewPostgres(itemStore)),
		Rentals:   rentalsservice.New(rentalsrepo.NewPostgres(historyStore)),
		Waitlist:  waitlistservice.New(waitlistrepo.NewPostgres(waitlistStore)),
		close:     func() { persistence.ClosePool(pool) },
	}, nil
}

// Close releases the pool.
func (s *Services) Close() {
	s.close()
}

// PrintJSON writes v to stdout as indented JSON.
func PrintJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
