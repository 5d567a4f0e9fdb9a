package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vdgsa/rental-backend/platform/go/lifecycle"
)

func setupStores(t *testing.T) (context.Context, *ItemStore, *HistoryStore, *WaitlistStore) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping rental store integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("vdgsa"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connString, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, PoolConfig{ConnString: connString})
	require.NoError(t, err)
	t.Cleanup(func() { ClosePool(pool) })

	require.NoError(t, ApplySchema(ctx, pool))

	items, err := NewItemStore(pool)
	require.NoError(t, err)
	history, err := NewHistoryStore(pool)
	require.NoError(t, err)
	waitlist, err := NewWaitlistStore(pool)
	require.NoError(t, err)

	return ctx, items, history, waitlist
}

func TestRentalLifecycleEndToEnd(t *testing.T) {
	t.Parallel()

	ctx, items, history, waitlist := setupStores(t)

	strings := 7
	viol, err := items.CreateItem(ctx, ItemRecord{
		Kind:    lifecycle.KindViol,
		Size:    lifecycle.SizeSevenStringBass,
		Strings: &strings,
		Maker:   "Jane Dow",
	})
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusNew, viol.Status)
	require.Equal(t, int64(1), viol.VdgsaNumber)

	bow, err := items.CreateItem(ctx, ItemRecord{
		Kind: lifecycle.KindBow,
		Size: lifecycle.SizeBass,
	})
	require.NoError(t, err)

	violCase, err := items.CreateItem(ctx, ItemRecord{
		Kind: lifecycle.KindCase,
		Size: lifecycle.SizeSevenStringBass,
	})
	require.NoError(t, err)

	viol, err = items.MarkAvailable(ctx, lifecycle.KindViol, viol.ID, "")
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusAvailable, viol.Status)

	// A bass bow fits a seven-string bass viol; the case is an exact match.
	require.NoError(t, items.Attach(ctx, lifecycle.KindBow, bow.ID, viol.ID))
	require.NoError(t, items.Attach(ctx, lifecycle.KindCase, violCase.ID, viol.ID))

	bow, err = items.GetItem(ctx, lifecycle.KindBow, bow.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusAttached, bow.Status)
	require.NotNil(t, bow.ViolID)
	require.Equal(t, viol.ID, *bow.ViolID)

	// A pardessus bow cannot attach to a bass viol.
	smallBow, err := items.CreateItem(ctx, ItemRecord{
		Kind: lifecycle.KindBow,
		Size: lifecycle.SizePardessus,
	})
	require.NoError(t, err)
	err = items.Attach(ctx, lifecycle.KindBow, smallBow.ID, viol.ID)
	var mismatch *lifecycle.SizeMismatchError
	require.ErrorAs(t, err, &mismatch)

	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	entry, err := history.RentOut(ctx, viol.ID, RentOutParams{
		RenterID:    501,
		RentalStart: start,
		RentalEnd:   end,
	})
	require.NoError(t, err)
	require.Equal(t, lifecycle.EventRented, entry.Event)

	viol, err = items.GetItem(ctx, lifecycle.KindViol, viol.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusRented, viol.Status)
	require.NotNil(t, viol.RenterID)
	require.Equal(t, int64(501), *viol.RenterID)

	// Renting an already-rented viol must fail.
	_, err = history.RentOut(ctx, viol.ID, RentOutParams{RenterID: 502, RentalStart: start, RentalEnd: end})
	var badMove *lifecycle.InvalidTransitionError
	require.ErrorAs(t, err, &badMove)

	last, err := history.LastRentalFor(ctx, lifecycle.KindViol, viol.ID)
	require.NoError(t, err)
	require.NotNil(t, last.RenterID)
	require.Equal(t, int64(501), *last.RenterID)

	renewed, err := history.Renew(ctx, viol.ID, end.AddDate(1, 0, 0), "")
	require.NoError(t, err)
	require.Equal(t, lifecycle.EventRenewed, renewed.Event)
	require.Contains(t, renewed.Notes, "renewed from")

	returned, err := history.Return(ctx, viol.ID, "back at the depot")
	require.NoError(t, err)
	// The viol plus both attached accessories each get an entry.
	require.Len(t, returned, 3)
	require.Equal(t, lifecycle.EventReturned, returned[0].Event)

	viol, err = items.GetItem(ctx, lifecycle.KindViol, viol.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusAvailable, viol.Status)
	require.Nil(t, viol.RenterID)

	// Accessories stayed attached across the return.
	bow, err = items.GetItem(ctx, lifecycle.KindBow, bow.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusAttached, bow.Status)

	require.NoError(t, items.Detach(ctx, lifecycle.KindBow, bow.ID))
	bow, err = items.GetItem(ctx, lifecycle.KindBow, bow.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusDetached, bow.Status)
	require.Nil(t, bow.ViolID)

	// Retiring the viol cascades to the still-attached case.
	require.NoError(t, items.Retire(ctx, lifecycle.KindViol, viol.ID, "cracked top"))
	viol, err = items.GetItem(ctx, lifecycle.KindViol, viol.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusRetired, viol.Status)
	violCase, err = items.GetItem(ctx, lifecycle.KindCase, violCase.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusRetired, violCase.Status)
	require.Nil(t, violCase.ViolID)

	// The ledger survives and stays ordered most recent first.
	trail, err := history.HistoryForItem(ctx, lifecycle.KindViol, viol.ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(trail), 5)
	require.Equal(t, lifecycle.EventRetired, trail[0].Event)

	personTrail, err := history.HistoryForPerson(ctx, 501, 10)
	require.NoError(t, err)
	require.NotEmpty(t, personTrail)

	// Waitlist round trip against a fresh available viol.
	available, err := items.CreateItem(ctx, ItemRecord{
		Kind: lifecycle.KindViol,
		Size: lifecycle.SizeTenor,
	})
	require.NoError(t, err)
	_, err = items.MarkAvailable(ctx, lifecycle.KindViol, available.ID, "")
	require.NoError(t, err)

	entry1, err := waitlist.Enqueue(ctx, WaitlistRecord{
		RequestedSize: lifecycle.SizeTenor,
		FirstName:     "Pat",
		LastName:      "Chen",
		Email:         "pat@example.com",
		DateRequested: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, lifecycle.WaitlistOpen, entry1.Status)

	open, err := waitlist.ListOpen(ctx, nil)
	require.NoError(t, err)
	require.Len(t, open, 1)

	fulfilled, err := waitlist.Fulfill(ctx, entry1.ID, available.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.WaitlistFulfilled, fulfilled.Status)
	require.NotNil(t, fulfilled.MatchedItemID)
	require.Equal(t, available.ID, *fulfilled.MatchedItemID)

	// Fulfillment records the match but does not rent the viol.
	available, err = items.GetItem(ctx, lifecycle.KindViol, available.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusAvailable, available.Status)

	// A pinned entry reserves its viol, and the reservation carries all
	// the way through fulfillment to the loan.
	pinned, err := items.CreateItem(ctx, ItemRecord{
		Kind: lifecycle.KindViol,
		Size: lifecycle.SizeTenor,
	})
	require.NoError(t, err)
	_, err = items.MarkAvailable(ctx, lifecycle.KindViol, pinned.ID, "")
	require.NoError(t, err)

	entry2, err := waitlist.Enqueue(ctx, WaitlistRecord{
		RequestedSize: lifecycle.SizeTenor,
		FirstName:     "Noa",
		LastName:      "Ruiz",
		Email:         "noa@example.com",
		DateRequested: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		ViolID:        &pinned.ID,
	})
	require.NoError(t, err)

	pinned, err = items.GetItem(ctx, lifecycle.KindViol, pinned.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusReserved, pinned.Status)

	_, err = waitlist.Fulfill(ctx, entry2.ID, pinned.ID)
	require.NoError(t, err)

	_, err = history.RentOut(ctx, pinned.ID, RentOutParams{
		RenterID:    503,
		RentalStart: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
		RentalEnd:   time.Date(2027, 2, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	pinned, err = items.GetItem(ctx, lifecycle.KindViol, pinned.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusRented, pinned.Status)
}

func TestRentOutSingleWinner(t *testing.T) {
	t.Parallel()

	ctx, items, history, _ := setupStores(t)

	viol, err := items.CreateItem(ctx, ItemRecord{
		Kind: lifecycle.KindViol,
		Size: lifecycle.SizeTreble,
	})
	require.NoError(t, err)
	_, err = items.MarkAvailable(ctx, lifecycle.KindViol, viol.ID, "")
	require.NoError(t, err)

	const renters = 8
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make([]error, renters)
	for i := 0; i < renters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = history.RentOut(ctx, viol.ID, RentOutParams{
				RenterID:    int64(1000 + i),
				RentalStart: start,
				RentalEnd:   start.AddDate(1, 0, 0),
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		var badMove *lifecycle.InvalidTransitionError
		if !errors.As(err, &badMove) {
			require.ErrorIs(t, err, lifecycle.ErrConflict)
		}
	}
	require.Equal(t, 1, winners)

	viol, err = items.GetItem(ctx, lifecycle.KindViol, viol.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusRented, viol.Status)
}
