package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	inventoryrepo "github.com/vdgsa/rental-backend/domains/inventory/be/repo"
	inventoryservice "github.com/vdgsa/rental-backend/domains/inventory/be/service"
	"github.com/vdgsa/rental-backend/domains/rentals/be/repo"
	"github.com/vdgsa/rental-backend/domains/rentals/be/service"
	"github.com/vdgsa/rental-backend/platform/go/lifecycle"
	"github.com/vdgsa/rental-backend/platform/go/persistence/memory"
)

type fixture struct {
	rentals   *service.Service
	inventory *inventoryservice.Service
	store     *memory.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.NewStore()
	return fixture{
		rentals:   service.New(repo.NewMemory(store)),
		inventory: inventoryservice.New(inventoryrepo.NewMemory(store)),
		store:     store,
	}
}

func (f fixture) availableViol(t *testing.T, size string) inventoryservice.Item {
	t.Helper()
	ctx := context.Background()
	viol, err := f.inventory.Create(ctx, inventoryservice.CreateInput{Kind: "viol", Size: size})
	require.NoError(t, err)
	viol, err = f.inventory.MarkAvailable(ctx, lifecycle.KindViol, viol.ID, "")
	require.NoError(t, err)
	return viol
}

var (
	rentalStart = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	rentalEnd   = rentalStart.AddDate(1, 0, 0)
)

func TestRentOutValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	var validation *lifecycle.ValidationError

	_, err := f.rentals.RentOut(ctx, service.RentOutInput{ViolID: 1, RenterID: 0, RentalStart: rentalStart, RentalEnd: rentalEnd})
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "renter_id", validation.Field)

	_, err = f.rentals.RentOut(ctx, service.RentOutInput{ViolID: 1, RenterID: 5})
	require.ErrorAs(t, err, &validation)

	_, err = f.rentals.RentOut(ctx, service.RentOutInput{ViolID: 1, RenterID: 5, RentalStart: rentalEnd, RentalEnd: rentalStart})
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "rental_end", validation.Field)
}

func TestRentOutRequiresAvailableViol(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	// Unknown viol.
	_, err := f.rentals.RentOut(ctx, service.RentOutInput{ViolID: 99, RenterID: 5, RentalStart: rentalStart, RentalEnd: rentalEnd})
	require.ErrorIs(t, err, lifecycle.ErrNotFound)

	// A brand-new viol is not rentable until marked available.
	viol, err := f.inventory.Create(ctx, inventoryservice.CreateInput{Kind: "viol", Size: "tenor"})
	require.NoError(t, err)
	_, err = f.rentals.RentOut(ctx, service.RentOutInput{ViolID: viol.ID, RenterID: 5, RentalStart: rentalStart, RentalEnd: rentalEnd})
	var badMove *lifecycle.InvalidTransitionError
	require.ErrorAs(t, err, &badMove)
	require.Equal(t, lifecycle.StatusNew, badMove.From)
}

func TestRentRenewReturnRoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	viol := f.availableViol(t, "bass")
	bow, err := f.inventory.Create(ctx, inventoryservice.CreateInput{Kind: "bow", Size: "bass"})
	require.NoError(t, err)
	require.NoError(t, f.inventory.Attach(ctx, lifecycle.KindBow, bow.ID, viol.ID))

	contract := "C-2026-017"
	entry, err := f.rentals.RentOut(ctx, service.RentOutInput{
		ViolID:            viol.ID,
		RenterID:          501,
		RentalStart:       rentalStart,
		RentalEnd:         rentalEnd,
		ContractReference: &contract,
	})
	require.NoError(t, err)
	require.Equal(t, lifecycle.EventRented, entry.Event)
	require.NotNil(t, entry.RenterID)
	require.Equal(t, int64(501), *entry.RenterID)

	got, err := f.inventory.Get(ctx, lifecycle.KindViol, viol.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusRented, got.Status)
	require.NotNil(t, got.RenterID)

	// Second renter loses.
	_, err = f.rentals.RentOut(ctx, service.RentOutInput{ViolID: viol.ID, RenterID: 502, RentalStart: rentalStart, RentalEnd: rentalEnd})
	var badMove *lifecycle.InvalidTransitionError
	require.ErrorAs(t, err, &badMove)

	renewed, err := f.rentals.Renew(ctx, viol.ID, rentalEnd.AddDate(1, 0, 0), "")
	require.NoError(t, err)
	require.Equal(t, lifecycle.EventRenewed, renewed.Event)
	require.Contains(t, renewed.Notes, "renewed from")
	// Renewal keeps the viol rented to the same member.
	got, err = f.inventory.Get(ctx, lifecycle.KindViol, viol.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusRented, got.Status)

	entries, err := f.rentals.Return(ctx, viol.ID, "all good")
	require.NoError(t, err)
	// The viol and its attached bow each get a returned entry.
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.Equal(t, lifecycle.EventReturned, e.Event)
	}

	got, err = f.inventory.Get(ctx, lifecycle.KindViol, viol.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusAvailable, got.Status)
	require.Nil(t, got.RenterID)

	// The bow stayed attached through the rental.
	gotBow, err := f.inventory.Get(ctx, lifecycle.KindBow, bow.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusAttached, gotBow.Status)

	// Returning twice fails.
	_, err = f.rentals.Return(ctx, viol.ID, "")
	require.ErrorAs(t, err, &badMove)
}

func TestRenewRequiresActiveRental(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	viol := f.availableViol(t, "treble")
	_, err := f.rentals.Renew(ctx, viol.ID, rentalEnd, "")
	var badMove *lifecycle.InvalidTransitionError
	require.ErrorAs(t, err, &badMove)
}

func TestLastRentalFor(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	viol := f.availableViol(t, "tenor")

	_, err := f.rentals.LastRentalFor(ctx, lifecycle.KindViol, viol.ID)
	require.ErrorIs(t, err, lifecycle.ErrNotFound)

	_, err = f.rentals.RentOut(ctx, service.RentOutInput{ViolID: viol.ID, RenterID: 7, RentalStart: rentalStart, RentalEnd: rentalEnd})
	require.NoError(t, err)
	_, err = f.rentals.Return(ctx, viol.ID, "")
	require.NoError(t, err)
	_, err = f.rentals.RentOut(ctx, service.RentOutInput{ViolID: viol.ID, RenterID: 8, RentalStart: rentalStart.AddDate(1, 1, 0), RentalEnd: rentalEnd.AddDate(1, 1, 0)})
	require.NoError(t, err)

	last, err := f.rentals.LastRentalFor(ctx, lifecycle.KindViol, viol.ID)
	require.NoError(t, err)
	require.NotNil(t, last.RenterID)
	require.Equal(t, int64(8), *last.RenterID)
	// A contract reference is generated when the form leaves it blank.
	require.NotNil(t, last.ContractReference)
	require.Contains(t, *last.ContractReference, "R-")
}

func TestHistoryQueries(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	viol := f.availableViol(t, "alto")
	_, err := f.rentals.RentOut(ctx, service.RentOutInput{ViolID: viol.ID, RenterID: 9, RentalStart: rentalStart, RentalEnd: rentalEnd})
	require.NoError(t, err)
	_, err = f.rentals.Return(ctx, viol.ID, "")
	require.NoError(t, err)

	trail, err := f.rentals.HistoryForItem(ctx, lifecycle.KindViol, viol.ID)
	require.NoError(t, err)
	// available, rented, returned; most recent first.
	require.Len(t, trail, 3)
	require.Equal(t, lifecycle.EventReturned, trail[0].Event)
	require.Equal(t, lifecycle.EventRented, trail[1].Event)
	require.Equal(t, lifecycle.EventAvailable, trail[2].Event)

	// Snapshot columns survive the item itself.
	require.NoError(t, f.inventory.Retire(ctx, lifecycle.KindViol, viol.ID, "done"))
	trail, err = f.rentals.HistoryForItem(ctx, lifecycle.KindViol, viol.ID)
	require.NoError(t, err)
	require.Len(t, trail, 4)
	require.Equal(t, lifecycle.SizeAlto, trail[0].ItemSize)
	require.Equal(t, viol.VdgsaNumber, trail[0].VdgsaNumber)

	personTrail, err := f.rentals.HistoryForPerson(ctx, 9, 0)
	require.NoError(t, err)
	require.Len(t, personTrail, 2)

	limited, err := f.rentals.HistoryForPerson(ctx, 9, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, lifecycle.EventReturned, limited[0].Event)

	var validation *lifecycle.ValidationError
	_, err = f.rentals.HistoryForPerson(ctx, 0, 0)
	require.ErrorAs(t, err, &validation)
}
