package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vdgsa/rental-backend/domains/inventory/be/repo"
	"github.com/vdgsa/rental-backend/domains/inventory/be/service"
	"github.com/vdgsa/rental-backend/platform/go/lifecycle"
	"github.com/vdgsa/rental-backend/platform/go/persistence"
	"github.com/vdgsa/rental-backend/platform/go/persistence/memory"
)

func newService(t *testing.T) (*service.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return service.New(repo.NewMemory(store)), store
}

func mustCreate(t *testing.T, svc *service.Service, input service.CreateInput) service.Item {
	t.Helper()
	item, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	return item
}

func mustAvailable(t *testing.T, svc *service.Service, item service.Item) service.Item {
	t.Helper()
	out, err := svc.MarkAvailable(context.Background(), item.Kind, item.ID, "")
	require.NoError(t, err)
	return out
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	var validation *lifecycle.ValidationError

	_, err := svc.Create(ctx, service.CreateInput{Kind: "harp", Size: "bass"})
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "kind", validation.Field)

	_, err = svc.Create(ctx, service.CreateInput{Kind: "viol", Size: "gigantic"})
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "size", validation.Field)

	strings := 6
	_, err = svc.Create(ctx, service.CreateInput{Kind: "bow", Size: "bass", Strings: &strings})
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "strings", validation.Field)

	tooMany := 9
	_, err = svc.Create(ctx, service.CreateInput{Kind: "viol", Size: "bass", Strings: &tooMany})
	require.ErrorAs(t, err, &validation)

	negative := -100.0
	_, err = svc.Create(ctx, service.CreateInput{Kind: "viol", Size: "bass", Value: &negative})
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "value", validation.Field)
}

func TestCreateAssignsSequenceNumbers(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	first := mustCreate(t, svc, service.CreateInput{Kind: "viol", Size: "treble"})
	require.Equal(t, int64(1), first.VdgsaNumber)
	require.Equal(t, lifecycle.StatusNew, first.Status)

	second := mustCreate(t, svc, service.CreateInput{Kind: "viol", Size: "bass"})
	require.Equal(t, int64(2), second.VdgsaNumber)

	// Numbering is independent per kind.
	bow := mustCreate(t, svc, service.CreateInput{Kind: "bow", Size: "bass"})
	require.Equal(t, int64(1), bow.VdgsaNumber)

	next, err := svc.NextSequenceNumber(ctx, "viol")
	require.NoError(t, err)
	require.Equal(t, int64(3), next)
}

func TestListFilters(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	treble := mustAvailable(t, svc, mustCreate(t, svc, service.CreateInput{Kind: "viol", Size: "treble"}))
	bass := mustAvailable(t, svc, mustCreate(t, svc, service.CreateInput{Kind: "viol", Size: "bass"}))
	newViol := mustCreate(t, svc, service.CreateInput{Kind: "viol", Size: "tenor"})

	available, err := svc.List(ctx, service.Query{Kind: lifecycle.KindViol, Filter: service.FilterAvailable})
	require.NoError(t, err)
	require.Len(t, available, 2)

	size := lifecycle.SizeBass
	bassOnly, err := svc.List(ctx, service.Query{Kind: lifecycle.KindViol, Filter: service.FilterAvailable, Size: &size})
	require.NoError(t, err)
	require.Len(t, bassOnly, 1)
	require.Equal(t, bass.ID, bassOnly[0].ID)

	all, err := svc.List(ctx, service.Query{Kind: lifecycle.KindViol, Filter: service.FilterAll})
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Retired viols only show up under the retired filter.
	require.NoError(t, svc.Retire(ctx, lifecycle.KindViol, treble.ID, "worm damage"))
	retired, err := svc.List(ctx, service.Query{Kind: lifecycle.KindViol, Filter: service.FilterRetired})
	require.NoError(t, err)
	require.Len(t, retired, 1)
	all, err = svc.List(ctx, service.Query{Kind: lifecycle.KindViol, Filter: service.FilterAll})
	require.NoError(t, err)
	require.Len(t, all, 2)

	// The attachable filter only makes sense for viols.
	_, err = svc.List(ctx, service.Query{Kind: lifecycle.KindBow, Filter: service.FilterAttachable})
	var validation *lifecycle.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "filter", validation.Field)

	// Fit filtering is an accessory concern; viol listings reject it.
	violSize := lifecycle.SizeBass
	_, err = svc.List(ctx, service.Query{Kind: lifecycle.KindViol, Filter: service.FilterAvailable, ViolSize: &violSize})
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "viol_size", validation.Field)

	_ = newViol
}

func TestAttachableListsViolsNotOnLoan(t *testing.T) {
	t.Parallel()
	svc, store := newService(t)
	ctx := context.Background()

	fresh := mustCreate(t, svc, service.CreateInput{Kind: "viol", Size: "tenor"})
	open := mustAvailable(t, svc, mustCreate(t, svc, service.CreateInput{Kind: "viol", Size: "tenor"}))
	onLoan := mustAvailable(t, svc, mustCreate(t, svc, service.CreateInput{Kind: "viol", Size: "tenor"}))
	held := mustAvailable(t, svc, mustCreate(t, svc, service.CreateInput{Kind: "viol", Size: "bass"}))
	gone := mustAvailable(t, svc, mustCreate(t, svc, service.CreateInput{Kind: "viol", Size: "tenor"}))

	_, err := store.RentOut(ctx, onLoan.ID, persistence.RentOutParams{
		RenterID:    11,
		RentalStart: time.Now(),
		RentalEnd:   time.Now().AddDate(1, 0, 0),
	})
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, persistence.WaitlistRecord{
		RequestedSize: lifecycle.SizeBass,
		FirstName:     "Marin",
		LastName:      "Marais",
		Email:         "marin@example.com",
		Status:        lifecycle.WaitlistOpen,
		ViolID:        &held.ID,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Retire(ctx, lifecycle.KindViol, gone.ID, "cracked top"))

	// New, available and reserved viols are open to a rental; rented and
	// retired ones are not.
	got, err := svc.List(ctx, service.Query{Kind: lifecycle.KindViol, Filter: service.FilterAttachable})
	require.NoError(t, err)
	ids := make([]int64, 0, len(got))
	for _, item := range got {
		ids = append(ids, item.ID)
	}
	require.ElementsMatch(t, []int64{fresh.ID, open.ID, held.ID}, ids)

	size := lifecycle.SizeTenor
	tenors, err := svc.List(ctx, service.Query{Kind: lifecycle.KindViol, Filter: service.FilterAttachable, Size: &size})
	require.NoError(t, err)
	require.Len(t, tenors, 2)
}

func TestUnattachedHonorsSizeFit(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	sevenString := mustAvailable(t, svc, mustCreate(t, svc, service.CreateInput{Kind: "viol", Size: "seven_string_bass"}))

	bassBow := mustCreate(t, svc, service.CreateInput{Kind: "bow", Size: "bass"})
	sevenBow := mustCreate(t, svc, service.CreateInput{Kind: "bow", Size: "seven_string_bass"})
	trebleBow := mustCreate(t, svc, service.CreateInput{Kind: "bow", Size: "treble"})

	// A bass bow serves a seven-string bass viol, a treble bow does not.
	violSize := lifecycle.SizeSevenStringBass
	fits, err := svc.List(ctx, service.Query{Kind: lifecycle.KindBow, Filter: service.FilterUnattached, ViolSize: &violSize})
	require.NoError(t, err)
	require.Len(t, fits, 2)

	// The reverse direction is not allowed: a seven-string bow on a bass viol.
	bassViolSize := lifecycle.SizeBass
	fits, err = svc.List(ctx, service.Query{Kind: lifecycle.KindBow, Filter: service.FilterUnattached, ViolSize: &bassViolSize})
	require.NoError(t, err)
	require.Len(t, fits, 1)
	require.Equal(t, bassBow.ID, fits[0].ID)

	// Attached bows disappear from the unattached listing.
	require.NoError(t, svc.Attach(ctx, lifecycle.KindBow, bassBow.ID, sevenString.ID))
	fits, err = svc.List(ctx, service.Query{Kind: lifecycle.KindBow, Filter: service.FilterUnattached, ViolSize: &violSize})
	require.NoError(t, err)
	require.Len(t, fits, 1)
	require.Equal(t, sevenBow.ID, fits[0].ID)

	_ = trebleBow
}

func TestAttachRejectsSizeMismatch(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	bassViol := mustAvailable(t, svc, mustCreate(t, svc, service.CreateInput{Kind: "viol", Size: "bass"}))
	sevenBow := mustCreate(t, svc, service.CreateInput{Kind: "bow", Size: "seven_string_bass"})

	err := svc.Attach(ctx, lifecycle.KindBow, sevenBow.ID, bassViol.ID)
	var mismatch *lifecycle.SizeMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, lifecycle.SizeSevenStringBass, mismatch.AccessorySize)
	require.Equal(t, lifecycle.SizeBass, mismatch.ViolSize)
}

func TestDetachTransfersCustody(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	custodian := int64(42)
	viol := mustCreate(t, svc, service.CreateInput{Kind: "viol", Size: "tenor", CustodianID: &custodian})
	viol = mustAvailable(t, svc, viol)
	bow := mustCreate(t, svc, service.CreateInput{Kind: "bow", Size: "tenor"})

	require.NoError(t, svc.Attach(ctx, lifecycle.KindBow, bow.ID, viol.ID))
	require.NoError(t, svc.Detach(ctx, lifecycle.KindBow, bow.ID))

	got, err := svc.Get(ctx, lifecycle.KindBow, bow.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusDetached, got.Status)
	require.Nil(t, got.ViolID)
	require.NotNil(t, got.CustodianID)
	require.Equal(t, custodian, *got.CustodianID)

	// Detaching an unattached bow fails.
	err = svc.Detach(ctx, lifecycle.KindBow, bow.ID)
	var badMove *lifecycle.InvalidTransitionError
	require.ErrorAs(t, err, &badMove)
}

func TestRetireCascadesToAttachments(t *testing.T) {
	t.Parallel()
	svc, store := newService(t)
	ctx := context.Background()

	viol := mustAvailable(t, svc, mustCreate(t, svc, service.CreateInput{Kind: "viol", Size: "alto"}))
	bow := mustCreate(t, svc, service.CreateInput{Kind: "bow", Size: "alto"})
	altoCase := mustCreate(t, svc, service.CreateInput{Kind: "case", Size: "alto"})
	require.NoError(t, svc.Attach(ctx, lifecycle.KindBow, bow.ID, viol.ID))
	require.NoError(t, svc.Attach(ctx, lifecycle.KindCase, altoCase.ID, viol.ID))

	before := store.HistoryLen()
	require.NoError(t, svc.Retire(ctx, lifecycle.KindViol, viol.ID, "beyond repair"))

	for _, want := range []struct {
		kind lifecycle.Kind
		id   int64
	}{
		{lifecycle.KindViol, viol.ID},
		{lifecycle.KindBow, bow.ID},
		{lifecycle.KindCase, altoCase.ID},
	} {
		got, err := svc.Get(ctx, want.kind, want.id)
		require.NoError(t, err)
		require.Equal(t, lifecycle.StatusRetired, got.Status)
		require.Nil(t, got.ViolID)
	}
	// One ledger entry per retired item.
	require.Equal(t, before+3, store.HistoryLen())

	// Retirement is absorbing.
	err := svc.Retire(ctx, lifecycle.KindViol, viol.ID, "again")
	var badMove *lifecycle.InvalidTransitionError
	require.ErrorAs(t, err, &badMove)

	// An attached accessory cannot be retired on its own.
	viol2 := mustAvailable(t, svc, mustCreate(t, svc, service.CreateInput{Kind: "viol", Size: "treble"}))
	bow2 := mustCreate(t, svc, service.CreateInput{Kind: "bow", Size: "treble"})
	require.NoError(t, svc.Attach(ctx, lifecycle.KindBow, bow2.ID, viol2.ID))
	err = svc.Retire(ctx, lifecycle.KindBow, bow2.ID, "alone")
	require.ErrorAs(t, err, &badMove)
}

func TestSoftDeleteBlockedWhileAttached(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	viol := mustAvailable(t, svc, mustCreate(t, svc, service.CreateInput{Kind: "viol", Size: "tenor"}))
	bow := mustCreate(t, svc, service.CreateInput{Kind: "bow", Size: "tenor"})
	require.NoError(t, svc.Attach(ctx, lifecycle.KindBow, bow.ID, viol.ID))

	var badMove *lifecycle.InvalidTransitionError
	require.ErrorAs(t, svc.SoftDelete(ctx, lifecycle.KindViol, viol.ID, ""), &badMove)
	require.ErrorAs(t, svc.SoftDelete(ctx, lifecycle.KindBow, bow.ID, ""), &badMove)

	require.NoError(t, svc.Detach(ctx, lifecycle.KindBow, bow.ID))
	require.NoError(t, svc.SoftDelete(ctx, lifecycle.KindBow, bow.ID, "duplicate entry"))

	// Soft-deleted items stay readable but leave the listings.
	got, err := svc.Get(ctx, lifecycle.KindBow, bow.ID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusDeleted, got.Status)

	bows, err := svc.List(ctx, service.Query{Kind: lifecycle.KindBow, Filter: service.FilterAll})
	require.NoError(t, err)
	require.Empty(t, bows)
}

func TestChangeCustodian(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	viol := mustCreate(t, svc, service.CreateInput{Kind: "viol", Size: "bass"})

	keeper := int64(7)
	require.NoError(t, svc.ChangeCustodian(ctx, lifecycle.KindViol, viol.ID, &keeper))
	got, err := svc.Get(ctx, lifecycle.KindViol, viol.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CustodianID)
	require.Equal(t, keeper, *got.CustodianID)

	require.NoError(t, svc.ChangeCustodian(ctx, lifecycle.KindViol, viol.ID, nil))
	got, err = svc.Get(ctx, lifecycle.KindViol, viol.ID)
	require.NoError(t, err)
	require.Nil(t, got.CustodianID)

	// Absorbing states refuse custody changes.
	require.NoError(t, svc.Retire(ctx, lifecycle.KindViol, viol.ID, ""))
	err = svc.ChangeCustodian(ctx, lifecycle.KindViol, viol.ID, &keeper)
	var state *lifecycle.InvalidStateError
	require.ErrorAs(t, err, &state)
}
