package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransitionLegalMoves(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusNew, StatusAvailable},
		{StatusAvailable, StatusReserved},
		{StatusAvailable, StatusRented},
		{StatusRented, StatusRented},
		{StatusRented, StatusAvailable},
		{StatusNew, StatusAttached},
		{StatusAvailable, StatusAttached},
		{StatusDetached, StatusAttached},
		{StatusAttached, StatusDetached},
		{StatusReserved, StatusAvailable},
	}
	for _, tc := range legal {
		require.NoError(t, CanTransition(KindViol, 1, tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCanTransitionRetireAndDeleteFromAnyNonAbsorbing(t *testing.T) {
	for _, from := range Statuses {
		err := CanTransition(KindBow, 2, from, StatusRetired)
		if from.Absorbing() {
			require.Error(t, err)
		} else {
			require.NoError(t, err, "retire from %s", from)
		}
		err = CanTransition(KindBow, 2, from, StatusDeleted)
		if from.Absorbing() {
			require.Error(t, err)
		} else {
			require.NoError(t, err, "delete from %s", from)
		}
	}
}

func TestCanTransitionAbsorbingStates(t *testing.T) {
	for _, from := range []Status{StatusRetired, StatusDeleted} {
		for _, to := range Statuses {
			err := CanTransition(KindCase, 3, from, to)
			require.Error(t, err)

			var ite *InvalidTransitionError
			require.True(t, errors.As(err, &ite))
			require.Equal(t, from, ite.From)
			require.Equal(t, to, ite.To)
		}
	}
}

func TestCanTransitionRejectsUnlistedPairs(t *testing.T) {
	illegal := []struct{ from, to Status }{
		{StatusNew, StatusRented},
		{StatusRented, StatusReserved},
		{StatusDetached, StatusRented},
		{StatusAttached, StatusRented},
		{StatusAvailable, StatusNew},
		{StatusRented, StatusDetached},
	}
	for _, tc := range illegal {
		require.Error(t, CanTransition(KindViol, 4, tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCompatible(t *testing.T) {
	require.True(t, Compatible(SizeTreble, SizeTreble))
	require.True(t, Compatible(SizeBass, SizeBass))

	// Historical special case: a bass accessory fits a seven-string bass.
	require.True(t, Compatible(SizeBass, SizeSevenStringBass))

	// The rule is one-directional.
	require.False(t, Compatible(SizeSevenStringBass, SizeBass))
	require.False(t, Compatible(SizeTreble, SizeBass))
	require.False(t, Compatible(SizeAlto, SizeTenor))
}

func TestParsers(t *testing.T) {
	k, err := ParseKind("bow")
	require.NoError(t, err)
	require.Equal(t, KindBow, k)
	require.True(t, k.IsAccessory())

	v, err := ParseKind("viol")
	require.NoError(t, err)
	require.False(t, v.IsAccessory())

	_, err = ParseKind("lute")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "kind", ve.Field)

	s, err := ParseSize("seven_string_bass")
	require.NoError(t, err)
	require.Equal(t, SizeSevenStringBass, s)

	_, err = ParseSize("giant")
	require.Error(t, err)

	st, err := ParseStatus("detached")
	require.NoError(t, err)
	require.Equal(t, StatusDetached, st)

	_, err = ParseStatus("lost")
	require.Error(t, err)

	ev, err := ParseEvent("renewed")
	require.NoError(t, err)
	require.Equal(t, EventRenewed, ev)

	_, err = ParseEvent("exploded")
	require.Error(t, err)
}

func TestKindSegments(t *testing.T) {
	for _, k := range Kinds {
		parsed, err := ParseKindSegment(k.Segment())
		require.NoError(t, err)
		require.Equal(t, k, parsed)
	}
	require.Equal(t, "viols", KindViol.Segment())

	// Singular forms are body values, not path segments.
	_, err := ParseKindSegment("viol")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "kind", ve.Field)
}
