// Package lifecycle is the shared validation kernel for the rental
// inventory: the closed kind/size/status/event types, the legal status
// transition table, and the size compatibility rule. Every code path that
// writes an item status routes through CanTransition; nothing else is
// allowed to decide what a legal move is.
package lifecycle

// Kind identifies the physical item family. Viols are instruments; bows
// and cases are accessories that attach to exactly one viol at a time.
type Kind string

const (
	KindViol Kind = "viol"
	KindBow  Kind = "bow"
	KindCase Kind = "case"
)

// Kinds lists all item kinds in display order.
var Kinds = []Kind{KindViol, KindBow, KindCase}

// IsAccessory reports whether items of this kind attach to a viol.
func (k Kind) IsAccessory() bool {
	return k == KindBow || k == KindCase
}

// ParseKind validates a wire-format kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindViol, KindBow, KindCase:
		return Kind(s), nil
	}
	return "", &ValidationError{Field: "kind", Msg: "unknown item kind " + s}
}

// Segment returns the plural URL path segment for the kind, e.g. "viols".
func (k Kind) Segment() string {
	return string(k) + "s"
}

// ParseKindSegment validates a plural URL path segment ("viols", "bows",
// "cases").
func ParseKindSegment(s string) (Kind, error) {
	for _, k := range Kinds {
		if s == k.Segment() {
			return k, nil
		}
	}
	return "", &ValidationError{Field: "kind", Msg: "unknown item kind " + s}
}

// Size is the viol size family. Accessories carry the same enum so they
// can be matched against instruments.
type Size string

const (
	SizePardessus       Size = "pardessus"
	SizeTreble          Size = "treble"
	SizeAlto            Size = "alto"
	SizeTenor           Size = "tenor"
	SizeBass            Size = "bass"
	SizeSevenStringBass Size = "seven_string_bass"
	SizeOther           Size = "other"
)

// Sizes lists all sizes smallest-first.
var Sizes = []Size{SizePardessus, SizeTreble, SizeAlto, SizeTenor, SizeBass, SizeSevenStringBass, SizeOther}

// ParseSize validates a wire-format size string.
func ParseSize(s string) (Size, error) {
	for _, sz := range Sizes {
		if Size(s) == sz {
			return sz, nil
		}
	}
	return "", &ValidationError{Field: "size", Msg: "unknown size " + s}
}

// Compatible reports whether an accessory of size acc fits a viol of size
// viol. Matches are exact except for the historical special case: bass
// accessories fit seven-string bass viols.
func Compatible(acc, viol Size) bool {
	if acc == viol {
		return true
	}
	return acc == SizeBass && viol == SizeSevenStringBass
}

// Status is the lifecycle state of an item.
type Status string

const (
	StatusNew       Status = "new"
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusAttached  Status = "attached"
	StatusDetached  Status = "detached"
	StatusRented    Status = "rented"
	StatusRetired   Status = "retired"
	StatusDeleted   Status = "deleted"
	StatusUnknown   Status = "unknown"
)

// Statuses lists every status value.
var Statuses = []Status{
	StatusNew, StatusAvailable, StatusReserved, StatusAttached, StatusDetached,
	StatusRented, StatusRetired, StatusDeleted, StatusUnknown,
}

// ParseStatus validates a wire-format status string.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if Status(s) == st {
			return st, nil
		}
	}
	return "", &ValidationError{Field: "status", Msg: "unknown status " + s}
}

// Absorbing reports whether no further transitions are permitted from this
// status. Retired and deleted items only leave these states through an
// administrative override outside this system.
func (s Status) Absorbing() bool {
	return s == StatusRetired || s == StatusDeleted
}

// Active reports whether default listings include items in this status.
func (s Status) Active() bool {
	return !s.Absorbing()
}

// transitions is the closed table of legal moves. Retirement and soft
// deletion are reachable from every non-absorbing state; everything else
// is enumerated explicitly.
var transitions = map[Status]map[Status]bool{
	StatusNew: {
		StatusAvailable: true,
		StatusAttached:  true,
	},
	StatusAvailable: {
		StatusReserved: true,
		StatusRented:   true,
		StatusAttached: true,
	},
	StatusReserved: {
		StatusAvailable: true,
		StatusRented:    true,
	},
	StatusRented: {
		StatusRented:    true, // renew
		StatusAvailable: true, // return
	},
	StatusAttached: {
		StatusAttached: true,
		StatusDetached: true,
	},
	StatusDetached: {
		StatusAttached: true,
	},
	StatusUnknown: {},
}

// CanTransition returns nil when moving from one status to another is
// legal, and an *InvalidTransitionError naming the offending pair
// otherwise. kind and id identify the item for error reporting only.
func CanTransition(kind Kind, id int64, from, to Status) error {
	if !from.Absorbing() && (to == StatusRetired || to == StatusDeleted) {
		return nil
	}
	if allowed := transitions[from]; allowed[to] {
		return nil
	}
	return &InvalidTransitionError{Kind: kind, ID: id, From: from, To: to}
}

// Event is the history ledger entry type. Events mirror status
// transitions, plus the rental bookkeeping events that do not change
// status on their own.
type Event string

const (
	EventAvailable Event = "available"
	EventReserved  Event = "reserved"
	EventRented    Event = "rented"
	EventRenewed   Event = "renewed"
	EventReturned  Event = "returned"
	EventAttached  Event = "attached"
	EventDetached  Event = "detached"
	EventRetired   Event = "retired"
	EventDeleted   Event = "deleted"
	EventCustody   Event = "custodian_changed"
)

// Events lists every ledger event value.
var Events = []Event{
	EventAvailable, EventReserved, EventRented, EventRenewed, EventReturned,
	EventAttached, EventDetached, EventRetired, EventDeleted, EventCustody,
}

// ParseEvent validates a wire-format event string.
func ParseEvent(s string) (Event, error) {
	for _, ev := range Events {
		if Event(s) == ev {
			return ev, nil
		}
	}
	return "", &ValidationError{Field: "event", Msg: "unknown event " + s}
}
