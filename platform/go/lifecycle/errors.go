package lifecycle

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the rental domains.
var (
	// ErrNotFound means the referenced item or entry does not exist or was
	// hard-deleted. Never retried automatically.
	ErrNotFound = errors.New("not found")

	// ErrConflict means the operation lost a row-lock race with a
	// concurrent mutation. Callers should treat it as "try again".
	ErrConflict = errors.New("conflicting concurrent update")
)

// InvalidTransitionError reports a status change that is not permitted
// from the item's current state.
type InvalidTransitionError struct {
	Kind Kind
	ID   int64
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s %d: cannot transition from %q to %q", e.Kind, e.ID, e.From, e.To)
}

// SizeMismatchError reports an accessory/viol size incompatibility on
// attach or waitlist fulfillment.
type SizeMismatchError struct {
	AccessorySize Size
	ViolSize      Size
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch: %s accessory does not fit %s viol", e.AccessorySize, e.ViolSize)
}

// ValidationError reports malformed input: an unknown enum value or a
// missing required field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// InvalidStateError reports an operation applied to an entity whose
// current state forbids it (for example, fulfilling a waitlist entry with
// an item that is not available).
type InvalidStateError struct {
	Entity string
	ID     int64
	State  string
	Action string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %d is %s: cannot %s", e.Entity, e.ID, e.State, e.Action)
}
