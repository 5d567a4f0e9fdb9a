// Package memory provides an in-memory implementation of the rental
// stores with the same semantics as the Postgres layer. A single mutex
// serializes every mutation, which trivially satisfies the "no observable
// intermediate state" contract. Suitable for tests and early development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vdgsa/rental-backend/platform/go/lifecycle"
	"github.com/vdgsa/rental-backend/platform/go/persistence"
)

// Store holds all rental state in maps. The zero value is not usable;
// construct with NewStore.
type Store struct {
	mu sync.Mutex

	items  map[lifecycle.Kind]map[int64]persistence.ItemRecord
	nextID map[lifecycle.Kind]int64

	history       []persistence.HistoryRecord
	nextHistoryID int64

	waitlist   map[int64]persistence.WaitlistRecord
	nextWaitID int64
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		items: map[lifecycle.Kind]map[int64]persistence.ItemRecord{
			lifecycle.KindViol: {},
			lifecycle.KindBow:  {},
			lifecycle.KindCase: {},
		},
		nextID:        map[lifecycle.Kind]int64{},
		nextHistoryID: 0,
		waitlist:      map[int64]persistence.WaitlistRecord{},
	}
}

func (s *Store) appendHistoryLocked(rec persistence.HistoryRecord) persistence.HistoryRecord {
	s.nextHistoryID++
	rec.ID = s.nextHistoryID
	rec.OccurredAt = time.Now().UTC()
	s.history = append(s.history, rec)
	return rec
}

func (s *Store) nextVdgsaLocked(kind lifecycle.Kind) int64 {
	var max int64
	for _, rec := range s.items[kind] {
		if rec.VdgsaNumber > max {
			max = rec.VdgsaNumber
		}
	}
	return max + 1
}

// CreateItem inserts a new item in status "new", assigning the next id
// and, when unset, the next VdGSA number for the kind.
func (s *Store) CreateItem(_ context.Context, rec persistence.ItemRecord) (persistence.ItemRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID[rec.Kind]++
	rec.ID = s.nextID[rec.Kind]
	if rec.VdgsaNumber == 0 {
		rec.VdgsaNumber = s.nextVdgsaLocked(rec.Kind)
	}
	rec.Status = lifecycle.StatusNew
	rec.RenterID = nil
	rec.ViolID = nil
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	s.items[rec.Kind][rec.ID] = rec
	return rec, nil
}

// NextSequence returns one greater than the highest VdGSA number for the
// kind, or 1 when none exist.
func (s *Store) NextSequence(_ context.Context, kind lifecycle.Kind) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextVdgsaLocked(kind), nil
}

// GetItem fetches one item by id.
func (s *Store) GetItem(_ context.Context, kind lifecycle.Kind, id int64) (persistence.ItemRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(kind, id)
}

func (s *Store) getLocked(kind lifecycle.Kind, id int64) (persistence.ItemRecord, error) {
	rec, ok := s.items[kind][id]
	if !ok {
		return persistence.ItemRecord{}, lifecycle.ErrNotFound
	}
	return rec, nil
}

// ListItems mirrors the Postgres listing semantics, ordering by size then
// VdGSA number.
func (s *Store) ListItems(_ context.Context, kind lifecycle.Kind, params persistence.ListItemsParams) ([]persistence.ItemRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []persistence.ItemRecord
	for _, rec := range s.items[kind] {
		if !params.IncludeInactive && rec.Status.Absorbing() {
			continue
		}
		if params.Size != nil && rec.Size != *params.Size {
			continue
		}
		if params.FitViolSize != nil && !lifecycle.Compatible(rec.Size, *params.FitViolSize) {
			continue
		}
		if len(params.Statuses) > 0 {
			match := false
			for _, st := range params.Statuses {
				if rec.Status == st {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if params.Unattached && rec.ViolID != nil {
			continue
		}
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size < out[j].Size
		}
		if out[i].VdgsaNumber != out[j].VdgsaNumber {
			return out[i].VdgsaNumber < out[j].VdgsaNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) attachedLocked(violID int64) []persistence.ItemRecord {
	var out []persistence.ItemRecord
	for _, kind := range []lifecycle.Kind{lifecycle.KindBow, lifecycle.KindCase} {
		var ids []int64
		for id, rec := range s.items[kind] {
			if rec.ViolID != nil && *rec.ViolID == violID {
				ids = append(ids, id)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			out = append(out, s.items[kind][id])
		}
	}
	return out
}

// SoftDelete marks an item deleted; attachments block it in either
// direction.
func (s *Store) SoftDelete(_ context.Context, kind lifecycle.Kind, id int64, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.getLocked(kind, id)
	if err != nil {
		return err
	}
	if rec.ViolID != nil {
		return &lifecycle.InvalidTransitionError{Kind: kind, ID: id, From: rec.Status, To: lifecycle.StatusDeleted}
	}
	if kind == lifecycle.KindViol && len(s.attachedLocked(id)) > 0 {
		return &lifecycle.InvalidTransitionError{Kind: kind, ID: id, From: rec.Status, To: lifecycle.StatusDeleted}
	}
	if err := lifecycle.CanTransition(kind, id, rec.Status, lifecycle.StatusDeleted); err != nil {
		return err
	}

	rec.Status = lifecycle.StatusDeleted
	rec.RenterID = nil
	rec.UpdatedAt = time.Now().UTC()
	s.items[kind][id] = rec

	s.appendHistoryLocked(persistence.HistoryRecord{
		Event: lifecycle.EventDeleted, ItemKind: kind, ItemID: id,
		ItemSize: rec.Size, VdgsaNumber: rec.VdgsaNumber, Notes: notes,
	})
	return nil
}

// MarkAvailable moves a new item into the rental pool.
func (s *Store) MarkAvailable(_ context.Context, kind lifecycle.Kind, id int64, notes string) (persistence.ItemRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.getLocked(kind, id)
	if err != nil {
		return persistence.ItemRecord{}, err
	}
	if err := lifecycle.CanTransition(kind, id, rec.Status, lifecycle.StatusAvailable); err != nil {
		return persistence.ItemRecord{}, err
	}

	rec.Status = lifecycle.StatusAvailable
	rec.UpdatedAt = time.Now().UTC()
	s.items[kind][id] = rec

	s.appendHistoryLocked(persistence.HistoryRecord{
		Event: lifecycle.EventAvailable, ItemKind: kind, ItemID: id,
		ItemSize: rec.Size, VdgsaNumber: rec.VdgsaNumber, Notes: notes,
	})
	return rec, nil
}

// Attach bonds an accessory to a viol, mirroring the Postgres checks.
func (s *Store) Attach(_ context.Context, accKind lifecycle.Kind, accID, violID int64) error {
	if !accKind.IsAccessory() {
		return &lifecycle.ValidationError{Field: "kind", Msg: "only bows and cases attach to a viol"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	viol, err := s.getLocked(lifecycle.KindViol, violID)
	if err != nil {
		return err
	}
	acc, err := s.getLocked(accKind, accID)
	if err != nil {
		return err
	}

	if acc.ViolID != nil {
		return &lifecycle.InvalidTransitionError{Kind: accKind, ID: accID, From: acc.Status, To: lifecycle.StatusAttached}
	}
	switch acc.Status {
	case lifecycle.StatusNew, lifecycle.StatusAvailable, lifecycle.StatusDetached:
	default:
		return &lifecycle.InvalidTransitionError{Kind: accKind, ID: accID, From: acc.Status, To: lifecycle.StatusAttached}
	}
	if viol.Status.Absorbing() {
		return &lifecycle.InvalidStateError{Entity: string(lifecycle.KindViol), ID: violID, State: string(viol.Status), Action: "attach to"}
	}
	if !lifecycle.Compatible(acc.Size, viol.Size) {
		return &lifecycle.SizeMismatchError{AccessorySize: acc.Size, ViolSize: viol.Size}
	}
	if err := lifecycle.CanTransition(accKind, accID, acc.Status, lifecycle.StatusAttached); err != nil {
		return err
	}

	acc.Status = lifecycle.StatusAttached
	acc.ViolID = &violID
	acc.UpdatedAt = time.Now().UTC()
	s.items[accKind][accID] = acc

	s.appendHistoryLocked(persistence.HistoryRecord{
		Event: lifecycle.EventAttached, ItemKind: accKind, ItemID: accID,
		ItemSize: acc.Size, VdgsaNumber: acc.VdgsaNumber, ViolID: &violID,
	})
	return nil
}

// Detach unbonds an accessory; custody transfers to the viol's custodian.
func (s *Store) Detach(_ context.Context, accKind lifecycle.Kind, accID int64) error {
	if !accKind.IsAccessory() {
		return &lifecycle.ValidationError{Field: "kind", Msg: "only bows and cases detach from a viol"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, err := s.getLocked(accKind, accID)
	if err != nil {
		return err
	}
	if acc.ViolID == nil {
		return &lifecycle.InvalidTransitionError{Kind: accKind, ID: accID, From: acc.Status, To: lifecycle.StatusDetached}
	}
	viol, err := s.getLocked(lifecycle.KindViol, *acc.ViolID)
	if err != nil {
		return err
	}
	if err := lifecycle.CanTransition(accKind, accID, acc.Status, lifecycle.StatusDetached); err != nil {
		return err
	}

	acc.Status = lifecycle.StatusDetached
	acc.ViolID = nil
	acc.CustodianID = viol.CustodianID
	acc.UpdatedAt = time.Now().UTC()
	s.items[accKind][accID] = acc

	s.appendHistoryLocked(persistence.HistoryRecord{
		Event: lifecycle.EventDetached, ItemKind: accKind, ItemID: accID,
		ItemSize: acc.Size, VdgsaNumber: acc.VdgsaNumber, ViolID: &viol.ID,
	})
	return nil
}

// Retire retires one item; for viols the retirement cascades to attached
// accessories, all-or-nothing.
func (s *Store) Retire(_ context.Context, kind lifecycle.Kind, id int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.getLocked(kind, id)
	if err != nil {
		return err
	}
	if rec.ViolID != nil {
		return &lifecycle.InvalidTransitionError{Kind: kind, ID: id, From: rec.Status, To: lifecycle.StatusRetired}
	}
	if err := lifecycle.CanTransition(kind, id, rec.Status, lifecycle.StatusRetired); err != nil {
		return err
	}

	var cascade []persistence.ItemRecord
	if kind == lifecycle.KindViol {
		cascade = s.attachedLocked(id)
		for _, acc := range cascade {
			if err := lifecycle.CanTransition(acc.Kind, acc.ID, acc.Status, lifecycle.StatusRetired); err != nil {
				return err
			}
		}
	}

	now := time.Now().UTC()
	rec.Status = lifecycle.StatusRetired
	rec.RenterID = nil
	rec.UpdatedAt = now
	s.items[kind][id] = rec
	s.appendHistoryLocked(persistence.HistoryRecord{
		Event: lifecycle.EventRetired, ItemKind: kind, ItemID: id,
		ItemSize: rec.Size, VdgsaNumber: rec.VdgsaNumber, Notes: reason,
	})

	for _, acc := range cascade {
		acc.Status = lifecycle.StatusRetired
		acc.ViolID = nil
		acc.UpdatedAt = now
		s.items[acc.Kind][acc.ID] = acc
		s.appendHistoryLocked(persistence.HistoryRecord{
			Event: lifecycle.EventRetired, ItemKind: acc.Kind, ItemID: acc.ID,
			ItemSize: acc.Size, VdgsaNumber: acc.VdgsaNumber, ViolID: &id, Notes: reason,
		})
	}
	return nil
}

// ChangeCustodian records who physically holds the item.
func (s *Store) ChangeCustodian(_ context.Context, kind lifecycle.Kind, id int64, custodianID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.getLocked(kind, id)
	if err != nil {
		return err
	}
	if rec.Status.Absorbing() {
		return &lifecycle.InvalidStateError{Entity: string(kind), ID: id, State: string(rec.Status), Action: "change custodian of"}
	}

	rec.CustodianID = custodianID
	rec.UpdatedAt = time.Now().UTC()
	s.items[kind][id] = rec

	s.appendHistoryLocked(persistence.HistoryRecord{
		Event: lifecycle.EventCustody, ItemKind: kind, ItemID: id,
		ItemSize: rec.Size, VdgsaNumber: rec.VdgsaNumber, Notes: "custodian changed",
	})
	return nil
}

// RentOut moves an available or reserved viol to rented.
func (s *Store) RentOut(_ context.Context, violID int64, params persistence.RentOutParams) (persistence.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	viol, err := s.getLocked(lifecycle.KindViol, violID)
	if err != nil {
		return persistence.HistoryRecord{}, err
	}
	if viol.Status != lifecycle.StatusAvailable && viol.Status != lifecycle.StatusReserved {
		return persistence.HistoryRecord{}, &lifecycle.InvalidTransitionError{
			Kind: lifecycle.KindViol, ID: violID, From: viol.Status, To: lifecycle.StatusRented,
		}
	}

	viol.Status = lifecycle.StatusRented
	renterID := params.RenterID
	viol.RenterID = &renterID
	viol.UpdatedAt = time.Now().UTC()
	s.items[lifecycle.KindViol][violID] = viol

	start, end := params.RentalStart, params.RentalEnd
	entry := s.appendHistoryLocked(persistence.HistoryRecord{
		Event: lifecycle.EventRented, ItemKind: lifecycle.KindViol, ItemID: violID,
		ItemSize: viol.Size, VdgsaNumber: viol.VdgsaNumber, ViolID: &violID,
		RenterID: &renterID, RentalStart: &start, RentalEnd: &end,
		ContractReference: params.ContractReference, Notes: params.Notes,
	})
	return entry, nil
}

// Renew extends a current rental without changing status.
func (s *Store) Renew(_ context.Context, violID int64, newRentalEnd time.Time, notes string) (persistence.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	viol, err := s.getLocked(lifecycle.KindViol, violID)
	if err != nil {
		return persistence.HistoryRecord{}, err
	}
	if viol.Status != lifecycle.StatusRented {
		return persistence.HistoryRecord{}, &lifecycle.InvalidTransitionError{
			Kind: lifecycle.KindViol, ID: violID, From: viol.Status, To: lifecycle.StatusRented,
		}
	}

	var rentalStart, oldEnd *time.Time
	for i := len(s.history) - 1; i >= 0; i-- {
		h := s.history[i]
		if h.ItemKind == lifecycle.KindViol && h.ItemID == violID &&
			(h.Event == lifecycle.EventRented || h.Event == lifecycle.EventRenewed) {
			rentalStart = h.RentalStart
			oldEnd = h.RentalEnd
			break
		}
	}
	if oldEnd != nil {
		if notes != "" {
			notes += "; "
		}
		notes += fmt.Sprintf("renewed from %s to %s", oldEnd.Format("2006-01-02"), newRentalEnd.Format("2006-01-02"))
	}

	end := newRentalEnd
	entry := s.appendHistoryLocked(persistence.HistoryRecord{
		Event: lifecycle.EventRenewed, ItemKind: lifecycle.KindViol, ItemID: violID,
		ItemSize: viol.Size, VdgsaNumber: viol.VdgsaNumber, ViolID: &violID,
		RenterID: viol.RenterID, RentalStart: rentalStart, RentalEnd: &end, Notes: notes,
	})
	return entry, nil
}

// Return closes a rental; attached accessories stay bonded and each gets
// its own ledger entry.
func (s *Store) Return(_ context.Context, violID int64, notes string) ([]persistence.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	viol, err := s.getLocked(lifecycle.KindViol, violID)
	if err != nil {
		return nil, err
	}
	if viol.Status != lifecycle.StatusRented {
		return nil, &lifecycle.InvalidTransitionError{
			Kind: lifecycle.KindViol, ID: violID, From: viol.Status, To: lifecycle.StatusAvailable,
		}
	}

	renterID := viol.RenterID
	viol.Status = lifecycle.StatusAvailable
	viol.RenterID = nil
	viol.UpdatedAt = time.Now().UTC()
	s.items[lifecycle.KindViol][violID] = viol

	entries := []persistence.HistoryRecord{
		s.appendHistoryLocked(persistence.HistoryRecord{
			Event: lifecycle.EventReturned, ItemKind: lifecycle.KindViol, ItemID: violID,
			ItemSize: viol.Size, VdgsaNumber: viol.VdgsaNumber, ViolID: &violID,
			RenterID: renterID, Notes: notes,
		}),
	}
	for _, acc := range s.attachedLocked(violID) {
		entries = append(entries, s.appendHistoryLocked(persistence.HistoryRecord{
			Event: lifecycle.EventReturned, ItemKind: acc.Kind, ItemID: acc.ID,
			ItemSize: acc.Size, VdgsaNumber: acc.VdgsaNumber, ViolID: &violID,
			RenterID: renterID, Notes: notes,
		}))
	}
	return entries, nil
}

// LastRentalFor returns the most recent rented entry for the item, or
// ErrNotFound.
func (s *Store) LastRentalFor(_ context.Context, kind lifecycle.Kind, id int64) (persistence.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.history) - 1; i >= 0; i-- {
		h := s.history[i]
		if h.ItemKind == kind && h.ItemID == id && h.Event == lifecycle.EventRented {
			return h, nil
		}
	}
	return persistence.HistoryRecord{}, lifecycle.ErrNotFound
}

// HistoryForPerson returns the person's entries most recent first.
func (s *Store) HistoryForPerson(_ context.Context, personID int64, limit int) ([]persistence.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []persistence.HistoryRecord
	for i := len(s.history) - 1; i >= 0; i-- {
		h := s.history[i]
		if h.RenterID != nil && *h.RenterID == personID {
			out = append(out, h)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// HistoryForItem returns the item's entries most recent first.
func (s *Store) HistoryForItem(_ context.Context, kind lifecycle.Kind, id int64) ([]persistence.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []persistence.HistoryRecord
	for i := len(s.history) - 1; i >= 0; i-- {
		h := s.history[i]
		if h.ItemKind == kind && h.ItemID == id {
			out = append(out, h)
		}
	}
	return out, nil
}

// HistoryLen reports the total number of ledger entries; test helper for
// append-only assertions.
func (s *Store) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Enqueue records unmet demand, reserving a pinned viol when present.
func (s *Store) Enqueue(_ context.Context, rec persistence.WaitlistRecord) (persistence.WaitlistRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ViolID != nil {
		viol, err := s.getLocked(lifecycle.KindViol, *rec.ViolID)
		if err != nil {
			return persistence.WaitlistRecord{}, err
		}
		if err := lifecycle.CanTransition(lifecycle.KindViol, viol.ID, viol.Status, lifecycle.StatusReserved); err != nil {
			return persistence.WaitlistRecord{}, err
		}
		viol.Status = lifecycle.StatusReserved
		viol.UpdatedAt = time.Now().UTC()
		s.items[lifecycle.KindViol][viol.ID] = viol
		s.appendHistoryLocked(persistence.HistoryRecord{
			Event: lifecycle.EventReserved, ItemKind: lifecycle.KindViol, ItemID: viol.ID,
			ItemSize: viol.Size, VdgsaNumber: viol.VdgsaNumber, ViolID: &viol.ID,
			Notes: fmt.Sprintf("reserved for %s %s", rec.FirstName, rec.LastName),
		})
	}

	s.nextWaitID++
	rec.ID = s.nextWaitID
	rec.Status = lifecycle.WaitlistOpen
	rec.MatchedItemID = nil
	rec.CreatedAt = time.Now().UTC()
	s.waitlist[rec.ID] = rec
	return rec, nil
}

// GetWaitlist returns one entry by id.
func (s *Store) GetWaitlist(_ context.Context, id int64) (persistence.WaitlistRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.waitlist[id]
	if !ok {
		return persistence.WaitlistRecord{}, lifecycle.ErrNotFound
	}
	return rec, nil
}

// Fulfill records a match without renting the item. The viol must be
// available, or reserved for this very entry.
func (s *Store) Fulfill(_ context.Context, entryID, violID int64) (persistence.WaitlistRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.waitlist[entryID]
	if !ok {
		return persistence.WaitlistRecord{}, lifecycle.ErrNotFound
	}
	if entry.Status != lifecycle.WaitlistOpen {
		return persistence.WaitlistRecord{}, &lifecycle.InvalidStateError{
			Entity: "waitlist entry", ID: entryID, State: string(entry.Status), Action: "fulfill",
		}
	}
	viol, err := s.getLocked(lifecycle.KindViol, violID)
	if err != nil {
		return persistence.WaitlistRecord{}, err
	}
	pinnedHere := entry.ViolID != nil && *entry.ViolID == violID
	usable := viol.Status == lifecycle.StatusAvailable ||
		(viol.Status == lifecycle.StatusReserved && pinnedHere)
	if !usable {
		return persistence.WaitlistRecord{}, &lifecycle.InvalidStateError{
			Entity: string(lifecycle.KindViol), ID: violID, State: string(viol.Status), Action: "fulfill waitlist entry with",
		}
	}
	if !lifecycle.Compatible(entry.RequestedSize, viol.Size) {
		return persistence.WaitlistRecord{}, &lifecycle.SizeMismatchError{AccessorySize: entry.RequestedSize, ViolSize: viol.Size}
	}

	entry.Status = lifecycle.WaitlistFulfilled
	entry.MatchedItemID = &violID
	s.waitlist[entryID] = entry
	return entry, nil
}

// CancelWaitlist closes an open entry, releasing a reserved viol.
func (s *Store) CancelWaitlist(_ context.Context, entryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.waitlist[entryID]
	if !ok {
		return lifecycle.ErrNotFound
	}
	if entry.Status != lifecycle.WaitlistOpen {
		return &lifecycle.InvalidStateError{
			Entity: "waitlist entry", ID: entryID, State: string(entry.Status), Action: "cancel",
		}
	}

	if entry.ViolID != nil {
		if viol, err := s.getLocked(lifecycle.KindViol, *entry.ViolID); err == nil && viol.Status == lifecycle.StatusReserved {
			viol.Status = lifecycle.StatusAvailable
			viol.UpdatedAt = time.Now().UTC()
			s.items[lifecycle.KindViol][viol.ID] = viol
			s.appendHistoryLocked(persistence.HistoryRecord{
				Event: lifecycle.EventAvailable, ItemKind: lifecycle.KindViol, ItemID: viol.ID,
				ItemSize: viol.Size, VdgsaNumber: viol.VdgsaNumber, ViolID: &viol.ID,
				Notes: "reservation cancelled",
			})
		}
	}

	entry.Status = lifecycle.WaitlistCancelled
	s.waitlist[entryID] = entry
	return nil
}

// ListOpen returns open entries oldest-first by request date.
func (s *Store) ListOpen(_ context.Context, size *lifecycle.Size) ([]persistence.WaitlistRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []persistence.WaitlistRecord
	for _, rec := range s.waitlist {
		if rec.Status != lifecycle.WaitlistOpen {
			continue
		}
		if size != nil && rec.RequestedSize != *size {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateRequested.Equal(out[j].DateRequested) {
			return out[i].DateRequested.Before(out[j].DateRequested)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
