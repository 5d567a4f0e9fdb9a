package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vdgsa/rental-backend/platform/go/lifecycle"
)

// WaitlistStore owns the waiting-list table. Nothing else writes it.
type WaitlistStore struct {
	pool *pgxpool.Pool
}

// NewWaitlistStore creates a store; assumes ApplySchema already ran.
func NewWaitlistStore(pool *pgxpool.Pool) (*WaitlistStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &WaitlistStore{pool: pool}, nil
}

const waitlistColumns = `id, requested_size, first_name, last_name, email, phone,
    address_line_1, address_city, address_state, address_postal_code, notes,
    date_requested, status, viol_id, matched_item_id, created_at`

func scanWaitlist(row pgx.Row) (WaitlistRecord, error) {
	var rec WaitlistRecord
	if err := row.Scan(&rec.ID, &rec.RequestedSize, &rec.FirstName, &rec.LastName,
		&rec.Email, &rec.Phone, &rec.AddressLine1, &rec.AddressCity, &rec.AddressState,
		&rec.AddressPostalCode, &rec.Notes, &rec.DateRequested, &rec.Status,
		&rec.ViolID, &rec.MatchedItemID, &rec.CreatedAt); err != nil {
		return WaitlistRecord{}, mapPgError(err)
	}
	return rec, nil
}

// Enqueue records unmet demand. When the entry pins a specific viol, that
// viol moves available -> reserved and a reserved entry lands in the
// ledger, all in the same transaction.
func (s *WaitlistStore) Enqueue(ctx context.Context, rec WaitlistRecord) (WaitlistRecord, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return WaitlistRecord{}, mapPgError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if rec.ViolID != nil {
		viol, err := getForUpdate(ctx, tx, lifecycle.KindViol, *rec.ViolID)
		if err != nil {
			return WaitlistRecord{}, err
		}
		if err := lifecycle.CanTransition(lifecycle.KindViol, viol.ID, viol.Status, lifecycle.StatusReserved); err != nil {
			return WaitlistRecord{}, err
		}
		update := fmt.Sprintf(`UPDATE %s SET status = $1, updated_at = now() WHERE id = $2`, ViolsTable)
		if _, err := tx.Exec(ctx, update, lifecycle.StatusReserved, viol.ID); err != nil {
			return WaitlistRecord{}, mapPgError(err)
		}
		if _, err := appendHistory(ctx, tx, HistoryRecord{
			Event: lifecycle.EventReserved, ItemKind: lifecycle.KindViol, ItemID: viol.ID,
			ItemSize: viol.Size, VdgsaNumber: viol.VdgsaNumber, ViolID: &viol.ID,
			Notes: fmt.Sprintf("reserved for %s %s", rec.FirstName, rec.LastName),
		}); err != nil {
			return WaitlistRecord{}, err
		}
	}

	query := fmt.Sprintf(`
        INSERT INTO %s (requested_size, first_name, last_name, email, phone,
            address_line_1, address_city, address_state, address_postal_code, notes,
            date_requested, status, viol_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING %s`, WaitlistTable, waitlistColumns)
	row := tx.QueryRow(ctx, query,
		rec.RequestedSize, rec.FirstName, rec.LastName, rec.Email, rec.Phone,
		rec.AddressLine1, rec.AddressCity, rec.AddressState, rec.AddressPostalCode, rec.Notes,
		rec.DateRequested, lifecycle.WaitlistOpen, rec.ViolID)

	out, err := scanWaitlist(row)
	if err != nil {
		return WaitlistRecord{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return WaitlistRecord{}, mapPgError(err)
	}
	return out, nil
}

// Get returns one entry by id.
func (s *WaitlistStore) Get(ctx context.Context, id int64) (WaitlistRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, waitlistColumns, WaitlistTable)
	return scanWaitlist(s.pool.QueryRow(ctx, query, id))
}

// Fulfill records a match between an open entry and a size-compatible
// viol. The viol must be available, or reserved for this very entry.
// It does not rent the item; a separate rent-out completes the loan.
func (s *WaitlistStore) Fulfill(ctx context.Context, entryID, violID int64) (WaitlistRecord, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return WaitlistRecord{}, mapPgError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lock := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, waitlistColumns, WaitlistTable)
	entry, err := scanWaitlist(tx.QueryRow(ctx, lock, entryID))
	if err != nil {
		return WaitlistRecord{}, err
	}
	if entry.Status != lifecycle.WaitlistOpen {
		return WaitlistRecord{}, &lifecycle.InvalidStateError{
			Entity: "waitlist entry", ID: entryID, State: string(entry.Status), Action: "fulfill",
		}
	}

	viol, err := getForUpdate(ctx, tx, lifecycle.KindViol, violID)
	if err != nil {
		return WaitlistRecord{}, err
	}
	pinnedHere := entry.ViolID != nil && *entry.ViolID == violID
	usable := viol.Status == lifecycle.StatusAvailable ||
		(viol.Status == lifecycle.StatusReserved && pinnedHere)
	if !usable {
		return WaitlistRecord{}, &lifecycle.InvalidStateError{
			Entity: string(lifecycle.KindViol), ID: violID, State: string(viol.Status), Action: "fulfill waitlist entry with",
		}
	}
	if !lifecycle.Compatible(entry.RequestedSize, viol.Size) {
		return WaitlistRecord{}, &lifecycle.SizeMismatchError{AccessorySize: entry.RequestedSize, ViolSize: viol.Size}
	}

	update := fmt.Sprintf(`UPDATE %s SET status = $1, matched_item_id = $2 WHERE id = $3 RETURNING %s`,
		WaitlistTable, waitlistColumns)
	out, err := scanWaitlist(tx.QueryRow(ctx, update, lifecycle.WaitlistFulfilled, violID, entryID))
	if err != nil {
		return WaitlistRecord{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return WaitlistRecord{}, mapPgError(err)
	}
	return out, nil
}

// Cancel closes an open entry for good. A viol reserved for the entry
// returns to the available pool.
func (s *WaitlistStore) Cancel(ctx context.Context, entryID int64) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapPgError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lock := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, waitlistColumns, WaitlistTable)
	entry, err := scanWaitlist(tx.QueryRow(ctx, lock, entryID))
	if err != nil {
		return err
	}
	if entry.Status != lifecycle.WaitlistOpen {
		return &lifecycle.InvalidStateError{
			Entity: "waitlist entry", ID: entryID, State: string(entry.Status), Action: "cancel",
		}
	}

	if entry.ViolID != nil {
		viol, err := getForUpdate(ctx, tx, lifecycle.KindViol, *entry.ViolID)
		if err != nil && !errors.Is(err, lifecycle.ErrNotFound) {
			return err
		}
		if err == nil && viol.Status == lifecycle.StatusReserved {
			update := fmt.Sprintf(`UPDATE %s SET status = $1, updated_at = now() WHERE id = $2`, ViolsTable)
			if _, err := tx.Exec(ctx, update, lifecycle.StatusAvailable, viol.ID); err != nil {
				return mapPgError(err)
			}
			if _, err := appendHistory(ctx, tx, HistoryRecord{
				Event: lifecycle.EventAvailable, ItemKind: lifecycle.KindViol, ItemID: viol.ID,
				ItemSize: viol.Size, VdgsaNumber: viol.VdgsaNumber, ViolID: &viol.ID,
				Notes: "reservation cancelled",
			}); err != nil {
				return err
			}
		}
	}

	update := fmt.Sprintf(`UPDATE %s SET status = $1 WHERE id = $2`, WaitlistTable)
	if _, err := tx.Exec(ctx, update, lifecycle.WaitlistCancelled, entryID); err != nil {
		return mapPgError(err)
	}
	return mapPgError(tx.Commit(ctx))
}

// ListOpen returns open entries oldest-first (strict FIFO by request
// date), optionally narrowed to one size.
func (s *WaitlistStore) ListOpen(ctx context.Context, size *lifecycle.Size) ([]WaitlistRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE status = $1`, waitlistColumns, WaitlistTable)
	args := []any{lifecycle.WaitlistOpen}
	if size != nil {
		query += " AND requested_size = $2"
		args = append(args, *size)
	}
	query += " ORDER BY date_requested ASC, id ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var records []WaitlistRecord
	for rows.Next() {
		rec, err := scanWaitlist(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return records, nil
}
