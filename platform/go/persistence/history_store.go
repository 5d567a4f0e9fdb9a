package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vdgsa/rental-backend/platform/go/lifecycle"
)

// HistoryStore owns the append-only rental ledger and the rental workflow
// operations that write to it. appendHistory is the only way a ledger row
// comes into existence; nothing in this codebase updates or deletes one.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore creates a store; assumes ApplySchema already ran.
func NewHistoryStore(pool *pgxpool.Pool) (*HistoryStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &HistoryStore{pool: pool}, nil
}

const historyColumns = `id, occurred_at, event, item_kind, item_id, item_size, vdgsa_number,
    viol_id, renter_id, rental_start, rental_end, contract_reference, notes`

func scanHistory(row pgx.Row) (HistoryRecord, error) {
	var rec HistoryRecord
	if err := row.Scan(&rec.ID, &rec.OccurredAt, &rec.Event, &rec.ItemKind, &rec.ItemID,
		&rec.ItemSize, &rec.VdgsaNumber, &rec.ViolID, &rec.RenterID,
		&rec.RentalStart, &rec.RentalEnd, &rec.ContractReference, &rec.Notes); err != nil {
		return HistoryRecord{}, mapPgError(err)
	}
	return rec, nil
}

// appendHistory inserts one ledger entry inside the caller's transaction,
// so item mutations and their audit trail commit atomically.
func appendHistory(ctx context.Context, tx pgx.Tx, rec HistoryRecord) (HistoryRecord, error) {
	query := fmt.Sprintf(`
        INSERT INTO %s (event, item_kind, item_id, item_size, vdgsa_number,
            viol_id, renter_id, rental_start, rental_end, contract_reference, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING %s`, HistoryTable, historyColumns)
	row := tx.QueryRow(ctx, query,
		rec.Event, rec.ItemKind, rec.ItemID, rec.ItemSize, rec.VdgsaNumber,
		rec.ViolID, rec.RenterID, rec.RentalStart, rec.RentalEnd, rec.ContractReference, rec.Notes)
	return scanHistory(row)
}

// RentOutParams carries the rental agreement details.
type RentOutParams struct {
	RenterID          int64
	RentalStart       time.Time
	RentalEnd         time.Time
	ContractReference *string
	Notes             string
}

// RentOut moves an available or reserved viol to rented and appends the
// agreement to the ledger. The viol row is locked first, so of two
// concurrent callers exactly one succeeds and the other observes status
// already rented.
func (s *HistoryStore) RentOut(ctx context.Context, violID int64, params RentOutParams) (HistoryRecord, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return HistoryRecord{}, mapPgError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	viol, err := getForUpdate(ctx, tx, lifecycle.KindViol, violID)
	if err != nil {
		return HistoryRecord{}, err
	}
	// Not CanTransition: rented -> rented is a legal renewal edge and
	// must not admit a second rent-out.
	if viol.Status != lifecycle.StatusAvailable && viol.Status != lifecycle.StatusReserved {
		return HistoryRecord{}, &lifecycle.InvalidTransitionError{
			Kind: lifecycle.KindViol, ID: violID, From: viol.Status, To: lifecycle.StatusRented,
		}
	}

	update := fmt.Sprintf(`UPDATE %s SET status = $1, renter_id = $2, updated_at = now() WHERE id = $3`, ViolsTable)
	if _, err := tx.Exec(ctx, update, lifecycle.StatusRented, params.RenterID, violID); err != nil {
		return HistoryRecord{}, mapPgError(err)
	}

	entry, err := appendHistory(ctx, tx, HistoryRecord{
		Event: lifecycle.EventRented, ItemKind: lifecycle.KindViol, ItemID: violID,
		ItemSize: viol.Size, VdgsaNumber: viol.VdgsaNumber, ViolID: &violID,
		RenterID: &params.RenterID, RentalStart: &params.RentalStart, RentalEnd: &params.RentalEnd,
		ContractReference: params.ContractReference, Notes: params.Notes,
	})
	if err != nil {
		return HistoryRecord{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return HistoryRecord{}, mapPgError(err)
	}
	return entry, nil
}

// Renew extends a current rental. Status does not change; the ledger
// entry captures the previous and new end dates.
func (s *HistoryStore) Renew(ctx context.Context, violID int64, newRentalEnd time.Time, notes string) (HistoryRecord, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return HistoryRecord{}, mapPgError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	viol, err := getForUpdate(ctx, tx, lifecycle.KindViol, violID)
	if err != nil {
		return HistoryRecord{}, err
	}
	if viol.Status != lifecycle.StatusRented {
		return HistoryRecord{}, &lifecycle.InvalidTransitionError{
			Kind: lifecycle.KindViol, ID: violID, From: viol.Status, To: lifecycle.StatusRented,
		}
	}

	// Pick up the running agreement so the renewal keeps its start date
	// and records what the end date used to be.
	var rentalStart, oldEnd *time.Time
	last := fmt.Sprintf(`SELECT rental_start, rental_end FROM %s
        WHERE item_kind = $1 AND item_id = $2 AND event IN ($3, $4)
        ORDER BY occurred_at DESC, id DESC LIMIT 1`, HistoryTable)
	err = tx.QueryRow(ctx, last, lifecycle.KindViol, violID, lifecycle.EventRented, lifecycle.EventRenewed).
		Scan(&rentalStart, &oldEnd)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return HistoryRecord{}, mapPgError(err)
	}

	if oldEnd != nil {
		if notes != "" {
			notes += "; "
		}
		notes += fmt.Sprintf("renewed from %s to %s", oldEnd.Format("2006-01-02"), newRentalEnd.Format("2006-01-02"))
	}

	entry, err := appendHistory(ctx, tx, HistoryRecord{
		Event: lifecycle.EventRenewed, ItemKind: lifecycle.KindViol, ItemID: violID,
		ItemSize: viol.Size, VdgsaNumber: viol.VdgsaNumber, ViolID: &violID,
		RenterID: viol.RenterID, RentalStart: rentalStart, RentalEnd: &newRentalEnd, Notes: notes,
	})
	if err != nil {
		return HistoryRecord{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return HistoryRecord{}, mapPgError(err)
	}
	return entry, nil
}

// Return closes a rental: the viol goes back to available and loses its
// renter; attached accessories stay bonded and travel with it. One ledger
// entry is appended per affected item, the viol's first.
func (s *HistoryStore) Return(ctx context.Context, violID int64, notes string) ([]HistoryRecord, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, mapPgError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	viol, err := getForUpdate(ctx, tx, lifecycle.KindViol, violID)
	if err != nil {
		return nil, err
	}
	if viol.Status != lifecycle.StatusRented {
		return nil, &lifecycle.InvalidTransitionError{
			Kind: lifecycle.KindViol, ID: violID, From: viol.Status, To: lifecycle.StatusAvailable,
		}
	}
	if err := lifecycle.CanTransition(lifecycle.KindViol, violID, viol.Status, lifecycle.StatusAvailable); err != nil {
		return nil, err
	}

	update := fmt.Sprintf(`UPDATE %s SET status = $1, renter_id = NULL, updated_at = now() WHERE id = $2`, ViolsTable)
	if _, err := tx.Exec(ctx, update, lifecycle.StatusAvailable, violID); err != nil {
		return nil, mapPgError(err)
	}

	entries := make([]HistoryRecord, 0, 3)
	entry, err := appendHistory(ctx, tx, HistoryRecord{
		Event: lifecycle.EventReturned, ItemKind: lifecycle.KindViol, ItemID: violID,
		ItemSize: viol.Size, VdgsaNumber: viol.VdgsaNumber, ViolID: &violID,
		RenterID: viol.RenterID, Notes: notes,
	})
	if err != nil {
		return nil, err
	}
	entries = append(entries, entry)

	attached, err := attachedAccessories(ctx, tx, violID)
	if err != nil {
		return nil, err
	}
	for _, acc := range attached {
		entry, err := appendHistory(ctx, tx, HistoryRecord{
			Event: lifecycle.EventReturned, ItemKind: acc.Kind, ItemID: acc.ID,
			ItemSize: acc.Size, VdgsaNumber: acc.VdgsaNumber, ViolID: &violID,
			RenterID: viol.RenterID, Notes: notes,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapPgError(err)
	}
	return entries, nil
}

// LastRentalFor returns the most recent rented entry for the item, or
// ErrNotFound when it has never been rented.
func (s *HistoryStore) LastRentalFor(ctx context.Context, kind lifecycle.Kind, id int64) (HistoryRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
        WHERE item_kind = $1 AND item_id = $2 AND event = $3
        ORDER BY occurred_at DESC, id DESC LIMIT 1`, historyColumns, HistoryTable)
	return scanHistory(s.pool.QueryRow(ctx, query, kind, id, lifecycle.EventRented))
}

// HistoryForPerson returns the person's ledger entries, most recent
// first. limit of 0 means no cap.
func (s *HistoryStore) HistoryForPerson(ctx context.Context, personID int64, limit int) ([]HistoryRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE renter_id = $1
        ORDER BY occurred_at DESC, id DESC`, historyColumns, HistoryTable)
	args := []any{personID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	return s.queryHistory(ctx, query, args...)
}

// HistoryForItem returns the item's full audit trail, most recent first.
func (s *HistoryStore) HistoryForItem(ctx context.Context, kind lifecycle.Kind, id int64) ([]HistoryRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE item_kind = $1 AND item_id = $2
        ORDER BY occurred_at DESC, id DESC`, historyColumns, HistoryTable)
	return s.queryHistory(ctx, query, kind, id)
}

func (s *HistoryStore) queryHistory(ctx context.Context, query string, args ...any) ([]HistoryRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var records []HistoryRecord
	for rows.Next() {
		rec, err := scanHistory(rows)
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
