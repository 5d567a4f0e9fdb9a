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

// ItemStore provides access to the per-kind item tables. Every mutating
// method runs as a single transaction and takes SELECT ... FOR UPDATE on
// each row it will touch before reading its status, so concurrent callers
// serialize instead of corrupting state. Lock order is always viol first,
// then accessories, to keep transactions deadlock-free.
type ItemStore struct {
	pool *pgxpool.Pool
}

// NewItemStore creates a store; assumes ApplySchema already ran.
func NewItemStore(pool *pgxpool.Pool) (*ItemStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &ItemStore{pool: pool}, nil
}

const violColumns = `id, vdgsa_number, size, status, strings, maker, provenance, description,
    notes, value, accession_date, custodian_id, renter_id, created_at, updated_at`

const accessoryColumns = `id, vdgsa_number, size, status, maker, provenance, description,
    notes, value, accession_date, custodian_id, viol_id, created_at, updated_at`

func columnsFor(kind lifecycle.Kind) string {
	if kind == lifecycle.KindViol {
		return violColumns
	}
	return accessoryColumns
}

func scanItem(kind lifecycle.Kind, row pgx.Row) (ItemRecord, error) {
	rec := ItemRecord{Kind: kind}
	var err error
	if kind == lifecycle.KindViol {
		err = row.Scan(&rec.ID, &rec.VdgsaNumber, &rec.Size, &rec.Status, &rec.Strings,
			&rec.Maker, &rec.Provenance, &rec.Description, &rec.Notes, &rec.Value,
			&rec.AccessionDate, &rec.CustodianID, &rec.RenterID, &rec.CreatedAt, &rec.UpdatedAt)
	} else {
		err = row.Scan(&rec.ID, &rec.VdgsaNumber, &rec.Size, &rec.Status,
			&rec.Maker, &rec.Provenance, &rec.Description, &rec.Notes, &rec.Value,
			&rec.AccessionDate, &rec.CustodianID, &rec.ViolID, &rec.CreatedAt, &rec.UpdatedAt)
	}
	if err != nil {
		return ItemRecord{}, mapPgError(err)
	}
	return rec, nil
}

// CreateItem inserts a new item in status "new". A zero VdgsaNumber is
// replaced with the next sequential number for the kind, inside the same
// transaction.
func (s *ItemStore) CreateItem(ctx context.Context, rec ItemRecord) (ItemRecord, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ItemRecord{}, mapPgError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	table := tableFor(rec.Kind)
	if rec.VdgsaNumber == 0 {
		next := fmt.Sprintf(`SELECT COALESCE(MAX(vdgsa_number), 0) + 1 FROM %s`, table)
		if err := tx.QueryRow(ctx, next).Scan(&rec.VdgsaNumber); err != nil {
			return ItemRecord{}, mapPgError(err)
		}
	}

	now := time.Now().UTC()
	var row pgx.Row
	if rec.Kind == lifecycle.KindViol {
		query := fmt.Sprintf(`
            INSERT INTO %s (vdgsa_number, size, status, strings, maker, provenance,
                description, notes, value, accession_date, custodian_id, created_at, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12)
            RETURNING %s`, table, violColumns)
		row = tx.QueryRow(ctx, query,
			rec.VdgsaNumber, rec.Size, lifecycle.StatusNew, rec.Strings, rec.Maker, rec.Provenance,
			rec.Description, rec.Notes, rec.Value, rec.AccessionDate, rec.CustodianID, now)
	} else {
		query := fmt.Sprintf(`
            INSERT INTO %s (vdgsa_number, size, status, maker, provenance,
                description, notes, value, accession_date, custodian_id, created_at, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)
            RETURNING %s`, table, accessoryColumns)
		row = tx.QueryRow(ctx, query,
			rec.VdgsaNumber, rec.Size, lifecycle.StatusNew, rec.Maker, rec.Provenance,
			rec.Description, rec.Notes, rec.Value, rec.AccessionDate, rec.CustodianID, now)
	}

	out, err := scanItem(rec.Kind, row)
	if err != nil {
		return ItemRecord{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ItemRecord{}, mapPgError(err)
	}
	return out, nil
}

// NextSequence returns one greater than the highest VdGSA number recorded
// for the kind, or 1 when none exist.
func (s *ItemStore) NextSequence(ctx context.Context, kind lifecycle.Kind) (int64, error) {
	var next int64
	query := fmt.Sprintf(`SELECT COALESCE(MAX(vdgsa_number), 0) + 1 FROM %s`, tableFor(kind))
	if err := s.pool.QueryRow(ctx, query).Scan(&next); err != nil {
		return 0, mapPgError(err)
	}
	return next, nil
}

// GetItem fetches one item by id. Soft-deleted items are still readable;
// only a hard delete makes them disappear.
func (s *ItemStore) GetItem(ctx context.Context, kind lifecycle.Kind, id int64) (ItemRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, columnsFor(kind), tableFor(kind))
	return scanItem(kind, s.pool.QueryRow(ctx, query, id))
}

// ListItemsParams narrows a listing. "Active vs all" is always explicit:
// unless IncludeInactive is set, retired and deleted rows are filtered out.
type ListItemsParams struct {
	Size            *lifecycle.Size    // exact size match
	FitViolSize     *lifecycle.Size    // accessory compatibility match (exact, or bass fits seven-string bass)
	Statuses        []lifecycle.Status // restrict to these statuses; empty means any
	IncludeInactive bool
	Unattached      bool // accessories with no viol attachment
}

// ListItems returns items of one kind matching the params, ordered by
// size then VdGSA number.
func (s *ItemStore) ListItems(ctx context.Context, kind lifecycle.Kind, params ListItemsParams) ([]ItemRecord, error) {
	where := "TRUE"
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !params.IncludeInactive {
		where += fmt.Sprintf(" AND status NOT IN (%s, %s)",
			arg(lifecycle.StatusRetired), arg(lifecycle.StatusDeleted))
	}
	if params.Size != nil {
		where += " AND size = " + arg(*params.Size)
	}
	if params.FitViolSize != nil {
		if *params.FitViolSize == lifecycle.SizeSevenStringBass {
			where += fmt.Sprintf(" AND size IN (%s, %s)",
				arg(lifecycle.SizeSevenStringBass), arg(lifecycle.SizeBass))
		} else {
			where += " AND size = " + arg(*params.FitViolSize)
		}
	}
	if len(params.Statuses) > 0 {
		in := ""
		for i, st := range params.Statuses {
			if i > 0 {
				in += ", "
			}
			in += arg(st)
		}
		where += fmt.Sprintf(" AND status IN (%s)", in)
	}
	if params.Unattached {
		where += " AND viol_id IS NULL"
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY size, vdgsa_number, id`,
		columnsFor(kind), tableFor(kind), where)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var records []ItemRecord
	for rows.Next() {
		rec, err := scanItem(kind, rows)
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

// getForUpdate locks and reads one item row inside tx.
func getForUpdate(ctx context.Context, tx pgx.Tx, kind lifecycle.Kind, id int64) (ItemRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, columnsFor(kind), tableFor(kind))
	return scanItem(kind, tx.QueryRow(ctx, query, id))
}

// attachedAccessories locks and returns every accessory currently
// attached to the viol.
func attachedAccessories(ctx context.Context, tx pgx.Tx, violID int64) ([]ItemRecord, error) {
	var out []ItemRecord
	for _, kind := range []lifecycle.Kind{lifecycle.KindBow, lifecycle.KindCase} {
		query := fmt.Sprintf(`SELECT %s FROM %s WHERE viol_id = $1 ORDER BY id FOR UPDATE`,
			accessoryColumns, tableFor(kind))
		rows, err := tx.Query(ctx, query, violID)
		if err != nil {
			return nil, mapPgError(err)
		}
		for rows.Next() {
			rec, err := scanItem(kind, rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, rec)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, mapPgError(err)
		}
	}
	return out, nil
}

// SoftDelete marks an item deleted without removing its row. Attached
// accessories, and viols that still have accessories attached, must be
// detached first.
func (s *ItemStore) SoftDelete(ctx context.Context, kind lifecycle.Kind, id int64, notes string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapPgError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec, err := getForUpdate(ctx, tx, kind, id)
	if err != nil {
		return err
	}
	if rec.ViolID != nil {
		return &lifecycle.InvalidTransitionError{Kind: kind, ID: id, From: rec.Status, To: lifecycle.StatusDeleted}
	}
	if kind == lifecycle.KindViol {
		attached, err := attachedAccessories(ctx, tx, id)
		if err != nil {
			return err
		}
		if len(attached) > 0 {
			return &lifecycle.InvalidTransitionError{Kind: kind, ID: id, From: rec.Status, To: lifecycle.StatusDeleted}
		}
	}
	if err := lifecycle.CanTransition(kind, id, rec.Status, lifecycle.StatusDeleted); err != nil {
		return err
	}

	update := fmt.Sprintf(`UPDATE %s SET status = $1, updated_at = now() WHERE id = $2`, tableFor(kind))
	if kind == lifecycle.KindViol {
		update = fmt.Sprintf(`UPDATE %s SET status = $1, renter_id = NULL, updated_at = now() WHERE id = $2`, tableFor(kind))
	}
	if _, err := tx.Exec(ctx, update, lifecycle.StatusDeleted, id); err != nil {
		return mapPgError(err)
	}

	if _, err := appendHistory(ctx, tx, HistoryRecord{
		Event: lifecycle.EventDeleted, ItemKind: kind, ItemID: id,
		ItemSize: rec.Size, VdgsaNumber: rec.VdgsaNumber, Notes: notes,
	}); err != nil {
		return err
	}
	return mapPgError(tx.Commit(ctx))
}

// MarkAvailable moves a new item into the rental pool.
func (s *ItemStore) MarkAvailable(ctx context.Context, kind lifecycle.Kind, id int64, notes string) (ItemRecord, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ItemRecord{}, mapPgError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec, err := getForUpdate(ctx, tx, kind, id)
	if err != nil {
		return ItemRecord{}, err
	}
	if err := lifecycle.CanTransition(kind, id, rec.Status, lifecycle.StatusAvailable); err != nil {
		return ItemRecord{}, err
	}

	update := fmt.Sprintf(`UPDATE %s SET status = $1, updated_at = now() WHERE id = $2`, tableFor(kind))
	if _, err := tx.Exec(ctx, update, lifecycle.StatusAvailable, id); err != nil {
		return ItemRecord{}, mapPgError(err)
	}
	if _, err := appendHistory(ctx, tx, HistoryRecord{
		Event: lifecycle.EventAvailable, ItemKind: kind, ItemID: id,
		ItemSize: rec.Size, VdgsaNumber: rec.VdgsaNumber, Notes: notes,
	}); err != nil {
		return ItemRecord{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ItemRecord{}, mapPgError(err)
	}
	rec.Status = lifecycle.StatusAvailable
	return rec, nil
}

// Attach bonds an accessory to a viol. The accessory must be new,
// available, or detached; re-parenting an already attached accessory is
// rejected. Sizes must be compatible.
func (s *ItemStore) Attach(ctx context.Context, accKind lifecycle.Kind, accID, violID int64) error {
	if !accKind.IsAccessory() {
		return &lifecycle.ValidationError{Field: "kind", Msg: "only bows and cases attach to a viol"}
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapPgError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	viol, err := getForUpdate(ctx, tx, lifecycle.KindViol, violID)
	if err != nil {
		return err
	}
	acc, err := getForUpdate(ctx, tx, accKind, accID)
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

	update := fmt.Sprintf(`UPDATE %s SET status = $1, viol_id = $2, updated_at = now() WHERE id = $3`, tableFor(accKind))
	if _, err := tx.Exec(ctx, update, lifecycle.StatusAttached, violID, accID); err != nil {
		return mapPgError(err)
	}
	if _, err := appendHistory(ctx, tx, HistoryRecord{
		Event: lifecycle.EventAttached, ItemKind: accKind, ItemID: accID,
		ItemSize: acc.Size, VdgsaNumber: acc.VdgsaNumber, ViolID: &violID,
	}); err != nil {
		return err
	}
	return mapPgError(tx.Commit(ctx))
}

// Detach unbonds an accessory from its viol. Custody transfers with
// detachment: the accessory's custodian becomes the viol's current
// custodian.
func (s *ItemStore) Detach(ctx context.Context, accKind lifecycle.Kind, accID int64) error {
	if !accKind.IsAccessory() {
		return &lifecycle.ValidationError{Field: "kind", Msg: "only bows and cases detach from a viol"}
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapPgError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Read the attachment without a lock first so the viol row can be
	// locked before the accessory row, preserving the global lock order.
	var violID *int64
	peek := fmt.Sprintf(`SELECT viol_id FROM %s WHERE id = $1`, tableFor(accKind))
	if err := tx.QueryRow(ctx, peek, accID).Scan(&violID); err != nil {
		return mapPgError(err)
	}
	if violID == nil {
		acc, err := getForUpdate(ctx, tx, accKind, accID)
		if err != nil {
			return err
		}
		return &lifecycle.InvalidTransitionError{Kind: accKind, ID: accID, From: acc.Status, To: lifecycle.StatusDetached}
	}

	viol, err := getForUpdate(ctx, tx, lifecycle.KindViol, *violID)
	if err != nil {
		return err
	}
	acc, err := getForUpdate(ctx, tx, accKind, accID)
	if err != nil {
		return err
	}
	if acc.ViolID == nil || *acc.ViolID != viol.ID {
		// Raced with a concurrent detach.
		return fmt.Errorf("%w: attachment changed", lifecycle.ErrConflict)
	}
	if err := lifecycle.CanTransition(accKind, accID, acc.Status, lifecycle.StatusDetached); err != nil {
		return err
	}

	update := fmt.Sprintf(
		`UPDATE %s SET status = $1, viol_id = NULL, custodian_id = $2, updated_at = now() WHERE id = $3`,
		tableFor(accKind))
	if _, err := tx.Exec(ctx, update, lifecycle.StatusDetached, viol.CustodianID, accID); err != nil {
		return mapPgError(err)
	}
	if _, err := appendHistory(ctx, tx, HistoryRecord{
		Event: lifecycle.EventDetached, ItemKind: accKind, ItemID: accID,
		ItemSize: acc.Size, VdgsaNumber: acc.VdgsaNumber, ViolID: &viol.ID,
	}); err != nil {
		return err
	}
	return mapPgError(tx.Commit(ctx))
}

// Retire permanently removes an item from the rental pool. Retiring a
// viol cascades to every accessory attached to it; all transitions commit
// together or not at all. An attached accessory cannot be retired on its
// own.
func (s *ItemStore) Retire(ctx context.Context, kind lifecycle.Kind, id int64, reason string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapPgError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec, err := getForUpdate(ctx, tx, kind, id)
	if err != nil {
		return err
	}
	if rec.ViolID != nil {
		return &lifecycle.InvalidTransitionError{Kind: kind, ID: id, From: rec.Status, To: lifecycle.StatusRetired}
	}
	if err := lifecycle.CanTransition(kind, id, rec.Status, lifecycle.StatusRetired); err != nil {
		return err
	}

	var cascade []ItemRecord
	if kind == lifecycle.KindViol {
		cascade, err = attachedAccessories(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, acc := range cascade {
			if err := lifecycle.CanTransition(acc.Kind, acc.ID, acc.Status, lifecycle.StatusRetired); err != nil {
				return err
			}
		}
	}

	update := fmt.Sprintf(`UPDATE %s SET status = $1, updated_at = now() WHERE id = $2`, tableFor(kind))
	if kind == lifecycle.KindViol {
		update = fmt.Sprintf(`UPDATE %s SET status = $1, renter_id = NULL, updated_at = now() WHERE id = $2`, tableFor(kind))
	}
	if _, err := tx.Exec(ctx, update, lifecycle.StatusRetired, id); err != nil {
		return mapPgError(err)
	}
	if _, err := appendHistory(ctx, tx, HistoryRecord{
		Event: lifecycle.EventRetired, ItemKind: kind, ItemID: id,
		ItemSize: rec.Size, VdgsaNumber: rec.VdgsaNumber, Notes: reason,
	}); err != nil {
		return err
	}

	for _, acc := range cascade {
		retireAcc := fmt.Sprintf(
			`UPDATE %s SET status = $1, viol_id = NULL, updated_at = now() WHERE id = $2`, tableFor(acc.Kind))
		if _, err := tx.Exec(ctx, retireAcc, lifecycle.StatusRetired, acc.ID); err != nil {
			return mapPgError(err)
		}
		if _, err := appendHistory(ctx, tx, HistoryRecord{
			Event: lifecycle.EventRetired, ItemKind: acc.Kind, ItemID: acc.ID,
			ItemSize: acc.Size, VdgsaNumber: acc.VdgsaNumber, ViolID: &id, Notes: reason,
		}); err != nil {
			return err
		}
	}
	return mapPgError(tx.Commit(ctx))
}

// ChangeCustodian records who physically holds the item, independent of
// rental status.
func (s *ItemStore) ChangeCustodian(ctx context.Context, kind lifecycle.Kind, id int64, custodianID *int64) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapPgError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec, err := getForUpdate(ctx, tx, kind, id)
	if err != nil {
		return err
	}
	if rec.Status.Absorbing() {
		return &lifecycle.InvalidStateError{Entity: string(kind), ID: id, State: string(rec.Status), Action: "change custodian of"}
	}

	update := fmt.Sprintf(`UPDATE %s SET custodian_id = $1, updated_at = now() WHERE id = $2`, tableFor(kind))
	if _, err := tx.Exec(ctx, update, custodianID, id); err != nil {
		return mapPgError(err)
	}
	if _, err := appendHistory(ctx, tx, HistoryRecord{
		Event: lifecycle.EventCustody, ItemKind: kind, ItemID: id,
		ItemSize: rec.Size, VdgsaNumber: rec.VdgsaNumber, Notes: "custodian changed",
	}); err != nil {
		return err
	}
	return mapPgError(tx.Commit(ctx))
}
