package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"weighbridge/internal/domain"
	"weighbridge/internal/feed"
)

var _ domain.RecordRepository = (*DB)(nil)

const recordColumns = "record_id, fleet_type, license_number, driver_name, tare_weight, gross_weight, entry_date"

// InsertRecord stores r, replacing every column of an existing row with the
// same id.
func (d *DB) InsertRecord(ctx context.Context, r domain.WeighbridgeRecord) error {
	_, err := d.sql.ExecContext(stmtCtx(ctx),
		"INSERT INTO weighbridge_record("+recordColumns+") VALUES(?, ?, ?, ?, ?, ?, ?) "+
			"ON CONFLICT(record_id) DO UPDATE SET fleet_type = excluded.fleet_type, license_number = excluded.license_number, "+
			"driver_name = excluded.driver_name, tare_weight = excluded.tare_weight, gross_weight = excluded.gross_weight, entry_date = excluded.entry_date;",
		r.RecordID, string(r.FleetType), r.LicenseNumber, r.DriverName, r.TareWeight, r.GrossWeight, domain.FormatEntryDate(r.EntryDate),
	)
	if err != nil {
		return fmt.Errorf("insert record %s: %w", r.RecordID, err)
	}
	d.hub.Notify()
	return nil
}

// GetRecordByID returns the record with the given id, or nil.
func (d *DB) GetRecordByID(ctx context.Context, recordID string) (*domain.WeighbridgeRecord, error) {
	row := d.sql.QueryRowContext(stmtCtx(ctx),
		"SELECT "+recordColumns+" FROM weighbridge_record WHERE record_id = ?;", recordID)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", recordID, err)
	}
	return &r, nil
}

// DeleteRecordByID removes at most one row. Unknown ids are not an error.
func (d *DB) DeleteRecordByID(ctx context.Context, recordID string) error {
	res, err := d.sql.ExecContext(stmtCtx(ctx), "DELETE FROM weighbridge_record WHERE record_id = ?;", recordID)
	if err != nil {
		return fmt.Errorf("delete record %s: %w", recordID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		d.hub.Notify()
	}
	return nil
}

// DeleteAllRecords clears the table.
func (d *DB) DeleteAllRecords(ctx context.Context) error {
	if _, err := d.sql.ExecContext(stmtCtx(ctx), "DELETE FROM weighbridge_record;"); err != nil {
		return fmt.Errorf("delete all records: %w", err)
	}
	d.hub.Notify()
	return nil
}

// ListRecords lists every record, newest first.
func (d *DB) ListRecords(ctx context.Context) ([]domain.WeighbridgeRecord, error) {
	return d.ListRecordsSortedBy(ctx, domain.SortByDate, false)
}

// ListRecordsSortedBy lists every record ordered by the option's column,
// ties broken by record id.
func (d *DB) ListRecordsSortedBy(ctx context.Context, option domain.SortingOption, ascending bool) ([]domain.WeighbridgeRecord, error) {
	dir := "DESC"
	if ascending {
		dir = "ASC"
	}
	query := fmt.Sprintf("SELECT %s FROM weighbridge_record ORDER BY %s %s, record_id ASC;", recordColumns, option.Column(), dir)

	rows, err := d.sql.QueryContext(stmtCtx(ctx), query)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]domain.WeighbridgeRecord, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// WatchRecords streams the sorted listing after every change.
func (d *DB) WatchRecords(ctx context.Context, param domain.SortParam) *feed.Subscription[[]domain.WeighbridgeRecord] {
	return d.hub.Subscribe(ctx, func(ctx context.Context) ([]domain.WeighbridgeRecord, error) {
		return d.ListRecordsSortedBy(ctx, param.Option, param.Ascending)
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (domain.WeighbridgeRecord, error) {
	var (
		r         domain.WeighbridgeRecord
		fleetType string
		entryDate string
	)
	if err := s.Scan(&r.RecordID, &fleetType, &r.LicenseNumber, &r.DriverName, &r.TareWeight, &r.GrossWeight, &entryDate); err != nil {
		return r, err
	}
	ft, err := domain.ParseFleetType(fleetType)
	if err != nil {
		return r, err
	}
	r.FleetType = ft
	if r.EntryDate, err = domain.ParseEntryDate(entryDate); err != nil {
		return r, err
	}
	return r, nil
}
