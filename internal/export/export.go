// Package export writes the ticket log out as CSV files.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"weighbridge/internal/domain"
)

// KeyPrefix is the key prefix every export is written under.
const KeyPrefix = "tickets/"

// Header is the first CSV row.
var Header = []string{
	"record_id", "fleet_type", "license_number", "driver_name",
	"tare_weight", "gross_weight", "net_weight", "entry_date",
}

// ErrRunning is returned when an export is requested while one is in progress.
var ErrRunning = errors.New("export already running")

// Sink stores finished export files.
type Sink interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// Recorder observes export outcomes.
type Recorder interface {
	ObserveExport(err error)
}

// Exporter renders every record into one CSV object per run.
type Exporter struct {
	repo     domain.RecordRepository
	sink     Sink
	recorder Recorder
	now      func() time.Time

	running sync.Mutex
}

// NewExporter creates an exporter. rec may be nil.
func NewExporter(repo domain.RecordRepository, sink Sink, rec Recorder) *Exporter {
	return &Exporter{repo: repo, sink: sink, recorder: rec, now: time.Now}
}

// Run writes the current ticket log, newest first, and returns the key it
// was stored under.
func (e *Exporter) Run(ctx context.Context) (key string, err error) {
	if !e.running.TryLock() {
		return "", ErrRunning
	}
	defer e.running.Unlock()
	defer func() {
		if e.recorder != nil {
			e.recorder.ObserveExport(err)
		}
	}()

	records, err := e.repo.ListRecords(ctx)
	if err != nil {
		return "", fmt.Errorf("list records: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		return "", err
	}

	key = KeyPrefix + e.now().UTC().Format("20060102T150405.000Z") + ".csv"
	if err := e.sink.Put(ctx, key, bytes.NewReader(buf.Bytes()), "text/csv"); err != nil {
		return "", fmt.Errorf("store export: %w", err)
	}
	return key, nil
}

// List returns the keys of earlier exports.
func (e *Exporter) List(ctx context.Context) ([]string, error) {
	return e.sink.List(ctx, KeyPrefix)
}

// WriteCSV writes the header and one row per record.
func WriteCSV(w io.Writer, records []domain.WeighbridgeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.RecordID,
			string(r.FleetType),
			r.LicenseNumber,
			r.DriverName,
			formatKg(r.TareWeight),
			formatKg(r.GrossWeight),
			formatKg(r.NetWeight()),
			domain.FormatEntryDate(r.EntryDate),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatKg(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
