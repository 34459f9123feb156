package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"weighbridge/internal/feed"
)

// FleetType is the direction of a truck movement across the weighbridge.
type FleetType string

const (
	FleetInbound  FleetType = "INBOUND"
	FleetOutbound FleetType = "OUTBOUND"
)

// ErrUnknownFleetType is returned by ParseFleetType for unrecognised values.
var ErrUnknownFleetType = errors.New("fleet type must be INBOUND or OUTBOUND")

// ParseFleetType parses s case-insensitively.
func ParseFleetType(s string) (FleetType, error) {
	switch FleetType(strings.ToUpper(strings.TrimSpace(s))) {
	case FleetInbound:
		return FleetInbound, nil
	case FleetOutbound:
		return FleetOutbound, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFleetType, s)
}

// WeighbridgeRecord is one logged truck weighing (a ticket). Weights are in
// kilograms.
type WeighbridgeRecord struct {
	RecordID      string    `json:"recordId"`
	FleetType     FleetType `json:"fleetType"`
	LicenseNumber string    `json:"licenseNumber"`
	DriverName    string    `json:"driverName"`
	TareWeight    float64   `json:"tareWeight"`
	GrossWeight   float64   `json:"grossWeight"`
	EntryDate     time.Time `json:"entryDate"`
}

// NetWeight is the gross weight minus the tare weight.
func (r WeighbridgeRecord) NetWeight() float64 {
	return r.GrossWeight - r.TareWeight
}

// Validate reports whether the record may be stored.
func (r WeighbridgeRecord) Validate() error {
	switch {
	case strings.TrimSpace(r.RecordID) == "":
		return errors.New("record id is required")
	case r.FleetType != FleetInbound && r.FleetType != FleetOutbound:
		return ErrUnknownFleetType
	case strings.TrimSpace(r.LicenseNumber) == "":
		return errors.New("license number is required")
	case strings.TrimSpace(r.DriverName) == "":
		return errors.New("driver name is required")
	case !finite(r.TareWeight) || !finite(r.GrossWeight):
		return errors.New("weights must be finite numbers")
	case r.TareWeight < 0:
		return errors.New("tare weight must be >= 0")
	case r.NetWeight() <= 0:
		return errors.New("net weight must be > 0")
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// EntryDateLayout is the fixed text layout entry dates are stored in.
const EntryDateLayout = "2006-01-02T15:04:05.000-0700"

// FormatEntryDate renders t in UTC so that stored values order
// chronologically when compared as text.
func FormatEntryDate(t time.Time) string {
	return t.UTC().Format(EntryDateLayout)
}

// ParseEntryDate parses a value written by FormatEntryDate.
func ParseEntryDate(s string) (time.Time, error) {
	t, err := time.Parse(EntryDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse entry date %q: %w", s, err)
	}
	return t.UTC(), nil
}

// SortingOption selects the field a record listing is ordered by.
type SortingOption string

const (
	SortByDate          SortingOption = "DATE"
	SortByNetWeight     SortingOption = "NET_WEIGHT"
	SortByDriverName    SortingOption = "DRIVER_NAME"
	SortByLicenseNumber SortingOption = "LICENSE_NUMBER"
)

// SortingOptions lists every option in display order.
var SortingOptions = []SortingOption{SortByDate, SortByNetWeight, SortByDriverName, SortByLicenseNumber}

// ParseSortingOption parses s case-insensitively.
func ParseSortingOption(s string) (SortingOption, error) {
	opt := SortingOption(strings.ToUpper(strings.TrimSpace(s)))
	for _, o := range SortingOptions {
		if o == opt {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown sorting option %q", s)
}

// Label is the human readable name of the option.
func (o SortingOption) Label() string {
	switch o {
	case SortByDate:
		return "Date"
	case SortByNetWeight:
		return "Net Weight"
	case SortByDriverName:
		return "Driver Name"
	case SortByLicenseNumber:
		return "License Number"
	}
	return string(o)
}

// Column is the stored column (or expression) the option orders by.
// Unknown options fall back to the entry date.
func (o SortingOption) Column() string {
	switch o {
	case SortByNetWeight:
		return "(gross_weight - tare_weight)"
	case SortByDriverName:
		return "driver_name"
	case SortByLicenseNumber:
		return "license_number"
	}
	return "entry_date"
}

// IsText reports whether the option orders by a text column.
func (o SortingOption) IsText() bool {
	return o == SortByDriverName || o == SortByLicenseNumber
}

// SortParam is the (field, direction) pair controlling list ordering.
type SortParam struct {
	Option    SortingOption `json:"option"`
	Ascending bool          `json:"ascending"`
}

// DefaultSortParam orders newest first.
func DefaultSortParam() SortParam {
	return SortParam{Option: SortByDate, Ascending: false}
}

// RecordRepository is the port for weighbridge record persistence.
//
// Listings break ties between equal sort keys by record id, ascending.
type RecordRepository interface {
	// InsertRecord stores r, replacing any record with the same id.
	InsertRecord(ctx context.Context, r WeighbridgeRecord) error
	// GetRecordByID returns nil, nil when no record has the id.
	GetRecordByID(ctx context.Context, recordID string) (*WeighbridgeRecord, error)
	// DeleteRecordByID is a no-op for unknown ids.
	DeleteRecordByID(ctx context.Context, recordID string) error
	DeleteAllRecords(ctx context.Context) error
	// ListRecords orders by entry date, newest first.
	ListRecords(ctx context.Context) ([]WeighbridgeRecord, error)
	ListRecordsSortedBy(ctx context.Context, option SortingOption, ascending bool) ([]WeighbridgeRecord, error)
	// WatchRecords emits the sorted listing now and after every change to
	// the table until the subscription is cancelled.
	WatchRecords(ctx context.Context, param SortParam) *feed.Subscription[[]WeighbridgeRecord]
}
