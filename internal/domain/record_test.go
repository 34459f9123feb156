package domain_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"weighbridge/internal/domain"
)

func validRecord() domain.WeighbridgeRecord {
	return domain.WeighbridgeRecord{
		RecordID:      "r-1",
		FleetType:     domain.FleetInbound,
		LicenseNumber: "B 1234 XY",
		DriverName:    "Herschel Coffey",
		TareWeight:    2000,
		GrossWeight:   5510,
		EntryDate:     time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
	}
}

func TestNetWeight(t *testing.T) {
	r := validRecord()
	if got := r.NetWeight(); got != 3510 {
		t.Fatalf("NetWeight() = %v; want 3510", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.WeighbridgeRecord)
		wantErr bool
	}{
		{"valid", func(*domain.WeighbridgeRecord) {}, false},
		{"zero tare is fine", func(r *domain.WeighbridgeRecord) { r.TareWeight = 0 }, false},
		{"blank id", func(r *domain.WeighbridgeRecord) { r.RecordID = " " }, true},
		{"bad fleet type", func(r *domain.WeighbridgeRecord) { r.FleetType = "SIDEWAYS" }, true},
		{"blank license", func(r *domain.WeighbridgeRecord) { r.LicenseNumber = "" }, true},
		{"blank driver", func(r *domain.WeighbridgeRecord) { r.DriverName = "\t" }, true},
		{"negative tare", func(r *domain.WeighbridgeRecord) { r.TareWeight = -1; r.GrossWeight = 10 }, true},
		{"zero net", func(r *domain.WeighbridgeRecord) { r.GrossWeight = r.TareWeight }, true},
		{"negative net", func(r *domain.WeighbridgeRecord) { r.GrossWeight = 1 }, true},
		{"NaN tare", func(r *domain.WeighbridgeRecord) { r.TareWeight = math.NaN() }, true},
		{"NaN gross", func(r *domain.WeighbridgeRecord) { r.GrossWeight = math.NaN() }, true},
		{"infinite gross", func(r *domain.WeighbridgeRecord) { r.GrossWeight = math.Inf(1) }, true},
		{"negative infinite tare", func(r *domain.WeighbridgeRecord) { r.TareWeight = math.Inf(-1) }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := validRecord()
			tc.mutate(&r)
			err := r.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v; wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestParseFleetType(t *testing.T) {
	if ft, err := domain.ParseFleetType(" outbound "); err != nil || ft != domain.FleetOutbound {
		t.Fatalf("ParseFleetType(outbound) = %q, %v", ft, err)
	}
	if ft, err := domain.ParseFleetType("INBOUND"); err != nil || ft != domain.FleetInbound {
		t.Fatalf("ParseFleetType(INBOUND) = %q, %v", ft, err)
	}
	_, err := domain.ParseFleetType("lateral")
	if !errors.Is(err, domain.ErrUnknownFleetType) {
		t.Fatalf("expected ErrUnknownFleetType, got %v", err)
	}
}

func TestParseSortingOption(t *testing.T) {
	for _, o := range domain.SortingOptions {
		got, err := domain.ParseSortingOption(string(o))
		if err != nil || got != o {
			t.Errorf("ParseSortingOption(%q) = %q, %v", o, got, err)
		}
	}
	if got, err := domain.ParseSortingOption("driver_name"); err != nil || got != domain.SortByDriverName {
		t.Errorf("lowercase parse = %q, %v", got, err)
	}
	if _, err := domain.ParseSortingOption("colour"); err == nil {
		t.Error("expected error for unknown option")
	}
}

func TestSortingOptionColumn(t *testing.T) {
	if got := domain.SortByNetWeight.Column(); got == "gross_weight" {
		t.Fatal("net weight must not sort by the gross weight column")
	}
	if got := domain.SortingOption("bogus").Column(); got != "entry_date" {
		t.Fatalf("unknown option column = %q; want entry_date", got)
	}
	if got := domain.SortByDriverName.Label(); got != "Driver Name" {
		t.Fatalf("Label() = %q", got)
	}
}

func TestEntryDateOrdersAsText(t *testing.T) {
	east := time.FixedZone("UTC+7", 7*3600)
	earlier := time.Date(2026, 3, 1, 9, 0, 0, 0, east) // 02:00 UTC
	later := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)

	a, b := domain.FormatEntryDate(earlier), domain.FormatEntryDate(later)
	if !(a < b) {
		t.Fatalf("expected %q < %q", a, b)
	}

	parsed, err := domain.ParseEntryDate(a)
	if err != nil {
		t.Fatalf("ParseEntryDate: %v", err)
	}
	if !parsed.Equal(earlier) {
		t.Fatalf("parsed %v; want %v", parsed, earlier)
	}
	if _, err := domain.ParseEntryDate("yesterday"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDefaultSortParam(t *testing.T) {
	p := domain.DefaultSortParam()
	if p.Option != domain.SortByDate || p.Ascending {
		t.Fatalf("DefaultSortParam() = %+v", p)
	}
}
