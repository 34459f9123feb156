// Package storetest holds the behaviour every domain.RecordRepository
// implementation must share. Adapter packages call Run from their own tests.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"weighbridge/internal/domain"
	"weighbridge/internal/feed"
)

type feedSnapshot = feed.Snapshot[[]domain.WeighbridgeRecord]

const wait = 3 * time.Second

// Factory returns an empty repository. Cleanup is the factory's job.
type Factory func(t *testing.T) domain.RecordRepository

// Run executes the record store contract against repositories from newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("InsertThenGet", func(t *testing.T) { testInsertThenGet(t, newRepo(t)) })
	t.Run("InsertReplaces", func(t *testing.T) { testInsertReplaces(t, newRepo(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newRepo(t)) })
	t.Run("DeleteByID", func(t *testing.T) { testDeleteByID(t, newRepo(t)) })
	t.Run("DeleteAll", func(t *testing.T) { testDeleteAll(t, newRepo(t)) })
	t.Run("ListDefaultOrder", func(t *testing.T) { testListDefaultOrder(t, newRepo(t)) })
	t.Run("SortByDriverName", func(t *testing.T) { testSortByDriverName(t, newRepo(t)) })
	t.Run("SortByNetWeight", func(t *testing.T) { testSortByNetWeight(t, newRepo(t)) })
	t.Run("SortByLicenseNumber", func(t *testing.T) { testSortByLicenseNumber(t, newRepo(t)) })
	t.Run("Watch", func(t *testing.T) { testWatch(t, newRepo(t)) })
}

var baseTime = time.Date(2026, 2, 8, 7, 0, 0, 0, time.UTC)

// Record builds a valid record; n offsets the entry date by n minutes.
func Record(id, driver string, tare, gross float64, n int) domain.WeighbridgeRecord {
	return domain.WeighbridgeRecord{
		RecordID:      id,
		FleetType:     domain.FleetInbound,
		LicenseNumber: "L-" + id,
		DriverName:    driver,
		TareWeight:    tare,
		GrossWeight:   gross,
		EntryDate:     baseTime.Add(time.Duration(n) * time.Minute),
	}
}

func mustInsert(t *testing.T, repo domain.RecordRepository, records ...domain.WeighbridgeRecord) {
	t.Helper()
	for _, r := range records {
		if err := repo.InsertRecord(context.Background(), r); err != nil {
			t.Fatalf("InsertRecord(%s): %v", r.RecordID, err)
		}
	}
}

func ids(records []domain.WeighbridgeRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.RecordID
	}
	return out
}

func expectOrder(t *testing.T, got []domain.WeighbridgeRecord, want ...string) {
	t.Helper()
	if fmt.Sprint(ids(got)) != fmt.Sprint(want) {
		t.Fatalf("order = %v; want %v", ids(got), want)
	}
}

func equalRecords(a, b domain.WeighbridgeRecord) bool {
	return a.RecordID == b.RecordID &&
		a.FleetType == b.FleetType &&
		a.LicenseNumber == b.LicenseNumber &&
		a.DriverName == b.DriverName &&
		a.TareWeight == b.TareWeight &&
		a.GrossWeight == b.GrossWeight &&
		a.EntryDate.Equal(b.EntryDate)
}

func testInsertThenGet(t *testing.T, repo domain.RecordRepository) {
	ctx := context.Background()
	r := Record("a", "Herschel Coffey", 4.5, 6.7, 0)
	r.FleetType = domain.FleetOutbound
	r.EntryDate = r.EntryDate.Add(123 * time.Millisecond)
	mustInsert(t, repo, r)

	got, err := repo.GetRecordByID(ctx, "a")
	if err != nil {
		t.Fatalf("GetRecordByID: %v", err)
	}
	if got == nil {
		t.Fatal("expected record, got nil")
	}
	if !equalRecords(*got, r) {
		t.Fatalf("got %+v; want %+v", *got, r)
	}
}

func testInsertReplaces(t *testing.T, repo domain.RecordRepository) {
	ctx := context.Background()
	mustInsert(t, repo, Record("a", "First Driver", 1, 10, 0))

	edited := Record("a", "Second Driver", 2, 20, 0)
	edited.LicenseNumber = "EDITED"
	mustInsert(t, repo, edited)

	all, err := repo.ListRecords(ctx)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 record after upsert, got %d", len(all))
	}
	if !equalRecords(all[0], edited) {
		t.Fatalf("got %+v; want %+v", all[0], edited)
	}
}

func testGetMissing(t *testing.T, repo domain.RecordRepository) {
	got, err := repo.GetRecordByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetRecordByID: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func testDeleteByID(t *testing.T, repo domain.RecordRepository) {
	ctx := context.Background()
	mustInsert(t, repo, Record("a", "A", 1, 2, 0), Record("b", "B", 1, 2, 1))

	if err := repo.DeleteRecordByID(ctx, "a"); err != nil {
		t.Fatalf("DeleteRecordByID: %v", err)
	}
	if err := repo.DeleteRecordByID(ctx, "never-existed"); err != nil {
		t.Fatalf("DeleteRecordByID(missing) should be a no-op, got %v", err)
	}

	got, err := repo.GetRecordByID(ctx, "a")
	if err != nil || got != nil {
		t.Fatalf("after delete got %+v, %v", got, err)
	}
	all, _ := repo.ListRecords(ctx)
	expectOrder(t, all, "b")
}

func testDeleteAll(t *testing.T, repo domain.RecordRepository) {
	ctx := context.Background()
	mustInsert(t, repo, Record("a", "A", 1, 2, 0), Record("b", "B", 1, 2, 1))

	if err := repo.DeleteAllRecords(ctx); err != nil {
		t.Fatalf("DeleteAllRecords: %v", err)
	}
	all, err := repo.ListRecords(ctx)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty table, got %v", ids(all))
	}
}

func testListDefaultOrder(t *testing.T, repo domain.RecordRepository) {
	mustInsert(t, repo,
		Record("old", "A", 1, 2, 0),
		Record("new", "B", 1, 2, 10),
		Record("mid", "C", 1, 2, 5),
	)
	all, err := repo.ListRecords(context.Background())
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	expectOrder(t, all, "new", "mid", "old")

	asc, err := repo.ListRecordsSortedBy(context.Background(), domain.SortByDate, true)
	if err != nil {
		t.Fatalf("ListRecordsSortedBy: %v", err)
	}
	expectOrder(t, asc, "old", "mid", "new")
}

func testSortByDriverName(t *testing.T, repo domain.RecordRepository) {
	ctx := context.Background()
	b := Record("B", "Joanna Martinez", 12.13, 14.15, 0)
	a := Record("A", "Herschel Coffey", 4.5, 6.7, 1)
	mustInsert(t, repo, b, a)

	asc, err := repo.ListRecordsSortedBy(ctx, domain.SortByDriverName, true)
	if err != nil {
		t.Fatalf("ListRecordsSortedBy: %v", err)
	}
	expectOrder(t, asc, "A", "B")

	desc, err := repo.ListRecordsSortedBy(ctx, domain.SortByDriverName, false)
	if err != nil {
		t.Fatalf("ListRecordsSortedBy: %v", err)
	}
	expectOrder(t, desc, "B", "A")
}

func testSortByNetWeight(t *testing.T, repo domain.RecordRepository) {
	// Gross weight order (heavy, light, mid) differs from net weight order.
	mustInsert(t, repo,
		Record("heavy-gross", "A", 9000, 9100, 0), // net 100
		Record("light", "B", 0, 500, 1),           // net 500
		Record("mid", "C", 1000, 3000, 2),         // net 2000
	)
	asc, err := repo.ListRecordsSortedBy(context.Background(), domain.SortByNetWeight, true)
	if err != nil {
		t.Fatalf("ListRecordsSortedBy: %v", err)
	}
	expectOrder(t, asc, "heavy-gross", "light", "mid")
}

func testSortByLicenseNumber(t *testing.T, repo domain.RecordRepository) {
	x, y, z := Record("1", "A", 1, 2, 0), Record("2", "A", 1, 2, 0), Record("3", "A", 1, 2, 0)
	x.LicenseNumber, y.LicenseNumber, z.LicenseNumber = "Z 100", "B 200", "M 300"
	mustInsert(t, repo, x, y, z)

	desc, err := repo.ListRecordsSortedBy(context.Background(), domain.SortByLicenseNumber, false)
	if err != nil {
		t.Fatalf("ListRecordsSortedBy: %v", err)
	}
	expectOrder(t, desc, "1", "3", "2")
}

func testWatch(t *testing.T, repo domain.RecordRepository) {
	ctx := context.Background()
	mustInsert(t, repo, Record("a", "Zed", 1, 2, 0))

	sub := repo.WatchRecords(ctx, domain.SortParam{Option: domain.SortByDriverName, Ascending: true})
	defer sub.Unsubscribe()

	first := nextSnapshot(t, sub.Updates())
	expectOrder(t, first, "a")

	mustInsert(t, repo, Record("b", "Amy", 1, 2, 1))
	waitFor(t, sub.Updates(), "b", "a")

	if err := repo.DeleteRecordByID(ctx, "a"); err != nil {
		t.Fatalf("DeleteRecordByID: %v", err)
	}
	waitFor(t, sub.Updates(), "b")
}

func nextSnapshot(t *testing.T, ch <-chan feedSnapshot) []domain.WeighbridgeRecord {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatal("watch closed")
		}
		if snap.Err != nil {
			t.Fatalf("watch error: %v", snap.Err)
		}
		return snap.Value
	case <-time.After(wait):
		t.Fatal("timed out waiting for watch snapshot")
	}
	return nil
}

// waitFor reads snapshots until one lists exactly the ids in want.
func waitFor(t *testing.T, ch <-chan feedSnapshot, want ...string) {
	t.Helper()
	deadline := time.After(wait)
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				t.Fatal("watch closed")
			}
			if snap.Err == nil && fmt.Sprint(ids(snap.Value)) == fmt.Sprint(want) {
				return
			}
		case <-deadline:
			t.Fatalf("never observed order %v", want)
		}
	}
}
