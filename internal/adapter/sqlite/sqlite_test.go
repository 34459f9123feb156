package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"weighbridge/internal/adapter/storetest"
	"weighbridge/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "weighbridge.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRecordRepository(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.RecordRepository {
		return openTestDB(t)
	})
}

func TestRecordsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weighbridge.db")
	ctx := context.Background()

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	r := storetest.Record("persisted", "Herschel Coffey", 2000, 5510, 0)
	if err := db.InsertRecord(ctx, r); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	_ = db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = db.Close() }()

	got, err := db.GetRecordByID(ctx, "persisted")
	if err != nil || got == nil {
		t.Fatalf("GetRecordByID after reopen = %+v, %v", got, err)
	}
	if got.NetWeight() != 3510 {
		t.Fatalf("net weight = %v; want 3510", got.NetWeight())
	}
}

func TestStoredEntryDateFormat(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := storetest.Record("fmt", "A", 1, 2, 0)
	r.EntryDate = time.Date(2026, 2, 8, 14, 5, 9, 250*int(time.Millisecond), time.FixedZone("WIB", 7*3600))
	if err := db.InsertRecord(ctx, r); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}

	var raw string
	if err := db.sql.QueryRowContext(ctx, "SELECT entry_date FROM weighbridge_record WHERE record_id = ?", "fmt").Scan(&raw); err != nil {
		t.Fatalf("select: %v", err)
	}
	if want := "2026-02-08T07:05:09.250+0000"; raw != want {
		t.Fatalf("stored entry_date = %q; want %q", raw, want)
	}
}

func TestOperatorsAndSessions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	o, err := db.CreateOperator(ctx, "clerk", "hash")
	if err != nil {
		t.Fatalf("CreateOperator: %v", err)
	}
	if _, err := db.CreateOperator(ctx, "clerk", "hash"); err == nil {
		t.Fatal("expected unique violation")
	}
	byName, err := db.GetOperatorByUsername(ctx, "clerk")
	if err != nil || byName == nil || byName.ID != o.ID {
		t.Fatalf("GetOperatorByUsername = %+v, %v", byName, err)
	}
	if missing, err := db.GetOperatorByID(ctx, 999); err != nil || missing != nil {
		t.Fatalf("GetOperatorByID(missing) = %+v, %v", missing, err)
	}
	if n, _ := db.CountOperators(ctx); n != 1 {
		t.Fatalf("CountOperators = %d", n)
	}

	live := domain.Session{Token: "live", OperatorID: o.ID, UserAgent: "ua", ExpiresAt: time.Now().Add(time.Hour)}
	dead := domain.Session{Token: "dead", OperatorID: o.ID, ExpiresAt: time.Now().Add(-time.Hour)}
	for _, s := range []domain.Session{live, dead} {
		if err := db.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession(%s): %v", s.Token, err)
		}
	}

	got, err := db.GetSession(ctx, "live")
	if err != nil || got == nil || got.UserAgent != "ua" {
		t.Fatalf("GetSession(live) = %+v, %v", got, err)
	}
	if got, _ := db.GetSession(ctx, "dead"); got != nil {
		t.Fatal("expired session returned")
	}
	if err := db.DeleteExpiredSessions(ctx); err != nil {
		t.Fatalf("DeleteExpiredSessions: %v", err)
	}
	if err := db.DeleteSession(ctx, "live"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if got, _ := db.GetSession(ctx, "live"); got != nil {
		t.Fatal("deleted session returned")
	}
}

func TestCancelledCallerDoesNotFailOthers(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	for i := range 20 {
		if err := db.InsertRecord(ctx, storetest.Record(fmt.Sprintf("r%02d", i), "Driver", 1000, 2000+float64(i), i)); err != nil {
			t.Fatalf("InsertRecord: %v", err)
		}
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				cctx, cancel := context.WithCancel(ctx)
				go cancel()
				_, _ = db.ListRecordsSortedBy(cctx, domain.SortByDriverName, true)
			}
		}()
	}

	for i := range 200 {
		if _, err := db.ListRecordsSortedBy(ctx, domain.SortByNetWeight, false); err != nil {
			close(stop)
			wg.Wait()
			t.Fatalf("list %d: %v", i, err)
		}
		if err := db.InsertRecord(ctx, storetest.Record("churn", "Driver", 1000, 3000+float64(i), 0)); err != nil {
			close(stop)
			wg.Wait()
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	close(stop)
	wg.Wait()
}

func TestCancelledContextRejected(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := db.ListRecordsSortedBy(ctx, domain.SortByDate, false); !errors.Is(err, context.Canceled) {
		t.Fatalf("list err = %v; want context.Canceled", err)
	}
	if err := db.InsertRecord(ctx, storetest.Record("x", "A", 1, 2, 0)); !errors.Is(err, context.Canceled) {
		t.Fatalf("insert err = %v; want context.Canceled", err)
	}
}
