package postgres

import (
	"context"
	"os"
	"testing"

	"weighbridge/internal/adapter/storetest"
	"weighbridge/internal/domain"
)

// openTestDB connects to the database named by WEIGHBRIDGE_TEST_DATABASE_URL
// and empties the record table. Tests are skipped when it is unset.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	connStr := os.Getenv("WEIGHBRIDGE_TEST_DATABASE_URL")
	if connStr == "" {
		t.Skip("WEIGHBRIDGE_TEST_DATABASE_URL not set")
	}
	db, err := Open(connStr)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.DeleteAllRecords(context.Background()); err != nil {
		t.Fatalf("DeleteAllRecords: %v", err)
	}
	return db
}

func TestRecordRepository(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.RecordRepository {
		return openTestDB(t)
	})
}
