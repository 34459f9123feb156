package memory

import (
	"context"
	"testing"
	"time"

	"weighbridge/internal/adapter/storetest"
	"weighbridge/internal/domain"
)

func TestRecordRepository(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.RecordRepository {
		db := New()
		t.Cleanup(func() { _ = db.Close() })
		return db
	})
}

func TestGetRecordReturnsCopy(t *testing.T) {
	db := New()
	ctx := context.Background()
	_ = db.InsertRecord(ctx, storetest.Record("a", "Herschel Coffey", 1, 2, 0))

	got, _ := db.GetRecordByID(ctx, "a")
	got.DriverName = "mutated"

	again, _ := db.GetRecordByID(ctx, "a")
	if again.DriverName != "Herschel Coffey" {
		t.Fatalf("stored record was mutated through returned pointer: %q", again.DriverName)
	}
}

func TestOperatorRepository(t *testing.T) {
	db := New()
	ctx := context.Background()

	o, err := db.CreateOperator(ctx, "bob", "hash")
	if err != nil {
		t.Fatalf("CreateOperator: %v", err)
	}
	if o.Username != "bob" {
		t.Errorf("expected bob, got %s", o.Username)
	}
	if _, err := db.CreateOperator(ctx, "bob", "hash"); err == nil {
		t.Error("expected duplicate username error")
	}

	o2, err := db.GetOperatorByUsername(ctx, "bob")
	if err != nil {
		t.Fatalf("GetOperatorByUsername: %v", err)
	}
	if o2 == nil || o2.ID != o.ID {
		t.Error("failed to retrieve operator")
	}

	byID, _ := db.GetOperatorByID(ctx, o.ID)
	if byID == nil || byID.Username != "bob" {
		t.Error("failed to retrieve operator by id")
	}

	count, _ := db.CountOperators(ctx)
	if count != 1 {
		t.Errorf("expected 1 operator, got %d", count)
	}
}

func TestSessionRepository(t *testing.T) {
	db := New()
	ctx := context.Background()

	err := db.CreateSession(ctx, domain.Session{Token: "token123", OperatorID: 1, UserAgent: "ua", ExpiresAt: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	sess, err := db.GetSession(ctx, "token123")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess == nil || sess.UserAgent != "ua" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	_ = db.DeleteSession(ctx, "token123")
	sess, _ = db.GetSession(ctx, "token123")
	if sess != nil {
		t.Error("expected nil (deleted)")
	}

	_ = db.CreateSession(ctx, domain.Session{Token: "old", ExpiresAt: time.Now().Add(-time.Minute)})
	if err := db.DeleteExpiredSessions(ctx); err != nil {
		t.Fatalf("DeleteExpiredSessions: %v", err)
	}
	if sess, _ := db.GetSession(ctx, "old"); sess != nil {
		t.Error("expected expired session to be gone")
	}
}
