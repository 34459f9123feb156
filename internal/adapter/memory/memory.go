// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"weighbridge/internal/domain"
	"weighbridge/internal/feed"
)

// DB implements an in-memory database storage.
type DB struct {
	mu        sync.Mutex
	records   map[string]domain.WeighbridgeRecord
	operators []*domain.Operator
	sessions  map[string]*domain.Session

	operatorIDCounter int64

	hub *feed.Hub[[]domain.WeighbridgeRecord]
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		records:  make(map[string]domain.WeighbridgeRecord),
		sessions: make(map[string]*domain.Session),
		hub:      feed.NewHub[[]domain.WeighbridgeRecord](),
	}
}

// Ensure interfaces are met.
var _ domain.RecordRepository = (*DB)(nil)
var _ domain.OperatorRepository = (*DB)(nil)
var _ domain.SessionRepository = (*DB)(nil)

// Close ends every active watch.
func (db *DB) Close() error {
	db.hub.Close()
	return nil
}

// --- RecordRepository ---

// InsertRecord stores r, replacing any record with the same id.
func (db *DB) InsertRecord(ctx context.Context, r domain.WeighbridgeRecord) error {
	db.mu.Lock()
	r.EntryDate = r.EntryDate.UTC().Truncate(time.Millisecond)
	db.records[r.RecordID] = r
	db.mu.Unlock()

	db.hub.Notify()
	return nil
}

// GetRecordByID returns the record with the given id, or nil.
func (db *DB) GetRecordByID(ctx context.Context, recordID string) (*domain.WeighbridgeRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	r, ok := db.records[recordID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// DeleteRecordByID removes a record. Unknown ids are ignored.
func (db *DB) DeleteRecordByID(ctx context.Context, recordID string) error {
	db.mu.Lock()
	_, ok := db.records[recordID]
	delete(db.records, recordID)
	db.mu.Unlock()

	if ok {
		db.hub.Notify()
	}
	return nil
}

// DeleteAllRecords clears the table.
func (db *DB) DeleteAllRecords(ctx context.Context) error {
	db.mu.Lock()
	db.records = make(map[string]domain.WeighbridgeRecord)
	db.mu.Unlock()

	db.hub.Notify()
	return nil
}

// ListRecords lists every record, newest first.
func (db *DB) ListRecords(ctx context.Context) ([]domain.WeighbridgeRecord, error) {
	return db.ListRecordsSortedBy(ctx, domain.SortByDate, false)
}

// ListRecordsSortedBy lists every record in the requested order.
func (db *DB) ListRecordsSortedBy(ctx context.Context, option domain.SortingOption, ascending bool) ([]domain.WeighbridgeRecord, error) {
	db.mu.Lock()
	result := make([]domain.WeighbridgeRecord, 0, len(db.records))
	for _, r := range db.records {
		result = append(result, r)
	}
	db.mu.Unlock()

	domain.SortRecords(result, option, ascending)
	return result, nil
}

// WatchRecords streams the sorted listing after every change.
func (db *DB) WatchRecords(ctx context.Context, param domain.SortParam) *feed.Subscription[[]domain.WeighbridgeRecord] {
	return db.hub.Subscribe(ctx, func(ctx context.Context) ([]domain.WeighbridgeRecord, error) {
		return db.ListRecordsSortedBy(ctx, param.Option, param.Ascending)
	})
}

// --- OperatorRepository ---

// GetOperatorByUsername retrieves an operator by username.
func (db *DB) GetOperatorByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, o := range db.operators {
		if o.Username == username {
			return o, nil
		}
	}
	return nil, nil
}

// GetOperatorByID retrieves an operator by ID.
func (db *DB) GetOperatorByID(ctx context.Context, id int64) (*domain.Operator, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, o := range db.operators {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, nil
}

// CreateOperator creates a new operator.
func (db *DB) CreateOperator(ctx context.Context, username, passwordHash string) (*domain.Operator, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, o := range db.operators {
		if o.Username == username {
			return nil, errors.New("operator already exists")
		}
	}

	db.operatorIDCounter++
	o := &domain.Operator{
		ID:           db.operatorIDCounter,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	db.operators = append(db.operators, o)
	return o, nil
}

// CountOperators returns the total number of operators.
func (db *DB) CountOperators(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.operators), nil
}

// --- SessionRepository ---

// CreateSession stores a new session.
func (db *DB) CreateSession(ctx context.Context, s domain.Session) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	db.sessions[s.Token] = &s
	return nil
}

// GetSession retrieves a session by token.
func (db *DB) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if s, ok := db.sessions[token]; ok {
		if time.Now().After(s.ExpiresAt) {
			delete(db.sessions, token)
			return nil, nil
		}
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

// DeleteSession deletes a session.
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.sessions, token)
	return nil
}

// DeleteExpiredSessions deletes all expired sessions.
func (db *DB) DeleteExpiredSessions(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	now := time.Now()
	for k, v := range db.sessions {
		if now.After(v.ExpiresAt) {
			delete(db.sessions, k)
		}
	}
	return nil
}
