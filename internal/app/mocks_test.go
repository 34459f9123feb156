package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"weighbridge/internal/domain"
	"weighbridge/internal/feed"
)

type mockRecordRepo struct {
	insertFn    func(ctx context.Context, r domain.WeighbridgeRecord) error
	getFn       func(ctx context.Context, id string) (*domain.WeighbridgeRecord, error)
	deleteFn    func(ctx context.Context, id string) error
	deleteAllFn func(ctx context.Context) error
	listFn      func(ctx context.Context) ([]domain.WeighbridgeRecord, error)
	sortedFn    func(ctx context.Context, option domain.SortingOption, ascending bool) ([]domain.WeighbridgeRecord, error)

	hub *feed.Hub[[]domain.WeighbridgeRecord]
}

func (m *mockRecordRepo) InsertRecord(ctx context.Context, r domain.WeighbridgeRecord) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, r)
	}
	return nil
}

func (m *mockRecordRepo) GetRecordByID(ctx context.Context, id string) (*domain.WeighbridgeRecord, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

func (m *mockRecordRepo) DeleteRecordByID(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockRecordRepo) DeleteAllRecords(ctx context.Context) error {
	if m.deleteAllFn != nil {
		return m.deleteAllFn(ctx)
	}
	return nil
}

func (m *mockRecordRepo) ListRecords(ctx context.Context) ([]domain.WeighbridgeRecord, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockRecordRepo) ListRecordsSortedBy(ctx context.Context, option domain.SortingOption, ascending bool) ([]domain.WeighbridgeRecord, error) {
	if m.sortedFn != nil {
		return m.sortedFn(ctx, option, ascending)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRecordRepo) WatchRecords(ctx context.Context, param domain.SortParam) *feed.Subscription[[]domain.WeighbridgeRecord] {
	if m.hub == nil {
		m.hub = feed.NewHub[[]domain.WeighbridgeRecord]()
	}
	return m.hub.Subscribe(ctx, func(ctx context.Context) ([]domain.WeighbridgeRecord, error) {
		return m.ListRecordsSortedBy(ctx, param.Option, param.Ascending)
	})
}

type recordedOp struct {
	op  string
	err error
}

type mockRecorder struct {
	mu  sync.Mutex
	ops []recordedOp
}

func (m *mockRecorder) ObserveTicketOp(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, recordedOp{op: op, err: err})
}

func (m *mockRecorder) recorded() []recordedOp {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedOp(nil), m.ops...)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
