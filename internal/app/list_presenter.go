package app

import (
	"context"
	"sync"

	"weighbridge/internal/domain"
	"weighbridge/internal/feed"
)

// ListStatus is the phase of a ListState.
type ListStatus string

const (
	// ListLoading is the state before the first listing arrives.
	ListLoading ListStatus = "loading"
	// ListReady carries the latest listing.
	ListReady ListStatus = "ready"
	// ListFailed means the latest re-query failed. Records still holds the
	// last good listing, if any.
	ListFailed ListStatus = "failed"
)

// ListState is what a record list view renders.
type ListState struct {
	Status ListStatus `json:"status"`
	// Param is the sort parameter Records is ordered by.
	Param   domain.SortParam           `json:"param"`
	Records []domain.WeighbridgeRecord `json:"records"`
	Err     error                      `json:"-"`
}

// ListPresenter keeps a sorted record listing current. It watches the
// repository with the active sort parameter and switches to a new watch
// whenever the parameter changes.
type ListPresenter struct {
	repo domain.RecordRepository

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	param   domain.SortParam
	state   ListState
	gen     uint64
	sub     *feed.Subscription[[]domain.WeighbridgeRecord]
	started bool
	closed  bool

	observers *feed.Hub[ListState]
	wg        sync.WaitGroup
}

// NewListPresenter creates a presenter using the default sort parameter.
// Nothing is queried until Start.
func NewListPresenter(repo domain.RecordRepository) *ListPresenter {
	param := domain.DefaultSortParam()
	return &ListPresenter{
		repo:      repo,
		param:     param,
		state:     ListState{Status: ListLoading, Param: param},
		observers: feed.NewHub[ListState](),
	}
}

// Start begins watching the repository. The watch ends when ctx is done or
// Close is called. Calling Start again has no effect.
func (p *ListPresenter) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.subscribeLocked()
}

// SortParam returns the most recently requested sort parameter.
func (p *ListPresenter) SortParam() domain.SortParam {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.param
}

// SetSortOption replaces the sort parameter and re-subscribes. The current
// listing stays in place until the new watch delivers its first result.
func (p *ListPresenter) SetSortOption(option domain.SortingOption, ascending bool) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.param = domain.SortParam{Option: option, Ascending: ascending}
	if !p.started {
		p.mu.Unlock()
		return
	}
	old := p.sub
	p.subscribeLocked()
	p.mu.Unlock()

	old.Unsubscribe()
}

// State returns the current list state.
func (p *ListPresenter) State() ListState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Observe streams the presenter's state: the current value first, then the
// latest value after each change.
func (p *ListPresenter) Observe(ctx context.Context) *feed.Subscription[ListState] {
	return p.observers.Subscribe(ctx, func(context.Context) (ListState, error) {
		return p.State(), nil
	})
}

// Close stops the repository watch and ends every observer.
func (p *ListPresenter) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.gen++
	sub := p.sub
	p.sub = nil
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	p.wg.Wait()
	p.observers.Close()
}

func (p *ListPresenter) subscribeLocked() {
	p.gen++
	gen, param := p.gen, p.param
	sub := p.repo.WatchRecords(p.ctx, param)
	p.sub = sub

	p.wg.Add(1)
	go p.forward(gen, param, sub)
}

func (p *ListPresenter) forward(gen uint64, param domain.SortParam, sub *feed.Subscription[[]domain.WeighbridgeRecord]) {
	defer p.wg.Done()
	for snap := range sub.Updates() {
		p.mu.Lock()
		if gen != p.gen {
			// Superseded by a newer parameter; drain until closed.
			p.mu.Unlock()
			continue
		}
		if snap.Err != nil {
			p.state = ListState{Status: ListFailed, Param: p.state.Param, Records: p.state.Records, Err: snap.Err}
		} else {
			p.state = ListState{Status: ListReady, Param: param, Records: snap.Value}
		}
		p.mu.Unlock()
		p.observers.Notify()
	}
}
