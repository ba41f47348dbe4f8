package snapshot

import (
	"context"
	"errors"
	"sync"

	"github.com/moneyboard/moneyboard/internal/event_bus"
)

var ErrRepositoryTestError = errors.New("repository test error")

type RepositoryStub struct {
	mu    sync.RWMutex
	data  map[string]map[string][]event_bus.Record
	err   error
	saves int
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{data: make(map[string]map[string][]event_bus.Record)}
}

func (r *RepositoryStub) Save(ctx context.Context, owner, kind string, records []event_bus.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saves++
	if r.data[owner] == nil {
		r.data[owner] = make(map[string][]event_bus.Record)
	}
	r.data[owner][kind] = append([]event_bus.Record(nil), records...)
	return nil
}

func (r *RepositoryStub) Load(ctx context.Context, owner, kind string) ([]event_bus.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return nil, r.err
	}
	return append([]event_bus.Record(nil), r.data[owner][kind]...), nil
}

func (r *RepositoryStub) Delete(ctx context.Context, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	delete(r.data, owner)
	return nil
}

// Helper methods for test setup

func (r *RepositoryStub) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *RepositoryStub) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}

func (r *RepositoryStub) Records(owner, kind string) []event_bus.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]event_bus.Record(nil), r.data[owner][kind]...)
}
