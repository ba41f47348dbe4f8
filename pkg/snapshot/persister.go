// Package snapshot keeps a copy of every session's entity stores in Postgres
// so that a restarted service can show cached options before the backend
// answers.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/moneyboard/moneyboard/internal/event_bus"
	"github.com/moneyboard/moneyboard/pkg/entity"
	log "github.com/sirupsen/logrus"
)

var ErrPersistenceDisabled = errors.New("snapshot persistence is disabled")

type pendingKey struct {
	owner string
	kind  string
}

// Persister saves store changes in the background. Changes of the same owner
// and kind that arrive before the worker picks them up collapse into the
// newest one, which always carries the full snapshot. A change older than one
// already accepted for the same store is dropped.
type Persister struct {
	repo Repository

	// saving is held for a whole flush and while an owner is forgotten.
	saving sync.Mutex

	mu        sync.Mutex
	pending   map[pendingKey]event_bus.EntitiesChanged
	order     []pendingKey
	latest    map[pendingKey]uint64
	forgotten map[string]uint64
	wake      chan struct{}
}

func NewPersister(repo Repository) *Persister {
	return &Persister{
		repo:      repo,
		pending:   make(map[pendingKey]event_bus.EntitiesChanged),
		latest:    make(map[pendingKey]uint64),
		forgotten: make(map[string]uint64),
		wake:      make(chan struct{}, 1),
	}
}

// Subscribe queues every EntitiesChanged published on bus.
func (p *Persister) Subscribe(bus *event_bus.EventBus) (unsubscribe func()) {
	return event_bus.SubscribeTyped[event_bus.EntitiesChanged](bus, event_bus.EntitiesChangedType,
		func(e event_bus.EventT[event_bus.EntitiesChanged]) error {
			p.enqueue(e.Data)
			return nil
		})
}

func (p *Persister) enqueue(change event_bus.EntitiesChanged) {
	key := pendingKey{owner: change.Owner, kind: change.Kind}
	p.mu.Lock()
	if tombstone, ok := p.forgotten[change.Owner]; ok && change.Version <= tombstone {
		p.mu.Unlock()
		log.Debugf("dropping %s change %d of forgotten owner %s", change.Kind, change.Version, change.Owner)
		return
	}
	if change.Version < p.latest[key] {
		p.mu.Unlock()
		log.Debugf("dropping stale %s change %d of %s", change.Kind, change.Version, change.Owner)
		return
	}
	p.latest[key] = change.Version
	if _, queued := p.pending[key]; !queued {
		p.order = append(p.order, key)
	}
	p.pending[key] = change
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Persister) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Discard drops the queued changes of owner and every change of owner made
// before the call. It waits for a running flush to finish.
func (p *Persister) Discard(owner string) {
	p.saving.Lock()
	defer p.saving.Unlock()
	p.discard(owner)
}

// Forget discards owner and deletes its stored snapshots. No flush runs
// between the two, so nothing discarded can be saved again after the delete.
func (p *Persister) Forget(ctx context.Context, owner string) error {
	p.saving.Lock()
	defer p.saving.Unlock()
	p.discard(owner)
	return p.repo.Delete(ctx, owner)
}

func (p *Persister) discard(owner string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forgotten[owner] = entity.CurrentVersion()
	order := p.order[:0]
	for _, key := range p.order {
		if key.owner == owner {
			delete(p.pending, key)
			continue
		}
		order = append(order, key)
	}
	p.order = order
	for key := range p.latest {
		if key.owner == owner {
			delete(p.latest, key)
		}
	}
}

// Run saves queued changes until ctx is done, then flushes what is left.
func (p *Persister) Run(ctx context.Context) {
	log.Info("snapshot persister started")
	for {
		select {
		case <-ctx.Done():
			if err := p.Flush(context.Background()); err != nil {
				log.Errorf("final snapshot flush failed: %v", err)
			}
			log.Info("snapshot persister stopped")
			return
		case <-p.wake:
			if err := p.Flush(ctx); err != nil {
				log.Errorf("snapshot flush failed: %v", err)
			}
		}
	}
}

// Flush saves every queued change in arrival order. A failed save is dropped;
// the next change of the same kind carries the full snapshot again.
func (p *Persister) Flush(ctx context.Context) error {
	p.saving.Lock()
	defer p.saving.Unlock()

	p.mu.Lock()
	order, pending := p.order, p.pending
	p.order = nil
	p.pending = make(map[pendingKey]event_bus.EntitiesChanged)
	p.mu.Unlock()

	var errs []error
	for _, key := range order {
		change := pending[key]
		if err := p.repo.Save(ctx, change.Owner, change.Kind, change.Records); err != nil {
			errs = append(errs, fmt.Errorf("%s of %s: %w", change.Kind, change.Owner, err))
		}
	}
	return errors.Join(errs...)
}
