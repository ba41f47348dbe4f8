// Package form composes the asset, account and category pickers into
// transaction drafts that are submitted to the finance backend.
package form

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moneyboard/moneyboard/internal/utils"
	"github.com/moneyboard/moneyboard/pkg/backend"
	"github.com/moneyboard/moneyboard/pkg/catalog"
	"github.com/moneyboard/moneyboard/pkg/finance"
	"github.com/moneyboard/moneyboard/pkg/session"
	log "github.com/sirupsen/logrus"
)

var ErrDraftNotFound = errors.New("form draft not found")
var ErrUnknownAction = errors.New("unknown field action")

type Action string

const (
	ActionOpen    Action = "open"
	ActionToggle  Action = "toggle"
	ActionDismiss Action = "dismiss"
)

type Service struct {
	catalog  catalog.Service
	client   backend.Client
	clock    utils.Clock
	debounce time.Duration

	mu     sync.Mutex
	drafts map[uuid.UUID]*Draft
}

func NewService(cat catalog.Service, client backend.Client, clock utils.Clock, debounce time.Duration) *Service {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Service{
		catalog:  cat,
		client:   client,
		clock:    clock,
		debounce: debounce,
		drafts:   make(map[uuid.UUID]*Draft),
	}
}

func (s *Service) Create(ctx context.Context) (*Draft, error) {
	sess, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}
	d := newDraft(sess, s.catalog, s.clock, s.debounce)

	s.mu.Lock()
	s.drafts[d.Id] = d
	s.mu.Unlock()
	log.Debugf("draft %s created for %s", d.Id, d.Owner)
	return d, nil
}

// Get returns a draft of the session owner. Drafts of other owners are
// reported as not found.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Draft, error) {
	sess, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	d, ok := s.drafts[id]
	s.mu.Unlock()
	if !ok || d.Owner != sess.Owner {
		return nil, ErrDraftNotFound
	}
	d.touch(s.clock.Now())
	return d, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	d, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	s.discard(d)
	return nil
}

func (s *Service) discard(d *Draft) {
	d.Release()
	s.mu.Lock()
	delete(s.drafts, d.Id)
	s.mu.Unlock()
}

// Act applies a list action to a field. Opening a field runs the initial
// load of its kind so the list has something to show.
func (s *Service) Act(ctx context.Context, id uuid.UUID, field Field, action Action) (*Draft, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cb, err := d.Field(field)
	if err != nil {
		return nil, err
	}

	switch action {
	case ActionOpen:
		cb.Open()
	case ActionToggle:
		cb.Toggle()
	case ActionDismiss:
		cb.Dismiss()
		return d, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if cb.IsOpen() {
		if _, err := s.catalog.Options(ctx, field.Kind(), ""); err != nil {
			return d, err
		}
	}
	return d, nil
}

// Type updates the query of a field; the server-side search follows once
// typing paused.
func (s *Service) Type(ctx context.Context, id uuid.UUID, field Field, text string) (*Draft, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cb, err := d.Field(field)
	if err != nil {
		return nil, err
	}
	if _, err := s.catalog.Options(ctx, field.Kind(), ""); err != nil {
		return d, err
	}
	cb.Type(text)
	return d, nil
}

// Select sets the value of a field. An empty key clears it.
func (s *Service) Select(ctx context.Context, id uuid.UUID, field Field, key string) (*Draft, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cb, err := d.Field(field)
	if err != nil {
		return nil, err
	}
	if key == "" {
		cb.Clear()
		return d, nil
	}
	if _, err := s.catalog.Options(ctx, field.Kind(), ""); err != nil {
		return d, err
	}
	if err := cb.Select(key); err != nil {
		return d, fmt.Errorf("%s %q: %w", field, key, err)
	}
	return d, nil
}

func (s *Service) SetDetails(ctx context.Context, id uuid.UUID, details Details) (*Draft, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d.SetDetails(details)
	return d, nil
}

// Submit posts the draft as a new transaction and discards the draft. An
// incomplete draft is kept and ErrIncomplete returned.
func (s *Service) Submit(ctx context.Context, id uuid.UUID) (finance.Transaction, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return finance.Transaction{}, err
	}
	tx, err := d.transaction()
	if err != nil {
		return finance.Transaction{}, err
	}

	created, err := s.client.CreateTransaction(ctx, tx)
	if err != nil {
		return finance.Transaction{}, fmt.Errorf("failed to create transaction: %w", err)
	}
	s.discard(d)
	log.Debugf("draft %s submitted as transaction %d", d.Id, created.Id)
	return created, nil
}

// Sweep discards drafts not used for longer than ttl and returns how many
// were discarded.
func (s *Service) Sweep(ttl time.Duration) int {
	now := s.clock.Now()
	var expired []*Draft
	s.mu.Lock()
	for id, d := range s.drafts {
		if now.Sub(d.LastUsed()) > ttl {
			expired = append(expired, d)
			delete(s.drafts, id)
		}
	}
	s.mu.Unlock()

	for _, d := range expired {
		d.Release()
		log.Debugf("draft %s of %s expired", d.Id, d.Owner)
	}
	return len(expired)
}

// StartSweeper runs Sweep every interval on the service clock until stop is
// called.
func (s *Service) StartSweeper(ttl, every time.Duration) (stop func()) {
	var (
		mu      sync.Mutex
		timer   utils.Timer
		stopped bool
	)
	var schedule func()
	schedule = func() {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		timer = s.clock.AfterFunc(every, func() {
			if n := s.Sweep(ttl); n > 0 {
				log.Infof("discarded %d abandoned drafts", n)
			}
			schedule()
		})
	}
	schedule()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		stopped = true
		if timer != nil {
			timer.Stop()
		}
	}
}

func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}
