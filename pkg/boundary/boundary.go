// Package boundary wraps an asynchronous load behind a small state machine so
// that callers can tell whether the data behind it is ready, still loading or
// failed, and can retry a failed load explicitly.
package boundary

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

type State int

const (
	Idle State = iota
	Loading
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Error:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

type LoadFunc func(ctx context.Context) error

type Boundary struct {
	name string
	load LoadFunc

	// run serializes loads; concurrent callers wait for the running one.
	run sync.Mutex

	mu     sync.RWMutex
	state  State
	err    error
	loaded bool
}

func New(name string, load LoadFunc) *Boundary {
	return &Boundary{name: name, load: load}
}

func (b *Boundary) Name() string {
	return b.name
}

func (b *Boundary) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *Boundary) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.err
}

// Ensure runs the load the first time it is called. Once loaded it returns
// nil immediately. A failed load keeps the boundary in Error and its error is
// returned to every caller until Reset.
func (b *Boundary) Ensure(ctx context.Context) error {
	if done, err := b.settled(); done {
		return err
	}

	b.run.Lock()
	defer b.run.Unlock()
	// Another caller may have finished the load while we waited.
	if done, err := b.settled(); done {
		return err
	}
	return b.execute(ctx)
}

// Reset forgets a previous outcome and runs the load again.
func (b *Boundary) Reset(ctx context.Context) error {
	b.run.Lock()
	defer b.run.Unlock()

	b.mu.Lock()
	b.state = Idle
	b.err = nil
	b.loaded = false
	b.mu.Unlock()

	log.Debugf("boundary %s reset", b.name)
	return b.execute(ctx)
}

func (b *Boundary) settled() (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	switch {
	case b.state == Error:
		return true, b.err
	case b.loaded:
		return true, nil
	}
	return false, nil
}

// execute must be called with run held.
func (b *Boundary) execute(ctx context.Context) error {
	b.mu.Lock()
	b.state = Loading
	b.mu.Unlock()

	err := b.load(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		if ctx.Err() != nil {
			// The caller went away, which says nothing about the data. Leave the
			// boundary unloaded so the next caller retries.
			b.state = Idle
			return err
		}
		log.Errorf("boundary %s failed to load: %v", b.name, err)
		b.state = Error
		b.err = err
		return err
	}
	b.state = Idle
	b.loaded = true
	return nil
}
