package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/moneyboard/moneyboard/pkg/finance"
	log "github.com/sirupsen/logrus"
)

// Loader seeds new session registries from the stored snapshots.
type Loader struct {
	repo Repository
}

func NewLoader(repo Repository) *Loader {
	return &Loader{repo: repo}
}

// Hydrate seeds every kind that has a stored snapshot. A kind that fails to
// load stays empty; the others are still seeded.
func (l *Loader) Hydrate(ctx context.Context, registry *finance.Registry) error {
	if l.repo == nil {
		return ErrPersistenceDisabled
	}
	owner := registry.Owner()
	var errs []error
	for _, kind := range finance.Kinds {
		records, err := l.repo.Load(ctx, owner, string(kind))
		if err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", kind, err))
			continue
		}
		if len(records) == 0 {
			continue
		}
		payloads := make([]json.RawMessage, 0, len(records))
		for _, r := range records {
			payloads = append(payloads, r.Payload)
		}
		if err := registry.Seed(kind, payloads); err != nil {
			errs = append(errs, fmt.Errorf("seed %s: %w", kind, err))
			continue
		}
		log.Debugf("hydrated %d %s of %s", len(records), kind, owner)
	}
	return errors.Join(errs...)
}
