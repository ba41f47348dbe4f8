package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moneyboard/moneyboard/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	// Save replaces the stored snapshot of one kind for owner.
	Save(ctx context.Context, owner, kind string, records []event_bus.Record) error
	// Load returns the stored snapshot of one kind in its original order.
	Load(ctx context.Context, owner, kind string) ([]event_bus.Record, error)
	// Delete drops every stored kind of owner.
	Delete(ctx context.Context, owner string) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Save(ctx context.Context, owner, kind string, records []event_bus.Record) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM entity_snapshot WHERE owner = $1 AND kind = $2", owner, kind); err != nil {
		err = fmt.Errorf("failed to clear %s snapshot of %s: %w", kind, owner, err)
		log.Error(err)
		return err
	}

	if len(records) > 0 {
		const insert = `INSERT INTO entity_snapshot (owner, kind, entity_key, position, payload)
			VALUES ($1, $2, $3, $4, $5)`
		batch := &pgx.Batch{}
		for i, rec := range records {
			batch.Queue(insert, owner, kind, rec.Key, i, []byte(rec.Payload))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			err = fmt.Errorf("failed to insert %s snapshot of %s: %w", kind, owner, err)
			log.Error(err)
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	log.Debugf("saved %d %s records of %s", len(records), kind, owner)
	return nil
}

type row struct {
	EntityKey string `db:"entity_key"`
	Payload   []byte `db:"payload"`
}

func (r *RepositoryImpl) Load(ctx context.Context, owner, kind string) ([]event_bus.Record, error) {
	rows, err := r.db.Query(ctx,
		`SELECT entity_key, payload FROM entity_snapshot
			WHERE owner = $1 AND kind = $2 ORDER BY position`,
		owner, kind)
	if err != nil {
		err = fmt.Errorf("could not query %s snapshot of %s: %w", kind, owner, err)
		log.Error(err)
		return nil, err
	}

	loaded, err := pgx.CollectRows(rows, pgx.RowToStructByName[row])
	if err != nil {
		err = fmt.Errorf("error scanning %s snapshot rows: %w", kind, err)
		log.Error(err)
		return nil, err
	}

	records := make([]event_bus.Record, 0, len(loaded))
	for _, l := range loaded {
		records = append(records, event_bus.Record{Key: l.EntityKey, Payload: json.RawMessage(l.Payload)})
	}
	return records, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, owner string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM entity_snapshot WHERE owner = $1", owner)
	if err != nil {
		err = fmt.Errorf("failed to delete snapshots of %s: %w", owner, err)
		log.Error(err)
		return err
	}
	log.Debugf("deleted %d snapshot records of %s", tag.RowsAffected(), owner)
	return nil
}
