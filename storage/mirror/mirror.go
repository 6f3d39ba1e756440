// Package mirror keeps a best-effort local copy of the collections the console has shown.
// It is never the source of truth and never serves list pages.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/record"
)

// Store is a persisted key-value store of JSON documents, one per collection.
type Store interface {
	// Get returns the raw document under key; ok is false when there is none.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte) error
	Close() error
}

// Mirror reads and writes collection snapshots on a Store. Writes are last-writer-wins.
type Mirror struct {
	store Store
	log   core.Logger
}

func New(store Store, logger core.Logger) *Mirror {
	if logger == nil {
		logger = core.NopLogger()
	}
	return &Mirror{store: store, log: logger}
}

func (m *Mirror) Close() error { return m.store.Close() }

// Records returns the mirrored collection of kind. An absent or unreadable document is an empty
// collection; only store failures are errors.
func (m *Mirror) Records(ctx context.Context, kind record.Kind) ([]record.Map, error) {
	key := record.Spec(kind).MirrorKey
	if key == "" {
		return []record.Map{}, nil
	}
	data, ok, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, errors.Wrapf(err, "reading mirror %q", key)
	}
	if !ok {
		return []record.Map{}, nil
	}
	var recs []record.Map
	if err := json.Unmarshal(data, &recs); err != nil {
		m.log.Warn(fmt.Sprintf("mirror: %q is not a JSON array, treating it as empty", key), err)
		return []record.Map{}, nil
	}
	if recs == nil {
		recs = []record.Map{}
	}
	return recs, nil
}

// Snapshot replaces the mirrored collection of kind with recs. Kinds without a mirror are ignored.
func (m *Mirror) Snapshot(ctx context.Context, kind record.Kind, recs []record.Map) error {
	key := record.Spec(kind).MirrorKey
	if key == "" {
		return nil
	}
	if recs == nil {
		recs = []record.Map{}
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return errors.Wrapf(err, "encoding mirror %q", key)
	}
	if err := m.store.Set(ctx, key, data); err != nil {
		return errors.Wrapf(err, "writing mirror %q", key)
	}
	return nil
}

// RemoveRecord filters the records identified by id out of the mirrored collection of kind.
func (m *Mirror) RemoveRecord(ctx context.Context, kind record.Kind, id string) error {
	if record.Spec(kind).MirrorKey == "" {
		return nil
	}
	recs, err := m.Records(ctx, kind)
	if err != nil {
		return err
	}
	kept := make([]record.Map, 0, len(recs))
	for _, rec := range recs {
		if rec.ID(kind) != id {
			kept = append(kept, rec)
		}
	}
	return m.Snapshot(ctx, kind, kept)
}
