package mutation

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core/record"
)

var ErrInFlight = errors.New("a change to this record is already in progress")

type flightKey struct {
	kind record.Kind
	id   string
}

// flights holds the (kind, id) pairs with a mutation in progress.
type flights struct {
	mu   sync.Mutex
	busy map[flightKey]struct{}
}

func newFlights() *flights {
	return &flights{busy: make(map[flightKey]struct{})}
}

// acquire claims every key or none; the returned func releases them.
func (f *flights) acquire(kind record.Kind, ids ...string) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := make([]flightKey, 0, len(ids))
	for _, id := range ids {
		k := flightKey{kind, id}
		if _, ok := f.busy[k]; ok {
			return nil, errors.Wrapf(ErrInFlight, "%s %q", kind, id)
		}
		keys = append(keys, k)
	}
	for _, k := range keys {
		f.busy[k] = struct{}{}
	}
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, k := range keys {
			delete(f.busy, k)
		}
	}, nil
}

// InFlight reports whether a mutation on (kind, id) is running.
func (f *flights) InFlight(kind record.Kind, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.busy[flightKey{kind, id}]
	return ok
}
