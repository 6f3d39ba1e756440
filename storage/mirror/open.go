package mirror

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
)

// Open returns the Store selected by conf.Driver: memory, file (default) or postgres.
func Open(ctx context.Context, conf core.MirrorConfig) (Store, error) {
	switch conf.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "", "file":
		s, err := NewFileStore(conf.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		if conf.DSN == "" {
			return nil, errors.New("mirror: postgres driver needs a DSN")
		}
		s, err := NewPostgresStore(ctx, conf.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, errors.Errorf("mirror: unknown driver %q", conf.Driver)
}
