package store

import (
	"errors"
	"fmt"

	"github.com/datallboy/gohls/internal/app"
	"github.com/datallboy/gohls/internal/infra/config"
)

// ErrRunNotFound is returned by GetRun for unknown ids.
var ErrRunNotFound = errors.New("run not found")

// Open returns the run history store selected by cfg.Driver.
// The "none" driver returns a nil Store, which disables persistence.
func Open(cfg config.StoreConfig) (app.Store, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		s, err := NewPersistentStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
