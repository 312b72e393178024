package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/truthpost/internal/model"
)

// Open creates the Store named by cfg.Driver
func Open(ctx context.Context, cfg model.StorageConfig, logger *zap.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))

	switch driver {
	case "", "memory":
		logger.Warn("using in-memory store; claims are lost on exit")
		return NewMemoryStore(), nil

	case "postgres", "postgresql", "pgx":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("storage dsn is required for driver %q", cfg.Driver)
		}
		s, err := OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to postgres store")
		return s, nil

	case "mysql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("storage dsn is required for driver %q", cfg.Driver)
		}
		s, err := OpenMySQL(cfg.DSN)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to mysql store")
		return s, nil

	default:
		return nil, fmt.Errorf("unknown storage driver: %s (supported: memory, postgres, mysql)", cfg.Driver)
	}
}

func errInvalidResolution(v model.Verdict) error {
	return fmt.Errorf("refusing to resolve with non-terminal verdict %q", v)
}
