package storage

import (
	"context"
	"errors"
	"strings"

	logx "verisend/pkg/logx"
)

// Store is the minimal persistence API used by the dispatcher.
type Store interface {
	AppendAttempt(ctx context.Context, rec AttemptRecord) error
	// RecentAttempts returns up to limit records, oldest first.
	RecentAttempts(ctx context.Context, limit int) ([]AttemptRecord, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
