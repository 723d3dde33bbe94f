//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "verisend/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AppendAttempt(ctx context.Context, rec AttemptRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts(at, batch, row_idx, tier, role, recipient, name, ok, attempts, reason, recognized_contact, recognized_message, took_ms)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.At.Format(time.RFC3339Nano), rec.Batch, rec.RowIndex, rec.Tier, rec.Role,
		rec.Recipient, nullStr(rec.Name), boolToInt(rec.OK), rec.Attempts,
		nullStr(rec.Reason), nullStr(rec.RecognizedContact), nullStr(rec.RecognizedMessage), rec.TookMS,
	)
	return err
}

func (s *sqliteStore) RecentAttempts(ctx context.Context, limit int) ([]AttemptRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, batch, row_idx, tier, role, recipient, COALESCE(name,''), ok, attempts,
		        COALESCE(reason,''), COALESCE(recognized_contact,''), COALESCE(recognized_message,''), took_ms
		 FROM attempts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AttemptRecord
	for rows.Next() {
		var rec AttemptRecord
		var at string
		var ok int
		if err := rows.Scan(&at, &rec.Batch, &rec.RowIndex, &rec.Tier, &rec.Role, &rec.Recipient,
			&rec.Name, &ok, &rec.Attempts, &rec.Reason, &rec.RecognizedContact, &rec.RecognizedMessage, &rec.TookMS); err != nil {
			return nil, err
		}
		rec.OK = ok != 0
		if t, perr := time.Parse(time.RFC3339Nano, at); perr == nil {
			rec.At = t
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Query returned newest first; callers expect oldest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
