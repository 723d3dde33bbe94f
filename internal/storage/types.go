package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free JSONL backend
//   - "sqlite": SQLite database file (build with -tags sqlite)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// AttemptRecord is the audit entry for one dispatched slot.
// Keep it compact and schema-stable.
type AttemptRecord struct {
	At                time.Time `json:"at"`
	Batch             string    `json:"batch"`
	RowIndex          int       `json:"row"`
	Tier              string    `json:"tier"`
	Role              string    `json:"role"`
	Recipient         string    `json:"recipient"`
	Name              string    `json:"name,omitempty"`
	OK                bool      `json:"ok"`
	Attempts          int       `json:"attempts"`
	Reason            string    `json:"reason,omitempty"`
	RecognizedContact string    `json:"recognized_contact,omitempty"`
	RecognizedMessage string    `json:"recognized_message,omitempty"`
	TookMS            int64     `json:"took_ms"`
}
