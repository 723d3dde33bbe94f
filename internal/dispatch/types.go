// Package dispatch drives notifications through the single-focus UI
// channel: one verified attempt at a time, bounded retries, strict batch
// ordering, and whole-row failure partitioning for resend.
package dispatch

import (
	"fmt"
	"strings"
	"time"

	"verisend/internal/channel"
)

// Tier is the overdue-age bucket of a row. It governs fan-out: tier1
// notifies the account manager only, tier2 additionally the director,
// tier3 additionally the supervising leader.
type Tier string

const (
	Tier1 Tier = "tier1"
	Tier2 Tier = "tier2"
	Tier3 Tier = "tier3"
)

// Tiers lists all tiers in dispatch and ledger section order.
var Tiers = []Tier{Tier1, Tier2, Tier3}

// ParseTier normalizes a tier string from a batch file.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tier1", "1", "30", "30d":
		return Tier1, nil
	case "tier2", "2", "60", "60d":
		return Tier2, nil
	case "tier3", "3", "90", "90d":
		return Tier3, nil
	default:
		return "", fmt.Errorf("unknown tier %q", s)
	}
}

// Row is one unit of work produced by the classification pipeline.
// The engine treats rows as read-only; unknown-to-the-engine provenance
// fields (customer, invoice, amount) ride along so a persisted failure
// row can be resubmitted untouched.
type Row struct {
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Phone   string `json:"phone" yaml:"phone"`
	Message string `json:"message" yaml:"message"`
	Tier    Tier   `json:"tier" yaml:"tier"`

	DirectorName  string `json:"director,omitempty" yaml:"director,omitempty"`
	DirectorPhone string `json:"director_phone,omitempty" yaml:"director_phone,omitempty"`
	LeaderName    string `json:"leader,omitempty" yaml:"leader,omitempty"`
	LeaderPhone   string `json:"leader_phone,omitempty" yaml:"leader_phone,omitempty"`

	Customer string  `json:"customer,omitempty" yaml:"customer,omitempty"`
	Invoice  string  `json:"invoice,omitempty" yaml:"invoice,omitempty"`
	Amount   float64 `json:"amount,omitempty" yaml:"amount,omitempty"`
}

// Role identifies a recipient slot within a row.
type Role string

const (
	RolePrimary  Role = "primary"
	RoleDirector Role = "director"
	RoleLeader   Role = "leader"
)

// Slot is one (recipient, message) pair to attempt.
type Slot struct {
	Role  Role
	Phone string
	Name  string
}

// Slots returns the recipient slots to attempt for the row, in required
// order (primary, director, leader), applying the tier fan-out rules. A
// slot with an empty phone (or a row with an empty message) is absent,
// not an error.
func (r Row) Slots() []Slot {
	if strings.TrimSpace(r.Message) == "" {
		return nil
	}
	out := make([]Slot, 0, 3)
	if p := strings.TrimSpace(r.Phone); p != "" {
		out = append(out, Slot{Role: RolePrimary, Phone: p, Name: strings.TrimSpace(r.Name)})
	}
	if r.Tier != Tier1 {
		if p := strings.TrimSpace(r.DirectorPhone); p != "" {
			out = append(out, Slot{Role: RoleDirector, Phone: p, Name: strings.TrimSpace(r.DirectorName)})
		}
	}
	if r.Tier == Tier3 {
		if p := strings.TrimSpace(r.LeaderPhone); p != "" {
			out = append(out, Slot{Role: RoleLeader, Phone: p, Name: strings.TrimSpace(r.LeaderName)})
		}
	}
	return out
}

// State is a stage of one dispatch attempt.
type State int

const (
	StateIdle State = iota
	StateSearching
	StateContactVerify
	StateSending
	StateMessageVerify
	StateConfirmed
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateContactVerify:
		return "contact-verify"
	case StateSending:
		return "sending"
	case StateMessageVerify:
		return "message-verify"
	case StateConfirmed:
		return "confirmed"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Outcome is the resolution of one slot (possibly after retries).
type Outcome struct {
	Confirmed bool
	Attempts  int
	State     State
	Reason    string
	// Last recognized texts, kept for operator diagnosis of recognition
	// noise vs. genuine delivery failure.
	RecognizedContact string
	RecognizedMessage string
}

// Result aggregates a batch run. The counters cover driven slots only:
// slots skipped by mid-row cancellation appear in Failures but not in
// Total or Failed.
type Result struct {
	Total     int
	Succeeded int
	Failed    int
	// Failures holds, per tier, the rows with at least one failed slot,
	// in input order. A row appears at most once regardless of how many
	// of its slots failed.
	Failures map[Tier][]Row
	// Aborted is set when the run stopped at a row boundary on
	// cancellation; rows not reached are excluded from all counts.
	Aborted bool
}

// FailureCount returns the number of rows across all failure partitions.
func (r Result) FailureCount() int {
	n := 0
	for _, rows := range r.Failures {
		n += len(rows)
	}
	return n
}

// Options is the immutable per-batch dispatch configuration. It is derived
// from the validated run configuration once per batch and never mutated
// while the batch runs.
type Options struct {
	VerifyEnabled bool
	Threshold     float64
	Language      string
	ContactRegion channel.Rect
	MessageRegion channel.Rect

	MaxRetries   int
	SearchWait   time.Duration
	PostSendWait time.Duration
	RetryDelay   time.Duration
	RatePerSec   int
}

// Defaults mirrors the original tool's send strategy.
func (o Options) withDefaults() Options {
	if o.MaxRetries < 1 {
		o.MaxRetries = 3
	}
	if o.SearchWait <= 0 {
		o.SearchWait = 2 * time.Second
	}
	if o.PostSendWait <= 0 {
		o.PostSendWait = 2 * time.Second
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 800 * time.Millisecond
	}
	return o
}
