package config

import (
	"verisend/internal/channel"
)

// Config is the whole run configuration. YAML and JSON are both accepted;
// YAML is coerced to JSON and decoded strictly so typos in section or key
// names fail the load instead of silently using defaults.
//
// All durations are Go duration strings (e.g. "500ms", "2s", "1m").
type Config struct {
	Channel    ChannelConfig    `json:"channel"`
	Recognizer RecognizerConfig `json:"recognizer,omitempty"`
	Verify     VerifyConfig     `json:"verify"`
	Send       SendConfig       `json:"send,omitempty"`
	Ledger     LedgerConfig     `json:"ledger,omitempty"`
	Storage    *StorageConfig   `json:"storage,omitempty"`
	Logging    LoggingConfig    `json:"logging,omitempty"`
	Operator   *OperatorConfig  `json:"operator,omitempty"`
	Scheduler  SchedulerConfig  `json:"scheduler,omitempty"`
}

// ChannelConfig selects the UI driver and its helper commands.
type ChannelConfig struct {
	Driver string              `json:"driver"`
	Script ChannelScriptConfig `json:"script,omitempty"`
}

// ChannelScriptConfig mirrors channel.ScriptConfig with a duration string
// for the helper timeout.
type ChannelScriptConfig struct {
	FocusSearchCmd string `json:"focus_search_cmd,omitempty"`
	TypeCmd        string `json:"type_cmd,omitempty"`
	SubmitCmd      string `json:"submit_cmd,omitempty"`
	CopyCmd        string `json:"copy_cmd,omitempty"`
	PasteCmd       string `json:"paste_cmd,omitempty"`
	CaptureCmd     string `json:"capture_cmd,omitempty"`
	Timeout        string `json:"timeout,omitempty"`
}

type RecognizerConfig struct {
	Driver string `json:"driver,omitempty"` // "tesseract", "none"
	Path   string `json:"path,omitempty"`   // tesseract binary override
}

// VerifyConfig controls on-screen delivery confirmation.
//
// Regions are absolute screen pixels produced by calibration. An omitted
// region disables that check (fail-open); a present but degenerate region
// is a validation error so a bad calibration cannot silently disable
// verification.
type VerifyConfig struct {
	Enabled       bool          `json:"enabled"`
	Threshold     float64       `json:"threshold,omitempty"` // default 0.7
	Language      string        `json:"language,omitempty"`
	ContactRegion *channel.Rect `json:"contact_region,omitempty"`
	MessageRegion *channel.Rect `json:"message_region,omitempty"`
}

// SendConfig tunes the retry schedule and UI dwell times.
//
// Defaults (when fields are omitted/zero):
//   - max_retries: 3
//   - search_wait: "2s"
//   - post_send_wait: "2s"
//   - retry_delay: "800ms"
//   - rate_per_sec: 0 (no pacing)
type SendConfig struct {
	MaxRetries   int    `json:"max_retries,omitempty"`
	SearchWait   string `json:"search_wait,omitempty"`
	PostSendWait string `json:"post_send_wait,omitempty"`
	RetryDelay   string `json:"retry_delay,omitempty"`
	RatePerSec   int    `json:"rate_per_sec,omitempty"`
}

// LedgerConfig controls where the resendable failure artifact lands.
type LedgerConfig struct {
	Path string `json:"path,omitempty"` // default "./resend.yaml"
}

// StorageConfig controls the optional attempt audit trail.
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

type LoggingConfig struct {
	Level    string          `json:"level,omitempty"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file,omitempty"`
	Operator LoggingOperator `json:"operator,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// LoggingOperator relays warnings and errors to the operator chat.
type LoggingOperator struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level,omitempty"` // default "warn"
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// OperatorConfig connects the Telegram reporting surface. Nil disables it.
type OperatorConfig struct {
	Token    string `json:"token"`
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
	// PollTimeout is a Go duration string for long polling.
	PollTimeout string `json:"poll_timeout,omitempty"`
}

// SchedulerConfig drives unattended batch dispatch in watch mode.
type SchedulerConfig struct {
	Enabled bool `json:"enabled"`
	// Cron is a standard 5-field cron expression.
	Cron string `json:"cron,omitempty"`
	// BatchPath is the batch file loaded on each trigger.
	BatchPath string `json:"batch_path,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
}
