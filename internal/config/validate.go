package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"verisend/internal/channel"
	"verisend/internal/dispatch"
	"verisend/internal/recognize"
	"verisend/internal/storage"
	logx "verisend/pkg/logx"
)

const defaultThreshold = 0.7

// Validate checks cross-field invariants and rejects values the engine
// cannot run with. It is called before Commit on every load and reload.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	var errs []error

	if strings.TrimSpace(c.Channel.Driver) == "" {
		errs = append(errs, errors.New("channel.driver is required"))
	}

	if c.Verify.Threshold < 0 || c.Verify.Threshold > 1 {
		errs = append(errs, fmt.Errorf("verify.threshold %v out of [0,1]", c.Verify.Threshold))
	}
	for name, r := range map[string]*channel.Rect{
		"verify.contact_region": c.Verify.ContactRegion,
		"verify.message_region": c.Verify.MessageRegion,
	} {
		if r == nil || r.IsZero() {
			continue
		}
		if !r.Valid() {
			errs = append(errs, fmt.Errorf("%s %s is degenerate (min side %d)", name, r, channel.MinRectSide))
		}
	}

	if c.Send.MaxRetries < 0 {
		errs = append(errs, errors.New("send.max_retries must be >= 1 (0 means default)"))
	}
	for path, raw := range map[string]string{
		"send.search_wait":       c.Send.SearchWait,
		"send.post_send_wait":    c.Send.PostSendWait,
		"send.retry_delay":       c.Send.RetryDelay,
		"channel.script.timeout": c.Channel.Script.Timeout,
		"operator.poll_timeout":  c.operatorPollTimeout(),
		"storage.busy_timeout":   c.storageBusyTimeout(),
	} {
		if _, err := ParseDurationField(path, raw); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Operator != nil && strings.TrimSpace(c.Operator.Token) == "" {
		errs = append(errs, errors.New("operator.token is required when the operator section is present"))
	}

	if c.Scheduler.Enabled {
		if strings.TrimSpace(c.Scheduler.Cron) == "" {
			errs = append(errs, errors.New("scheduler.cron is required when scheduler is enabled"))
		}
		if strings.TrimSpace(c.Scheduler.BatchPath) == "" {
			errs = append(errs, errors.New("scheduler.batch_path is required when scheduler is enabled"))
		}
		if tz := strings.TrimSpace(c.Scheduler.Timezone); tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
			}
		}
	}

	return errors.Join(errs...)
}

func (c *Config) operatorPollTimeout() string {
	if c.Operator == nil {
		return ""
	}
	return c.Operator.PollTimeout
}

func (c *Config) storageBusyTimeout() string {
	if c.Storage == nil {
		return ""
	}
	return c.Storage.BusyTimeout
}

// DispatchOptions converts the validated config into the immutable
// per-batch options. Call only after Validate.
func (c *Config) DispatchOptions() dispatch.Options {
	opt := dispatch.Options{
		VerifyEnabled: c.Verify.Enabled,
		Threshold:     c.Verify.Threshold,
		Language:      strings.TrimSpace(c.Verify.Language),
		MaxRetries:    c.Send.MaxRetries,
		RatePerSec:    c.Send.RatePerSec,
	}
	if opt.Threshold == 0 {
		opt.Threshold = defaultThreshold
	}
	if r := c.Verify.ContactRegion; r != nil {
		opt.ContactRegion = *r
	}
	if r := c.Verify.MessageRegion; r != nil {
		opt.MessageRegion = *r
	}
	opt.SearchWait, _ = ParseDurationField("send.search_wait", c.Send.SearchWait)
	opt.PostSendWait, _ = ParseDurationField("send.post_send_wait", c.Send.PostSendWait)
	opt.RetryDelay, _ = ParseDurationField("send.retry_delay", c.Send.RetryDelay)
	return opt
}

// ChannelOptions converts the channel section for channel.Open.
func (c *Config) ChannelOptions() channel.Config {
	timeout, _ := ParseDurationField("channel.script.timeout", c.Channel.Script.Timeout)
	return channel.Config{
		Driver: c.Channel.Driver,
		Script: channel.ScriptConfig{
			FocusSearchCmd: c.Channel.Script.FocusSearchCmd,
			TypeCmd:        c.Channel.Script.TypeCmd,
			SubmitCmd:      c.Channel.Script.SubmitCmd,
			CopyCmd:        c.Channel.Script.CopyCmd,
			PasteCmd:       c.Channel.Script.PasteCmd,
			CaptureCmd:     c.Channel.Script.CaptureCmd,
			Timeout:        timeout,
		},
	}
}

func (c *Config) RecognizerOptions() recognize.Config {
	return recognize.Config{
		Driver:        c.Recognizer.Driver,
		TesseractPath: c.Recognizer.Path,
	}
}

func (c *Config) StorageOptions() storage.Config {
	if c.Storage == nil {
		return storage.Config{}
	}
	busy, _ := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout)
	return storage.Config{
		Driver:      c.Storage.Driver,
		Path:        c.Storage.Path,
		BusyTimeout: busy,
	}
}

func (c *Config) LoggingOptions() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
		Operator: logx.OperatorConfig{
			Enabled:    c.Logging.Operator.Enabled,
			MinLevel:   c.Logging.Operator.MinLevel,
			RatePerSec: c.Logging.Operator.RatePerSec,
		},
	}
}

// LedgerPath returns the resend artifact path, defaulted.
func (c *Config) LedgerPath() string {
	if p := strings.TrimSpace(c.Ledger.Path); p != "" {
		return p
	}
	return "resend.yaml"
}
