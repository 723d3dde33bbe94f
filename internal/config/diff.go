package config

import (
	"reflect"
	"sort"
	"strings"

	"verisend/internal/channel"
	logx "verisend/pkg/logx"
)

// SummarizeChange returns the list of changed sections plus structured
// attrs safe for logging. The operator token is never included, only
// whether one is set.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	if !reflect.DeepEqual(oldCfg.Channel, newCfg.Channel) {
		changed = append(changed, "channel")
		attrs = append(attrs,
			logx.String("channel.driver", strings.TrimSpace(newCfg.Channel.Driver)),
		)
	}

	if oldCfg.Recognizer != newCfg.Recognizer {
		changed = append(changed, "recognizer")
		attrs = append(attrs,
			logx.String("recognizer.driver", strings.TrimSpace(newCfg.Recognizer.Driver)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Verify, newCfg.Verify) {
		changed = append(changed, "verify")
		attrs = append(attrs,
			logx.Bool("verify.enabled", newCfg.Verify.Enabled),
			logx.Float64("verify.threshold", newCfg.Verify.Threshold),
			logx.Bool("verify.contact_region_set", rectSet(newCfg.Verify.ContactRegion)),
			logx.Bool("verify.message_region_set", rectSet(newCfg.Verify.MessageRegion)),
		)
	}

	if oldCfg.Send != newCfg.Send {
		changed = append(changed, "send")
		attrs = append(attrs,
			logx.Int("send.max_retries", newCfg.Send.MaxRetries),
			logx.String("send.search_wait", strings.TrimSpace(newCfg.Send.SearchWait)),
			logx.String("send.retry_delay", strings.TrimSpace(newCfg.Send.RetryDelay)),
			logx.Int("send.rate_per_sec", newCfg.Send.RatePerSec),
		)
	}

	if oldCfg.Ledger != newCfg.Ledger {
		changed = append(changed, "ledger")
		attrs = append(attrs, logx.String("ledger.path", newCfg.LedgerPath()))
	}

	oldS, newS := derefStorage(oldCfg.Storage), derefStorage(newCfg.Storage)
	if oldS != newS {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(newS.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(newS.Path) != ""),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.operator_enabled", newCfg.Logging.Operator.Enabled),
		)
	}

	// Operator: compare presence and non-secret fields; token only by
	// presence.
	oldO, newO := derefOperator(oldCfg.Operator), derefOperator(newCfg.Operator)
	oldO.Token, newO.Token = maskToken(oldO.Token), maskToken(newO.Token)
	if oldO != newO || (oldCfg.Operator == nil) != (newCfg.Operator == nil) {
		changed = append(changed, "operator")
		attrs = append(attrs,
			logx.Bool("operator.present", newCfg.Operator != nil),
			logx.Bool("operator.token_set", newO.Token != ""),
			logx.Int64("operator.chat_id", newO.ChatID),
		)
	}

	if oldCfg.Scheduler != newCfg.Scheduler {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.Bool("scheduler.enabled", newCfg.Scheduler.Enabled),
			logx.String("scheduler.cron", strings.TrimSpace(newCfg.Scheduler.Cron)),
			logx.String("scheduler.batch_path", strings.TrimSpace(newCfg.Scheduler.BatchPath)),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

// ---- helpers ----

func rectSet(r *channel.Rect) bool {
	return r != nil && !r.IsZero()
}

func derefStorage(s *StorageConfig) StorageConfig {
	if s == nil {
		return StorageConfig{}
	}
	return *s
}

func derefOperator(o *OperatorConfig) OperatorConfig {
	if o == nil {
		return OperatorConfig{}
	}
	return *o
}

func maskToken(t string) string {
	if strings.TrimSpace(t) == "" {
		return ""
	}
	return "set"
}
