package operator

import (
	"fmt"
	"strings"
	"time"

	"verisend/internal/dispatch"
)

// textLimit is Telegram's per-message text cap.
const textLimit = 4096

// BatchSummary is the operator-facing view of a finished run.
type BatchSummary struct {
	Batch      string
	Took       time.Duration
	Result     dispatch.Result
	LedgerPath string
}

// Format renders a compact plain-text report. Per-tier lines appear only
// for tiers with failures.
func (s BatchSummary) Format() string {
	var b strings.Builder
	if s.Result.Aborted {
		fmt.Fprintf(&b, "⚠️ %s aborted\n", s.Batch)
	} else if s.Result.Failed == 0 {
		fmt.Fprintf(&b, "✅ %s done\n", s.Batch)
	} else {
		fmt.Fprintf(&b, "❌ %s done with failures\n", s.Batch)
	}

	fmt.Fprintf(&b, "sent %d/%d", s.Result.Succeeded, s.Result.Total)
	if s.Took > 0 {
		fmt.Fprintf(&b, " in %s", s.Took.Round(time.Second))
	}
	b.WriteString("\n")

	for _, tier := range dispatch.Tiers {
		rows := s.Result.Failures[tier]
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(&b, "- %s: %d row(s) to resend\n", tier, len(rows))
	}
	if s.Result.FailureCount() > 0 && s.LedgerPath != "" {
		fmt.Fprintf(&b, "resend file: %s\n", s.LedgerPath)
	}
	return strings.TrimRight(b.String(), "\n")
}

// splitText chunks s at limit runes, preferring newline boundaries.
func splitText(s string, limit int) []string {
	if s == "" {
		return nil
	}
	r := []rune(s)
	if len(r) <= limit {
		return []string{s}
	}
	var out []string
	for len(r) > 0 {
		n := limit
		if n > len(r) {
			n = len(r)
		} else {
			// Break at the last newline inside the window when there is
			// one. Scan in rune space: a byte index into the re-encoded
			// window is wrong for multibyte text.
			for i := n - 1; i > 0; i-- {
				if r[i] == '\n' {
					n = i + 1
					break
				}
			}
		}
		out = append(out, strings.TrimRight(string(r[:n]), "\n"))
		r = r[n:]
	}
	return out
}
