package dispatch

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"verisend/internal/channel"
	"verisend/internal/recognize"
	logx "verisend/pkg/logx"
)

// Retrier wraps Attempt with a bounded retry loop. Attempts run strictly
// sequentially (the channel has one focus) and the first Confirmed wins.
type Retrier struct {
	attempt *Attempt
	limiter *rate.Limiter // nil disables pacing
	log     logx.Logger
}

func NewRetrier(port channel.Port, rec recognize.Recognizer, opt Options, log logx.Logger) *Retrier {
	if log.IsZero() {
		log = logx.Nop()
	}
	var lim *rate.Limiter
	if opt.RatePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(opt.RatePerSec), 1)
	}
	return &Retrier{
		attempt: &Attempt{Port: port, Recognizer: rec, Log: log},
		limiter: lim,
		log:     log,
	}
}

// Send runs up to opt.MaxRetries attempts for one slot. The returned
// Outcome reports success/failure plus diagnostics; callers that only
// branch on delivery should read Confirmed and nothing else: the
// controller deliberately does not distinguish retry exhaustion from a
// single permanent failure.
func (r *Retrier) Send(ctx context.Context, slot Slot, message string, opt Options) Outcome {
	opt = opt.withDefaults()
	log := r.log.With(
		logx.String("role", string(slot.Role)),
		logx.String("recipient", slot.Phone),
	)

	var last attemptOutcome
	attempts := 0
	for i := 1; i <= opt.MaxRetries; i++ {
		if ctx.Err() != nil {
			break
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				break
			}
		}

		attempts = i
		start := time.Now()
		last = r.attempt.Run(ctx, slot, message, opt)
		if last.Confirmed {
			log.Info("send confirmed",
				logx.Int("attempt", i),
				logx.Duration("took", time.Since(start)),
			)
			return outcomeFrom(last, attempts)
		}

		log.Warn("send attempt failed",
			logx.Int("attempt", i),
			logx.Int("max", opt.MaxRetries),
			logx.String("reason", last.Reason),
			logx.Duration("took", time.Since(start)),
		)
		if i == opt.MaxRetries {
			break
		}
		// Let transient UI state settle before retrying. Decoupled from
		// the post-send dwell on purpose.
		if err := r.attempt.dwell(ctx, opt.RetryDelay); err != nil {
			break
		}
	}

	log.Error("send failed", logx.Int("attempts", attempts), logx.String("reason", last.Reason))
	return outcomeFrom(last, attempts)
}

func outcomeFrom(a attemptOutcome, attempts int) Outcome {
	return Outcome{
		Confirmed:         a.Confirmed,
		Attempts:          attempts,
		State:             a.State,
		Reason:            a.Reason,
		RecognizedContact: a.RecognizedContact,
		RecognizedMessage: a.RecognizedMessage,
	}
}
