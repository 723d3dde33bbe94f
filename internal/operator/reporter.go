// Package operator is the Telegram reporting surface: batch summaries and
// relayed warnings go to a configured chat. It is strictly one-way; the
// engine never takes commands from it.
package operator

import (
	"context"
	"errors"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	logx "verisend/pkg/logx"
)

const sendTimeout = 8 * time.Second

type Config struct {
	Token       string
	ChatID      int64
	ThreadID    int
	PollTimeout time.Duration
}

// Reporter delivers text to the operator chat. It implements logx.Sender
// so the logging service can relay warnings through it.
type Reporter struct {
	bot      *tele.Bot
	chat     *tele.Chat
	threadID int
	log      logx.Logger
}

func New(cfg Config, log logx.Logger) (*Reporter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("operator token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("operator chat_id is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Reporter{
		bot:      b,
		chat:     &tele.Chat{ID: cfg.ChatID},
		threadID: cfg.ThreadID,
		log:      log,
	}, nil
}

// Send delivers one plain-text message, chunked to the Telegram limit.
func (r *Reporter) Send(ctx context.Context, msg string) error {
	if r == nil || r.bot == nil {
		return nil
	}
	for _, chunk := range splitText(msg, textLimit) {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		opt := &tele.SendOptions{
			DisableWebPagePreview: true,
			ThreadID:              r.threadID,
		}
		if _, err := r.bot.Send(r.chat, chunk, opt); err != nil {
			return err
		}
	}
	return nil
}

// ReportBatch sends the end-of-batch summary. Failures are logged, not
// returned: reporting must never fail a batch.
func (r *Reporter) ReportBatch(ctx context.Context, sum BatchSummary) {
	if r == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := r.Send(sctx, sum.Format()); err != nil {
		r.log.Warn("batch report failed", logx.Err(err))
	}
}
