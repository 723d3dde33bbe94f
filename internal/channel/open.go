package channel

import (
	"context"
	"fmt"
	"strings"

	logx "verisend/pkg/logx"
)

// Config selects and configures a channel driver.
//
// Driver values:
//   - "script": external automation helpers (production)
//   - "null":   log-only driver that confirms nothing was sent (dry runs)
type Config struct {
	Driver string
	Script ScriptConfig
}

// Open initializes the configured port.
func Open(cfg Config, log logx.Logger) (Port, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "script":
		return newScriptPort(cfg.Script, log)
	case "null", "dry-run":
		return &nullPort{log: log}, nil
	case "":
		return nil, ErrNoDriver
	default:
		return nil, fmt.Errorf("unknown channel driver %q", cfg.Driver)
	}
}

// nullPort performs no UI action. Every operation succeeds except capture,
// which returns an empty image, so with verification enabled a dry run
// reports every send as unconfirmed rather than silently "delivered".
type nullPort struct {
	log logx.Logger
}

func (p *nullPort) FocusSearch(ctx context.Context) error {
	p.log.Debug("null channel: focus search")
	return ctx.Err()
}

func (p *nullPort) TypeText(ctx context.Context, s string) error {
	p.log.Debug("null channel: type", logx.Int("len", len(s)))
	return ctx.Err()
}

func (p *nullPort) Submit(ctx context.Context) error {
	p.log.Debug("null channel: submit")
	return ctx.Err()
}

func (p *nullPort) PasteText(ctx context.Context, s string) error {
	p.log.Debug("null channel: paste", logx.Int("len", len(s)))
	return ctx.Err()
}

func (p *nullPort) CaptureRegion(ctx context.Context, r Rect) (Image, error) {
	p.log.Debug("null channel: capture", logx.String("region", r.String()))
	return Image(nil), ctx.Err()
}
