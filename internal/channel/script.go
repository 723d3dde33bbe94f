package channel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	logx "verisend/pkg/logx"
)

// ScriptConfig wires the port to external automation helpers (xdotool,
// xclip, maim, ...). Each field is a full command line; it is split on
// whitespace and executed directly, never through a shell.
//
// Placeholders expanded per argument of CaptureCmd:
//
//	{x} {y} {w} {h} (capture geometry)
//
// TypeCmd and CopyCmd receive the text on stdin so message bodies never
// hit a command line.
type ScriptConfig struct {
	FocusSearchCmd string
	TypeCmd        string
	SubmitCmd      string
	CopyCmd        string
	PasteCmd       string
	CaptureCmd     string
	// Timeout bounds each helper invocation. Zero means 10s.
	Timeout time.Duration
}

// scriptPort drives the UI through configured helper commands.
//
// This is the production driver on Linux desktops. The helpers own all
// platform specifics; the engine only sequences them.
type scriptPort struct {
	cfg ScriptConfig
	log logx.Logger
}

func newScriptPort(cfg ScriptConfig, log logx.Logger) (*scriptPort, error) {
	for name, cmd := range map[string]string{
		"focus_search_cmd": cfg.FocusSearchCmd,
		"type_cmd":         cfg.TypeCmd,
		"submit_cmd":       cfg.SubmitCmd,
		"copy_cmd":         cfg.CopyCmd,
		"paste_cmd":        cfg.PasteCmd,
	} {
		if strings.TrimSpace(cmd) == "" {
			return nil, fmt.Errorf("channel.script.%s is required", name)
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &scriptPort{cfg: cfg, log: log}, nil
}

func (p *scriptPort) FocusSearch(ctx context.Context) error {
	_, err := p.run(ctx, p.cfg.FocusSearchCmd, nil, nil)
	return err
}

func (p *scriptPort) TypeText(ctx context.Context, s string) error {
	_, err := p.run(ctx, p.cfg.TypeCmd, strings.NewReader(s), nil)
	return err
}

func (p *scriptPort) Submit(ctx context.Context) error {
	_, err := p.run(ctx, p.cfg.SubmitCmd, nil, nil)
	return err
}

func (p *scriptPort) PasteText(ctx context.Context, s string) error {
	if _, err := p.run(ctx, p.cfg.CopyCmd, strings.NewReader(s), nil); err != nil {
		return fmt.Errorf("clipboard copy: %w", err)
	}
	_, err := p.run(ctx, p.cfg.PasteCmd, nil, nil)
	return err
}

func (p *scriptPort) CaptureRegion(ctx context.Context, r Rect) (Image, error) {
	if strings.TrimSpace(p.cfg.CaptureCmd) == "" {
		return nil, errors.New("channel.script.capture_cmd not configured")
	}
	if !r.Valid() {
		return nil, fmt.Errorf("invalid capture region %s", r)
	}
	repl := strings.NewReplacer(
		"{x}", strconv.Itoa(r.X1),
		"{y}", strconv.Itoa(r.Y1),
		"{w}", strconv.Itoa(r.Width()),
		"{h}", strconv.Itoa(r.Height()),
	)
	out, err := p.run(ctx, p.cfg.CaptureCmd, nil, repl)
	if err != nil {
		return nil, err
	}
	return Image(out), nil
}

func (p *scriptPort) run(ctx context.Context, cmdline string, stdin *strings.Reader, repl *strings.Replacer) ([]byte, error) {
	args := strings.Fields(cmdline)
	if len(args) == 0 {
		return nil, errors.New("empty command")
	}
	if repl != nil {
		for i := range args {
			args[i] = repl.Replace(args[i])
		}
	}

	cctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, args[0], args[1:]...)
	if stdin != nil {
		cmd.Stdin = stdin
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%s: %w (%s)", args[0], err, msg)
		} else {
			err = fmt.Errorf("%s: %w", args[0], err)
		}
		p.log.Debug("channel helper failed",
			logx.String("cmd", args[0]),
			logx.Duration("took", time.Since(start)),
			logx.Err(err),
		)
		return nil, err
	}
	return stdout.Bytes(), nil
}
