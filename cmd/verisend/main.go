package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"verisend/internal/app"
	logx "verisend/pkg/logx"
)

func main() {
	var (
		cfgPath   string
		batchPath string
		resend    bool
		watch     bool
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.StringVar(&batchPath, "batch", "", "dispatch one batch file (csv or yaml) and exit")
	flag.BoolVar(&resend, "resend", false, "dispatch the configured resend artifact and exit")
	flag.BoolVar(&watch, "watch", false, "run unattended: watch config and dispatch on schedule")
	flag.Parse()

	if err := run(cfgPath, batchPath, resend, watch); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(cfgPath, batchPath string, resend, watch bool) error {
	modes := 0
	for _, on := range []bool{batchPath != "", resend, watch} {
		if on {
			modes++
		}
	}
	if modes != 1 {
		return fmt.Errorf("exactly one of -batch, -resend or -watch is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()

	switch {
	case batchPath != "":
		return runOnce(ctx, a, func(ctx context.Context) error {
			_, err := a.RunBatch(ctx, batchPath)
			return err
		})
	case resend:
		return runOnce(ctx, a, func(ctx context.Context) error {
			_, err := a.RunResend(ctx)
			return err
		})
	default:
		// Tell systemd we are up before blocking; best-effort outside a
		// unit (sent is false, err nil when NOTIFY_SOCKET is unset).
		if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
			a.Log().Warn("sd_notify failed", logx.Err(err))
		} else if sent {
			a.Log().Debug("sd_notify ready sent")
		}
		err := a.Watch(ctx)
		_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
		return err
	}
}

func runOnce(ctx context.Context, a *app.App, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	if ctx.Err() != nil {
		a.Log().Warn("dispatch interrupted; unprocessed rows remain in the batch file")
	}
	return nil
}
