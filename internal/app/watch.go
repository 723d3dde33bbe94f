package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"verisend/internal/config"
	"verisend/internal/eventbus"
	"verisend/internal/runtime/supervisor"
	logx "verisend/pkg/logx"
)

const stopTimeout = 10 * time.Second

// Watch runs unattended: the config file is watched for changes and the
// scheduler triggers batch dispatch on its cron spec. Blocks until ctx is
// done or a subsystem fails.
func (a *App) Watch(ctx context.Context) error {
	sup := supervisor.New(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(),
	)

	sup.Go("config-watch", a.cfgm.Watch)
	sup.Go("runtime", a.runtimeLoop)

	<-sup.Context().Done()
	sup.Stop(stopTimeout)
	return sup.FirstErr()
}

// runtimeLoop owns the cron scheduler and applies config snapshots as
// they are published. Snapshots land between batches by construction:
// dispatch reads its own snapshot under the busy latch.
func (a *App) runtimeLoop(ctx context.Context) error {
	ch := a.cfgm.Subscribe(1)
	defer a.cfgm.Unsubscribe(ch)

	c, err := a.startCron(ctx, a.cfgm.Get())
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			stopCron(c)
			return nil
		case cfg, ok := <-ch:
			if !ok {
				stopCron(c)
				return nil
			}
			a.logs.Apply(cfg.LoggingOptions())
			stopCron(c)
			c, err = a.startCron(ctx, cfg)
			if err != nil {
				// The snapshot passed validation; a failure here means the
				// cron spec itself is beyond what the parser accepts.
				a.log.Error("scheduler rebuild failed", logx.Err(err))
				c = nil
			}
			a.bus.Publish(eventbus.Event{Type: eventbus.TypeConfigApplied})
			a.log.Info("config applied")
		}
	}
}

// startCron builds and starts the scheduler for one config snapshot.
// Returns nil when the scheduler is disabled.
func (a *App) startCron(ctx context.Context, cfg *config.Config) (*cron.Cron, error) {
	if cfg == nil || !cfg.Scheduler.Enabled {
		return nil, nil
	}

	loc := time.Local
	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, err
		}
		loc = l
	}

	batchPath := cfg.Scheduler.BatchPath
	c := cron.New(cron.WithLocation(loc))
	_, err := c.AddFunc(cfg.Scheduler.Cron, func() {
		a.scheduledRun(ctx, batchPath)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	a.log.Info("scheduler started",
		logx.String("cron", cfg.Scheduler.Cron),
		logx.String("batch", batchPath),
		logx.String("tz", loc.String()),
	)
	return c, nil
}

func stopCron(c *cron.Cron) {
	if c != nil {
		// Stop only halts new triggers; a running job keeps its context.
		c.Stop()
	}
}

func (a *App) scheduledRun(ctx context.Context, batchPath string) {
	res, err := a.RunBatch(ctx, batchPath)
	switch {
	case errors.Is(err, ErrBusy):
		// Overlapping triggers are expected with slow batches; skip, do
		// not queue.
		a.log.Warn("scheduled dispatch skipped; previous batch still running")
	case err != nil:
		a.log.Error("scheduled dispatch failed", logx.Err(err))
	default:
		a.log.Info("scheduled dispatch finished",
			logx.Int("total", res.Total),
			logx.Int("failed", res.Failed),
		)
	}
}
