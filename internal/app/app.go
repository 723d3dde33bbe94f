// Package app wires the engine together: config, logging, storage, the
// operator surface, and the dispatch pipeline.
package app

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"verisend/internal/channel"
	"verisend/internal/config"
	"verisend/internal/dispatch"
	"verisend/internal/eventbus"
	"verisend/internal/ledger"
	"verisend/internal/operator"
	"verisend/internal/recognize"
	"verisend/internal/storage"
	logx "verisend/pkg/logx"
)

// ErrBusy is returned when a dispatch is requested while another batch is
// still running. The channel has one focus; batches never overlap.
var ErrBusy = errors.New("a batch is already running")

const reportTimeout = 15 * time.Second

type App struct {
	cfgm *config.Manager

	log      logx.Logger
	logs     *logx.Service
	bus      eventbus.Bus
	store    storage.Store
	reporter *operator.Reporter

	busy atomic.Bool
}

// New loads and validates the config, then brings up logging, storage and
// the operator surface. The channel itself is opened per batch so config
// changes between batches take effect without restarting.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath, logx.NewConsole("INFO").With(logx.String("comp", "config")))
	cfg, err := cfgm.Load(context.Background())
	if err != nil {
		return nil, err
	}

	// Bootstrap logging with the operator relay off; the relay is enabled
	// once a sender exists, so the first Apply cannot warn about a
	// missing target.
	logCfg := cfg.LoggingOptions()
	bootCfg := logCfg
	bootCfg.Operator.Enabled = false
	logs, log := logx.New(bootCfg, nil)
	log = log.With(logx.String("comp", "app"))

	var reporter *operator.Reporter
	if cfg.Operator != nil {
		pollTimeout, err := config.ParseDurationOrDefault(
			"operator.poll_timeout", cfg.Operator.PollTimeout, 10*time.Second)
		if err != nil {
			return nil, err
		}
		reporter, err = operator.New(operator.Config{
			Token:       cfg.Operator.Token,
			ChatID:      cfg.Operator.ChatID,
			ThreadID:    cfg.Operator.ThreadID,
			PollTimeout: pollTimeout,
		}, log.With(logx.String("comp", "operator")))
		if err != nil {
			return nil, err
		}
		logs.SetSender(reporter)
		logs.Apply(logCfg)
		log.Info("operator surface enabled")
	}

	var store storage.Store
	if sc := cfg.StorageOptions(); sc.Driver != "" {
		store, err = storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		if store != nil {
			log.Info("audit storage enabled", logx.String("driver", sc.Driver))
		}
	}

	return &App{
		cfgm:     cfgm,
		log:      log,
		logs:     logs,
		bus:      eventbus.New(),
		store:    store,
		reporter: reporter,
	}, nil
}

func (a *App) Log() logx.Logger         { return a.log }
func (a *App) Bus() eventbus.Bus        { return a.bus }
func (a *App) Config() *config.Config   { return a.cfgm.Get() }
func (a *App) Manager() *config.Manager { return a.cfgm }

func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.logs != nil {
		errs = append(errs, a.logs.Close())
	}
	return errors.Join(errs...)
}

// RunBatch loads a batch file (fresh export or resend artifact) and
// dispatches it.
func (a *App) RunBatch(ctx context.Context, batchPath string) (dispatch.Result, error) {
	rows, err := ledger.LoadBatch(batchPath)
	if err != nil {
		return dispatch.Result{}, err
	}
	return a.dispatch(ctx, rows)
}

// RunResend dispatches the rows in the configured resend artifact.
func (a *App) RunResend(ctx context.Context) (dispatch.Result, error) {
	rows, err := ledger.Load(a.cfgm.Get().LedgerPath())
	if err != nil {
		return dispatch.Result{}, err
	}
	return a.dispatch(ctx, rows)
}

// dispatch runs one batch under the busy latch. The config snapshot is
// taken once here; reloads committed mid-batch apply to the next batch.
func (a *App) dispatch(ctx context.Context, rows []dispatch.Row) (dispatch.Result, error) {
	if !a.busy.CompareAndSwap(false, true) {
		return dispatch.Result{}, ErrBusy
	}
	defer a.busy.Store(false)

	cfg := a.cfgm.Get()
	log := a.log.With(logx.String("comp", "dispatch"))

	port, err := channel.Open(cfg.ChannelOptions(), log)
	if err != nil {
		return dispatch.Result{}, err
	}
	rec, err := recognize.Open(cfg.RecognizerOptions(), log)
	if err != nil {
		return dispatch.Result{}, err
	}
	if cfg.Verify.Enabled && rec == nil {
		log.Warn("verification enabled but no recognizer configured; checks degrade to pass")
	}

	opt := cfg.DispatchOptions()
	retrier := dispatch.NewRetrier(port, rec, opt, log)
	disp := dispatch.NewDispatcher(retrier, a.store, a.bus, log)

	start := time.Now()
	name := dispatch.BatchName(start)
	res := disp.Run(ctx, name, rows, opt)

	if err := ledger.Persist(cfg.LedgerPath(), res); err != nil {
		log.Error("failed to persist resend ledger", logx.Err(err))
		a.report(name, time.Since(start), res, cfg.LedgerPath())
		return res, err
	}
	a.report(name, time.Since(start), res, cfg.LedgerPath())
	return res, nil
}

// report pushes the batch summary to the operator chat. Uses its own
// timeout so a canceled batch context still reports the abort.
func (a *App) report(name string, took time.Duration, res dispatch.Result, ledgerPath string) {
	if a.reporter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()
	a.reporter.ReportBatch(ctx, operator.BatchSummary{
		Batch:      name,
		Took:       took,
		Result:     res,
		LedgerPath: ledgerPath,
	})
}
