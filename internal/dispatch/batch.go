package dispatch

import (
	"context"
	"fmt"
	"time"

	"verisend/internal/eventbus"
	"verisend/internal/storage"
	logx "verisend/pkg/logx"
)

// Sender resolves one slot to an outcome. *Retrier is the production
// implementation; tests substitute a stub.
type Sender interface {
	Send(ctx context.Context, slot Slot, message string, opt Options) Outcome
}

// RowEvent is the payload of a row.dispatched bus event.
type RowEvent struct {
	Batch    string
	RowIndex int
	Tier     Tier
	Role     Role
	Phone    string
	Outcome  Outcome
}

// BatchEvent is the payload of batch.started / batch.finished events.
type BatchEvent struct {
	Batch  string
	Rows   int
	Result *Result // nil on batch.started
}

// Dispatcher walks a batch of rows through the Sender, strictly in input
// order, one slot at a time. It is not safe for concurrent Run calls; the
// application serializes batches above it.
type Dispatcher struct {
	Sender Sender
	Store  storage.Store // nil disables the audit trail
	Bus    eventbus.Bus  // nil disables events
	Log    logx.Logger
}

func NewDispatcher(sender Sender, store storage.Store, bus eventbus.Bus, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{Sender: sender, Store: store, Bus: bus, Log: log}
}

// Run dispatches every slot of every row. Cancellation is honored only at
// row boundaries: a row that has started always runs to completion, so a
// partially notified row can never be silently re-listed as unprocessed.
func (d *Dispatcher) Run(ctx context.Context, batch string, rows []Row, opt Options) Result {
	opt = opt.withDefaults()
	res := Result{Failures: map[Tier][]Row{}}

	d.publish(eventbus.TypeBatchStarted, BatchEvent{Batch: batch, Rows: len(rows)})
	d.Log.Info("batch started",
		logx.String("batch", batch),
		logx.Int("rows", len(rows)),
	)
	start := time.Now()

	for i, row := range rows {
		if ctx.Err() != nil {
			res.Aborted = true
			d.Log.Warn("batch aborted",
				logx.String("batch", batch),
				logx.Int("at_row", i),
				logx.Int("remaining", len(rows)-i),
			)
			break
		}
		d.runRow(ctx, batch, i, row, opt, &res)
	}

	d.publish(eventbus.TypeBatchFinished, BatchEvent{Batch: batch, Rows: len(rows), Result: &res})
	d.Log.Info("batch finished",
		logx.String("batch", batch),
		logx.Int("total", res.Total),
		logx.Int("succeeded", res.Succeeded),
		logx.Int("failed", res.Failed),
		logx.Int("failed_rows", res.FailureCount()),
		logx.Bool("aborted", res.Aborted),
		logx.Duration("took", time.Since(start)),
	)
	return res
}

func (d *Dispatcher) runRow(ctx context.Context, batch string, idx int, row Row, opt Options, res *Result) {
	// A panicking port or recognizer fails the row, never the batch.
	defer func() {
		if r := recover(); r != nil {
			d.Log.Error("row dispatch panicked",
				logx.String("batch", batch),
				logx.Int("row", idx),
				logx.Any("panic", r),
			)
			d.failRow(res, row)
		}
	}()

	rowFailed := false
	for _, slot := range row.Slots() {
		took := time.Now()
		out := d.Sender.Send(ctx, slot, row.Message, opt)

		// Cancellation mid-row: the sender returns without trying the
		// slot. The row still lands in its failure partition, but an
		// undriven slot is not an attempt and must not skew counters
		// or the audit trail.
		if out.Attempts == 0 && ctx.Err() != nil {
			rowFailed = true
			continue
		}

		res.Total++
		if out.Confirmed {
			res.Succeeded++
		} else {
			res.Failed++
			rowFailed = true
		}

		d.audit(ctx, batch, idx, row, slot, out, time.Since(took))
		d.publish(eventbus.TypeRowDispatched, RowEvent{
			Batch:    batch,
			RowIndex: idx,
			Tier:     row.Tier,
			Role:     slot.Role,
			Phone:    slot.Phone,
			Outcome:  out,
		})
	}

	if rowFailed {
		d.failRow(res, row)
	}
}

// failRow records the whole row in its tier partition. Callers ensure a
// row is recorded at most once.
func (d *Dispatcher) failRow(res *Result, row Row) {
	res.Failures[row.Tier] = append(res.Failures[row.Tier], row)
}

// audit appends the attempt record. Persistence failures are logged and
// swallowed: the audit trail must never block dispatch.
func (d *Dispatcher) audit(ctx context.Context, batch string, idx int, row Row, slot Slot, out Outcome, took time.Duration) {
	if d.Store == nil {
		return
	}
	rec := storage.AttemptRecord{
		At:                time.Now(),
		Batch:             batch,
		RowIndex:          idx,
		Tier:              string(row.Tier),
		Role:              string(slot.Role),
		Recipient:         slot.Phone,
		Name:              slot.Name,
		OK:                out.Confirmed,
		Attempts:          out.Attempts,
		Reason:            out.Reason,
		RecognizedContact: out.RecognizedContact,
		RecognizedMessage: out.RecognizedMessage,
		TookMS:            took.Milliseconds(),
	}
	if err := d.Store.AppendAttempt(ctx, rec); err != nil {
		d.Log.Warn("audit append failed", logx.Err(err))
	}
}

func (d *Dispatcher) publish(typ string, data any) {
	if d.Bus == nil {
		return
	}
	d.Bus.Publish(eventbus.Event{Type: typ, Data: data})
}

// BatchName derives a stable batch identifier from a wall-clock instant.
func BatchName(t time.Time) string {
	return fmt.Sprintf("batch-%s", t.Format("20060102-150405"))
}
