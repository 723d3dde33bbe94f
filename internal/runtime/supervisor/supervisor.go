// Package supervisor manages the long-lived goroutines of watch mode:
// named, panic-recovered, tied to one shared context.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	logx "verisend/pkg/logx"
)

type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc

	log         logx.Logger
	cancelOnErr bool

	errOnce  sync.Once
	firstErr atomic.Value // stores error
	wg       sync.WaitGroup
	active   int64
}

type Option func(*Supervisor)

func WithLogger(log logx.Logger) Option {
	return func(s *Supervisor) { s.log = log }
}

// WithCancelOnError cancels the shared context on the first non-nil error
// from any goroutine, so one dead subsystem stops the rest.
func WithCancelOnError() Option {
	return func(s *Supervisor) { s.cancelOnErr = true }
}

func New(parent context.Context, opts ...Option) *Supervisor {
	ctx, cancel := context.WithCancel(parent)
	s := &Supervisor{ctx: ctx, cancel: cancel}
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	return s
}

func (s *Supervisor) Context() context.Context { return s.ctx }

// Active returns the number of currently running goroutines. Operational
// signal only.
func (s *Supervisor) Active() int64 { return atomic.LoadInt64(&s.active) }

// Go starts fn under the supervisor. A panic is recovered, logged with the
// goroutine name, and treated as an error.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	atomic.AddInt64(&s.active, 1)
	go func() {
		defer s.wg.Done()
		defer atomic.AddInt64(&s.active, -1)

		start := time.Now()
		err := s.run(name, fn)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("goroutine failed",
				logx.String("name", name),
				logx.Err(err),
				logx.Duration("ran", time.Since(start)),
			)
			s.recordErr(err)
		} else {
			s.log.Debug("goroutine stopped",
				logx.String("name", name),
				logx.Duration("ran", time.Since(start)),
			)
		}
	}()
}

func (s *Supervisor) run(name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("goroutine panicked",
				logx.String("name", name),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("%s panicked: %v", name, r)
		}
	}()
	return fn(s.ctx)
}

func (s *Supervisor) recordErr(err error) {
	s.errOnce.Do(func() {
		s.firstErr.Store(err)
		if s.cancelOnErr {
			s.cancel()
		}
	})
}

// FirstErr returns the first recorded goroutine error, or nil.
func (s *Supervisor) FirstErr() error {
	if v := s.firstErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// Stop cancels the shared context and waits up to timeout for goroutines
// to drain. It returns false when the wait timed out.
func (s *Supervisor) Stop(timeout time.Duration) bool {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	if timeout <= 0 {
		<-done
		return true
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		s.log.Warn("supervisor stop timed out", logx.Int64("active", s.Active()))
		return false
	}
}
