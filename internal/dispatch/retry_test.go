package dispatch

import (
	"context"
	"errors"
	"testing"

	logx "verisend/pkg/logx"
)

// flakyPort fails FocusSearch until failures is exhausted.
type flakyPort struct {
	fakePort
	failures int
	attempts int
}

func (p *flakyPort) FocusSearch(ctx context.Context) error {
	p.attempts++
	if p.attempts <= p.failures {
		return errors.New("window busy")
	}
	return nil
}

func TestRetrierSucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	port := &flakyPort{failures: 2}
	r := NewRetrier(port, nil, Options{MaxRetries: 3}, logx.Nop())
	r.attempt.sleep = noSleep

	out := r.Send(context.Background(), Slot{Phone: "555"}, "hello", Options{MaxRetries: 3})
	if !out.Confirmed {
		t.Fatalf("not confirmed: %+v", out)
	}
	if out.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", out.Attempts)
	}
}

func TestRetrierExhaustsBudget(t *testing.T) {
	t.Parallel()

	port := &flakyPort{failures: 100}
	r := NewRetrier(port, nil, Options{MaxRetries: 3}, logx.Nop())
	r.attempt.sleep = noSleep

	out := r.Send(context.Background(), Slot{Phone: "555"}, "hello", Options{MaxRetries: 3})
	if out.Confirmed {
		t.Fatal("confirmed despite permanent failure")
	}
	if out.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", out.Attempts)
	}
	if port.attempts != 3 {
		t.Fatalf("port saw %d attempts, want 3", port.attempts)
	}
}

func TestRetrierStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	port := &flakyPort{failures: 100}
	r := NewRetrier(port, nil, Options{MaxRetries: 5}, logx.Nop())
	r.attempt.sleep = noSleep

	out := r.Send(ctx, Slot{Phone: "555"}, "hello", Options{MaxRetries: 5})
	if out.Confirmed {
		t.Fatal("confirmed on canceled context")
	}
	if port.attempts != 0 {
		t.Fatalf("port saw %d attempts after cancel, want 0", port.attempts)
	}
}
