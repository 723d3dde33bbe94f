package dispatch

import (
	"context"
	"sync"
	"testing"

	"verisend/internal/eventbus"
	"verisend/internal/storage"
	logx "verisend/pkg/logx"
)

// stubSender resolves slots by phone number; unknown phones fail.
type stubSender struct {
	confirm map[string]bool
	cancel  context.CancelFunc // invoked on first call when set
	calls   []string
}

func (s *stubSender) Send(ctx context.Context, slot Slot, message string, opt Options) Outcome {
	s.calls = append(s.calls, slot.Phone)
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.confirm[slot.Phone] {
		return Outcome{Confirmed: true, Attempts: 1, State: StateConfirmed}
	}
	return Outcome{Attempts: opt.MaxRetries, State: StateRejected, Reason: "message not verified"}
}

// memStore collects audit records in memory.
type memStore struct {
	mu   sync.Mutex
	recs []storage.AttemptRecord
}

func (m *memStore) AppendAttempt(ctx context.Context, rec storage.AttemptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memStore) RecentAttempts(ctx context.Context, limit int) ([]storage.AttemptRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]storage.AttemptRecord(nil), m.recs...), nil
}

func (m *memStore) Close() error { return nil }

func TestDispatcherPartitionsFailures(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{Name: "Alice", Phone: "100", Message: "pay up", Tier: Tier1},
		{
			Name: "Bob", Phone: "200", Message: "final notice", Tier: Tier3,
			DirectorName: "Dana", DirectorPhone: "201",
			LeaderName: "Lee", LeaderPhone: "202",
		},
	}
	sender := &stubSender{confirm: map[string]bool{
		"100": true,
		"200": true,
		"201": false, // director slot fails
		"202": true,
	}}
	store := &memStore{}
	d := NewDispatcher(sender, store, nil, logx.Nop())

	res := d.Run(context.Background(), "b1", rows, Options{})

	if res.Total != 4 || res.Succeeded != 3 || res.Failed != 1 {
		t.Fatalf("counts = %d/%d/%d, want 4/3/1", res.Total, res.Succeeded, res.Failed)
	}
	if res.Aborted {
		t.Fatal("unexpected abort")
	}
	if got := len(res.Failures[Tier3]); got != 1 {
		t.Fatalf("tier3 failures = %d, want 1", got)
	}
	if len(res.Failures[Tier1]) != 0 {
		t.Fatal("tier1 row recorded as failed")
	}
	// The whole row is preserved for resend, not just the failed slot.
	failed := res.Failures[Tier3][0]
	if failed.Phone != "200" || failed.DirectorPhone != "201" || failed.LeaderPhone != "202" {
		t.Fatalf("failure row mangled: %+v", failed)
	}
	if len(store.recs) != 4 {
		t.Fatalf("audit records = %d, want 4", len(store.recs))
	}
}

func TestDispatcherRowAppearsOncePerPartition(t *testing.T) {
	t.Parallel()

	// Both director and leader fail; the row must still be listed once.
	rows := []Row{{
		Phone: "300", Message: "notice", Tier: Tier3,
		DirectorPhone: "301", LeaderPhone: "302",
	}}
	sender := &stubSender{confirm: map[string]bool{"300": true}}
	d := NewDispatcher(sender, nil, nil, logx.Nop())

	res := d.Run(context.Background(), "b1", rows, Options{})
	if res.Failed != 2 {
		t.Fatalf("failed slots = %d, want 2", res.Failed)
	}
	if got := len(res.Failures[Tier3]); got != 1 {
		t.Fatalf("tier3 failure rows = %d, want 1", got)
	}
}

func TestDispatcherSkipsEmptyRows(t *testing.T) {
	t.Parallel()

	// First row has no message, second no recipients; neither yields slots.
	rows := []Row{
		{Phone: "100", Message: "", Tier: Tier1},
		{Phone: "", Message: "hi", Tier: Tier2},
		{Phone: "300", Message: "hi", Tier: Tier1},
	}
	sender := &stubSender{confirm: map[string]bool{"300": true}}
	d := NewDispatcher(sender, nil, nil, logx.Nop())

	res := d.Run(context.Background(), "b1", rows, Options{})
	if res.Total != 1 || res.Succeeded != 1 || res.Failed != 0 {
		t.Fatalf("counts = %d/%d/%d, want 1/1/0", res.Total, res.Succeeded, res.Failed)
	}
	if len(sender.calls) != 1 || sender.calls[0] != "300" {
		t.Fatalf("calls = %v", sender.calls)
	}
}

func TestDispatcherAbortsAtRowBoundary(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	rows := []Row{
		{Phone: "100", Message: "one", Tier: Tier1},
		{Phone: "200", Message: "two", Tier: Tier1},
	}
	// Cancel fires during the first row; the second row must not start.
	sender := &stubSender{confirm: map[string]bool{"100": true, "200": true}, cancel: cancel}
	d := NewDispatcher(sender, nil, nil, logx.Nop())

	res := d.Run(ctx, "b1", rows, Options{})
	if !res.Aborted {
		t.Fatal("not marked aborted")
	}
	if res.Total != 1 || res.Succeeded != 1 {
		t.Fatalf("counts = %d/%d, want 1/1", res.Total, res.Succeeded)
	}
	if len(sender.calls) != 1 {
		t.Fatalf("calls = %v, want just the first row", sender.calls)
	}
}

// haltingSender cancels during its first slot and, like *Retrier, returns
// a zero-attempt outcome for every slot reached after cancellation.
type haltingSender struct {
	cancel context.CancelFunc
	calls  []string
}

func (s *haltingSender) Send(ctx context.Context, slot Slot, message string, opt Options) Outcome {
	s.calls = append(s.calls, slot.Phone)
	if ctx.Err() != nil {
		return Outcome{State: StateRejected, Reason: "canceled before send"}
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return Outcome{Confirmed: true, Attempts: 1, State: StateConfirmed}
}

func TestDispatcherCanceledSlotsNotCounted(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	rows := []Row{{
		Phone: "100", Message: "notice", Tier: Tier3,
		DirectorPhone: "101", LeaderPhone: "102",
	}}
	sender := &haltingSender{cancel: cancel}
	store := &memStore{}
	d := NewDispatcher(sender, store, nil, logx.Nop())

	res := d.Run(ctx, "b1", rows, Options{})

	// Only the primary slot was driven; the two undriven slots must not
	// inflate the counters or the audit trail.
	if res.Total != 1 || res.Succeeded != 1 || res.Failed != 0 {
		t.Fatalf("counts = %d/%d/%d, want 1/1/0", res.Total, res.Succeeded, res.Failed)
	}
	if len(store.recs) != 1 {
		t.Fatalf("audit records = %d, want 1", len(store.recs))
	}
	// The row still lands in its partition so a resend covers it.
	if got := len(res.Failures[Tier3]); got != 1 {
		t.Fatalf("tier3 failure rows = %d, want 1", got)
	}
}

func TestDispatcherTierFanOut(t *testing.T) {
	t.Parallel()

	base := Row{
		Phone: "p", Message: "m",
		DirectorPhone: "d", LeaderPhone: "l",
	}
	cases := []struct {
		tier Tier
		want int
	}{
		{Tier1, 1},
		{Tier2, 2},
		{Tier3, 3},
	}
	for _, tc := range cases {
		row := base
		row.Tier = tc.tier
		if got := len(row.Slots()); got != tc.want {
			t.Errorf("%s: slots = %d, want %d", tc.tier, got, tc.want)
		}
	}
}

func TestDispatcherPublishesEvents(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	ch, unsub := bus.Subscribe(16)
	defer unsub()

	rows := []Row{{Phone: "100", Message: "hi", Tier: Tier1}}
	sender := &stubSender{confirm: map[string]bool{"100": true}}
	d := NewDispatcher(sender, nil, bus, logx.Nop())
	d.Run(context.Background(), "b1", rows, Options{})

	var types []string
	for len(ch) > 0 {
		types = append(types, (<-ch).Type)
	}
	want := []string{eventbus.TypeBatchStarted, eventbus.TypeRowDispatched, eventbus.TypeBatchFinished}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("events = %v, want %v", types, want)
		}
	}
}
