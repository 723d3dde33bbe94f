package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"verisend/internal/channel"
	logx "verisend/pkg/logx"
)

// fakePort records the call sequence and can fail selected operations.
type fakePort struct {
	calls []string

	focusErr error
	typeErr  error
	pasteErr error

	captures []channel.Image
}

func (p *fakePort) FocusSearch(ctx context.Context) error {
	p.calls = append(p.calls, "focus")
	return p.focusErr
}

func (p *fakePort) TypeText(ctx context.Context, s string) error {
	p.calls = append(p.calls, "type:"+s)
	return p.typeErr
}

func (p *fakePort) Submit(ctx context.Context) error {
	p.calls = append(p.calls, "submit")
	return nil
}

func (p *fakePort) PasteText(ctx context.Context, s string) error {
	p.calls = append(p.calls, "paste")
	return p.pasteErr
}

func (p *fakePort) CaptureRegion(ctx context.Context, r channel.Rect) (channel.Image, error) {
	p.calls = append(p.calls, "capture")
	if len(p.captures) == 0 {
		return nil, nil
	}
	img := p.captures[0]
	p.captures = p.captures[1:]
	return img, nil
}

// fakeRecognizer returns queued texts in order.
type fakeRecognizer struct {
	texts []string
	err   error
}

func (r *fakeRecognizer) Recognize(ctx context.Context, img channel.Image, lang string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	if len(r.texts) == 0 {
		return "", nil
	}
	t := r.texts[0]
	r.texts = r.texts[1:]
	return t, nil
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func verifiedOptions() Options {
	return Options{
		VerifyEnabled: true,
		Threshold:     0.7,
		ContactRegion: channel.Rect{X1: 0, Y1: 0, X2: 100, Y2: 30},
		MessageRegion: channel.Rect{X1: 0, Y1: 400, X2: 300, Y2: 500},
	}
}

func TestAttemptConfirmed(t *testing.T) {
	t.Parallel()

	port := &fakePort{}
	rec := &fakeRecognizer{texts: []string{"Alice Chen", "payment reminder: invoice 42 overdue"}}
	a := &Attempt{Port: port, Recognizer: rec, Log: logx.Nop(), sleep: noSleep}

	out := a.Run(context.Background(),
		Slot{Role: RolePrimary, Phone: "555", Name: "Alice Chen"},
		"payment reminder: invoice 42 overdue",
		verifiedOptions())

	if !out.Confirmed {
		t.Fatalf("not confirmed: %+v", out)
	}
	if out.State != StateConfirmed {
		t.Fatalf("state = %v", out.State)
	}
	want := []string{"focus", "type:555", "submit", "capture", "paste", "submit", "capture"}
	if strings.Join(port.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", port.calls, want)
	}
}

func TestAttemptContactMismatchBlocksSend(t *testing.T) {
	t.Parallel()

	port := &fakePort{}
	rec := &fakeRecognizer{texts: []string{"totally different person"}}
	a := &Attempt{Port: port, Recognizer: rec, Log: logx.Nop(), sleep: noSleep}

	out := a.Run(context.Background(),
		Slot{Role: RolePrimary, Phone: "555", Name: "Alice Chen"},
		"hello", verifiedOptions())

	if out.Confirmed {
		t.Fatal("confirmed despite contact mismatch")
	}
	if out.State != StateRejected {
		t.Fatalf("state = %v", out.State)
	}
	if !strings.Contains(out.Reason, "contact mismatch") {
		t.Fatalf("reason = %q", out.Reason)
	}
	for _, c := range port.calls {
		if c == "paste" {
			t.Fatal("message was pasted after a failed contact check")
		}
	}
}

func TestAttemptNoRecognizerPassesOpen(t *testing.T) {
	t.Parallel()

	port := &fakePort{}
	a := &Attempt{Port: port, Recognizer: nil, Log: logx.Nop(), sleep: noSleep}

	out := a.Run(context.Background(),
		Slot{Role: RolePrimary, Phone: "555"},
		"hello", verifiedOptions())

	if !out.Confirmed {
		t.Fatalf("not confirmed: %+v", out)
	}
	for _, c := range port.calls {
		if c == "capture" {
			t.Fatal("captured a region with no recognizer available")
		}
	}
}

func TestAttemptEmptyRecognizedFailsClosed(t *testing.T) {
	t.Parallel()

	port := &fakePort{}
	rec := &fakeRecognizer{texts: []string{""}}
	a := &Attempt{Port: port, Recognizer: rec, Log: logx.Nop(), sleep: noSleep}

	out := a.Run(context.Background(),
		Slot{Role: RolePrimary, Phone: "555", Name: "Alice"},
		"hello", verifiedOptions())

	if out.Confirmed {
		t.Fatal("confirmed on empty recognized contact text")
	}
	if !strings.Contains(out.Reason, StateContactVerify.String()) {
		t.Fatalf("reason = %q", out.Reason)
	}
}

func TestAttemptPortErrorRejects(t *testing.T) {
	t.Parallel()

	port := &fakePort{focusErr: errors.New("window not found")}
	a := &Attempt{Port: port, Log: logx.Nop(), sleep: noSleep}

	out := a.Run(context.Background(), Slot{Phone: "555"}, "hello", Options{})
	if out.Confirmed {
		t.Fatal("confirmed despite port failure")
	}
	if !strings.Contains(out.Reason, "window not found") {
		t.Fatalf("reason = %q", out.Reason)
	}
}

func TestAttemptRecognitionErrorRejects(t *testing.T) {
	t.Parallel()

	port := &fakePort{}
	rec := &fakeRecognizer{err: errors.New("engine crashed")}
	a := &Attempt{Port: port, Recognizer: rec, Log: logx.Nop(), sleep: noSleep}

	out := a.Run(context.Background(),
		Slot{Phone: "555", Name: "Alice"}, "hello", verifiedOptions())
	if out.Confirmed {
		t.Fatal("confirmed despite recognition error")
	}
	if !strings.Contains(out.Reason, "recognition") {
		t.Fatalf("reason = %q", out.Reason)
	}
}
