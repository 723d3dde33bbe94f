package dispatch

import (
	"context"
	"fmt"
	"time"

	"verisend/internal/channel"
	"verisend/internal/recognize"
	"verisend/internal/verify"
	logx "verisend/pkg/logx"
)

// pasteSettle is the short pause between pasting the message and
// submitting it, so the UI has committed the clipboard content.
const pasteSettle = 200 * time.Millisecond

// Attempt executes one send+verify cycle for one (recipient, message)
// pair. It never returns an error: any port or recognizer failure resolves
// to a Rejected outcome with the failure as reason.
type Attempt struct {
	Port       channel.Port
	Recognizer recognize.Recognizer // nil means recognition unavailable
	Log        logx.Logger

	// sleep is swappable in tests; nil means a real context-aware timer.
	sleep func(ctx context.Context, d time.Duration) error
}

// attemptOutcome is the resolution of a single cycle (before retries).
type attemptOutcome struct {
	Confirmed         bool
	State             State
	Reason            string
	RecognizedContact string
	RecognizedMessage string
}

// Run walks the attempt state machine:
//
//	Idle → Searching → ContactVerify → Sending → MessageVerify →
//	{Confirmed | Rejected}
//
// A contact mismatch rejects before anything is sent, so a mis-focused
// search can never misdirect a message.
func (a *Attempt) Run(ctx context.Context, slot Slot, message string, opt Options) attemptOutcome {
	opt = opt.withDefaults()
	vopt := a.verifyOptions(opt)

	// Searching: focus the search box and submit the phone number, then
	// dwell. The channel offers no completion signal to poll.
	if err := a.search(ctx, slot.Phone, opt.SearchWait); err != nil {
		return rejected(StateSearching, err.Error(), "", "")
	}

	// ContactVerify: make sure the right conversation is focused.
	contactText, err := a.recognizeRegion(ctx, opt.ContactRegion, opt.Language, vopt.HasContactRegion)
	if err != nil {
		return rejected(StateContactVerify, "recognition: "+err.Error(), "", "")
	}
	expected := slot.Name
	if expected == "" {
		expected = slot.Phone
	}
	if !verify.Contact(expected, contactText, vopt) {
		a.Log.Warn("contact verification failed",
			logx.String("expected", expected),
			logx.String("recognized", contactText),
		)
		return rejected(StateContactVerify, "contact mismatch", contactText, "")
	}

	// Sending: paste and submit, then dwell for the message to render.
	if err := a.send(ctx, message, opt.PostSendWait); err != nil {
		return rejected(StateSending, err.Error(), contactText, "")
	}

	// MessageVerify: confirm the message showed up on screen.
	messageText, err := a.recognizeRegion(ctx, opt.MessageRegion, opt.Language, vopt.HasMessageRegion)
	if err != nil {
		return rejected(StateMessageVerify, "recognition: "+err.Error(), contactText, "")
	}
	if !verify.Message(message, messageText, vopt) {
		a.Log.Warn("message verification failed",
			logx.String("expected", headForLog(message)),
			logx.String("recognized", messageText),
		)
		return rejected(StateMessageVerify, "message not verified", contactText, messageText)
	}

	return attemptOutcome{
		Confirmed:         true,
		State:             StateConfirmed,
		RecognizedContact: contactText,
		RecognizedMessage: messageText,
	}
}

func (a *Attempt) verifyOptions(opt Options) verify.Options {
	hasRec := a.Recognizer != nil
	return verify.Options{
		Enabled:          opt.VerifyEnabled,
		Threshold:        opt.Threshold,
		HasContactRegion: hasRec && opt.ContactRegion.Valid(),
		HasMessageRegion: hasRec && opt.MessageRegion.Valid(),
	}
}

func (a *Attempt) search(ctx context.Context, phone string, wait time.Duration) error {
	if err := a.Port.FocusSearch(ctx); err != nil {
		return err
	}
	if err := a.Port.TypeText(ctx, phone); err != nil {
		return err
	}
	if err := a.Port.Submit(ctx); err != nil {
		return err
	}
	return a.dwell(ctx, wait)
}

func (a *Attempt) send(ctx context.Context, message string, wait time.Duration) error {
	if err := a.Port.PasteText(ctx, message); err != nil {
		return err
	}
	if err := a.dwell(ctx, pasteSettle); err != nil {
		return err
	}
	if err := a.Port.Submit(ctx); err != nil {
		return err
	}
	return a.dwell(ctx, wait)
}

// recognizeRegion captures and recognizes one region. When the check is
// inactive (no region or no recognizer) it returns "" without touching the
// channel.
func (a *Attempt) recognizeRegion(ctx context.Context, r channel.Rect, lang string, active bool) (string, error) {
	if !active {
		return "", nil
	}
	img, err := a.Port.CaptureRegion(ctx, r)
	if err != nil {
		return "", err
	}
	return a.Recognizer.Recognize(ctx, img, lang)
}

// dwell waits a fixed interval. The UI offers no readiness signal, so
// this is an unconditional sleep, cancellable only through ctx.
func (a *Attempt) dwell(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	if a.sleep != nil {
		return a.sleep(ctx, d)
	}
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tmr.C:
		return nil
	}
}

func rejected(state State, reason, contact, message string) attemptOutcome {
	return attemptOutcome{
		State:             StateRejected,
		Reason:            fmt.Sprintf("%s: %s", state, reason),
		RecognizedContact: contact,
		RecognizedMessage: message,
	}
}

// headForLog keeps log lines bounded for long message bodies.
func headForLog(s string) string {
	r := []rune(s)
	if len(r) <= 40 {
		return s
	}
	return string(r[:40]) + "…"
}
