package channel

import (
	"context"
	"errors"
	"fmt"
)

var ErrNoDriver = errors.New("channel driver not configured")

// Rect is a screen region in absolute pixel coordinates.
//
// The zero value means "unset". Calibration produces rects through
// Normalize so stored regions always satisfy X1<X2 and Y1<Y2.
type Rect struct {
	X1 int `json:"x1" yaml:"x1"`
	Y1 int `json:"y1" yaml:"y1"`
	X2 int `json:"x2" yaml:"x2"`
	Y2 int `json:"y2" yaml:"y2"`
}

// MinRectSide is the minimum width and height of a usable capture region.
// Anything smaller is treated as an accidental drag and rejected.
const MinRectSide = 5

func (r Rect) IsZero() bool { return r == Rect{} }

func (r Rect) Width() int  { return r.X2 - r.X1 }
func (r Rect) Height() int { return r.Y2 - r.Y1 }

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}

// Normalize orders the corners and reports whether the region meets the
// minimum size. A degenerate selection returns (Rect{}, false).
func Normalize(x1, y1, x2, y2 int) (Rect, bool) {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	r := Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
	if r.Width() < MinRectSide || r.Height() < MinRectSide {
		return Rect{}, false
	}
	return r, true
}

// Valid reports whether a stored rect satisfies the region invariants.
func (r Rect) Valid() bool {
	return r.X1 < r.X2 && r.Y1 < r.Y2 && r.Width() >= MinRectSide && r.Height() >= MinRectSide
}

// Image is a captured screen region. The engine never inspects pixels
// itself; the bytes are handed to the recognizer as-is (PNG by convention).
type Image []byte

// Port performs the primitive UI actions against the external messaging
// surface. All operations block, and exactly one may be in flight at a
// time: the surface has a single input focus.
//
// Failures surface as plain errors; the dispatch layer maps them to
// attempt-level rejection, never process-fatal ones.
type Port interface {
	// FocusSearch opens/focuses the contact search box.
	FocusSearch(ctx context.Context) error
	// TypeText types s into the focused control.
	TypeText(ctx context.Context, s string) error
	// Submit confirms the focused control (an Enter keypress).
	Submit(ctx context.Context) error
	// PasteText places s on the clipboard and pastes it into the focused
	// control.
	PasteText(ctx context.Context, s string) error
	// CaptureRegion grabs a rectangular screen region.
	CaptureRegion(ctx context.Context, r Rect) (Image, error)
}
