// Package verify decides whether recognized screen text matches an
// expected contact or message.
//
// Both checks are pure: capture and recognition happen in the dispatch
// layer, which feeds the recognized text in here.
//
// Policy: fail-open when unconfigured (disabled, no region, no
// recognizer) so the engine stays usable before calibration; fail-closed
// when a region is configured and recognition returned nothing; silence
// is never evidence of success.
package verify

import (
	"strings"

	"verisend/pkg/textdist"
)

// fragmentLen is the length of the head/tail anchors matched against
// recognized message text. Long rendered messages are frequently truncated
// or partially garbled by recognition; a short anchor at either end
// tolerates that without requiring full-string fidelity.
const fragmentLen = 14

// Options carries the per-batch verification settings. HasContactRegion /
// HasMessageRegion are false when the region is unset OR no recognizer is
// available; both degrade the corresponding check to pass-through.
type Options struct {
	Enabled          bool
	Threshold        float64
	HasContactRegion bool
	HasMessageRegion bool
}

// Contact reports whether recognized text confirms the expected contact is
// focused. Returns true without looking at the text when verification is
// disabled, the expected name is empty, or no contact region is usable.
func Contact(expected, recognized string, opt Options) bool {
	if !opt.Enabled || !opt.HasContactRegion {
		return true
	}
	expected = strings.TrimSpace(expected)
	if expected == "" {
		return true
	}
	recognized = strings.TrimSpace(recognized)
	if recognized == "" {
		return false
	}
	if strings.Contains(recognized, expected) {
		return true
	}
	return textdist.Ratio(expected, recognized) >= opt.Threshold
}

// Message reports whether recognized text confirms the message was
// rendered. A match is full containment, containment of the first or last
// fragmentLen characters, or similarity above the threshold.
func Message(expected, recognized string, opt Options) bool {
	if !opt.Enabled || !opt.HasMessageRegion {
		return true
	}
	expected = strings.TrimSpace(expected)
	if expected == "" {
		return true
	}
	recognized = strings.TrimSpace(recognized)
	if recognized == "" {
		return false
	}
	if strings.Contains(recognized, expected) {
		return true
	}
	if head := headFragment(expected); head != "" && strings.Contains(recognized, head) {
		return true
	}
	if tail := tailFragment(expected); tail != "" && strings.Contains(recognized, tail) {
		return true
	}
	return textdist.Ratio(expected, recognized) >= opt.Threshold
}

func headFragment(s string) string {
	r := []rune(s)
	if len(r) <= fragmentLen {
		return s
	}
	return string(r[:fragmentLen])
}

func tailFragment(s string) string {
	r := []rune(s)
	if len(r) <= fragmentLen {
		return s
	}
	return string(r[len(r)-fragmentLen:])
}
