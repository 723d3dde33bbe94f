// Package recognize converts captured screen regions into text.
//
// Recognition is best-effort: a missing or broken recognizer is a valid
// runtime mode, not a startup error. The verify layer degrades to
// fail-open when no recognizer is available.
package recognize

import (
	"context"
	"fmt"
	"strings"

	"verisend/internal/channel"
	logx "verisend/pkg/logx"
)

// Recognizer extracts text from a captured region.
type Recognizer interface {
	// Recognize returns the text found in img, trimmed. An empty string
	// with nil error means recognition ran and found nothing.
	Recognize(ctx context.Context, img channel.Image, lang string) (string, error)
}

// Config selects and configures a recognizer driver.
//
// Driver values:
//   - "tesseract": shell out to the tesseract CLI
//   - "none" / "": recognition unavailable (Open returns nil, nil)
type Config struct {
	Driver        string
	TesseractPath string
}

// Open initializes the configured recognizer. It returns (nil, nil) when
// recognition is disabled; callers must treat a nil Recognizer as
// "verification unavailable".
func Open(cfg Config, log logx.Logger) (Recognizer, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "none":
		return nil, nil
	case "tesseract":
		return newTesseract(cfg.TesseractPath, log), nil
	default:
		return nil, fmt.Errorf("unknown recognizer driver %q", cfg.Driver)
	}
}
