package recognize

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"verisend/internal/channel"
	logx "verisend/pkg/logx"
)

const tesseractTimeout = 15 * time.Second

// tesseract shells out to the tesseract CLI: image on stdin, text on
// stdout. Spawning per capture keeps the engine decoupled from any OCR
// library ABI; regions are small so process startup is not the bottleneck
// (the dwell waits are).
type tesseract struct {
	path string
	log  logx.Logger
}

func newTesseract(path string, log logx.Logger) *tesseract {
	if strings.TrimSpace(path) == "" {
		path = "tesseract"
	}
	return &tesseract{path: path, log: log}
}

func (t *tesseract) Recognize(ctx context.Context, img channel.Image, lang string) (string, error) {
	if len(img) == 0 {
		return "", nil
	}

	cctx, cancel := context.WithTimeout(ctx, tesseractTimeout)
	defer cancel()

	args := []string{"stdin", "stdout"}
	if strings.TrimSpace(lang) != "" {
		args = append(args, "-l", strings.TrimSpace(lang))
	}

	cmd := exec.CommandContext(cctx, t.path, args...)
	cmd.Stdin = bytes.NewReader(img)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("tesseract: %w (%s)", err, msg)
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}

	text := strings.TrimSpace(stdout.String())
	t.log.Debug("recognized region",
		logx.Int("image_bytes", len(img)),
		logx.Int("text_len", len(text)),
		logx.Duration("took", time.Since(start)),
	)
	return text, nil
}
