// Package ocr extracts visible text from captured frames with the tesseract
// command line tool.
package ocr

import (
	"bytes"
	"context"
	"image/png"
	"os/exec"
	"strings"

	"github.com/glimpse/glimpse/internal/config"
	"github.com/glimpse/glimpse/pkg/screen"

	"github.com/pkg/errors"
)

// ErrNotInstalled is returned when the OCR command cannot be found
var ErrNotInstalled = errors.New("OCR command not found")

// runFunc executes a command with stdin and returns its stdout
type runFunc func(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return nil, errors.Wrap(err, strings.TrimSpace(stderr.String()))
	}
	return out, err
}

// Tesseract runs `tesseract stdin stdout -l <lang>` on a PNG encoding of the frame
type Tesseract struct {
	command  string
	language string
	run      runFunc
}

// New creates a Tesseract extractor. A missing binary is not an error here:
// the first Extract reports it so the loop logs it as a failed stage.
func New(cfg config.OCRConfig) *Tesseract {
	return &Tesseract{
		command:  cfg.Command,
		language: cfg.Language,
		run:      execRun,
	}
}

// Available reports whether the OCR command is on PATH
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.command)
	return err == nil
}

// Extract returns the text tesseract reads from frame, whitespace-trimmed
func (t *Tesseract) Extract(ctx context.Context, frame screen.Frame) (string, error) {
	if frame.Empty() {
		return "", nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame.Image()); err != nil {
		return "", errors.Wrap(err, "failed to encode frame for OCR")
	}

	args := []string{"stdin", "stdout"}
	if t.language != "" {
		args = append(args, "-l", t.language)
	}

	out, err := t.run(ctx, buf.Bytes(), t.command, args...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", errors.Wrap(ErrNotInstalled, t.command)
		}
		return "", errors.Wrapf(err, "%s failed on monitor %d", t.command, frame.Index)
	}

	return strings.TrimSpace(string(out)), nil
}
