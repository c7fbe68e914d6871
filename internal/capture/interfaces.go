// Package capture runs the screen capture loop: it polls every monitor,
// scores each frame against that monitor's baseline and forwards changed
// frames through artifact, OCR, embedding and storage collaborators.
package capture

import (
	"context"
	"time"

	"github.com/glimpse/glimpse/internal/models"
	"github.com/glimpse/glimpse/pkg/screen"
	"github.com/glimpse/glimpse/pkg/window"
)

// ActivityGate decides whether a user is present
type ActivityGate interface {
	IsUserActive(ctx context.Context) (bool, error)
}

// FrameSource yields one frame per monitor
type FrameSource interface {
	Capture(ctx context.Context) ([]screen.Frame, error)
}

// TextExtractor reads visible text from a frame
type TextExtractor interface {
	Extract(ctx context.Context, frame screen.Frame) (string, error)
}

// Embedder maps text to a fixed-dimension vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// WindowInfo describes the focused application
type WindowInfo interface {
	ActiveAppName(ctx context.Context) (string, error)
	ActiveWindowTitle(ctx context.Context) (string, error)
}

// WindowSnapshotter is implemented by WindowInfo backends that can read the
// app name and title of the same window in one query
type WindowSnapshotter interface {
	Snapshot(ctx context.Context) (app, title string, err error)
}

// Storage persists capture entries
type Storage interface {
	InsertEntry(ctx context.Context, entry *models.Entry) error
}

// ErrorRecorder persists loop failures
type ErrorRecorder interface {
	CreateErrorLog(ctx context.Context, errorLog *models.ErrorLog) error
}

// ArtifactWriter stores a frame and returns where it went. Remove discards
// an artifact whose entry could not be stored.
type ArtifactWriter interface {
	Write(frame screen.Frame) (string, error)
	Remove(path string) error
}

// Scheduler blocks for d or until ctx is done
type Scheduler interface {
	Wait(ctx context.Context, d time.Duration) error
}

// TimerScheduler waits on the wall clock
type TimerScheduler struct{}

func (TimerScheduler) Wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IdleGate treats the user as active unless the detector reports idle or a
// locked screen
type IdleGate struct {
	Detector window.Detector
}

func (g IdleGate) IsUserActive(context.Context) (bool, error) {
	info, err := g.Detector.GetIdleInfo()
	if err != nil {
		return false, err
	}
	return info.Active(), nil
}

// DetectorWindowInfo reads the focused window from a window.Detector
type DetectorWindowInfo struct {
	Detector window.Detector
}

func (w DetectorWindowInfo) ActiveAppName(ctx context.Context) (string, error) {
	app, _, err := w.Snapshot(ctx)
	return app, err
}

func (w DetectorWindowInfo) ActiveWindowTitle(ctx context.Context) (string, error) {
	_, title, err := w.Snapshot(ctx)
	return title, err
}

// Snapshot reads app and title from a single focused-window query
func (w DetectorWindowInfo) Snapshot(context.Context) (string, string, error) {
	info, err := w.Detector.GetFocusedWindow()
	if err != nil || info == nil {
		return "", "", err
	}
	return info.AppName, info.WindowTitle, nil
}

// AlwaysActive is the gate used when no idle source exists on the session
type AlwaysActive struct{}

func (AlwaysActive) IsUserActive(context.Context) (bool, error) {
	return true, nil
}

// NoWindowInfo reports an unknown focused window
type NoWindowInfo struct{}

func (NoWindowInfo) ActiveAppName(context.Context) (string, error) {
	return "", nil
}

func (NoWindowInfo) ActiveWindowTitle(context.Context) (string, error) {
	return "", nil
}
