package detector

import (
	"log/slog"
	"os"
	"time"

	"github.com/glimpse/glimpse/pkg/integrations/hybrid"
	"github.com/glimpse/glimpse/pkg/integrations/multimonitor"
	"github.com/glimpse/glimpse/pkg/integrations/wayland"
	"github.com/glimpse/glimpse/pkg/screen"
	"github.com/glimpse/glimpse/pkg/window"
	"github.com/pkg/errors"
)

// Capture backend names accepted by NewFrameSource
const (
	BackendAuto       = "auto"
	BackendScreenshot = "screenshot"
	BackendWayland    = "wayland"
)

// New returns the window detector chain for the current session
func New(idleThreshold time.Duration, logger *slog.Logger) (window.Detector, error) {
	return hybrid.NewDetector(idleThreshold, logger)
}

// DetectDisplayServer guesses the display server from the session environment
func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}

// SourceOptions selects and configures the capture backend
type SourceOptions struct {
	Backend            string // auto, screenshot or wayland
	PrimaryMonitorOnly bool
	PrimaryMonitor     int
}

type sourceFactory struct {
	displayServer func() string
	multi         func(multimonitor.Options) (screen.Source, error)
	wayland       func() (screen.Source, error)
}

var defaultFactory = sourceFactory{
	displayServer: DetectDisplayServer,
	multi: func(o multimonitor.Options) (screen.Source, error) {
		return multimonitor.New(o)
	},
	wayland: func() (screen.Source, error) {
		return wayland.NewScreenSource()
	},
}

// NewFrameSource picks the capture backend once, at startup. Any failure
// wraps screen.ErrCaptureUnavailable.
func NewFrameSource(opts SourceOptions) (screen.Source, error) {
	return defaultFactory.build(opts)
}

func (f sourceFactory) build(opts SourceOptions) (screen.Source, error) {
	backend := opts.Backend
	if backend == "" || backend == BackendAuto {
		backend = BackendScreenshot
		if f.displayServer() == "wayland" {
			backend = BackendWayland
		}
	}

	var (
		src screen.Source
		err error
	)
	switch backend {
	case BackendScreenshot:
		src, err = f.multi(multimonitor.Options{
			PrimaryOnly:  opts.PrimaryMonitorOnly,
			PrimaryIndex: opts.PrimaryMonitor,
		})
	case BackendWayland:
		src, err = f.wayland()
	default:
		return nil, errors.Wrapf(screen.ErrCaptureUnavailable, "unknown capture backend %q", opts.Backend)
	}
	if err != nil {
		if errors.Is(err, screen.ErrCaptureUnavailable) {
			return nil, err
		}
		return nil, errors.Wrapf(screen.ErrCaptureUnavailable, "%s backend: %v", backend, err)
	}
	return src, nil
}
