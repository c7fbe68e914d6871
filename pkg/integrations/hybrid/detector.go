package hybrid

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/glimpse/glimpse/pkg/integrations/wayland"
	"github.com/glimpse/glimpse/pkg/integrations/x11"
	"github.com/glimpse/glimpse/pkg/window"
)

// Detector chains the session's native window detector with the X11 one
// (directly or through XWayland) and remembers which one answered last.
type Detector struct {
	detectors            []window.Detector
	lastSuccessfulMethod string
	logger               *slog.Logger
}

// NewDetector builds the chain for the current session. It fails when no
// detector can run at all.
func NewDetector(idleThreshold time.Duration, logger *slog.Logger) (*Detector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Detector{logger: logger.With("component", "window")}

	if os.Getenv("WAYLAND_DISPLAY") != "" || os.Getenv("XDG_SESSION_TYPE") == "wayland" {
		if det := wayland.NewDetector(idleThreshold); det.IsAvailable() {
			d.detectors = append(d.detectors, det)
		}
	}

	if os.Getenv("DISPLAY") != "" {
		if det := x11.NewDetector(idleThreshold); det.IsAvailable() {
			d.detectors = append(d.detectors, det)
		} else {
			det.Close()
		}
	}

	return d, d.check()
}

// newWithDetectors is used by tests to inject a fixed chain
func newWithDetectors(logger *slog.Logger, detectors ...window.Detector) *Detector {
	return &Detector{detectors: detectors, logger: logger}
}

func (d *Detector) check() error {
	if len(d.detectors) == 0 {
		return fmt.Errorf("no window detector available for this session")
	}
	for _, det := range d.detectors {
		d.logger.Info("window detector available", "display_server", det.GetDisplayServer())
	}
	return nil
}

// GetFocusedWindow asks each detector in order until one answers
func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	var errs []string
	for _, det := range d.detectors {
		info, err := det.GetFocusedWindow()
		if err == nil && info != nil && info.AppName != "" && info.AppName != "Unknown" {
			d.lastSuccessfulMethod = det.GetDisplayServer()
			return info, nil
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", det.GetDisplayServer(), err))
		}
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("no valid window information")
	}
	return nil, fmt.Errorf("all window detection methods failed: %s", strings.Join(errs, "; "))
}

// GetIdleInfo returns the first detector's idle state; without one the user
// is assumed present and only the lock state is checked
func (d *Detector) GetIdleInfo() (*window.IdleInfo, error) {
	for _, det := range d.detectors {
		if info, err := det.GetIdleInfo(); err == nil {
			return info, nil
		}
	}

	return &window.IdleInfo{IsLocked: d.isScreenLocked()}, nil
}

func (d *Detector) isScreenLocked() bool {
	cmd := exec.Command("gdbus", "call", "--session", "--dest", "org.gnome.ScreenSaver", "--object-path", "/org/gnome/ScreenSaver", "--method", "org.gnome.ScreenSaver.GetActive")
	if output, err := cmd.Output(); err == nil && strings.Contains(string(output), "true") {
		return true
	}

	cmd = exec.Command("loginctl", "show-session", "-p", "LockedHint")
	if output, err := cmd.Output(); err == nil && strings.Contains(string(output), "LockedHint=yes") {
		return true
	}

	return false
}

// IsAvailable reports whether any detector in the chain can run
func (d *Detector) IsAvailable() bool {
	for _, det := range d.detectors {
		if det.IsAvailable() {
			return true
		}
	}
	return false
}

// GetDisplayServer returns the first detector's display server
func (d *Detector) GetDisplayServer() string {
	if len(d.detectors) == 0 {
		return "unknown"
	}
	return d.detectors[0].GetDisplayServer()
}

// GetStatus describes the chain for `glimpse status`
func (d *Detector) GetStatus() string {
	var b strings.Builder
	b.WriteString("Window Detectors:\n")
	for i, det := range d.detectors {
		fmt.Fprintf(&b, "  %d. %s (available: %v)\n", i+1, det.GetDisplayServer(), det.IsAvailable())
	}
	last := d.lastSuccessfulMethod
	if last == "" {
		last = "none"
	}
	fmt.Fprintf(&b, "  Last successful method: %s\n", last)
	return b.String()
}

// Close closes every detector in the chain
func (d *Detector) Close() error {
	for _, det := range d.detectors {
		if err := det.Close(); err != nil {
			d.logger.Warn("error closing window detector", "display_server", det.GetDisplayServer(), "error", err)
		}
	}
	return nil
}
