package x11

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/glimpse/glimpse/pkg/window"
)

// Detector implements window.Detector for X11.
//
// It speaks the X protocol through xgb when a connection can be made and
// falls back to xdotool/xprop/xprintidle otherwise.
type Detector struct {
	idleThreshold time.Duration
	xc            *client
	hasXdotool    bool
	hasXprintidle bool
}

// NewDetector creates a new X11 detector
func NewDetector(idleThreshold time.Duration) *Detector {
	d := &Detector{idleThreshold: idleThreshold}
	d.hasXdotool = d.commandExists("xdotool")
	d.hasXprintidle = d.commandExists("xprintidle")
	if os.Getenv("DISPLAY") != "" {
		if xc, err := newClient(); err == nil {
			d.xc = xc
		}
	}
	return d
}

// commandExists checks if a command is available in PATH
func (d *Detector) commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// IsAvailable checks if X11 detection is available
func (d *Detector) IsAvailable() bool {
	return d.xc != nil || d.hasXdotool
}

// GetDisplayServer returns "x11"
func (d *Detector) GetDisplayServer() string {
	return "x11"
}

// GetFocusedWindow returns information about the currently focused window
func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	if d.xc != nil {
		if info, err := d.getFocusedWindowXgb(); err == nil {
			return info, nil
		}
	}
	if d.hasXdotool {
		return d.getFocusedWindowXdotool()
	}
	return nil, fmt.Errorf("no X11 detection method available (X connection or xdotool required)")
}

func (d *Detector) getFocusedWindowXgb() (*window.WindowInfo, error) {
	win, err := d.xc.activeWindow()
	if err != nil {
		return nil, err
	}

	appName := d.xc.windowClass(win)
	processName := ""
	if pid := d.xc.windowPID(win); pid != 0 {
		processName = processNameForPID(strconv.FormatUint(uint64(pid), 10))
	}
	if appName == "" {
		appName = processName
	}
	if appName == "" {
		appName = "Unknown"
	}

	return &window.WindowInfo{
		AppName:       appName,
		WindowTitle:   d.xc.windowName(win),
		ProcessName:   processName,
		DisplayServer: "x11",
	}, nil
}

// getFocusedWindowXdotool uses xdotool to get focused window info
func (d *Detector) getFocusedWindowXdotool() (*window.WindowInfo, error) {
	windowIDOutput, err := exec.Command("xdotool", "getactivewindow").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to get active x11 window ID: %w", err)
	}
	windowID := strings.TrimSpace(string(windowIDOutput))

	windowNameOutput, err := exec.Command("xdotool", "getwindowname", windowID).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to get window name: %w", err)
	}

	appName := "Unknown"
	processName := ""

	// WM_CLASS works for Flatpak apps where the PID lookup does not
	if classOutput, err := exec.Command("xprop", "-id", windowID, "WM_CLASS").Output(); err == nil {
		if class := parseWMClass(string(classOutput)); class != "" {
			appName = class
		}
	}

	if pidOutput, err := exec.Command("xdotool", "getwindowpid", windowID).Output(); err == nil {
		processName = processNameForPID(strings.TrimSpace(string(pidOutput)))
		if appName == "Unknown" && processName != "" {
			appName = processName
		}
	}

	return &window.WindowInfo{
		AppName:       appName,
		WindowTitle:   strings.TrimSpace(string(windowNameOutput)),
		ProcessName:   processName,
		DisplayServer: "x11",
	}, nil
}

// parseWMClass extracts the class name from xprop's WM_CLASS output
func parseWMClass(output string) string {
	parts := strings.Split(output, "=")
	if len(parts) < 2 {
		return ""
	}

	classInfo := strings.Trim(strings.TrimSpace(parts[1]), "\"")
	classes := strings.Split(classInfo, ",")
	return strings.Trim(strings.TrimSpace(classes[len(classes)-1]), "\" ")
}

func processNameForPID(pid string) string {
	if data, err := os.ReadFile("/proc/" + pid + "/comm"); err == nil {
		return strings.TrimSpace(string(data))
	}
	out, err := exec.Command("ps", "-p", pid, "-o", "comm=").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// GetIdleInfo returns system idle/lock information
func (d *Detector) GetIdleInfo() (*window.IdleInfo, error) {
	idle, err := d.getIdleTime()
	if err != nil {
		return nil, err
	}
	return window.NewIdleInfo(idle, d.idleThreshold, d.isScreenLocked()), nil
}

func (d *Detector) getIdleTime() (time.Duration, error) {
	if d.xc != nil {
		if idle, err := d.xc.idleTime(); err == nil {
			return idle, nil
		}
	}

	if d.hasXprintidle {
		output, err := exec.Command("xprintidle").Output()
		if err != nil {
			return 0, fmt.Errorf("xprintidle failed: %w", err)
		}
		ms, err := strconv.ParseInt(strings.TrimSpace(string(output)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid xprintidle output: %w", err)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}

	// No way to measure; report the user as present
	return 0, nil
}

// isScreenLocked checks if the screen is locked
func (d *Detector) isScreenLocked() bool {
	lockers := []string{
		"gnome-screensaver-dialog",
		"kscreenlocker",
		"i3lock",
		"slock",
		"xscreensaver",
		"xsecurelock",
	}

	for _, locker := range lockers {
		if err := exec.Command("pgrep", "-x", locker).Run(); err == nil {
			return true
		}
	}

	return false
}

// Close releases the X connection
func (d *Detector) Close() error {
	if d.xc != nil {
		d.xc.close()
		d.xc = nil
	}
	return nil
}
