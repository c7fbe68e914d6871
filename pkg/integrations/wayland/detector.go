package wayland

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/glimpse/glimpse/pkg/window"
)

// Detector implements window.Detector for Wayland compositors
type Detector struct {
	idleThreshold time.Duration
	compositor    string
	hasSwaymsg    bool
	hasGdbus      bool
}

// NewDetector creates a new Wayland detector
func NewDetector(idleThreshold time.Duration) *Detector {
	d := &Detector{idleThreshold: idleThreshold}
	d.hasSwaymsg = commandExists("swaymsg")
	d.hasGdbus = commandExists("gdbus")
	d.compositor = detectCompositor()
	return d
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

var compositorProcesses = []struct {
	process string
	name    string
}{
	{"sway", "sway"},
	{"Hyprland", "hyprland"},
	{"gnome-shell", "gnome"},
	{"kwin_wayland", "kde"},
	{"wayfire", "wayfire"},
	{"river", "river"},
}

func detectCompositor() string {
	if os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" {
		return "hyprland"
	}
	if os.Getenv("SWAYSOCK") != "" {
		return "sway"
	}
	for _, c := range compositorProcesses {
		if err := exec.Command("pgrep", "-x", c.process).Run(); err == nil {
			return c.name
		}
	}
	return "unknown"
}

// IsAvailable checks if Wayland detection is available
func (d *Detector) IsAvailable() bool {
	switch d.compositor {
	case "sway":
		return d.hasSwaymsg
	case "hyprland":
		return commandExists("hyprctl")
	case "gnome":
		return d.hasGdbus
	case "kde":
		return commandExists("qdbus")
	default:
		return false
	}
}

// GetDisplayServer returns "wayland"
func (d *Detector) GetDisplayServer() string {
	return "wayland"
}

// GetFocusedWindow returns information about the currently focused window
func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	var (
		info *window.WindowInfo
		err  error
	)

	switch d.compositor {
	case "sway":
		info, err = d.focusedFromCommand(parseSwayTree, "swaymsg", "-t", "get_tree")
	case "hyprland":
		info, err = d.focusedFromCommand(parseHyprlandWindow, "hyprctl", "activewindow", "-j")
	case "gnome":
		info, err = d.getFocusedWindowGnome()
	case "kde":
		info, err = d.getFocusedWindowKDE()
	default:
		return nil, fmt.Errorf("unsupported wayland compositor: %s", d.compositor)
	}
	if err != nil {
		return nil, err
	}

	info.DisplayServer = "wayland"
	return info, nil
}

func (d *Detector) focusedFromCommand(parse func([]byte) (*window.WindowInfo, error), name string, args ...string) (*window.WindowInfo, error) {
	output, err := exec.Command(name, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s: %w", name, err)
	}
	return parse(output)
}

type swayNode struct {
	Focused          bool       `json:"focused"`
	Name             string     `json:"name"`
	AppID            string     `json:"app_id"`
	PID              int        `json:"pid"`
	WindowProperties *struct {
		Class string `json:"class"`
	} `json:"window_properties"`
	Nodes         []swayNode `json:"nodes"`
	FloatingNodes []swayNode `json:"floating_nodes"`
}

func (n *swayNode) focused() *swayNode {
	if n.Focused {
		return n
	}
	for i := range n.Nodes {
		if f := n.Nodes[i].focused(); f != nil {
			return f
		}
	}
	for i := range n.FloatingNodes {
		if f := n.FloatingNodes[i].focused(); f != nil {
			return f
		}
	}
	return nil
}

// parseSwayTree finds the focused container in `swaymsg -t get_tree` output
func parseSwayTree(data []byte) (*window.WindowInfo, error) {
	var root swayNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse sway tree: %w", err)
	}

	node := root.focused()
	if node == nil {
		return nil, fmt.Errorf("no focused node in sway tree")
	}

	appName := node.AppID
	if appName == "" && node.WindowProperties != nil {
		appName = node.WindowProperties.Class
	}
	return newWindowInfo(appName, node.Name, node.PID), nil
}

// parseHyprlandWindow parses `hyprctl activewindow -j` output
func parseHyprlandWindow(data []byte) (*window.WindowInfo, error) {
	var w struct {
		Class string `json:"class"`
		Title string `json:"title"`
		PID   int    `json:"pid"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse hyprland window: %w", err)
	}
	return newWindowInfo(w.Class, w.Title, w.PID), nil
}

func newWindowInfo(appName, title string, pid int) *window.WindowInfo {
	if appName == "" {
		appName = "Unknown"
	}
	if title == "" {
		title = "Unknown"
	}

	processName := appName
	if pid > 0 {
		if name := getProcessName(strconv.Itoa(pid)); name != "" {
			processName = name
		}
	}

	return &window.WindowInfo{
		AppName:     appName,
		WindowTitle: title,
		ProcessName: processName,
	}
}

const gnomeFocusScript = `
try {
	let win = global.get_window_actors().find(w => w.meta_window && w.meta_window.has_focus());
	if (win && win.meta_window) {
		(win.meta_window.get_wm_class() || 'Unknown') + '|||' + (win.meta_window.get_title() || 'Unknown');
	} else {
		'Unknown|||Unknown';
	}
} catch(e) {
	'Unknown|||Unknown';
}`

// getFocusedWindowGnome asks GNOME Shell over D-Bus, then tries XWayland
func (d *Detector) getFocusedWindowGnome() (*window.WindowInfo, error) {
	output, err := exec.Command("gdbus", "call", "--session",
		"--dest", "org.gnome.Shell",
		"--object-path", "/org/gnome/Shell",
		"--method", "org.gnome.Shell.Eval",
		gnomeFocusScript).Output()
	if err == nil {
		if info := parseGnomeEval(string(output)); info != nil {
			return info, nil
		}
	}

	if commandExists("xprop") {
		info, xErr := getFocusedWindowXWayland()
		if xErr == nil {
			return info, nil
		}
		return nil, fmt.Errorf("GNOME window detection failed: Shell.Eval blocked, xprop failed: %w", xErr)
	}

	return nil, fmt.Errorf("GNOME window detection failed: Shell.Eval blocked and xprop unavailable")
}

// parseGnomeEval parses "(true, 'App|||Title')". Returns nil when Eval is disabled.
func parseGnomeEval(output string) *window.WindowInfo {
	result := strings.TrimSpace(output)
	if !strings.HasPrefix(result, "(true,") {
		return nil
	}
	result = strings.TrimPrefix(result, "(true,")
	result = strings.TrimSuffix(result, ")")
	result = strings.Trim(strings.TrimSpace(result), "'\"")

	parts := strings.SplitN(result, "|||", 2)
	if len(parts) < 1 || parts[0] == "" || parts[0] == "Unknown" {
		return nil
	}

	title := "Unknown"
	if len(parts) == 2 && parts[1] != "" {
		title = parts[1]
	}
	return &window.WindowInfo{
		AppName:     parts[0],
		WindowTitle: title,
		ProcessName: parts[0],
	}
}

// getFocusedWindowXWayland reads the active X client through the XWayland bridge
func getFocusedWindowXWayland() (*window.WindowInfo, error) {
	if os.Getenv("DISPLAY") == "" {
		return nil, fmt.Errorf("DISPLAY not set (XWayland not available)")
	}

	rootOutput, err := exec.Command("xprop", "-root", "_NET_ACTIVE_WINDOW").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to get active window from root: %w (output: %s)", err, string(rootOutput))
	}

	// _NET_ACTIVE_WINDOW(WINDOW): window id # 0x80032b
	windowID := ""
	if parts := strings.Split(string(rootOutput), "# "); len(parts) >= 2 {
		windowID = strings.TrimSpace(parts[1])
	}
	if windowID == "" || windowID == "0x0" {
		return nil, fmt.Errorf("no active X window (focused window may be native Wayland)")
	}

	nameOutput, _ := exec.Command("xprop", "-id", windowID, "WM_NAME").Output()
	classOutput, _ := exec.Command("xprop", "-id", windowID, "WM_CLASS").Output()

	appName := parseXPropClass(string(classOutput))
	if appName == "" {
		appName = "Unknown"
	}
	title := parseXPropString(string(nameOutput))
	if title == "" {
		title = "Unknown"
	}

	return &window.WindowInfo{
		AppName:     appName,
		WindowTitle: title,
		ProcessName: appName,
	}, nil
}

// parseXPropString parses xprop string output like: WM_NAME(STRING) = "title"
func parseXPropString(output string) string {
	parts := strings.SplitN(output, "=", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.Trim(strings.TrimSpace(parts[1]), "\"")
}

// parseXPropClass extracts the class from xprop WM_CLASS output
func parseXPropClass(output string) string {
	value := parseXPropString(output)
	if value == "" {
		return ""
	}
	classes := strings.Split(value, ",")
	return strings.Trim(classes[len(classes)-1], "\" ")
}

const kdeFocusScript = `
var clients = workspace.clientList();
for (var i = 0; i < clients.length; i++) {
	if (clients[i].active) {
		print(clients[i].resourceClass + "|" + clients[i].caption);
	}
}`

// getFocusedWindowKDE gets focused window info from KWin
func (d *Detector) getFocusedWindowKDE() (*window.WindowInfo, error) {
	output, err := exec.Command("qdbus", "org.kde.KWin", "/Scripting", "org.kde.kwin.Scripting.loadScript", kdeFocusScript).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to query KDE window: %w", err)
	}

	parts := strings.SplitN(strings.TrimSpace(string(output)), "|", 2)
	appName, title := "", ""
	if len(parts) >= 1 {
		appName = parts[0]
	}
	if len(parts) == 2 {
		title = parts[1]
	}
	return newWindowInfo(appName, title, 0), nil
}

func getProcessName(pid string) string {
	output, err := exec.Command("ps", "-p", pid, "-o", "comm=").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

// GetIdleInfo returns system idle/lock information for Wayland
func (d *Detector) GetIdleInfo() (*window.IdleInfo, error) {
	return window.NewIdleInfo(d.getIdleTime(), d.idleThreshold, d.isScreenLocked()), nil
}

// getIdleTime only works on GNOME (Mutter IdleMonitor); other compositors report 0
func (d *Detector) getIdleTime() time.Duration {
	if d.compositor != "gnome" || !d.hasGdbus {
		return 0
	}

	output, err := exec.Command("gdbus", "call", "--session",
		"--dest", "org.gnome.Mutter.IdleMonitor",
		"--object-path", "/org/gnome/Mutter/IdleMonitor/Core",
		"--method", "org.gnome.Mutter.IdleMonitor.GetIdletime").Output()
	if err != nil {
		return 0
	}
	return parseMutterIdletime(string(output))
}

// parseMutterIdletime parses "(uint64 12345,)" into a duration
func parseMutterIdletime(output string) time.Duration {
	s := strings.TrimSpace(output)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	s = strings.TrimSuffix(strings.TrimSpace(s), ",")
	s = strings.TrimSpace(strings.TrimPrefix(s, "uint64"))

	ms, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// isScreenLocked checks if screen is locked
func (d *Detector) isScreenLocked() bool {
	lockers := []string{
		"swaylock",
		"waylock",
		"gtklock",
		"hyprlock",
		"gnome-screensaver-dialog",
	}

	for _, locker := range lockers {
		if err := exec.Command("pgrep", "-x", locker).Run(); err == nil {
			return true
		}
	}

	if output, err := exec.Command("loginctl", "show-session", "-p", "LockedHint").Output(); err == nil {
		return strings.Contains(string(output), "LockedHint=yes")
	}

	return false
}

// Close cleans up resources
func (d *Detector) Close() error {
	return nil
}
