package wayland

import (
	"testing"
	"time"

	"github.com/glimpse/glimpse/pkg/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDetector(t *testing.T) {
	detector := NewDetector(time.Minute)
	require.NotNil(t, detector)
	assert.Equal(t, "wayland", detector.GetDisplayServer())

	valid := []string{"sway", "hyprland", "wayfire", "river", "gnome", "kde", "unknown"}
	assert.Contains(t, valid, detector.compositor)
	t.Logf("Compositor: %s, swaymsg: %v, gdbus: %v", detector.compositor, detector.hasSwaymsg, detector.hasGdbus)
}

func TestUnknownCompositorUnavailable(t *testing.T) {
	detector := &Detector{compositor: "unknown"}
	assert.False(t, detector.IsAvailable())

	_, err := detector.GetFocusedWindow()
	assert.Error(t, err)
}

func TestParseSwayTree(t *testing.T) {
	tree := []byte(`{
		"name": "root", "focused": false,
		"nodes": [{
			"name": "eDP-1", "focused": false,
			"nodes": [{
				"name": "1", "focused": false,
				"nodes": [
					{"name": "vim main.go", "app_id": "foot", "focused": false, "pid": 0},
					{"name": "GitHub - Mozilla Firefox", "app_id": null, "focused": true, "pid": 0,
					 "window_properties": {"class": "firefox"}}
				]
			}]
		}]
	}`)

	info, err := parseSwayTree(tree)
	require.NoError(t, err)
	assert.Equal(t, "firefox", info.AppName)
	assert.Equal(t, "GitHub - Mozilla Firefox", info.WindowTitle)
}

func TestParseSwayTreeFloating(t *testing.T) {
	tree := []byte(`{"focused": false, "nodes": [], "floating_nodes": [
		{"name": "Calculator", "app_id": "gnome-calculator", "focused": true}
	]}`)

	info, err := parseSwayTree(tree)
	require.NoError(t, err)
	assert.Equal(t, "gnome-calculator", info.AppName)
	assert.Equal(t, "Calculator", info.WindowTitle)
}

func TestParseSwayTreeNoFocus(t *testing.T) {
	_, err := parseSwayTree([]byte(`{"focused": false, "nodes": []}`))
	assert.Error(t, err)

	_, err = parseSwayTree([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseHyprlandWindow(t *testing.T) {
	info, err := parseHyprlandWindow([]byte(`{"address": "0x1", "class": "kitty", "title": "~/src", "pid": 0}`))
	require.NoError(t, err)
	assert.Equal(t, "kitty", info.AppName)
	assert.Equal(t, "~/src", info.WindowTitle)

	info, err = parseHyprlandWindow([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "Unknown", info.AppName)
	assert.Equal(t, "Unknown", info.WindowTitle)
}

func TestParseGnomeEval(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		wantNil   bool
		wantApp   string
		wantTitle string
	}{
		{"Success", "(true, 'org.gnome.Nautilus|||Home')\n", false, "org.gnome.Nautilus", "Home"},
		{"Eval disabled", "(false, '')", true, "", ""},
		{"Unknown app", "(true, 'Unknown|||Unknown')", true, "", ""},
		{"Missing title", "(true, 'code|||')", false, "code", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := parseGnomeEval(tt.output)
			if tt.wantNil {
				assert.Nil(t, info)
				return
			}
			require.NotNil(t, info)
			assert.Equal(t, tt.wantApp, info.AppName)
			assert.Equal(t, tt.wantTitle, info.WindowTitle)
		})
	}
}

func TestParseXProp(t *testing.T) {
	assert.Equal(t, "Terminal", parseXPropString(`WM_NAME(STRING) = "Terminal"`))
	assert.Equal(t, "", parseXPropString("WM_NAME:  not found."))
	assert.Equal(t, "Firefox", parseXPropClass(`WM_CLASS(STRING) = "Navigator", "Firefox"`))
	assert.Equal(t, "", parseXPropClass(""))
}

func TestParseMutterIdletime(t *testing.T) {
	assert.Equal(t, 12345*time.Millisecond, parseMutterIdletime("(uint64 12345,)\n"))
	assert.Equal(t, time.Duration(0), parseMutterIdletime("garbage"))
}

func TestGetIdleInfo(t *testing.T) {
	detector := &Detector{compositor: "unknown", idleThreshold: time.Minute}
	info, err := detector.GetIdleInfo()
	require.NoError(t, err)
	assert.False(t, info.IsIdle)
	assert.Equal(t, int64(0), info.IdleTime)
}

func TestDetectorInterface(t *testing.T) {
	var _ window.Detector = (*Detector)(nil)
}
