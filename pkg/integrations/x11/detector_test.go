package x11

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
	defer detector.Close()

	assert.Equal(t, "x11", detector.GetDisplayServer())
	t.Logf("X connection: %v, xdotool: %v, xprintidle: %v",
		detector.xc != nil, detector.hasXdotool, detector.hasXprintidle)
}

func TestCommandExists(t *testing.T) {
	detector := &Detector{}
	assert.True(t, detector.commandExists("sh"))
	assert.False(t, detector.commandExists("nonexistent_command_xyz"))
}

func TestGetFocusedWindow(t *testing.T) {
	detector := NewDetector(time.Minute)
	defer detector.Close()

	if !detector.IsAvailable() {
		t.Skip("X11 detector not available on this system")
	}

	windowInfo, err := detector.GetFocusedWindow()
	if err != nil {
		t.Logf("GetFocusedWindow() error (may be expected): %v", err)
		return
	}

	require.NotNil(t, windowInfo)
	assert.NotEmpty(t, windowInfo.AppName)
	assert.Equal(t, "x11", windowInfo.DisplayServer)
}

func TestGetIdleInfo(t *testing.T) {
	detector := NewDetector(time.Minute)
	defer detector.Close()

	if !detector.IsAvailable() {
		t.Skip("X11 detector not available on this system")
	}

	idleInfo, err := detector.GetIdleInfo()
	if err != nil {
		t.Logf("GetIdleInfo() error: %v", err)
		return
	}

	require.NotNil(t, idleInfo)
	assert.GreaterOrEqual(t, idleInfo.IdleTime, int64(0))
}

func TestParseWMClass(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Standard format", `WM_CLASS(STRING) = "Navigator", "Firefox"`, "Firefox"},
		{"Single class", `WM_CLASS(STRING) = "kitty", "kitty"`, "kitty"},
		{"Empty string", "", ""},
		{"No equals sign", "WM_CLASS(STRING)", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseWMClass(tt.input))
		})
	}
}

func TestSplitWMClass(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"Instance and class", []byte("Navigator\x00firefox\x00"), "firefox"},
		{"Instance only", []byte("xterm\x00"), "xterm"},
		{"Empty class", []byte("code\x00\x00"), "code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitWMClass(tt.input))
		})
	}
}

func TestClose(t *testing.T) {
	detector := NewDetector(time.Minute)
	assert.NoError(t, detector.Close())
	assert.NoError(t, detector.Close())
}

func TestDetectorInterface(t *testing.T) {
	var _ window.Detector = (*Detector)(nil)
}
