package hybrid

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/glimpse/glimpse/pkg/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDetector struct {
	server  string
	info    *window.WindowInfo
	infoErr error
	idle    *window.IdleInfo
	idleErr error
	closed  bool
}

func (s *stubDetector) GetFocusedWindow() (*window.WindowInfo, error) { return s.info, s.infoErr }

func (s *stubDetector) GetIdleInfo() (*window.IdleInfo, error) { return s.idle, s.idleErr }

func (s *stubDetector) IsAvailable() bool { return true }

func (s *stubDetector) GetDisplayServer() string { return s.server }

func (s *stubDetector) Close() error {
	s.closed = true
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetFocusedWindowFallsThrough(t *testing.T) {
	primary := &stubDetector{server: "wayland", infoErr: errors.New("Shell.Eval blocked")}
	fallback := &stubDetector{server: "x11", info: &window.WindowInfo{AppName: "firefox", WindowTitle: "Docs"}}
	d := newWithDetectors(quietLogger(), primary, fallback)

	info, err := d.GetFocusedWindow()
	require.NoError(t, err)
	assert.Equal(t, "firefox", info.AppName)
	assert.Equal(t, "x11", d.lastSuccessfulMethod)
	assert.Contains(t, d.GetStatus(), "Last successful method: x11")
}

func TestGetFocusedWindowSkipsUnknown(t *testing.T) {
	primary := &stubDetector{server: "wayland", info: &window.WindowInfo{AppName: "Unknown"}}
	d := newWithDetectors(quietLogger(), primary)

	_, err := d.GetFocusedWindow()
	assert.EqualError(t, err, "no valid window information")
}

func TestGetFocusedWindowAllFail(t *testing.T) {
	d := newWithDetectors(quietLogger(),
		&stubDetector{server: "wayland", infoErr: errors.New("a")},
		&stubDetector{server: "x11", infoErr: errors.New("b")},
	)

	_, err := d.GetFocusedWindow()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wayland: a")
	assert.Contains(t, err.Error(), "x11: b")
}

func TestGetIdleInfo(t *testing.T) {
	idle := &window.IdleInfo{IsIdle: true, IdleTime: 900}
	d := newWithDetectors(quietLogger(),
		&stubDetector{server: "wayland", idleErr: errors.New("unsupported")},
		&stubDetector{server: "x11", idle: idle},
	)

	info, err := d.GetIdleInfo()
	require.NoError(t, err)
	assert.Same(t, idle, info)
}

func TestEmptyChain(t *testing.T) {
	d := newWithDetectors(quietLogger())
	assert.Error(t, d.check())
	assert.False(t, d.IsAvailable())
	assert.Equal(t, "unknown", d.GetDisplayServer())

	info, err := d.GetIdleInfo()
	require.NoError(t, err)
	assert.False(t, info.IsIdle)
}

func TestClose(t *testing.T) {
	a := &stubDetector{server: "wayland"}
	b := &stubDetector{server: "x11"}
	d := newWithDetectors(quietLogger(), a, b)

	assert.NoError(t, d.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestDetectorInterface(t *testing.T) {
	var _ window.Detector = (*Detector)(nil)
}
