package capture

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/glimpse/glimpse/internal/models"
	"github.com/glimpse/glimpse/pkg/screen"
	"github.com/glimpse/glimpse/pkg/window"
)

var epoch = time.Unix(1700000000, 0)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func solidFrame(index, w, h int, value byte, at time.Time) screen.Frame {
	pix := make([]byte, w*h*3)
	for i := range pix {
		pix[i] = value
	}
	return screen.Frame{Pix: pix, Width: w, Height: h, Index: index, CapturedAt: at}
}

// withBlock returns a copy of f with a white size×size square at (x, y)
func withBlock(f screen.Frame, x, y, size int) screen.Frame {
	pix := append([]byte(nil), f.Pix...)
	for row := y; row < y+size; row++ {
		for col := x; col < x+size; col++ {
			i := (row*f.Width + col) * 3
			pix[i], pix[i+1], pix[i+2] = 255, 255, 255
		}
	}
	f.Pix = pix
	return f
}

type fakeGate struct {
	active bool
	err    error
	calls  int
}

func (g *fakeGate) IsUserActive(context.Context) (bool, error) {
	g.calls++
	return g.active, g.err
}

// fakeSource replays ticks in order and repeats the last one. onCapture runs
// before each capture returns.
type fakeSource struct {
	ticks     [][]screen.Frame
	errs      []error
	calls     int
	onCapture func(n int)
}

func (s *fakeSource) Capture(context.Context) ([]screen.Frame, error) {
	i := s.calls
	s.calls++
	if s.onCapture != nil {
		s.onCapture(s.calls)
	}
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if len(s.ticks) == 0 {
		return nil, nil
	}
	if i >= len(s.ticks) {
		i = len(s.ticks) - 1
	}
	return s.ticks[i], nil
}

type fakeArtifacts struct {
	dir     string
	paths   []string
	removed []string
	err     error
}

func (a *fakeArtifacts) Remove(path string) error {
	a.removed = append(a.removed, path)
	return nil
}

func (a *fakeArtifacts) Write(frame screen.Frame) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	path := filepath.Join(a.dir, strconv.FormatInt(frame.CapturedAt.Unix(), 10)+".png")
	a.paths = append(a.paths, path)
	return path, nil
}

type fakeExtractor struct {
	text  string
	err   error
	calls int
}

func (e *fakeExtractor) Extract(context.Context, screen.Frame) (string, error) {
	e.calls++
	return e.text, e.err
}

// fakeEmbedder fails while failures > 0
type fakeEmbedder struct {
	vec      []float32
	failures int
	err      error
	texts    []string
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.texts = append(e.texts, text)
	if e.failures > 0 {
		e.failures--
		return nil, e.err
	}
	return e.vec, nil
}

type fakeWindow struct {
	app, title string
	err        error
}

func (w *fakeWindow) ActiveAppName(context.Context) (string, error) {
	return w.app, w.err
}

func (w *fakeWindow) ActiveWindowTitle(context.Context) (string, error) {
	return w.title, w.err
}

type fakeStorage struct {
	entries []*models.Entry
	err     error
}

func (s *fakeStorage) InsertEntry(_ context.Context, e *models.Entry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

type fakeErrors struct {
	logs []*models.ErrorLog
}

func (f *fakeErrors) CreateErrorLog(_ context.Context, l *models.ErrorLog) error {
	f.logs = append(f.logs, l)
	return nil
}

// fakeScheduler returns immediately and calls onWait with the wait count
type fakeScheduler struct {
	waits  []time.Duration
	onWait func(n int)
}

func (s *fakeScheduler) Wait(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	if s.onWait != nil {
		s.onWait(len(s.waits))
	}
	return ctx.Err()
}

type stubDetector struct {
	window *window.WindowInfo
	idle   *window.IdleInfo
	err    error
}

func (d *stubDetector) GetFocusedWindow() (*window.WindowInfo, error) {
	return d.window, d.err
}

func (d *stubDetector) GetIdleInfo() (*window.IdleInfo, error) {
	return d.idle, d.err
}

func (d *stubDetector) IsAvailable() bool {
	return true
}

func (d *stubDetector) GetDisplayServer() string {
	return "x11"
}

func (d *stubDetector) Close() error {
	return nil
}

// focusSwitcher moves focus to the next window after every query
type focusSwitcher struct {
	stubDetector
	windows []*window.WindowInfo
	calls   int
}

func (d *focusSwitcher) GetFocusedWindow() (*window.WindowInfo, error) {
	w := d.windows[d.calls%len(d.windows)]
	d.calls++
	return w, nil
}

type harness struct {
	gate      *fakeGate
	source    *fakeSource
	artifacts *fakeArtifacts
	extractor *fakeExtractor
	embedder  *fakeEmbedder
	window    *fakeWindow
	storage   *fakeStorage
	errors    *fakeErrors
	scheduler *fakeScheduler
}

func newHarness(ticks ...[]screen.Frame) *harness {
	return &harness{
		gate:      &fakeGate{active: true},
		source:    &fakeSource{ticks: ticks},
		artifacts: &fakeArtifacts{dir: "/shots"},
		extractor: &fakeExtractor{text: "hello world"},
		embedder:  &fakeEmbedder{vec: []float32{0.5, -1}},
		window:    &fakeWindow{app: "Terminal", title: "bash"},
		storage:   &fakeStorage{},
		errors:    &fakeErrors{},
		scheduler: &fakeScheduler{},
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Gate:      h.gate,
		Source:    h.source,
		Artifacts: h.artifacts,
		Extractor: h.extractor,
		Embedder:  h.embedder,
		Window:    h.window,
		Storage:   h.storage,
		Errors:    h.errors,
		Scheduler: h.scheduler,
		Logger:    discardLogger(),
	}
}
