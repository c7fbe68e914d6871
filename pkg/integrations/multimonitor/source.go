// Package multimonitor captures every active display individually through
// github.com/kbinani/screenshot (X11 on Linux, GDI on Windows, CoreGraphics
// on macOS).
package multimonitor

import (
	"context"
	"image"
	"time"

	"github.com/glimpse/glimpse/pkg/screen"
	"github.com/kbinani/screenshot"
	"github.com/pkg/errors"
)

// grabber is the subset of the screenshot package the source needs
type grabber interface {
	NumActiveDisplays() int
	GetDisplayBounds(index int) image.Rectangle
	CaptureRect(bounds image.Rectangle) (*image.RGBA, error)
}

type kbinaniGrabber struct{}

func (kbinaniGrabber) NumActiveDisplays() int { return screenshot.NumActiveDisplays() }

func (kbinaniGrabber) GetDisplayBounds(i int) image.Rectangle { return screenshot.GetDisplayBounds(i) }

func (kbinaniGrabber) CaptureRect(r image.Rectangle) (*image.RGBA, error) {
	return screenshot.CaptureRect(r)
}

// Options configures the source
type Options struct {
	// PrimaryOnly restricts capture to the PrimaryIndex display
	PrimaryOnly  bool
	PrimaryIndex int
}

// Source implements screen.Source with one frame per display.
// Display i is always reported at index i.
type Source struct {
	opts Options
	g    grabber
	now  func() time.Time
}

// New returns a multi-monitor source, or ErrCaptureUnavailable when no
// display can be enumerated in this session.
func New(opts Options) (*Source, error) {
	return newSource(opts, kbinaniGrabber{})
}

func newSource(opts Options, g grabber) (*Source, error) {
	n := g.NumActiveDisplays()
	if n == 0 {
		return nil, errors.Wrap(screen.ErrCaptureUnavailable, "multimonitor: no active displays")
	}
	if opts.PrimaryOnly && (opts.PrimaryIndex < 0 || opts.PrimaryIndex >= n) {
		return nil, errors.Wrapf(screen.ErrCaptureUnavailable,
			"multimonitor: primary display %d out of range (%d active)", opts.PrimaryIndex, n)
	}
	return &Source{opts: opts, g: g, now: time.Now}, nil
}

// Name returns "screenshot"
func (s *Source) Name() string {
	return "screenshot"
}

// Capture grabs every display, or only the primary one when configured
func (s *Source) Capture(ctx context.Context) ([]screen.Frame, error) {
	n := s.g.NumActiveDisplays()
	if n == 0 {
		return nil, errors.New("multimonitor: no active displays")
	}

	indexes := make([]int, 0, n)
	if s.opts.PrimaryOnly {
		if s.opts.PrimaryIndex >= n {
			return nil, errors.Errorf("multimonitor: primary display %d disappeared (%d active)", s.opts.PrimaryIndex, n)
		}
		indexes = append(indexes, s.opts.PrimaryIndex)
	} else {
		for i := 0; i < n; i++ {
			indexes = append(indexes, i)
		}
	}

	capturedAt := s.now()
	frames := make([]screen.Frame, 0, len(indexes))
	for _, i := range indexes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := s.g.CaptureRect(s.g.GetDisplayBounds(i))
		if err != nil {
			return nil, errors.Wrapf(err, "multimonitor: capture display %d", i)
		}
		frames = append(frames, screen.FromImage(img, i, capturedAt))
	}

	return frames, nil
}

// Close is a no-op; the screenshot package holds no persistent handles
func (s *Source) Close() error {
	return nil
}
