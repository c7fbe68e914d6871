package screen

import (
	"context"
	"image"
	"time"

	"github.com/pkg/errors"
)

// ErrCaptureUnavailable is returned when no capture backend compatible with
// the current display session can be initialized. It is a startup error and
// is never retried.
var ErrCaptureUnavailable = errors.New("no screen capture backend available")

// Frame is a single RGB raster captured from one monitor (or from the whole
// desktop on single-surface backends). Frames are immutable once produced.
type Frame struct {
	Pix        []byte // RGB, 3 bytes per pixel, row-major
	Width      int
	Height     int
	Index      int // monitor index
	CapturedAt time.Time
}

// Source is the interface that all capture backends must satisfy
type Source interface {
	// Capture grabs the current contents of every monitor, ordered by index
	Capture(ctx context.Context) ([]Frame, error)

	// Name returns the backend name ("screenshot" or "wayland")
	Name() string

	// Close releases any resources held by the backend
	Close() error
}

// FromImage converts img into a Frame, dropping the alpha channel.
func FromImage(img image.Image, index int, capturedAt time.Time) Frame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]byte, w*h*3)

	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < h; y++ {
			src := rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y+y):]
			dst := pix[y*w*3:]
			for x := 0; x < w; x++ {
				dst[x*3] = src[x*4]
				dst[x*3+1] = src[x*4+1]
				dst[x*3+2] = src[x*4+2]
			}
		}
	} else {
		i := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r, g, bl, _ := img.At(x, y).RGBA()
				pix[i] = uint8(r >> 8)
				pix[i+1] = uint8(g >> 8)
				pix[i+2] = uint8(bl >> 8)
				i += 3
			}
		}
	}

	return Frame{
		Pix:        pix,
		Width:      w,
		Height:     h,
		Index:      index,
		CapturedAt: capturedAt,
	}
}

// Image returns an opaque RGBA copy of the frame suitable for encoding.
func (f Frame) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, j := 0, 0; i+2 < len(f.Pix); i, j = i+3, j+4 {
		img.Pix[j] = f.Pix[i]
		img.Pix[j+1] = f.Pix[i+1]
		img.Pix[j+2] = f.Pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// Empty reports whether the frame carries no pixels.
func (f Frame) Empty() bool {
	return f.Width == 0 || f.Height == 0
}
