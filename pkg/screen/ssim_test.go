package screen

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidFrame(w, h int, v byte) Frame {
	pix := make([]byte, w*h*3)
	for i := range pix {
		pix[i] = v
	}
	return Frame{Pix: pix, Width: w, Height: h, CapturedAt: time.Unix(1700000000, 0)}
}

func noiseFrame(w, h int, seed int64) Frame {
	r := rand.New(rand.NewSource(seed))
	pix := make([]byte, w*h*3)
	r.Read(pix)
	return Frame{Pix: pix, Width: w, Height: h}
}

func withWhiteBlock(f Frame, x0, y0, size int) Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	for y := y0; y < y0+size; y++ {
		for x := x0; x < x0+size; x++ {
			off := (y*f.Width + x) * 3
			pix[off], pix[off+1], pix[off+2] = 255, 255, 255
		}
	}
	f.Pix = pix
	return f
}

func TestSimilarityIdenticalFrames(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
	}{
		{"black 100x100", solidFrame(100, 100, 0)},
		{"gray 1x1", solidFrame(1, 1, 128)},
		{"white 37x11", solidFrame(37, 11, 255)},
		{"noise 64x48", noiseFrame(64, 48, 7)},
	}

	d := NewChangeDetector(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, 1.0, Similarity(tt.frame, tt.frame), 1e-9)
			assert.False(t, d.IsChanged(tt.frame, tt.frame))
		})
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		a := noiseFrame(40, 30, seed)
		b := noiseFrame(40, 30, seed+100)
		assert.Equal(t, Similarity(a, b), Similarity(b, a), "seed %d", seed)
	}

	black := solidFrame(100, 100, 0)
	block := withWhiteBlock(black, 45, 45, 10)
	assert.Equal(t, Similarity(black, block), Similarity(block, black))
}

func TestSimilarityNoiseIsChanged(t *testing.T) {
	base := solidFrame(120, 80, 128)
	noisy := noiseFrame(120, 80, 42)

	score := Similarity(base, noisy)
	assert.Less(t, score, DefaultThreshold)
	assert.True(t, NewChangeDetector(DefaultThreshold).IsChanged(base, noisy))
}

func TestSimilarityWhiteBlockOnBlack(t *testing.T) {
	black := solidFrame(100, 100, 0)
	block := withWhiteBlock(black, 0, 0, 10)

	score := Similarity(black, block)
	assert.Less(t, score, 0.9)
	assert.Greater(t, score, 0.0)

	decision := NewChangeDetector(0.9).Compare(black, block)
	assert.True(t, decision.Changed)
	assert.Equal(t, score, decision.Similarity)
}

func TestSimilarityDimensionMismatch(t *testing.T) {
	a := solidFrame(10, 10, 0)
	b := solidFrame(10, 11, 0)
	assert.Equal(t, 0.0, Similarity(a, b))
	assert.True(t, NewChangeDetector(0).IsChanged(a, b))
}

func TestSimilarityEmptyFrames(t *testing.T) {
	assert.Equal(t, 1.0, Similarity(Frame{}, Frame{}))
}

func TestChangeDetectorThreshold(t *testing.T) {
	d := NewChangeDetector(-1)
	assert.Equal(t, DefaultThreshold, d.Threshold)

	black := solidFrame(100, 100, 0)
	block := withWhiteBlock(black, 0, 0, 10)
	score := Similarity(black, block)

	strict := NewChangeDetector(score)
	assert.False(t, strict.IsChanged(black, block), "score equal to threshold is unchanged")

	loose := NewChangeDetector(score + 1e-6)
	assert.True(t, loose.IsChanged(black, block))
}

func TestFrameImageRoundTrip(t *testing.T) {
	f := noiseFrame(13, 7, 3)
	f.Index = 2
	f.CapturedAt = time.Unix(1700000123, 0)

	img := f.Image()
	require.Equal(t, 13, img.Bounds().Dx())
	require.Equal(t, 7, img.Bounds().Dy())

	back := FromImage(img, f.Index, f.CapturedAt)
	assert.Equal(t, f.Pix, back.Pix)
	assert.Equal(t, f.Index, back.Index)
	assert.Equal(t, f.CapturedAt, back.CapturedAt)
	assert.False(t, back.Empty())
	assert.True(t, Frame{}.Empty())
}
