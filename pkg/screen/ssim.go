package screen

// DefaultThreshold is the similarity below which two frames count as changed.
const DefaultThreshold = 0.9

const (
	dynamicRange = 255.0
	k1           = 0.01
	k2           = 0.03

	lumaR = 0.2989
	lumaG = 0.5870
	lumaB = 0.1140
)

var (
	c1 = (k1 * dynamicRange) * (k1 * dynamicRange)
	c2 = (k2 * dynamicRange) * (k2 * dynamicRange)
)

// ChangeDetector decides whether two frames differ enough to be recorded.
//
// The score is a whole-frame structural similarity index computed from the
// global mean, variance and covariance of the luma planes. It is not windowed,
// so small localized changes on large displays can go unnoticed.
type ChangeDetector struct {
	Threshold float64
}

// NewChangeDetector returns a detector with the given threshold. A
// non-positive threshold falls back to DefaultThreshold.
func NewChangeDetector(threshold float64) *ChangeDetector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &ChangeDetector{Threshold: threshold}
}

// IsChanged reports whether curr differs from prev.
func (d *ChangeDetector) IsChanged(prev, curr Frame) bool {
	return d.Compare(prev, curr).Changed
}

// Compare scores the two frames and returns the verdict for curr's index.
func (d *ChangeDetector) Compare(prev, curr Frame) ChangeDecision {
	score := Similarity(prev, curr)
	return ChangeDecision{
		Index:      curr.Index,
		Similarity: score,
		Changed:    score < d.Threshold,
	}
}

// ChangeDecision is the outcome of diffing a frame against its slot baseline.
type ChangeDecision struct {
	Index      int
	Similarity float64
	Changed    bool
}

// Similarity returns the global SSIM of the two frames. Frames with different
// dimensions score 0; two empty frames score 1.
func Similarity(a, b Frame) float64 {
	if a.Width != b.Width || a.Height != b.Height {
		return 0
	}
	n := a.Width * a.Height
	if n == 0 {
		return 1
	}
	if len(a.Pix) < n*3 || len(b.Pix) < n*3 {
		return 0
	}

	var sumA, sumB, sumAA, sumBB, sumAB float64
	for i := 0; i < n*3; i += 3 {
		la := luma(a.Pix[i], a.Pix[i+1], a.Pix[i+2])
		lb := luma(b.Pix[i], b.Pix[i+1], b.Pix[i+2])
		sumA += la
		sumB += lb
		sumAA += la * la
		sumBB += lb * lb
		sumAB += la * lb
	}

	count := float64(n)
	muA := sumA / count
	muB := sumB / count
	varA := sumAA/count - muA*muA
	varB := sumBB/count - muB*muB
	cov := sumAB/count - muA*muB

	return ((2*muA*muB + c1) * (2*cov + c2)) /
		((muA*muA + muB*muB + c1) * (varA + varB + c2))
}

func luma(r, g, b byte) float64 {
	return lumaR*float64(r) + lumaG*float64(g) + lumaB*float64(b)
}
