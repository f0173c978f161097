package transform

import (
	"fmt"
	"math"
	"slices"

	"mrisubject/pkg/image"
	"mrisubject/pkg/subject"
)

// Resample moves every image onto a grid with the target voxel spacing.
// Intensity images use ImageInterpolation; label images always use nearest
// neighbour so that label values are preserved. The origin is kept.
//
// Resample is not invertible: the original grid is lost.
type Resample struct {
	Spacing            []float64           `yaml:"spacing"`
	ImageInterpolation image.Interpolation `yaml:"image_interpolation"`
}

// NewResample accepts 1 or 3 positive spacings in mm. An empty interpolation
// means linear.
func NewResample(spacing []float64, interpolation image.Interpolation) (*Resample, error) {
	var target []float64
	switch len(spacing) {
	case 1:
		target = []float64{spacing[0], spacing[0], spacing[0]}
	case 3:
		target = slices.Clone(spacing)
	default:
		return nil, fmt.Errorf("%w: expected 1 or 3 spacings, got %d", ErrInvalidArgument, len(spacing))
	}
	for _, s := range target {
		if !(s > 0) {
			return nil, fmt.Errorf("%w: spacing %g", ErrInvalidArgument, s)
		}
	}
	if interpolation == "" {
		interpolation = image.Linear
	}
	parsed, err := image.ParseInterpolation(string(interpolation))
	if err != nil {
		return nil, err
	}
	return &Resample{Spacing: target, ImageInterpolation: parsed}, nil
}

func (r *Resample) Name() string { return ResampleName }

// SetImageInterpolation changes how intensity images are interpolated.
func (r *Resample) SetImageInterpolation(i image.Interpolation) {
	r.ImageInterpolation = i
}

func (r *Resample) params() subject.Params {
	return subject.Params{
		"spacing":             slices.Clone(r.Spacing),
		"image_interpolation": string(r.ImageInterpolation),
	}
}

// Apply resamples a copy of s.
func (r *Resample) Apply(s *subject.Subject) (*subject.Subject, error) {
	out := s.Clone()
	for _, named := range out.ImagesDict() {
		interpolation := r.ImageInterpolation
		if !named.Image.IsIntensity() {
			interpolation = image.Nearest
		}
		if err := r.resampleImage(named.Image, interpolation); err != nil {
			return nil, fmt.Errorf("resample %q: %w", named.Name, err)
		}
	}
	out.AddTransform(r, r.params())
	return out, nil
}

func (r *Resample) resampleImage(img *image.Image, interpolation image.Interpolation) error {
	data, err := img.Data()
	if err != nil {
		return err
	}
	current := img.Spacing()

	var size [3]int
	var factors [3]float64
	for axis := 0; axis < 3; axis++ {
		// output voxel i sits at input voxel i*factor
		factors[axis] = r.Spacing[axis] / current[axis]
		size[axis] = max(1, int(math.Round(float64(data.Spatial[axis])/factors[axis])))
	}

	resampled, err := image.NewTensor(data.Channels, size)
	if err != nil {
		return err
	}
	for c := 0; c < data.Channels; c++ {
		for i := 0; i < size[0]; i++ {
			for j := 0; j < size[1]; j++ {
				for k := 0; k < size[2]; k++ {
					x := [3]float64{float64(i) * factors[0], float64(j) * factors[1], float64(k) * factors[2]}
					var v float64
					if interpolation == image.Nearest {
						v = sampleNearest(data, c, x)
					} else {
						v = sampleLinear(data, c, x)
					}
					resampled.Set(c, i, j, k, v)
				}
			}
		}
	}

	if err := img.SetAffine(image.ScaledAffine(img.Affine(), factors)); err != nil {
		return err
	}
	return img.SetData(resampled)
}

func clampIndex(v, n int) int {
	return min(max(v, 0), n-1)
}

func sampleNearest(t *image.Tensor, c int, x [3]float64) float64 {
	return t.At(c,
		clampIndex(int(math.Round(x[0])), t.Spatial[0]),
		clampIndex(int(math.Round(x[1])), t.Spatial[1]),
		clampIndex(int(math.Round(x[2])), t.Spatial[2]),
	)
}

// sampleLinear interpolates trilinearly, clamping at the volume border.
func sampleLinear(t *image.Tensor, c int, x [3]float64) float64 {
	var lo, hi [3]int
	var w [3]float64
	for axis := 0; axis < 3; axis++ {
		f := math.Floor(x[axis])
		lo[axis] = clampIndex(int(f), t.Spatial[axis])
		hi[axis] = clampIndex(int(f)+1, t.Spatial[axis])
		w[axis] = x[axis] - f
	}

	var v float64
	for corner := 0; corner < 8; corner++ {
		idx := lo
		weight := 1.0
		for axis := 0; axis < 3; axis++ {
			if corner&(1<<axis) != 0 {
				idx[axis] = hi[axis]
				weight *= w[axis]
			} else {
				weight *= 1 - w[axis]
			}
		}
		if weight == 0 {
			continue
		}
		v += weight * t.At(c, idx[0], idx[1], idx[2])
	}
	return v
}
