package transform

import (
	"fmt"
	"slices"

	"mrisubject/pkg/image"
	"mrisubject/pkg/subject"
)

// Flip reverses the order of voxels along spatial axes of every image.
// The affine is left unchanged. Flip is its own inverse.
type Flip struct {
	Axes []int `yaml:"axes"`
}

// NewFlip validates axes, which must be spatial axis numbers 0, 1 or 2.
func NewFlip(axes ...int) (*Flip, error) {
	if len(axes) == 0 {
		return nil, fmt.Errorf("%w: flip needs at least one axis", ErrInvalidArgument)
	}
	for _, a := range axes {
		if a < 0 || a > 2 {
			return nil, fmt.Errorf("%w: flip axis %d", ErrInvalidArgument, a)
		}
	}
	return &Flip{Axes: slices.Clone(axes)}, nil
}

func (f *Flip) Name() string { return FlipName }

func (f *Flip) params() subject.Params {
	return subject.Params{"axes": slices.Clone(f.Axes)}
}

// Apply flips a copy of s.
func (f *Flip) Apply(s *subject.Subject) (*subject.Subject, error) {
	out := s.Clone()
	for _, named := range out.ImagesDict() {
		data, err := named.Image.Data()
		if err != nil {
			return nil, fmt.Errorf("flip %q: %w", named.Name, err)
		}
		for _, axis := range f.Axes {
			flipAxis(data, axis)
		}
	}
	out.AddTransform(f, f.params())
	return out, nil
}

// Inverse returns an identical flip.
func (f *Flip) Inverse() (subject.Transform, error) {
	return NewFlip(f.Axes...)
}

func flipAxis(t *image.Tensor, axis int) {
	n := t.Spatial
	for c := 0; c < t.Channels; c++ {
		for i := 0; i < n[0]; i++ {
			for j := 0; j < n[1]; j++ {
				for k := 0; k < n[2]; k++ {
					src := [3]int{i, j, k}
					dst := src
					dst[axis] = n[axis] - 1 - src[axis]
					// visit each pair once
					if dst[axis] <= src[axis] {
						continue
					}
					a := t.At(c, src[0], src[1], src[2])
					b := t.At(c, dst[0], dst[1], dst[2])
					t.Set(c, src[0], src[1], src[2], b)
					t.Set(c, dst[0], dst[1], dst[2], a)
				}
			}
		}
	}
}
