package transform

import (
	"fmt"
	"slices"

	"mrisubject/pkg/image"
	"mrisubject/pkg/subject"
)

// expandBounds turns 1, 3 or 6 values into (ini, fin) pairs per axis:
// n -> (n, n, n, n, n, n); (a, b, c) -> (a, a, b, b, c, c).
func expandBounds(values []int) ([]int, error) {
	var out []int
	switch len(values) {
	case 1:
		out = []int{values[0], values[0], values[0], values[0], values[0], values[0]}
	case 3:
		out = []int{values[0], values[0], values[1], values[1], values[2], values[2]}
	case 6:
		out = slices.Clone(values)
	default:
		return nil, fmt.Errorf("%w: expected 1, 3 or 6 bounds, got %d", ErrInvalidArgument, len(values))
	}
	for _, v := range out {
		if v < 0 {
			return nil, fmt.Errorf("%w: negative bound %d", ErrInvalidArgument, v)
		}
	}
	return out, nil
}

// Pad adds voxels around every image. Padding holds (ini, fin) pairs per
// spatial axis; new voxels take the Fill value. The origin moves so existing
// voxels keep their world position.
type Pad struct {
	Padding []int   `yaml:"padding"`
	Fill    float64 `yaml:"fill"`
}

// NewPad accepts 1, 3 or 6 non-negative bounds.
func NewPad(fill float64, padding ...int) (*Pad, error) {
	bounds, err := expandBounds(padding)
	if err != nil {
		return nil, err
	}
	return &Pad{Padding: bounds, Fill: fill}, nil
}

func (p *Pad) Name() string { return PadName }

func (p *Pad) params() subject.Params {
	return subject.Params{"padding": slices.Clone(p.Padding), "fill": p.Fill}
}

// Apply pads a copy of s.
func (p *Pad) Apply(s *subject.Subject) (*subject.Subject, error) {
	out := s.Clone()
	for _, named := range out.ImagesDict() {
		if err := p.padImage(named.Image); err != nil {
			return nil, fmt.Errorf("pad %q: %w", named.Name, err)
		}
	}
	out.AddTransform(p, p.params())
	return out, nil
}

func (p *Pad) padImage(img *image.Image) error {
	data, err := img.Data()
	if err != nil {
		return err
	}
	var size, ini [3]int
	for axis := 0; axis < 3; axis++ {
		ini[axis] = p.Padding[2*axis]
		size[axis] = data.Spatial[axis] + p.Padding[2*axis] + p.Padding[2*axis+1]
	}
	padded, err := image.NewTensor(data.Channels, size)
	if err != nil {
		return err
	}
	for i := range padded.Values {
		padded.Values[i] = p.Fill
	}
	for c := 0; c < data.Channels; c++ {
		for i := 0; i < data.Spatial[0]; i++ {
			for j := 0; j < data.Spatial[1]; j++ {
				for k := 0; k < data.Spatial[2]; k++ {
					padded.Set(c, i+ini[0], j+ini[1], k+ini[2], data.At(c, i, j, k))
				}
			}
		}
	}

	offset := [3]float64{-float64(ini[0]), -float64(ini[1]), -float64(ini[2])}
	if err := img.SetAffine(image.ShiftedAffine(img.Affine(), offset)); err != nil {
		return err
	}
	return img.SetData(padded)
}

// Inverse returns the crop that removes the padding.
func (p *Pad) Inverse() (subject.Transform, error) {
	return NewCrop(p.Padding...)
}

// Crop removes voxels from the borders of every image. Cropping holds
// (ini, fin) pairs per spatial axis.
type Crop struct {
	Cropping []int `yaml:"cropping"`
}

// NewCrop accepts 1, 3 or 6 non-negative bounds.
func NewCrop(cropping ...int) (*Crop, error) {
	bounds, err := expandBounds(cropping)
	if err != nil {
		return nil, err
	}
	return &Crop{Cropping: bounds}, nil
}

func (c *Crop) Name() string { return CropName }

func (c *Crop) params() subject.Params {
	return subject.Params{"cropping": slices.Clone(c.Cropping)}
}

// Apply crops a copy of s.
func (c *Crop) Apply(s *subject.Subject) (*subject.Subject, error) {
	out := s.Clone()
	for _, named := range out.ImagesDict() {
		spatial := named.Image.SpatialShape()
		ranges := make([]image.Range, 3)
		for axis := 0; axis < 3; axis++ {
			ranges[axis] = image.Range{
				Start: c.Cropping[2*axis],
				Stop:  spatial[axis] - c.Cropping[2*axis+1],
			}
		}
		cropped, err := named.Image.Slice(ranges...)
		if err != nil {
			return nil, fmt.Errorf("crop %q: %w", named.Name, err)
		}
		if err := out.Set(named.Name, cropped); err != nil {
			return nil, err
		}
	}
	out.AddTransform(c, c.params())
	return out, nil
}

// Inverse returns the zero padding that restores the original grid.
func (c *Crop) Inverse() (subject.Transform, error) {
	return NewPad(0, c.Cropping...)
}
