package transform

import (
	"fmt"
	"log/slog"
	"slices"

	"mrisubject/pkg/image"
	"mrisubject/pkg/subject"
)

// Mask sets intensity voxels outside a mask to OutsideValue.
//
// MaskingMethod names a label image of the subject. Its voxels with a value in
// Labels are inside the mask, or every positive voxel when Labels is empty.
// An empty MaskingMethod masks nothing. Only intensity images are changed.
type Mask struct {
	MaskingMethod string  `yaml:"masking_method"`
	OutsideValue  float64 `yaml:"outside_value"`
	Labels        []int   `yaml:"labels,omitempty"`

	// Logger receives channel broadcast warnings. Nil means slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

func (m *Mask) Name() string { return MaskName }

// ModifiesIntensity reports that Mask leaves geometry untouched.
func (m *Mask) ModifiesIntensity() bool { return true }

func (m *Mask) params() subject.Params {
	p := subject.Params{
		"masking_method": m.MaskingMethod,
		"outside_value":  m.OutsideValue,
	}
	if len(m.Labels) > 0 {
		p["labels"] = slices.Clone(m.Labels)
	}
	return p
}

// Apply masks the intensity images of a copy of s.
func (m *Mask) Apply(s *subject.Subject) (*subject.Subject, error) {
	out := s.Clone()
	for _, named := range out.ImagesDict(subject.IntensityOnly()) {
		data, err := named.Image.Data()
		if err != nil {
			return nil, fmt.Errorf("mask %q: %w", named.Name, err)
		}
		mask, err := m.maskFor(out, data)
		if err != nil {
			return nil, fmt.Errorf("mask %q: %w", named.Name, err)
		}
		masked, err := ApplyMask(data, mask, m.OutsideValue, m.Logger)
		if err != nil {
			return nil, fmt.Errorf("mask %q: %w", named.Name, err)
		}
		if err := named.Image.SetData(masked); err != nil {
			return nil, err
		}
	}
	out.AddTransform(m, m.params())
	return out, nil
}

// maskFor returns a 0/1 tensor for data.
func (m *Mask) maskFor(s *subject.Subject, data *image.Tensor) (*image.Tensor, error) {
	if m.MaskingMethod == "" {
		return image.Ones(1, data.Spatial)
	}
	source, err := s.Image(m.MaskingMethod)
	if err != nil {
		return nil, err
	}
	labels, err := source.Data()
	if err != nil {
		return nil, err
	}
	mask := labels.Clone()
	for i, v := range labels.Values {
		mask.Values[i] = 0
		if m.inside(v) {
			mask.Values[i] = 1
		}
	}
	return mask, nil
}

func (m *Mask) inside(v float64) bool {
	if len(m.Labels) == 0 {
		return v > 0
	}
	for _, l := range m.Labels {
		if v == float64(l) {
			return true
		}
	}
	return false
}

// ApplyMask returns a copy of t in which every voxel where mask is zero is set
// to outside. A single-channel mask is broadcast over all channels of t, with
// one warning. Other channel mismatches are rejected.
func ApplyMask(t, mask *image.Tensor, outside float64, logger *slog.Logger) (*image.Tensor, error) {
	if t.Spatial != mask.Spatial {
		return nil, fmt.Errorf("%w: image %v, mask %v", ErrMaskShape, t.Spatial, mask.Spatial)
	}
	if mask.Channels != t.Channels {
		if mask.Channels != 1 {
			return nil, fmt.Errorf("%w: image has %d, mask has %d", ErrMaskChannels, t.Channels, mask.Channels)
		}
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("expanding mask to match the channels of the input image",
			"mask_shape", mask.Shape(), "image_shape", t.Shape())
	}

	masked := t.Clone()
	n := t.Spatial[0] * t.Spatial[1] * t.Spatial[2]
	for c := 0; c < t.Channels; c++ {
		mc := 0
		if mask.Channels > 1 {
			mc = c
		}
		for v := 0; v < n; v++ {
			if mask.Values[mc*n+v] == 0 {
				masked.Values[c*n+v] = outside
			}
		}
	}
	return masked, nil
}
