// Package transform provides the spatial and intensity transforms that record
// themselves in a subject's history. Importing the package registers every
// transform in subject.DefaultRegistry.
package transform

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"mrisubject/pkg/subject"
)

// Registered transform names. They are stored in history records and must
// stay stable.
const (
	FlipName     = "Flip"
	PadName      = "Pad"
	CropName     = "Crop"
	ResampleName = "Resample"
	MaskName     = "Mask"
)

var (
	// ErrInvalidArgument is returned for arguments a transform cannot use.
	ErrInvalidArgument = errors.New("transform: invalid argument")

	// ErrMaskShape is returned when a mask does not cover the image grid.
	ErrMaskShape = errors.New("transform: mask and image spatial shapes differ")

	// ErrMaskChannels is returned when a mask has more channels than the image
	// it is applied to, or a channel count other than 1 that does not match.
	ErrMaskChannels = errors.New("transform: mask channels cannot be broadcast")
)

func init() {
	Register(subject.DefaultRegistry)
}

// Register adds every transform in this package to r.
func Register(r *subject.Registry) {
	r.Register(FlipName, func(p subject.Params) (subject.Transform, error) {
		var f Flip
		if err := decodeParams(p, &f); err != nil {
			return nil, err
		}
		return NewFlip(f.Axes...)
	})
	r.Register(PadName, func(p subject.Params) (subject.Transform, error) {
		var pad Pad
		if err := decodeParams(p, &pad); err != nil {
			return nil, err
		}
		return NewPad(pad.Fill, pad.Padding...)
	})
	r.Register(CropName, func(p subject.Params) (subject.Transform, error) {
		var c Crop
		if err := decodeParams(p, &c); err != nil {
			return nil, err
		}
		return NewCrop(c.Cropping...)
	})
	r.Register(ResampleName, func(p subject.Params) (subject.Transform, error) {
		var rs Resample
		if err := decodeParams(p, &rs); err != nil {
			return nil, err
		}
		return NewResample(rs.Spacing, rs.ImageInterpolation)
	})
	r.Register(MaskName, func(p subject.Params) (subject.Transform, error) {
		m := &Mask{}
		if err := decodeParams(p, m); err != nil {
			return nil, err
		}
		return m, nil
	})
}

// NewRegistry returns a registry holding the transforms of this package only.
func NewRegistry() *subject.Registry {
	r := subject.NewRegistry()
	Register(r)
	return r
}

// decodeParams fills out from recorded parameters. Going through YAML lets
// records read back from a provenance file, where numbers and lists lose
// their Go types, decode the same way as in-memory ones.
func decodeParams(p subject.Params, out any) error {
	raw, err := yaml.Marshal(map[string]any(p))
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}
