package subject

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"mrisubject/pkg/image"
)

// Default tolerances for consistency checks. They absorb the round-trip error
// of image readers that store geometry in single precision.
const (
	DefaultRelativeTolerance = 1e-6
	DefaultAbsoluteTolerance = 1e-6
)

// CheckConsistentAttribute verifies that every image shares attr, using the
// first image as reference.
//
// Numeric values match when |a-b| <= absTol + relTol*|b| holds for every
// element, b being the reference. Other values must be identical.
func (s *Subject) CheckConsistentAttribute(attr image.Attribute, relTol, absTol float64) error {
	named := s.ImagesDict()
	values := make([]NamedValue, 0, len(named))
	for _, n := range named {
		v, err := n.Image.Attribute(attr)
		if err != nil {
			return fmt.Errorf("check %q of %q: %w", string(attr), n.Name, err)
		}
		values = append(values, NamedValue{Name: n.Name, Value: v})
	}
	if len(values) < 2 {
		return nil
	}

	if numeric(values) {
		ref := values[0]
		for _, current := range values[1:] {
			if !allClose(current.Value.(image.Numeric), ref.Value.(image.Numeric), relTol, absTol) {
				return &ConsistencyError{Attribute: attr, Values: []NamedValue{ref, current}}
			}
		}
		return nil
	}

	unique := make(map[string]struct{}, len(values))
	for _, v := range values {
		unique[v.Value.String()] = struct{}{}
	}
	if len(unique) > 1 {
		return &ConsistencyError{Attribute: attr, Values: values}
	}
	return nil
}

func numeric(values []NamedValue) bool {
	for _, v := range values {
		if _, ok := v.Value.(image.Numeric); !ok {
			return false
		}
	}
	return true
}

func allClose(a, b image.Numeric, relTol, absTol float64) bool {
	return floats.EqualFunc(a, b, func(x, y float64) bool {
		return math.Abs(x-y) <= absTol+relTol*math.Abs(y)
	})
}

func (s *Subject) checkDefault(attr image.Attribute) error {
	return s.CheckConsistentAttribute(attr, DefaultRelativeTolerance, DefaultAbsoluteTolerance)
}

// CheckConsistentSpatialShape verifies that all images share their spatial shape.
func (s *Subject) CheckConsistentSpatialShape() error {
	return s.checkDefault(image.AttrSpatialShape)
}

// CheckConsistentOrientation verifies that all images share their orientation codes.
func (s *Subject) CheckConsistentOrientation() error {
	return s.checkDefault(image.AttrOrientation)
}

// CheckConsistentAffine verifies that all images share their affine.
func (s *Subject) CheckConsistentAffine() error {
	return s.checkDefault(image.AttrAffine)
}

// CheckConsistentSpace verifies spacing, direction, origin and spatial shape.
// Failures are returned as *SpaceError.
func (s *Subject) CheckConsistentSpace() error {
	for _, attr := range []image.Attribute{
		image.AttrSpacing,
		image.AttrDirection,
		image.AttrOrigin,
		image.AttrSpatialShape,
	} {
		if err := s.checkDefault(attr); err != nil {
			return &SpaceError{Err: err}
		}
	}
	return nil
}

// Shape returns the 4D shape shared by all images.
func (s *Subject) Shape() ([4]int, error) {
	if err := s.checkDefault(image.AttrShape); err != nil {
		return [4]int{}, err
	}
	return s.FirstImage().Shape(), nil
}

// SpatialShape returns the spatial shape shared by all images.
func (s *Subject) SpatialShape() ([3]int, error) {
	if err := s.CheckConsistentSpatialShape(); err != nil {
		return [3]int{}, err
	}
	return s.FirstImage().SpatialShape(), nil
}

// Spacing returns the voxel spacing shared by all images.
func (s *Subject) Spacing() ([3]float64, error) {
	if err := s.checkDefault(image.AttrSpacing); err != nil {
		return [3]float64{}, err
	}
	return s.FirstImage().Spacing(), nil
}
