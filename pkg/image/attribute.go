package image

import (
	"fmt"
	"strconv"
	"strings"
)

// Attribute names a geometric or descriptive property shared by images.
type Attribute string

const (
	AttrShape        Attribute = "shape"
	AttrSpatialShape Attribute = "spatial_shape"
	AttrSpacing      Attribute = "spacing"
	AttrOrigin       Attribute = "origin"
	AttrDirection    Attribute = "direction"
	AttrAffine       Attribute = "affine"
	AttrOrientation  Attribute = "orientation"
	AttrType         Attribute = "type"
)

// Value is an attribute value. Its concrete type tells callers whether it
// supports approximate numeric comparison (Numeric) or only exact equality (Text).
type Value interface {
	fmt.Stringer
}

// Numeric is a flat vector of numbers compared element-wise within a tolerance.
type Numeric []float64

func (n Numeric) String() string {
	parts := make([]string, len(n))
	for i, v := range n {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Text is a value only comparable for exact equality.
type Text string

func (t Text) String() string { return string(t) }

// Attribute returns the named property of the image.
func (img *Image) Attribute(name Attribute) (Value, error) {
	switch name {
	case AttrShape:
		return intsToNumeric(img.shape[:]), nil
	case AttrSpatialShape:
		s := img.SpatialShape()
		return intsToNumeric(s[:]), nil
	case AttrSpacing:
		s := img.Spacing()
		return Numeric(s[:]), nil
	case AttrOrigin:
		o := img.Origin()
		return Numeric(o[:]), nil
	case AttrDirection:
		d := img.Direction()
		return Numeric(d[:]), nil
	case AttrAffine:
		return Numeric(flatten(img.affine)), nil
	case AttrOrientation:
		return Text(img.Orientation()), nil
	case AttrType:
		return Text(img.kind), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, string(name))
	}
}

func intsToNumeric(values []int) Numeric {
	out := make(Numeric, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
