package subject

import "mrisubject/pkg/image"

// Params holds the arguments needed to rebuild a transform.
type Params map[string]any

// Clone returns a deep copy of p: list and map values are copied too.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = deepCopy(v)
	}
	return out
}

// AppliedTransform is one history record: the registered name of a transform
// and the arguments it was applied with.
type AppliedTransform struct {
	Name   string `yaml:"name"`
	Params Params `yaml:"params,omitempty"`
}

// Transform is a unit of work applied to a subject. Implementations return a
// new subject and record themselves with AddTransform.
type Transform interface {
	Name() string
	Apply(s *Subject) (*Subject, error)
}

// Invertible is implemented by transforms with a well-defined inverse.
type Invertible interface {
	Transform
	Inverse() (Transform, error)
}

// IntensityTransform is implemented by transforms that only alter voxel
// values, never geometry.
type IntensityTransform interface {
	Transform
	ModifiesIntensity() bool
}

// Interpolating is implemented by transforms that resample images.
type Interpolating interface {
	Transform
	SetImageInterpolation(image.Interpolation)
}

func isIntensity(t Transform) bool {
	it, ok := t.(IntensityTransform)
	return ok && it.ModifiesIntensity()
}

// AddTransform appends t and its parameters to the history. Transforms call
// it after applying themselves; pipelines should not.
func (s *Subject) AddTransform(t Transform, params Params) {
	s.applied = append(s.applied, AppliedTransform{Name: t.Name(), Params: params.Clone()})
}

// History returns a copy of the applied-transform records in order.
func (s *Subject) History() []AppliedTransform {
	out := make([]AppliedTransform, len(s.applied))
	for i, record := range s.applied {
		out[i] = AppliedTransform{Name: record.Name, Params: record.Params.Clone()}
	}
	return out
}

// ClearHistory empties the applied-transform records.
func (s *Subject) ClearHistory() {
	s.applied = nil
}
