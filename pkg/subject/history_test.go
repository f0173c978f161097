package subject

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mrisubject/pkg/image"
)

// shift adds Offset to every intensity voxel; its inverse subtracts it
type shift struct {
	Offset float64
}

func (t *shift) Name() string            { return "shift" }
func (t *shift) ModifiesIntensity() bool { return true }

func (t *shift) Apply(s *Subject) (*Subject, error) {
	out := s.Clone()
	for _, img := range out.Images(IntensityOnly()) {
		data, err := img.Data()
		if err != nil {
			return nil, err
		}
		for i := range data.Values {
			data.Values[i] += t.Offset
		}
	}
	out.AddTransform(t, Params{"offset": t.Offset})
	return out, nil
}

func (t *shift) Inverse() (Transform, error) { return &shift{Offset: -t.Offset}, nil }

// tag stores a metadata flag and cannot be undone
type tag struct{}

func (t *tag) Name() string { return "tag" }

func (t *tag) Apply(s *Subject) (*Subject, error) {
	out := s.Clone()
	if err := out.Set("tagged", true); err != nil {
		return nil, err
	}
	out.AddTransform(t, nil)
	return out, nil
}

// regrid only records its interpolation
type regrid struct {
	Interpolation image.Interpolation
}

func (t *regrid) Name() string                                { return "regrid" }
func (t *regrid) SetImageInterpolation(i image.Interpolation) { t.Interpolation = i }

func (t *regrid) Apply(s *Subject) (*Subject, error) {
	out := s.Clone()
	out.AddTransform(t, Params{"interpolation": string(t.Interpolation)})
	return out, nil
}

func testRegistry() *Registry {
	r := NewRegistry()
	r.Register("shift", func(p Params) (Transform, error) {
		offset, _ := p["offset"].(float64)
		return &shift{Offset: offset}, nil
	})
	r.Register("tag", func(Params) (Transform, error) { return &tag{}, nil })
	r.Register("regrid", func(p Params) (Transform, error) {
		i, _ := p["interpolation"].(string)
		return &regrid{Interpolation: image.Interpolation(i)}, nil
	})
	return r
}

func apply(t *testing.T, s *Subject, transforms ...Transform) *Subject {
	t.Helper()
	out, err := NewCompose(transforms...).Apply(s)
	require.NoError(t, err)
	return out
}

func firstValue(t *testing.T, s *Subject, name string) float64 {
	t.Helper()
	img, err := s.Image(name)
	require.NoError(t, err)
	data, err := img.Data()
	require.NoError(t, err)
	return data.Values[0]
}

func warnings(buf *bytes.Buffer) int {
	return strings.Count(buf.String(), "level=WARN")
}

func TestHistoryRecordsInOrder(t *testing.T) {
	s := newTestSubject(t)
	out := apply(t, s, &shift{Offset: 2}, &tag{})

	require.Equal(t, []AppliedTransform{
		{Name: "shift", Params: Params{"offset": 2.0}},
		{Name: "tag", Params: nil},
	}, out.History())
	require.Empty(t, s.History())

	transforms, err := out.AppliedTransforms(WithRegistry(testRegistry()))
	require.NoError(t, err)
	require.Len(t, transforms, 2)
	require.IsType(t, &shift{}, transforms[0])
	require.IsType(t, &tag{}, transforms[1])
	require.Equal(t, 2.0, transforms[0].(*shift).Offset)
}

func TestUnknownTransformIsFatal(t *testing.T) {
	s := newTestSubject(t)
	s.AddTransform(&shift{Offset: 1}, Params{"offset": 1.0})
	s.AddTransform(&tag{}, nil)

	registry := NewRegistry()
	registry.Register("tag", func(Params) (Transform, error) { return &tag{}, nil })

	_, err := s.AppliedTransforms(WithRegistry(registry))
	require.ErrorIs(t, err, ErrUnknownTransform)
	require.Contains(t, err.Error(), "shift")

	// filtering happens after lookup, so it cannot hide corrupt provenance
	_, err = s.AppliedTransforms(WithRegistry(registry), IgnoreIntensity())
	require.ErrorIs(t, err, ErrUnknownTransform)
}

func TestIgnoreIntensity(t *testing.T) {
	s := apply(t, newTestSubject(t), &shift{Offset: 1}, &tag{}, &shift{Offset: 2})

	transforms, err := s.AppliedTransforms(WithRegistry(testRegistry()), IgnoreIntensity())
	require.NoError(t, err)
	require.Len(t, transforms, 1)
	require.Equal(t, "tag", transforms[0].Name())
}

func TestImageInterpolationOverride(t *testing.T) {
	s := apply(t, newTestSubject(t), &regrid{Interpolation: image.Linear}, &shift{Offset: 1})

	transforms, err := s.AppliedTransforms(WithRegistry(testRegistry()), WithImageInterpolation(image.Nearest))
	require.NoError(t, err)
	require.Equal(t, image.Nearest, transforms[0].(*regrid).Interpolation)

	transforms, err = s.AppliedTransforms(WithRegistry(testRegistry()))
	require.NoError(t, err)
	require.Equal(t, image.Linear, transforms[0].(*regrid).Interpolation)
}

func TestComposedHistory(t *testing.T) {
	s := apply(t, newTestSubject(t), &shift{Offset: 1}, &shift{Offset: 2})

	history, err := s.ComposedHistory(WithRegistry(testRegistry()))
	require.NoError(t, err)
	require.Equal(t, 2, history.Len())

	replayed, err := history.Apply(newTestSubject(t))
	require.NoError(t, err)
	require.Equal(t, firstValue(t, s, "t1"), firstValue(t, replayed, "t1"))
	require.Equal(t, s.History(), replayed.History())
}

func TestInverseReversesOrder(t *testing.T) {
	s := apply(t, newTestSubject(t), &shift{Offset: 1}, &tag{}, &shift{Offset: 5})

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	inverse, err := s.InverseTransform(WithRegistry(testRegistry()), WithLogger(logger))
	require.NoError(t, err)
	require.Equal(t, 2, inverse.Len())
	require.Equal(t, -5.0, inverse.Transforms[0].(*shift).Offset)
	require.Equal(t, -1.0, inverse.Transforms[1].(*shift).Offset)
	require.Equal(t, 1, warnings(&buf))
	require.Contains(t, buf.String(), "transform=tag")
}

func TestInverseWithoutWarnings(t *testing.T) {
	s := apply(t, newTestSubject(t), &tag{})

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	inverse, err := s.InverseTransform(WithRegistry(testRegistry()), WithLogger(logger), WithWarnings(false))
	require.NoError(t, err)
	require.Zero(t, inverse.Len())
	require.Zero(t, warnings(&buf))

	_, err = s.InverseTransform(WithRegistry(testRegistry()), WithLogger(logger))
	require.NoError(t, err)
	// one for the skipped transform, one because nothing was invertible
	require.Equal(t, 2, warnings(&buf))
}

func TestApplyInverseTransform(t *testing.T) {
	s := newTestSubject(t)
	transformed := apply(t, s, &shift{Offset: 3})
	require.Equal(t, 4.0, firstValue(t, transformed, "t1"))
	require.Len(t, transformed.History(), 1)

	restored, err := transformed.ApplyInverseTransform(WithRegistry(testRegistry()))
	require.NoError(t, err)
	require.Empty(t, restored.History())
	require.InDelta(t, firstValue(t, s, "t1"), firstValue(t, restored, "t1"), 1e-12)

	// the input keeps its history
	require.Len(t, transformed.History(), 1)

	again, err := restored.ApplyInverseTransform(WithRegistry(testRegistry()))
	require.NoError(t, err)
	require.Empty(t, again.History())
	require.NotSame(t, restored, again)
}

func TestComposeApplyEmptyCopies(t *testing.T) {
	s := newTestSubject(t)
	out, err := NewCompose().Apply(s)
	require.NoError(t, err)
	require.NotSame(t, s, out)
	require.Equal(t, s.Keys(), out.Keys())
}

func TestRegistry(t *testing.T) {
	r := testRegistry()
	require.Equal(t, []string{"regrid", "shift", "tag"}, r.Names())

	require.Panics(t, func() {
		r.Register("tag", func(Params) (Transform, error) { return &tag{}, nil })
	})
	require.Panics(t, func() { r.Register("nil", nil) })

	_, err := r.New("missing", nil)
	require.ErrorIs(t, err, ErrUnknownTransform)
}

func TestClearHistory(t *testing.T) {
	s := apply(t, newTestSubject(t), &tag{})
	require.Len(t, s.History(), 1)
	s.ClearHistory()
	require.Empty(t, s.History())
}
