package subject

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"mrisubject/pkg/image"
)

func TestConsistentSpatialShape(t *testing.T) {
	s := newTestSubject(t)
	require.NoError(t, s.CheckConsistentSpatialShape())

	shape, err := s.SpatialShape()
	require.NoError(t, err)
	require.Equal(t, [3]int{4, 4, 4}, shape)

	full, err := s.Shape()
	require.NoError(t, err)
	require.Equal(t, [4]int{1, 4, 4, 4}, full)
}

func TestInconsistentSpatialShape(t *testing.T) {
	s := newTestSubject(t)
	require.NoError(t, s.AddImage(unitImage(t, image.Label, [3]int{4, 4, 5}, 0), "brain"))

	err := s.CheckConsistentSpatialShape()
	require.ErrorIs(t, err, ErrInconsistent)

	var cerr *ConsistencyError
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, image.AttrSpatialShape, cerr.Attribute)
	require.Equal(t, []string{"t1", "brain"}, cerr.Names())
	require.Contains(t, err.Error(), "brain: (4, 4, 5)")
	require.Contains(t, err.Error(), "t1: (4, 4, 4)")

	_, err = s.SpatialShape()
	require.ErrorIs(t, err, ErrInconsistent)
}

func TestToleranceBoundary(t *testing.T) {
	a := newImage(t, image.Intensity, [3]int{2, 2, 2}, [3]float64{1, 1, 1}, [3]float64{0, 0, 0}, 0)
	b := newImage(t, image.Label, [3]int{2, 2, 2}, [3]float64{1, 1, 1}, [3]float64{0.5, 0, 0}, 0)
	s, err := New(Item{Name: "a", Value: a}, Item{Name: "b", Value: b})
	require.NoError(t, err)

	// exactly at the absolute tolerance
	require.NoError(t, s.CheckConsistentAttribute(image.AttrOrigin, 0, 0.5))
	require.ErrorIs(t, s.CheckConsistentAttribute(image.AttrOrigin, 0, 0.25), ErrInconsistent)

	// the relative term scales with the reference value
	c := newImage(t, image.Label, [3]int{2, 2, 2}, [3]float64{1, 1, 1}, [3]float64{100, 0, 0}, 0)
	d := newImage(t, image.Label, [3]int{2, 2, 2}, [3]float64{1, 1, 1}, [3]float64{101, 0, 0}, 0)
	s, err = New(Item{Name: "c", Value: c}, Item{Name: "d", Value: d})
	require.NoError(t, err)
	require.NoError(t, s.CheckConsistentAttribute(image.AttrOrigin, 0.01, 0))
	require.Error(t, s.CheckConsistentAttribute(image.AttrOrigin, 0.001, 0))
}

func TestReaderRoundTripSpacingIsConsistent(t *testing.T) {
	a := newImage(t, image.Intensity, [3]int{2, 2, 2}, [3]float64{0.8, 0.8, 2.50000000000001}, [3]float64{}, 0)
	b := newImage(t, image.Label, [3]int{2, 2, 2}, [3]float64{0.8, 0.8, 2.49999999999999}, [3]float64{}, 0)
	s, err := New(Item{Name: "image", Value: a}, Item{Name: "mask", Value: b})
	require.NoError(t, err)

	require.NoError(t, s.CheckConsistentAttribute(image.AttrSpacing, DefaultRelativeTolerance, DefaultAbsoluteTolerance))
	spacing, err := s.Spacing()
	require.NoError(t, err)
	require.InDelta(t, 2.5, spacing[2], 1e-9)

	// exact comparison would have failed
	require.Error(t, s.CheckConsistentAttribute(image.AttrSpacing, 0, 0))
}

func TestOrientationUsesExactComparison(t *testing.T) {
	s := newTestSubject(t)
	require.NoError(t, s.CheckConsistentOrientation())

	lps := unitImage(t, image.Label, [3]int{4, 4, 4}, 0)
	require.NoError(t, lps.SetAffine(mat.NewDense(4, 4, []float64{
		-1, 0, 0, 0,
		0, -1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})))
	require.NoError(t, s.AddImage(lps, "lps"))

	err := s.CheckConsistentOrientation()
	require.ErrorIs(t, err, ErrInconsistent)

	var cerr *ConsistencyError
	require.True(t, errors.As(err, &cerr))
	// every image is listed when values are not numeric
	require.Equal(t, []string{"t1", "seg", "lps"}, cerr.Names())
	require.Contains(t, err.Error(), "lps: LPS")

	require.ErrorIs(t, s.CheckConsistentAffine(), ErrInconsistent)
}

func TestCheckConsistentSpace(t *testing.T) {
	s := newTestSubject(t)
	require.NoError(t, s.CheckConsistentSpace())

	shifted := newImage(t, image.Label, [3]int{4, 4, 4}, [3]float64{1, 1, 1}, [3]float64{0, 0, 10}, 0)
	require.NoError(t, s.AddImage(shifted, "shifted"))

	err := s.CheckConsistentSpace()
	require.ErrorIs(t, err, ErrInconsistent)

	var serr *SpaceError
	require.True(t, errors.As(err, &serr))
	require.Contains(t, err.Error(), `"origin"`)
	require.Contains(t, err.Error(), "resample")
}

func TestSpacingChecksEveryImage(t *testing.T) {
	s := newTestSubject(t)
	coarse := newImage(t, image.Label, [3]int{4, 4, 4}, [3]float64{2, 2, 2}, [3]float64{}, 0)
	require.NoError(t, s.AddImage(coarse, "coarse"))

	_, err := s.Spacing()
	require.ErrorIs(t, err, ErrInconsistent)
}

func TestUnknownAttribute(t *testing.T) {
	s := newTestSubject(t)
	err := s.CheckConsistentAttribute("colour", 0, 0)
	require.ErrorIs(t, err, image.ErrUnknownAttribute)
}

func TestSingleImageIsAlwaysConsistent(t *testing.T) {
	s, err := New(Item{Name: "t1", Value: unitImage(t, image.Intensity, [3]int{3, 3, 3}, 0)})
	require.NoError(t, err)
	require.NoError(t, s.CheckConsistentSpace())
}

func TestIndexDeepCopies(t *testing.T) {
	s := newTestSubject(t)
	s.AddTransform(&shift{Offset: 1}, Params{"offset": 1.0})

	patch, err := s.Index(image.Span(1, 2), image.Span(0, 2), image.Span(2, 2))
	require.NoError(t, err)

	shape, err := patch.SpatialShape()
	require.NoError(t, err)
	require.Equal(t, [3]int{2, 2, 2}, shape)
	require.Equal(t, s.Keys(), patch.Keys())

	v, _ := patch.Get("age")
	require.Equal(t, 45, v)
	require.Len(t, patch.History(), 1)

	img, err := patch.Image("t1")
	require.NoError(t, err)
	require.Equal(t, [3]float64{1, 0, 2}, img.Origin())
	data, err := img.Data()
	require.NoError(t, err)
	for i := range data.Values {
		data.Values[i] = -7
	}

	orig, err := s.Image("t1")
	require.NoError(t, err)
	odata, err := orig.Data()
	require.NoError(t, err)
	for _, v := range odata.Values {
		require.Equal(t, 1.0, v)
	}

	patch.ClearHistory()
	require.Len(t, s.History(), 1)
}

func TestIndexRequiresSameSpatialShape(t *testing.T) {
	s := newTestSubject(t)
	require.NoError(t, s.AddImage(unitImage(t, image.Label, [3]int{5, 4, 4}, 0), "big"))

	_, err := s.Index(image.At(0))
	require.ErrorIs(t, err, ErrInconsistent)
	require.Contains(t, err.Error(), "same spatial shape")
}

func TestIndexOutOfBounds(t *testing.T) {
	s := newTestSubject(t)
	_, err := s.Index(image.Span(3, 4))
	require.ErrorIs(t, err, image.ErrOutOfBounds)
}
