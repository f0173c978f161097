package image

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// IdentityAffine returns a 4x4 identity matrix (1 mm isotropic voxels at the origin).
func IdentityAffine() *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
}

// AffineFromSpacing builds a diagonal affine with the given voxel spacing and origin.
func AffineFromSpacing(spacing, origin [3]float64) *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		spacing[0], 0, 0, origin[0],
		0, spacing[1], 0, origin[1],
		0, 0, spacing[2], origin[2],
		0, 0, 0, 1,
	})
}

func checkAffine(affine mat.Matrix) error {
	r, c := affine.Dims()
	if r != 4 || c != 4 {
		return fmt.Errorf("%w: got %dx%d", ErrBadAffine, r, c)
	}
	return nil
}

// ShiftedAffine returns a copy of affine whose origin is moved to the world
// position of voxel index offset.
func ShiftedAffine(affine mat.Matrix, offset [3]float64) *mat.Dense {
	voxel := mat.NewVecDense(4, []float64{offset[0], offset[1], offset[2], 1})
	var world mat.VecDense
	world.MulVec(affine, voxel)

	shifted := mat.DenseCopyOf(affine)
	for i := 0; i < 3; i++ {
		shifted.Set(i, 3, world.AtVec(i))
	}
	return shifted
}

// ScaledAffine returns a copy of affine whose voxel axes are scaled by factors.
// The origin is left untouched.
func ScaledAffine(affine mat.Matrix, factors [3]float64) *mat.Dense {
	scale := mat.NewDiagDense(4, []float64{factors[0], factors[1], factors[2], 1})
	var scaled mat.Dense
	scaled.Mul(affine, scale)
	return &scaled
}

func spacingOf(affine mat.Matrix) [3]float64 {
	var spacing [3]float64
	col := make([]float64, 4)
	for c := 0; c < 3; c++ {
		mat.Col(col, c, affine)
		spacing[c] = floats.Norm(col[:3], 2)
	}
	return spacing
}

func originOf(affine mat.Matrix) [3]float64 {
	return [3]float64{affine.At(0, 3), affine.At(1, 3), affine.At(2, 3)}
}

// directionOf returns the row-major 3x3 rotation part of the affine, with
// columns normalised by the voxel spacing.
func directionOf(affine mat.Matrix) [9]float64 {
	spacing := spacingOf(affine)
	var direction [9]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if spacing[c] == 0 {
				continue
			}
			direction[r*3+c] = affine.At(r, c) / spacing[c]
		}
	}
	return direction
}

// orientationOf returns the closest anatomical axis codes for each voxel axis
// of a RAS+ world affine, e.g. "RAS" or "LPS".
func orientationOf(affine mat.Matrix) string {
	positive := [3]byte{'R', 'A', 'S'}
	negative := [3]byte{'L', 'P', 'I'}
	direction := directionOf(affine)

	codes := make([]byte, 3)
	for c := 0; c < 3; c++ {
		best, bestAbs := 0, -1.0
		for r := 0; r < 3; r++ {
			if v := math.Abs(direction[r*3+c]); v > bestAbs {
				best, bestAbs = r, v
			}
		}
		if direction[best*3+c] >= 0 {
			codes[c] = positive[best]
		} else {
			codes[c] = negative[best]
		}
	}
	return string(codes)
}

func flatten(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}
