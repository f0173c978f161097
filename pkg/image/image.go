// Package image provides the spatial image entity handled by subjects:
// a channel-first voxel tensor together with the affine that maps voxel
// indices to world coordinates.
package image

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Type tags what an image's voxels represent.
type Type string

const (
	// Intensity images hold continuous values (e.g. MRI signal).
	Intensity Type = "intensity"

	// Label images hold discrete values (segmentations, masks).
	Label Type = "label"
)

// Interpolation selects how voxel values are estimated between grid points.
type Interpolation string

const (
	Nearest Interpolation = "nearest"
	Linear  Interpolation = "linear"
)

// ParseInterpolation converts a case-insensitive name to an Interpolation.
func ParseInterpolation(name string) (Interpolation, error) {
	switch Interpolation(strings.ToLower(strings.TrimSpace(name))) {
	case Nearest:
		return Nearest, nil
	case Linear:
		return Linear, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownInterpolation, name)
	}
}

// Loader reads the voxel payload of a lazily loaded image.
type Loader func() (*Tensor, error)

// Image is a typed voxel tensor with spatial metadata.
//
// The shape and affine are always available; the payload may be released with
// Unload and read back through the loader on next access.
type Image struct {
	kind   Type
	shape  [4]int
	affine *mat.Dense
	data   *Tensor
	loader Loader
}

// New creates an image that holds data in memory.
// A nil affine means the identity.
func New(kind Type, data *Tensor, affine mat.Matrix) (*Image, error) {
	if data == nil {
		return nil, ErrNoData
	}
	if len(data.Values) != data.Len() || data.Len() == 0 {
		return nil, fmt.Errorf("%w: %v", ErrBadShape, data.Shape())
	}
	a, err := copyAffine(affine)
	if err != nil {
		return nil, err
	}
	return &Image{kind: kind, shape: data.Shape(), affine: a, data: data}, nil
}

// NewLazy creates an image whose payload is read by loader on first access.
func NewLazy(kind Type, shape [4]int, affine mat.Matrix, loader Loader) (*Image, error) {
	for _, n := range shape {
		if n <= 0 {
			return nil, fmt.Errorf("%w: %v", ErrBadShape, shape)
		}
	}
	if loader == nil {
		return nil, ErrNoData
	}
	a, err := copyAffine(affine)
	if err != nil {
		return nil, err
	}
	return &Image{kind: kind, shape: shape, affine: a, loader: loader}, nil
}

func copyAffine(affine mat.Matrix) (*mat.Dense, error) {
	if affine == nil {
		return IdentityAffine(), nil
	}
	if err := checkAffine(affine); err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(affine), nil
}

// Type returns the image type tag.
func (img *Image) Type() Type { return img.kind }

// IsIntensity reports whether the image holds intensity values.
func (img *Image) IsIntensity() bool { return img.kind == Intensity }

// Shape returns (channels, x, y, z).
func (img *Image) Shape() [4]int { return img.shape }

// SpatialShape returns (x, y, z).
func (img *Image) SpatialShape() [3]int {
	return [3]int{img.shape[1], img.shape[2], img.shape[3]}
}

// NumChannels returns the size of the channel dimension.
func (img *Image) NumChannels() int { return img.shape[0] }

// Is2D reports whether the third spatial axis has a single voxel.
func (img *Image) Is2D() bool { return img.shape[3] == 1 }

// Affine returns a copy of the voxel-to-world matrix.
func (img *Image) Affine() *mat.Dense { return mat.DenseCopyOf(img.affine) }

// SetAffine replaces the voxel-to-world matrix.
func (img *Image) SetAffine(affine mat.Matrix) error {
	a, err := copyAffine(affine)
	if err != nil {
		return err
	}
	img.affine = a
	return nil
}

// Spacing returns the voxel size along each axis in mm.
func (img *Image) Spacing() [3]float64 { return spacingOf(img.affine) }

// Origin returns the world position of voxel (0, 0, 0).
func (img *Image) Origin() [3]float64 { return originOf(img.affine) }

// Direction returns the row-major 3x3 direction cosines.
func (img *Image) Direction() [9]float64 { return directionOf(img.affine) }

// Orientation returns the anatomical axis codes, e.g. "RAS".
func (img *Image) Orientation() string { return orientationOf(img.affine) }

// IsLoaded reports whether the payload is resident.
func (img *Image) IsLoaded() bool { return img.data != nil }

// Load reads the payload if it is not resident yet.
func (img *Image) Load() error {
	if img.data != nil {
		return nil
	}
	if img.loader == nil {
		return ErrNoData
	}
	data, err := img.loader()
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}
	if data.Shape() != img.shape {
		return fmt.Errorf("%w: loader returned %v, expected %v", ErrBadShape, data.Shape(), img.shape)
	}
	img.data = data
	return nil
}

// Unload releases the payload while keeping metadata.
// Images without a loader keep their data since it could not be read back.
func (img *Image) Unload() {
	if img.loader != nil {
		img.data = nil
	}
}

// Data returns the payload, loading it first if needed.
// The returned tensor is shared with the image.
func (img *Image) Data() (*Tensor, error) {
	if err := img.Load(); err != nil {
		return nil, err
	}
	return img.data, nil
}

// SetData replaces the payload. The shape follows the new tensor and the
// loader is dropped, so the new payload survives Unload.
func (img *Image) SetData(data *Tensor) error {
	if data == nil {
		return ErrNoData
	}
	if len(data.Values) != data.Len() || data.Len() == 0 {
		return fmt.Errorf("%w: %v", ErrBadShape, data.Shape())
	}
	img.data = data
	img.shape = data.Shape()
	img.loader = nil
	return nil
}

// Clone returns a deep copy. The loader is shared since it is stateless.
func (img *Image) Clone() *Image {
	clone := &Image{
		kind:   img.kind,
		shape:  img.shape,
		affine: mat.DenseCopyOf(img.affine),
		loader: img.loader,
	}
	if img.data != nil {
		clone.data = img.data.Clone()
	}
	return clone
}

func (img *Image) String() string {
	return fmt.Sprintf("Image(type: %s; shape: %v; spacing: %.2f; orientation: %s)",
		img.kind, img.shape, img.Spacing(), img.Orientation())
}
