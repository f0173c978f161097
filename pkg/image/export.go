package image

import (
	"fmt"
	stdimage "image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
)

// Plane extracts one 2D plane of channel c with the given axis held at
// position. Voxel values are clamped to [0, 1] and scaled to 8-bit grey.
// Fixing axis 2 gives an image of n0 x n1 pixels, matching LoadSliceStack.
func (img *Image) Plane(c, axis, position int) (*stdimage.Gray, error) {
	data, err := img.Data()
	if err != nil {
		return nil, err
	}
	if c < 0 || c >= data.Channels {
		return nil, fmt.Errorf("%w: channel %d of %d", ErrOutOfBounds, c, data.Channels)
	}
	if axis < 0 || axis > 2 {
		return nil, fmt.Errorf("%w: axis %d", ErrOutOfBounds, axis)
	}
	if position < 0 || position >= data.Spatial[axis] {
		return nil, fmt.Errorf("%w: position %d exceeds extent %d on axis %d",
			ErrOutOfBounds, position, data.Spatial[axis], axis)
	}

	// the two free axes, in order, become x and y
	free := make([]int, 0, 2)
	for a := 0; a < 3; a++ {
		if a != axis {
			free = append(free, a)
		}
	}
	plane := stdimage.NewGray(stdimage.Rect(0, 0, data.Spatial[free[0]], data.Spatial[free[1]]))
	var idx [3]int
	idx[axis] = position
	for x := 0; x < data.Spatial[free[0]]; x++ {
		for y := 0; y < data.Spatial[free[1]]; y++ {
			idx[free[0]], idx[free[1]] = x, y
			v := math.Min(math.Max(data.At(c, idx[0], idx[1], idx[2]), 0), 1)
			plane.SetGray(x, y, color.Gray{Y: uint8(math.Round(v * 255))})
		}
	}
	return plane, nil
}

// WriteSliceStack saves the first channel of img as a sequence of JPEG
// slices along the third axis, named so that LoadSliceStack reads them back
// in order.
func WriteSliceStack(img *Image, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create slice directory: %w", err)
	}
	depth := img.SpatialShape()[2]
	for z := 0; z < depth; z++ {
		plane, err := img.Plane(0, 2, z)
		if err != nil {
			return err
		}
		filename := filepath.Join(dir, fmt.Sprintf("slice_%03d.jpg", z+1))
		if err := saveSlice(plane, filename); err != nil {
			return err
		}
	}
	return nil
}

func saveSlice(plane stdimage.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(file, plane, &jpeg.Options{Quality: 95}); err != nil {
		file.Close()
		return fmt.Errorf("encode %s: %w", filename, err)
	}
	return file.Close()
}
