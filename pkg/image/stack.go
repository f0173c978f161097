package image

import (
	"errors"
	"fmt"
	stdimage "image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"mrisubject/internal/models"
)

// ErrNoSlices is returned when a directory holds no JPEG slices.
var ErrNoSlices = errors.New("image: no JPEG slices found")

// LoadSliceStack creates a lazily loaded single-channel image from a directory
// of JPEG slices. Slices are ordered by the number in their filename and
// stacked along the third axis; pixel values are scaled to [0, 1].
//
// Only the header of the first slice is read here. The pixel data is read on
// first access.
func LoadSliceStack(dir string, kind Type, spacing [3]float64) (*Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read slice directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".jpg" || ext == ".jpeg" {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSlices, dir)
	}

	stack := models.NewStack(dir, names, spacing[2])
	width, height, err := decodeDimensions(stack.Path(0))
	if err != nil {
		return nil, err
	}
	stack.Width, stack.Height = width, height

	shape := [4]int{1, width, height, stack.Depth()}
	affine := AffineFromSpacing(spacing, [3]float64{})
	return NewLazy(kind, shape, affine, func() (*Tensor, error) {
		return readStack(stack)
	})
}

func decodeDimensions(path string) (int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	cfg, err := jpeg.DecodeConfig(file)
	if err != nil {
		return 0, 0, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

func readStack(stack *models.Stack) (*Tensor, error) {
	t, err := NewTensor(1, [3]int{stack.Width, stack.Height, stack.Depth()})
	if err != nil {
		return nil, err
	}
	for z := range stack.Slices {
		img, err := decodeSlice(stack.Path(z))
		if err != nil {
			return nil, err
		}
		bounds := img.Bounds()
		if bounds.Dx() != stack.Width || bounds.Dy() != stack.Height {
			return nil, fmt.Errorf("%w: slice %s is %dx%d, expected %dx%d", ErrBadShape,
				stack.Slices[z].Filename, bounds.Dx(), bounds.Dy(), stack.Width, stack.Height)
		}
		for y := 0; y < stack.Height; y++ {
			for x := 0; x < stack.Width; x++ {
				r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				// 16-bit colour to [0, 1]
				t.Set(0, x, y, z, float64(r)/65535.0)
			}
		}
	}
	return t, nil
}

func decodeSlice(path string) (stdimage.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, err := jpeg.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
