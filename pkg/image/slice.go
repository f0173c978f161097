package image

import "fmt"

// Range is a half-open interval [Start, Stop) along one spatial axis.
type Range struct {
	Start, Stop int
}

// At selects the single voxel plane i. The axis is kept with extent 1.
func At(i int) Range { return Range{Start: i, Stop: i + 1} }

// Span selects size voxels starting at start.
func Span(start, size int) Range { return Range{Start: start, Stop: start + size} }

// resolve expands ranges to a start/size pair per spatial axis.
// Missing trailing ranges cover the full extent.
func resolve(spatial [3]int, ranges []Range) (start, size [3]int, err error) {
	if len(ranges) > 3 {
		return start, size, fmt.Errorf("%w: %d ranges for 3 spatial axes", ErrOutOfBounds, len(ranges))
	}
	for axis := 0; axis < 3; axis++ {
		r := Range{Start: 0, Stop: spatial[axis]}
		if axis < len(ranges) {
			r = ranges[axis]
		}
		if r.Start < 0 || r.Stop > spatial[axis] || r.Start >= r.Stop {
			return start, size, fmt.Errorf("%w: axis %d range [%d, %d) for extent %d",
				ErrOutOfBounds, axis, r.Start, r.Stop, spatial[axis])
		}
		start[axis] = r.Start
		size[axis] = r.Stop - r.Start
	}
	return start, size, nil
}

// Slice returns a new image cropped to ranges on the spatial axes.
// The result owns its data, and its origin is moved so that every voxel keeps
// its world position.
func (img *Image) Slice(ranges ...Range) (*Image, error) {
	start, size, err := resolve(img.SpatialShape(), ranges)
	if err != nil {
		return nil, err
	}
	data, err := img.Data()
	if err != nil {
		return nil, err
	}
	cropped := data.crop(start, size)
	offset := [3]float64{float64(start[0]), float64(start[1]), float64(start[2])}
	return &Image{
		kind:   img.kind,
		shape:  cropped.Shape(),
		affine: ShiftedAffine(img.affine, offset),
		data:   cropped,
	}, nil
}
