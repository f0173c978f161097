package image

import (
	"fmt"
)

// Tensor is a dense channel-first 4D array of voxel values.
//
// Values are stored in row-major order: the channel index varies slowest and
// the third spatial axis varies fastest.
type Tensor struct {
	// Channels is the number of channels (first dimension)
	Channels int

	// Spatial holds the extent of the three spatial axes
	Spatial [3]int

	// Values is the flat voxel buffer of length Channels*Spatial[0]*Spatial[1]*Spatial[2]
	Values []float64
}

// NewTensor allocates a zero-filled tensor with the given shape.
func NewTensor(channels int, spatial [3]int) (*Tensor, error) {
	if channels <= 0 || spatial[0] <= 0 || spatial[1] <= 0 || spatial[2] <= 0 {
		return nil, fmt.Errorf("%w: channels=%d spatial=%v", ErrBadShape, channels, spatial)
	}
	return &Tensor{
		Channels: channels,
		Spatial:  spatial,
		Values:   make([]float64, channels*spatial[0]*spatial[1]*spatial[2]),
	}, nil
}

// FromValues wraps an existing buffer, checking that its length matches the shape.
func FromValues(channels int, spatial [3]int, values []float64) (*Tensor, error) {
	t := &Tensor{Channels: channels, Spatial: spatial, Values: values}
	if channels <= 0 || spatial[0] <= 0 || spatial[1] <= 0 || spatial[2] <= 0 {
		return nil, fmt.Errorf("%w: channels=%d spatial=%v", ErrBadShape, channels, spatial)
	}
	if len(values) != t.Len() {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrBadShape, len(values), t.Shape())
	}
	return t, nil
}

// Ones returns a tensor filled with 1.
func Ones(channels int, spatial [3]int) (*Tensor, error) {
	t, err := NewTensor(channels, spatial)
	if err != nil {
		return nil, err
	}
	for i := range t.Values {
		t.Values[i] = 1
	}
	return t, nil
}

// Shape returns (channels, x, y, z).
func (t *Tensor) Shape() [4]int {
	return [4]int{t.Channels, t.Spatial[0], t.Spatial[1], t.Spatial[2]}
}

// Len is the number of voxels across all channels.
func (t *Tensor) Len() int {
	return t.Channels * t.Spatial[0] * t.Spatial[1] * t.Spatial[2]
}

func (t *Tensor) offset(c, i, j, k int) int {
	return ((c*t.Spatial[0]+i)*t.Spatial[1]+j)*t.Spatial[2] + k
}

// At returns the value at channel c and spatial index (i, j, k).
func (t *Tensor) At(c, i, j, k int) float64 {
	return t.Values[t.offset(c, i, j, k)]
}

// Set stores v at channel c and spatial index (i, j, k).
func (t *Tensor) Set(c, i, j, k int, v float64) {
	t.Values[t.offset(c, i, j, k)] = v
}

// Clone returns an independent copy.
func (t *Tensor) Clone() *Tensor {
	values := make([]float64, len(t.Values))
	copy(values, t.Values)
	return &Tensor{Channels: t.Channels, Spatial: t.Spatial, Values: values}
}

// Channel returns a copy of the values of channel c.
func (t *Tensor) Channel(c int) []float64 {
	n := t.Spatial[0] * t.Spatial[1] * t.Spatial[2]
	out := make([]float64, n)
	copy(out, t.Values[c*n:(c+1)*n])
	return out
}

// crop copies the box [start, start+size) on every channel.
func (t *Tensor) crop(start, size [3]int) *Tensor {
	out := &Tensor{Channels: t.Channels, Spatial: size}
	out.Values = make([]float64, out.Len())
	for c := 0; c < t.Channels; c++ {
		for i := 0; i < size[0]; i++ {
			for j := 0; j < size[1]; j++ {
				src := t.offset(c, start[0]+i, start[1]+j, start[2])
				dst := out.offset(c, i, j, 0)
				copy(out.Values[dst:dst+size[2]], t.Values[src:src+size[2]])
			}
		}
	}
	return out
}
