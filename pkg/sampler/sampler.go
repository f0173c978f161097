// Package sampler extracts fixed-size patches from subjects.
package sampler

import (
	"errors"
	"fmt"

	"mrisubject/pkg/image"
	"mrisubject/pkg/subject"
)

// LocationKey is the metadata key under which a patch stores its box as
// (i, j, k, i+p0, j+p1, k+p2) in voxels of the source volume.
const LocationKey = "location"

var (
	// ErrInvalidPatchSize is returned for patch sizes that are not positive.
	ErrInvalidPatchSize = errors.New("sampler: patch size must be positive on every axis")

	// ErrPatchTooLarge is returned when a patch does not fit in the volume.
	ErrPatchTooLarge = errors.New("sampler: patch size larger than subject spatial shape")
)

// PatchSampler crops subjects to boxes of a fixed size.
type PatchSampler struct {
	patchSize [3]int
}

// NewPatchSampler returns a sampler for patches of the given size in voxels.
func NewPatchSampler(size [3]int) (*PatchSampler, error) {
	for _, n := range size {
		if n <= 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPatchSize, size)
		}
	}
	return &PatchSampler{patchSize: size}, nil
}

// PatchSize returns the patch size in voxels.
func (p *PatchSampler) PatchSize() [3]int { return p.patchSize }

// ExtractPatch returns a copy of s with every image cropped to the box that
// starts at index. Images of the patch keep the spacing and direction of the
// source; only the origin moves.
func (p *PatchSampler) ExtractPatch(s *subject.Subject, index [3]int) (*subject.Subject, error) {
	patch, err := s.Index(
		image.Span(index[0], p.patchSize[0]),
		image.Span(index[1], p.patchSize[1]),
		image.Span(index[2], p.patchSize[2]),
	)
	if err != nil {
		return nil, fmt.Errorf("extract patch at %v: %w", index, err)
	}
	location := [6]int{
		index[0], index[1], index[2],
		index[0] + p.patchSize[0], index[1] + p.patchSize[1], index[2] + p.patchSize[2],
	}
	if err := patch.Set(LocationKey, location); err != nil {
		return nil, err
	}
	return patch, nil
}

// validRange returns the number of valid anchors per axis.
func (p *PatchSampler) validRange(s *subject.Subject) ([3]int, error) {
	var valid [3]int
	shape, err := s.SpatialShape()
	if err != nil {
		return valid, err
	}
	for axis := range valid {
		valid[axis] = shape[axis] - p.patchSize[axis] + 1
		if valid[axis] <= 0 {
			return valid, fmt.Errorf("%w: patch %v, subject %v", ErrPatchTooLarge, p.patchSize, shape)
		}
	}
	return valid, nil
}
