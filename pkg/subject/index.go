package subject

import (
	"fmt"

	"mrisubject/pkg/image"
)

// Index returns a deep copy of the subject in which every image is cropped
// to ranges. All images must share their spatial shape.
//
// Use Get for plain lookups by name.
func (s *Subject) Index(ranges ...image.Range) (*Subject, error) {
	if err := s.CheckConsistentSpatialShape(); err != nil {
		return nil, fmt.Errorf("to use indexing, all images in the subject must have the same spatial shape: %w", err)
	}
	copied := s.Clone()
	for _, named := range copied.ImagesDict() {
		sliced, err := named.Image.Slice(ranges...)
		if err != nil {
			return nil, fmt.Errorf("index %q: %w", named.Name, err)
		}
		copied.values[named.Name] = sliced
	}
	return copied, nil
}
