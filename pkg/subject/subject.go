// Package subject implements the Subject aggregate: an ordered collection of
// co-registered images and metadata with lazy geometric-consistency checks,
// structural indexing, and a history of applied transforms that can be
// reconstructed and inverted.
//
// A Subject is not safe for concurrent mutation. Concurrent readers are fine
// as long as nothing mutates the subject or its images.
package subject

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"

	"mrisubject/pkg/image"
)

// Item is a named entry used to build a subject in a given order.
type Item struct {
	Name  string
	Value any
}

// Cloner is implemented by metadata values that need their own deep copy when
// the subject is copied. Slices, maps and arrays are copied recursively
// without it; other pointers are shared.
type Cloner interface {
	Clone() any
}

// Subject is an ordered mapping from names to images or metadata, plus the
// history of transforms applied to it.
type Subject struct {
	keys    []string
	values  map[string]any
	applied []AppliedTransform
}

// New builds a subject from items, preserving their order.
// At least one item must be an *image.Image.
func New(items ...Item) (*Subject, error) {
	s := &Subject{values: make(map[string]any, len(items))}
	for _, item := range items {
		if err := checkName(item.Name); err != nil {
			return nil, err
		}
		if err := checkValue(item.Name, item.Value); err != nil {
			return nil, err
		}
		s.put(item.Name, item.Value)
	}
	if s.countImages() == 0 {
		return nil, ErrNoImages
	}
	return s, nil
}

// FromMap builds a subject from m with keys in sorted order.
func FromMap(m map[string]any) (*Subject, error) {
	keys := slices.Sorted(maps.Keys(m))
	items := make([]Item, len(keys))
	for i, k := range keys {
		items[i] = Item{Name: k, Value: m[k]}
	}
	return New(items...)
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// checkValue rejects a nil *image.Image, which would pass as an image.
func checkValue(name string, value any) error {
	if img, ok := value.(*image.Image); ok && img == nil {
		return fmt.Errorf("%w: nil image for %q", ErrNotImage, name)
	}
	return nil
}

func (s *Subject) put(name string, value any) {
	if _, ok := s.values[name]; !ok {
		s.keys = append(s.keys, name)
	}
	s.values[name] = value
}

func (s *Subject) countImages() int {
	n := 0
	for _, v := range s.values {
		if _, ok := v.(*image.Image); ok {
			n++
		}
	}
	return n
}

// Len returns the number of images. Metadata entries are not counted.
func (s *Subject) Len() int { return s.countImages() }

// Keys returns all names in insertion order.
func (s *Subject) Keys() []string { return slices.Clone(s.keys) }

// Has reports whether name is present.
func (s *Subject) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Get returns the image or metadata stored under name.
func (s *Subject) Get(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Image returns the image stored under name.
func (s *Subject) Image(name string) (*image.Image, error) {
	v, ok := s.values[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	img, ok := v.(*image.Image)
	if !ok {
		return nil, fmt.Errorf("%w: %q holds %T", ErrNotImage, name, v)
	}
	return img, nil
}

// All iterates over names and values in insertion order.
func (s *Subject) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, k := range s.keys {
			if !yield(k, s.values[k]) {
				return
			}
		}
	}
}

// Set stores value under name, keeping the position of an existing key.
// Replacing the last image with metadata is rejected.
func (s *Subject) Set(name string, value any) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := checkValue(name, value); err != nil {
		return err
	}
	if _, isImage := value.(*image.Image); !isImage && s.isOnlyImage(name) {
		return ErrNoImages
	}
	s.put(name, value)
	return nil
}

// Delete removes name. Removing the last image is rejected.
func (s *Subject) Delete(name string) error {
	if _, ok := s.values[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if s.isOnlyImage(name) {
		return ErrNoImages
	}
	delete(s.values, name)
	s.keys = slices.DeleteFunc(s.keys, func(k string) bool { return k == name })
	return nil
}

func (s *Subject) isOnlyImage(name string) bool {
	if _, ok := s.values[name].(*image.Image); !ok {
		return false
	}
	return s.countImages() == 1
}

// AddImage stores img under name.
func (s *Subject) AddImage(img *image.Image, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := checkValue(name, img); err != nil {
		return err
	}
	s.put(name, img)
	return nil
}

// RemoveImage removes the image stored under name.
func (s *Subject) RemoveImage(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if _, err := s.Image(name); err != nil {
		return err
	}
	return s.Delete(name)
}

// Clone returns a deep copy: images, metadata and history are independent.
func (s *Subject) Clone() *Subject {
	clone := &Subject{
		keys:    slices.Clone(s.keys),
		values:  make(map[string]any, len(s.values)),
		applied: make([]AppliedTransform, len(s.applied)),
	}
	for k, v := range s.values {
		clone.values[k] = deepCopy(v)
	}
	for i, record := range s.applied {
		clone.applied[i] = AppliedTransform{Name: record.Name, Params: record.Params.Clone()}
	}
	return clone
}

// Load reads the payload of every image.
func (s *Subject) Load() error {
	for _, named := range s.ImagesDict() {
		if err := named.Image.Load(); err != nil {
			return fmt.Errorf("load %q: %w", named.Name, err)
		}
	}
	return nil
}

// Unload releases image payloads, keeping metadata.
func (s *Subject) Unload() {
	for _, img := range s.Images() {
		img.Unload()
	}
}

// Is2D reports whether every image is 2D.
func (s *Subject) Is2D() bool {
	for _, img := range s.Images() {
		if !img.Is2D() {
			return false
		}
	}
	return true
}

func (s *Subject) String() string {
	return fmt.Sprintf("Subject(Keys: (%s); images: %d)", strings.Join(s.keys, ", "), s.Len())
}
