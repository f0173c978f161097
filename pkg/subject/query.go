package subject

import "mrisubject/pkg/image"

// NamedImage is an image together with its key in the subject.
type NamedImage struct {
	Name  string
	Image *image.Image
}

type query struct {
	intensityOnly bool
	include       map[string]bool
	exclude       map[string]bool
}

// QueryOption filters the images returned by ImagesDict and Images.
type QueryOption func(*query)

// IntensityOnly keeps intensity images only.
func IntensityOnly() QueryOption {
	return func(q *query) { q.intensityOnly = true }
}

// Include keeps only the named images. Calling it with no names selects nothing.
func Include(names ...string) QueryOption {
	return func(q *query) {
		q.include = make(map[string]bool, len(names))
		for _, n := range names {
			q.include[n] = true
		}
	}
}

// Exclude drops the named images. It is applied after Include.
func Exclude(names ...string) QueryOption {
	return func(q *query) {
		q.exclude = make(map[string]bool, len(names))
		for _, n := range names {
			q.exclude[n] = true
		}
	}
}

// ImagesDict returns the images matching opts in insertion order.
// Without options every image is returned, whatever its type.
func (s *Subject) ImagesDict(opts ...QueryOption) []NamedImage {
	var q query
	for _, opt := range opts {
		opt(&q)
	}

	var out []NamedImage
	for _, name := range s.keys {
		img, ok := s.values[name].(*image.Image)
		if !ok {
			continue
		}
		if q.intensityOnly && !img.IsIntensity() {
			continue
		}
		if q.include != nil && !q.include[name] {
			continue
		}
		if q.exclude[name] {
			continue
		}
		out = append(out, NamedImage{Name: name, Image: img})
	}
	return out
}

// Images returns the images matching opts in insertion order.
func (s *Subject) Images(opts ...QueryOption) []*image.Image {
	named := s.ImagesDict(opts...)
	out := make([]*image.Image, len(named))
	for i, n := range named {
		out[i] = n.Image
	}
	return out
}

// ImageNames returns the keys of all images.
func (s *Subject) ImageNames() []string {
	named := s.ImagesDict()
	out := make([]string, len(named))
	for i, n := range named {
		out[i] = n.Name
	}
	return out
}

// FirstImage returns the first image in insertion order. It is the reference
// for every whole-subject geometric property.
func (s *Subject) FirstImage() *image.Image {
	return s.Images()[0]
}
