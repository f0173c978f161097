package subject

import (
	"errors"
	"fmt"
	"strings"

	"mrisubject/pkg/image"
)

// Every sentinel is prefixed with "subject:" so failures are easy to grep in
// logs. Match them with errors.Is; typed errors below unwrap to them.
var (
	// ErrNoImages is returned when a subject would hold no image.
	ErrNoImages = errors.New("subject: a subject without images cannot be created")

	// ErrInvalidName is returned for empty or blank keys.
	ErrInvalidName = errors.New("subject: invalid name")

	// ErrNotFound is returned when a key is not present.
	ErrNotFound = errors.New("subject: name not found")

	// ErrNotImage is returned when a key holds metadata where an image was expected.
	ErrNotImage = errors.New("subject: value is not an image")

	// ErrInconsistent is returned when images disagree on a checked attribute.
	ErrInconsistent = errors.New("subject: inconsistent attribute")

	// ErrUnknownTransform is returned when history names an unregistered transform.
	ErrUnknownTransform = errors.New("subject: unknown transform")
)

// NamedValue pairs an image name with one of its attribute values.
type NamedValue struct {
	Name  string
	Value image.Value
}

// ConsistencyError reports the images whose attribute values disagree.
type ConsistencyError struct {
	Attribute image.Attribute
	Values    []NamedValue
}

func (e *ConsistencyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "more than one value for %q found in subject images:", string(e.Attribute))
	for _, v := range e.Values {
		fmt.Fprintf(&b, "\n  %s: %s", v.Name, v.Value)
	}
	return b.String()
}

func (e *ConsistencyError) Unwrap() error { return ErrInconsistent }

// Names lists the images involved in the mismatch.
func (e *ConsistencyError) Names() []string {
	names := make([]string, len(e.Values))
	for i, v := range e.Values {
		names[i] = v.Name
	}
	return names
}

// SpaceError is returned by CheckConsistentSpace. It wraps the failed check
// with guidance on how to bring the images into a common space.
type SpaceError struct {
	Err error
}

const spaceRemediation = "some images in the subject are not in the same space; " +
	"reorient them to a common (e.g. RAS) orientation and resample them onto " +
	"the grid of a reference image before combining them"

func (e *SpaceError) Error() string {
	return e.Err.Error() + "\n" + spaceRemediation
}

func (e *SpaceError) Unwrap() error { return e.Err }
