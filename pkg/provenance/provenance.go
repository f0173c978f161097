// Package provenance stores the transform history of a subject as YAML, so
// that a processed subject can be traced and its transforms rebuilt later.
package provenance

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"mrisubject/pkg/subject"
)

// Version of the file layout written by Encode.
const Version = 1

// ErrUnsupportedVersion is returned for files written by a newer layout.
var ErrUnsupportedVersion = errors.New("provenance: unsupported file version")

// Record is the on-disk form of a subject history.
type Record struct {
	Version    int                        `yaml:"version"`
	Subject    string                     `yaml:"subject,omitempty"`
	Created    time.Time                  `yaml:"created"`
	Transforms []subject.AppliedTransform `yaml:"transforms"`
}

// New captures the history of s under the given subject label.
func New(label string, s *subject.Subject) *Record {
	return &Record{
		Version:    Version,
		Subject:    label,
		Created:    time.Now().UTC(),
		Transforms: s.History(),
	}
}

// Encode writes r as YAML.
func Encode(w io.Writer, r *Record) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode provenance: %w", err)
	}
	return enc.Close()
}

// Decode reads a record written by Encode.
func Decode(rd io.Reader) (*Record, error) {
	var r Record
	if err := yaml.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode provenance: %w", err)
	}
	if r.Version > Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, r.Version)
	}
	return &r, nil
}

// WriteFile writes r to path, creating parent directories as needed.
func WriteFile(path string, r *Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create provenance directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create provenance file: %w", err)
	}
	if err := Encode(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile reads a record from path.
func ReadFile(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open provenance file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Rebuild reconstructs the recorded transforms, in application order.
func (r *Record) Rebuild(opts ...subject.HistoryOption) ([]subject.Transform, error) {
	return subject.Reconstruct(r.Transforms, opts...)
}

// Replay applies the recorded transforms to s, which then carries the same
// history as the subject the record was taken from.
func (r *Record) Replay(s *subject.Subject, opts ...subject.HistoryOption) (*subject.Subject, error) {
	transforms, err := r.Rebuild(opts...)
	if err != nil {
		return nil, err
	}
	out, err := subject.NewCompose(transforms...).Apply(s)
	if err != nil {
		return nil, fmt.Errorf("replay provenance: %w", err)
	}
	return out, nil
}
