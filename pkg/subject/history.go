package subject

import (
	"fmt"
	"log/slog"

	"mrisubject/pkg/image"
)

type historyOptions struct {
	ignoreIntensity bool
	interpolation   image.Interpolation
	registry        *Registry
	warn            bool
	logger          *slog.Logger
}

// HistoryOption configures history reconstruction and inversion.
type HistoryOption func(*historyOptions)

// IgnoreIntensity drops transforms that only alter intensities.
func IgnoreIntensity() HistoryOption {
	return func(o *historyOptions) { o.ignoreIntensity = true }
}

// WithImageInterpolation overrides the interpolation of every rebuilt
// transform that resamples images.
func WithImageInterpolation(i image.Interpolation) HistoryOption {
	return func(o *historyOptions) { o.interpolation = i }
}

// WithRegistry looks transform names up in r instead of DefaultRegistry.
func WithRegistry(r *Registry) HistoryOption {
	return func(o *historyOptions) { o.registry = r }
}

// WithWarnings toggles warnings about transforms skipped during inversion.
// They are on by default.
func WithWarnings(warn bool) HistoryOption {
	return func(o *historyOptions) { o.warn = warn }
}

// WithLogger sets the logger used for inversion warnings.
func WithLogger(l *slog.Logger) HistoryOption {
	return func(o *historyOptions) { o.logger = l }
}

func gatherHistoryOptions(opts []HistoryOption) historyOptions {
	o := historyOptions{registry: DefaultRegistry, warn: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = DefaultRegistry
	}
	return o
}

// Reconstruct rebuilds transforms from history records. An unregistered name
// means the provenance is corrupt and fails the whole reconstruction.
func Reconstruct(records []AppliedTransform, opts ...HistoryOption) ([]Transform, error) {
	o := gatherHistoryOptions(opts)
	transforms := make([]Transform, 0, len(records))
	for i, record := range records {
		t, err := o.registry.New(record.Name, record.Params)
		if err != nil {
			return nil, fmt.Errorf("history entry %d: %w", i, err)
		}
		if o.ignoreIntensity && isIntensity(t) {
			continue
		}
		if o.interpolation != "" {
			if it, ok := t.(Interpolating); ok {
				it.SetImageInterpolation(o.interpolation)
			}
		}
		transforms = append(transforms, t)
	}
	return transforms, nil
}

// AppliedTransforms rebuilds the transforms recorded in the history.
func (s *Subject) AppliedTransforms(opts ...HistoryOption) ([]Transform, error) {
	return Reconstruct(s.applied, opts...)
}

// ComposedHistory wraps the rebuilt history in a Compose.
func (s *Subject) ComposedHistory(opts ...HistoryOption) (*Compose, error) {
	transforms, err := s.AppliedTransforms(opts...)
	if err != nil {
		return nil, err
	}
	o := gatherHistoryOptions(opts)
	return &Compose{Transforms: transforms, Logger: o.logger}, nil
}

// InverseTransform returns the inverse of the recorded history: the inverse
// of each invertible step, last step first.
func (s *Subject) InverseTransform(opts ...HistoryOption) (*Compose, error) {
	history, err := s.ComposedHistory(opts...)
	if err != nil {
		return nil, err
	}
	return history.Inverse(gatherHistoryOptions(opts).warn)
}

// ApplyInverseTransform undoes the recorded history on a copy of s. The
// result has an empty history, so repeated inversion does not grow it.
func (s *Subject) ApplyInverseTransform(opts ...HistoryOption) (*Subject, error) {
	inverse, err := s.InverseTransform(opts...)
	if err != nil {
		return nil, err
	}
	out, err := inverse.Apply(s)
	if err != nil {
		return nil, fmt.Errorf("apply inverse: %w", err)
	}
	out.ClearHistory()
	return out, nil
}
