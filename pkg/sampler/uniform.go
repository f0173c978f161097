package sampler

import (
	"iter"
	"log/slog"

	"golang.org/x/exp/rand"

	"mrisubject/internal/random"
	"mrisubject/pkg/image"
	"mrisubject/pkg/metrics"
	"mrisubject/pkg/subject"
)

// Unbounded asks Patches for an infinite stream.
const Unbounded = -1

// Option configures a UniformSampler.
type Option func(*uniformOptions)

type uniformOptions struct {
	seed    uint64
	metrics *metrics.Sampler
	logger  *slog.Logger
}

// WithSeed fixes the random stream. Zero picks a fresh seed.
func WithSeed(seed uint64) Option {
	return func(o *uniformOptions) { o.seed = seed }
}

// WithMetrics records every extracted patch on m.
func WithMetrics(m *metrics.Sampler) Option {
	return func(o *uniformOptions) { o.metrics = m }
}

// WithLogger sets the logger used for stream diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *uniformOptions) { o.logger = l }
}

// UniformSampler draws patch anchors uniformly from every position that keeps
// the patch inside the volume.
//
// A UniformSampler owns a random generator and is not safe for concurrent use.
type UniformSampler struct {
	*PatchSampler

	rng     *rand.Rand
	seed    uint64
	metrics *metrics.Sampler
	logger  *slog.Logger
}

// NewUniformSampler returns a uniform sampler for patches of size voxels.
func NewUniformSampler(size [3]int, opts ...Option) (*UniformSampler, error) {
	base, err := NewPatchSampler(size)
	if err != nil {
		return nil, err
	}
	var o uniformOptions
	for _, opt := range opts {
		opt(&o)
	}
	seed, err := random.SeedOrNew(o.seed)
	if err != nil {
		return nil, err
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &UniformSampler{
		PatchSampler: base,
		rng:          rand.New(rand.NewSource(seed)),
		seed:         seed,
		metrics:      o.metrics,
		logger:       o.logger,
	}, nil
}

// Seed returns the seed of the random stream, so that a run can be repeated.
func (u *UniformSampler) Seed() uint64 { return u.seed }

// ProbabilityMap returns a single channel map of ones over the spatial shape
// of s: every voxel is an equally likely anchor.
func (u *UniformSampler) ProbabilityMap(s *subject.Subject) (*image.Tensor, error) {
	shape, err := s.SpatialShape()
	if err != nil {
		return nil, err
	}
	return image.Ones(1, shape)
}

// Patches returns a stream of n patches of s, or an endless stream when n is
// negative. Each pull draws one anchor and extracts one patch.
//
// If s has inconsistent spatial shapes or is smaller than the patch, the
// stream yields that error once and ends.
func (u *UniformSampler) Patches(s *subject.Subject, n int) iter.Seq2[*subject.Subject, error] {
	return func(yield func(*subject.Subject, error) bool) {
		if n == 0 {
			return
		}
		valid, err := u.validRange(s)
		if err != nil {
			u.metrics.ObserveError()
			yield(nil, err)
			return
		}
		u.logger.Debug("sampling patches", "patch_size", u.patchSize, "valid_range", valid, "count", n)

		for count := 0; n < 0 || count < n; count++ {
			var index [3]int
			for axis := range index {
				index[axis] = u.rng.Intn(valid[axis])
			}
			patch, err := u.ExtractPatch(s, index)
			if err != nil {
				u.metrics.ObserveError()
				yield(nil, err)
				return
			}
			u.metrics.ObservePatch(index)
			if !yield(patch, nil) {
				return
			}
		}
	}
}
