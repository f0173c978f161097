// Package metrics holds the Prometheus instruments for patch sampling and
// transform application. Instruments are registered on a caller supplied
// registerer so that tests and the CLI can use private registries.
// Every method is safe to call on a nil receiver, which records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mrisubject"

// Sampler counts patch extraction.
type Sampler struct {
	patches  prometheus.Counter
	failures prometheus.Counter
	anchors  *prometheus.HistogramVec
}

// NewSampler registers the sampler instruments on reg.
func NewSampler(reg prometheus.Registerer) *Sampler {
	factory := promauto.With(reg)
	return &Sampler{
		patches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patches_total",
			Help:      "Total number of patches extracted",
		}),
		failures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patch_errors_total",
			Help:      "Number of sampling streams stopped by an error",
		}),
		anchors: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "patch_anchor_voxels",
			Help:      "Patch anchor index along each spatial axis",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"axis"}),
	}
}

// ObservePatch records one extracted patch anchored at index.
func (m *Sampler) ObservePatch(index [3]int) {
	if m == nil {
		return
	}
	m.patches.Inc()
	for axis, v := range index {
		m.anchors.WithLabelValues(fmt.Sprint(axis)).Observe(float64(v))
	}
}

// ObserveError records a sampling stream that ended in an error.
func (m *Sampler) ObserveError() {
	if m == nil {
		return
	}
	m.failures.Inc()
}

// Transforms counts transform applications by transform name.
type Transforms struct {
	applied  *prometheus.CounterVec
	failed   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewTransforms registers the transform instruments on reg.
func NewTransforms(reg prometheus.Registerer) *Transforms {
	factory := promauto.With(reg)
	return &Transforms{
		applied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transforms_applied_total",
			Help:      "Total number of transforms applied to subjects",
		}, []string{"transform"}),
		failed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total number of transform applications that failed",
		}, []string{"transform"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transform_duration_seconds",
			Help:      "Duration of transform applications",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"transform"}),
	}
}

// Observe records one application of the named transform.
func (m *Transforms) Observe(name string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.failed.WithLabelValues(name).Inc()
		return
	}
	m.applied.WithLabelValues(name).Inc()
	m.duration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// WriteTextfile writes everything gathered by g to path in the text
// exposition format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
