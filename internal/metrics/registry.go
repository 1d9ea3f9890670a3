// Package metrics implements the exporter's sample registry: a fixed set of
// named metric families with immutable label schemas, written by the
// collectors and exposed to Prometheus as const metrics. Writes replace whole
// families, so a concurrent scrape sees either the previous or the new state
// of a family, never a partial mix.
package metrics

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Kind is the metric instrument type.
type Kind int

const (
	KindGauge Kind = iota
	KindCounter
	KindHistogram
)

var (
	// ErrDuplicateMetric is returned when a name is registered twice.
	ErrDuplicateMetric = errors.New("metric already registered")
	// ErrUnknownMetric is returned for writes to an unregistered name.
	ErrUnknownMetric = errors.New("metric not registered")
	// ErrLabelMismatch is returned when a label set does not exactly match
	// the descriptor's schema.
	ErrLabelMismatch = errors.New("label set does not match metric schema")
)

// Desc describes one metric family. Immutable after registration.
type Desc struct {
	Name    string
	Help    string
	Kind    Kind
	Labels  []string
	Buckets []float64 // histogram kind only
}

// Sample is one labeled value within a family.
type Sample struct {
	Labels map[string]string
	Value  float64
}

type sample struct {
	values []string
	value  float64
}

type histogram struct {
	values  []string
	counts  []uint64 // cumulative per bucket, aligned with desc.Buckets
	sum     float64
	count   uint64
}

type family struct {
	desc       Desc
	prom       *prometheus.Desc
	samples    map[string]*sample
	histograms map[string]*histogram
}

// Registry holds the metric families. It implements prometheus.Collector so
// the exposition endpoint always serves the last fully-written family state.
type Registry struct {
	mu       sync.RWMutex
	families map[string]*family
	order    []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{families: make(map[string]*family)}
}

// Register adds a metric family. Registration happens once at startup;
// registering the same name twice is an error.
func (r *Registry) Register(desc Desc) error {
	if desc.Name == "" {
		return fmt.Errorf("metric name must not be empty")
	}
	if desc.Kind == KindHistogram && len(desc.Buckets) == 0 {
		return fmt.Errorf("histogram %s requires buckets", desc.Name)
	}
	seen := make(map[string]struct{}, len(desc.Labels))
	for _, l := range desc.Labels {
		if _, dup := seen[l]; dup {
			return fmt.Errorf("metric %s repeats label %q", desc.Name, l)
		}
		seen[l] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.families[desc.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMetric, desc.Name)
	}

	labels := append([]string(nil), desc.Labels...)
	desc.Labels = labels
	if desc.Kind == KindHistogram {
		buckets := append([]float64(nil), desc.Buckets...)
		sort.Float64s(buckets)
		desc.Buckets = buckets
	}

	r.families[desc.Name] = &family{
		desc:       desc,
		prom:       prometheus.NewDesc(desc.Name, desc.Help, labels, nil),
		samples:    make(map[string]*sample),
		histograms: make(map[string]*histogram),
	}
	r.order = append(r.order, desc.Name)
	return nil
}

// MustRegister registers descriptors and panics on error. Registration errors
// are programming errors and surface before the exporter starts serving.
func (r *Registry) MustRegister(descs ...Desc) {
	for _, d := range descs {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

// labelValues orders a label map per the family schema, rejecting any
// mismatch in cardinality or names.
func (f *family) labelValues(labels map[string]string) ([]string, error) {
	if len(labels) != len(f.desc.Labels) {
		return nil, fmt.Errorf("%w: %s expects %d labels, got %d",
			ErrLabelMismatch, f.desc.Name, len(f.desc.Labels), len(labels))
	}
	values := make([]string, len(f.desc.Labels))
	for i, name := range f.desc.Labels {
		v, ok := labels[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s missing label %q", ErrLabelMismatch, f.desc.Name, name)
		}
		values[i] = v
	}
	return values, nil
}

func sampleKey(values []string) string {
	return strings.Join(values, "\xff")
}

// Set upserts one sample. For counter-kind families the value is clamped to
// be monotonically non-decreasing within the process lifetime.
func (r *Registry) Set(name string, labels map[string]string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.families[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMetric, name)
	}
	if f.desc.Kind == KindHistogram {
		return fmt.Errorf("metric %s is a histogram, use Observe", name)
	}

	values, err := f.labelValues(labels)
	if err != nil {
		return err
	}

	key := sampleKey(values)
	if existing, ok := f.samples[key]; ok {
		if f.desc.Kind == KindCounter && existing.value > value {
			return nil
		}
		existing.value = value
		return nil
	}
	f.samples[key] = &sample{values: values, value: value}
	return nil
}

// Observe accumulates one observation into a histogram family.
func (r *Registry) Observe(name string, labels map[string]string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.families[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMetric, name)
	}
	if f.desc.Kind != KindHistogram {
		return fmt.Errorf("metric %s is not a histogram", name)
	}

	values, err := f.labelValues(labels)
	if err != nil {
		return err
	}

	key := sampleKey(values)
	h, ok := f.histograms[key]
	if !ok {
		h = &histogram{values: values, counts: make([]uint64, len(f.desc.Buckets))}
		f.histograms[key] = h
	}
	for i, bound := range f.desc.Buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
	h.sum += value
	h.count++
	return nil
}

// SwapFamily atomically replaces a family's entire sample set. This is the
// reset-then-repopulate step of a refresh: series for entities that vanished
// are dropped, and a concurrent scrape observes either the old or the new
// state of the family. Counter-kind samples are clamped against the values
// they replace.
func (r *Registry) SwapFamily(name string, samples []Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.families[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMetric, name)
	}
	if f.desc.Kind == KindHistogram {
		return fmt.Errorf("metric %s is a histogram, cannot swap", name)
	}

	next := make(map[string]*sample, len(samples))
	for _, s := range samples {
		values, err := f.labelValues(s.Labels)
		if err != nil {
			return err
		}
		key := sampleKey(values)
		value := s.Value
		if f.desc.Kind == KindCounter {
			if prev, ok := f.samples[key]; ok && prev.value > value {
				value = prev.value
			}
		}
		next[key] = &sample{values: values, value: value}
	}
	f.samples = next
	return nil
}

// Value returns the current value of one sample.
func (r *Registry) Value(name string, labels map[string]string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.families[name]
	if !ok {
		return 0, false
	}
	values, err := f.labelValues(labels)
	if err != nil {
		return 0, false
	}
	s, ok := f.samples[sampleKey(values)]
	if !ok {
		return 0, false
	}
	return s.value, true
}

// Snapshot returns a point-in-time copy of every gauge and counter family.
func (r *Registry) Snapshot() map[string][]Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]Sample, len(r.families))
	for name, f := range r.families {
		if f.desc.Kind == KindHistogram {
			continue
		}
		samples := make([]Sample, 0, len(f.samples))
		for _, s := range f.samples {
			labels := make(map[string]string, len(f.desc.Labels))
			for i, ln := range f.desc.Labels {
				labels[ln] = s.values[i]
			}
			samples = append(samples, Sample{Labels: labels, Value: s.value})
		}
		out[name] = samples
	}
	return out
}

// Describe implements prometheus.Collector.
func (r *Registry) Describe(ch chan<- *prometheus.Desc) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		ch <- r.families[name].prom
	}
}

// Collect implements prometheus.Collector.
func (r *Registry) Collect(ch chan<- prometheus.Metric) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		f := r.families[name]
		switch f.desc.Kind {
		case KindHistogram:
			for _, h := range f.histograms {
				buckets := make(map[float64]uint64, len(f.desc.Buckets))
				for i, bound := range f.desc.Buckets {
					buckets[bound] = h.counts[i]
				}
				ch <- prometheus.MustNewConstHistogram(f.prom, h.count, h.sum, buckets, h.values...)
			}
		case KindCounter:
			for _, s := range f.samples {
				ch <- prometheus.MustNewConstMetric(f.prom, prometheus.CounterValue, s.value, s.values...)
			}
		default:
			for _, s := range f.samples {
				ch <- prometheus.MustNewConstMetric(f.prom, prometheus.GaugeValue, s.value, s.values...)
			}
		}
	}
}
