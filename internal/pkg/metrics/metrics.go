package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Metric types recorded across the pipeline.
const (
	TypeRequest        = "webhook.request"
	TypeRejected       = "webhook.rejected"
	TypeResponseTimeMS = "webhook.response_time_ms"
	TypeProcessingMS   = "webhook.processing_time_ms"
	TypeProcessingFail = "webhook.processing_failed"
	TypeViolation      = "security.violation"
	TypeQueueDepth     = "queue.depth"
)

// Sample is one recorded measurement.
type Sample struct {
	Type       string
	Dimensions map[string]string
	Value      float64
	Timestamp  time.Time
	Tags       []string
}

// Bucket is one time-bucketed rollup. Raw values are kept for percentile
// computation; bounded by the collector's sample cap per bucket.
type Bucket struct {
	Start  time.Time
	Count  int64
	Sum    float64
	Min    float64
	Max    float64
	Values []float64
}

// Collector stores recent raw samples (bounded) plus bucketed aggregates
// per metric type. Safe for concurrent use.
type Collector struct {
	mu         sync.RWMutex
	interval   time.Duration
	maxSamples int
	samples    map[string][]Sample
	buckets    map[string]map[int64]*Bucket
}

// NewCollector creates a collector aggregating into buckets of the given
// interval (1m is the operational default).
func NewCollector(interval time.Duration, maxSamples int) *Collector {
	if interval <= 0 {
		interval = time.Minute
	}
	if maxSamples <= 0 {
		maxSamples = 1000
	}
	return &Collector{
		interval:   interval,
		maxSamples: maxSamples,
		samples:    map[string][]Sample{},
		buckets:    map[string]map[int64]*Bucket{},
	}
}

// Record stores one measurement and mirrors it to the prometheus
// collectors for the known metric types.
func (c *Collector) Record(metricType string, dims map[string]string, value float64, tags ...string) {
	now := time.Now()
	sample := Sample{
		Type:       metricType,
		Dimensions: dims,
		Value:      value,
		Timestamp:  now,
		Tags:       tags,
	}

	c.mu.Lock()
	list := append(c.samples[metricType], sample)
	if len(list) > c.maxSamples {
		list = list[len(list)-c.maxSamples:]
	}
	c.samples[metricType] = list

	bucketKey := now.Truncate(c.interval).Unix()
	byType, ok := c.buckets[metricType]
	if !ok {
		byType = map[int64]*Bucket{}
		c.buckets[metricType] = byType
	}
	b, ok := byType[bucketKey]
	if !ok {
		b = &Bucket{Start: time.Unix(bucketKey, 0), Min: math.MaxFloat64, Max: -math.MaxFloat64}
		byType[bucketKey] = b
		c.pruneLocked(metricType)
	}
	b.Count++
	b.Sum += value
	if value < b.Min {
		b.Min = value
	}
	if value > b.Max {
		b.Max = value
	}
	if len(b.Values) < c.maxSamples {
		b.Values = append(b.Values, value)
	}
	c.mu.Unlock()

	mirrorToPrometheus(metricType, dims, value)
}

// pruneLocked drops buckets older than 24h; callers hold the lock.
func (c *Collector) pruneLocked(metricType string) {
	cutoff := time.Now().Add(-24 * time.Hour).Unix()
	for key := range c.buckets[metricType] {
		if key < cutoff {
			delete(c.buckets[metricType], key)
		}
	}
}

// CountSince sums the sample counts for a metric type over a window.
func (c *Collector) CountSince(metricType string, window time.Duration) int64 {
	cutoff := time.Now().Add(-window)
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total int64
	for _, b := range c.buckets[metricType] {
		if !b.Start.Before(cutoff.Truncate(c.interval)) {
			total += b.Count
		}
	}
	return total
}

// Percentile computes the p-th percentile (0–100) of a metric's raw
// values within the window. Returns 0 when no samples exist.
func (c *Collector) Percentile(metricType string, p float64, window time.Duration) float64 {
	cutoff := time.Now().Add(-window)
	c.mu.RLock()
	var values []float64
	for _, b := range c.buckets[metricType] {
		if !b.Start.Before(cutoff.Truncate(c.interval)) {
			values = append(values, b.Values...)
		}
	}
	c.mu.RUnlock()

	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)
	if p <= 0 {
		return values[0]
	}
	if p >= 100 {
		return values[len(values)-1]
	}
	rank := p / 100 * float64(len(values)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return values[lower]
	}
	frac := rank - float64(lower)
	return values[lower]*(1-frac) + values[upper]*frac
}

// ErrorRate is the percentage of rejected+failed requests over all
// requests within the window.
func (c *Collector) ErrorRate(window time.Duration) float64 {
	requests := c.CountSince(TypeRequest, window)
	if requests == 0 {
		return 0
	}
	errors := c.CountSince(TypeRejected, window) + c.CountSince(TypeProcessingFail, window)
	return float64(errors) / float64(requests) * 100
}

// RecentSamples returns a copy of the bounded raw-sample list for a type.
func (c *Collector) RecentSamples(metricType string) []Sample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Sample, len(c.samples[metricType]))
	copy(out, c.samples[metricType])
	return out
}
