package metrics

import (
	"fmt"
	"math"
)

// Name identifies a metric by namespace and base name. It is a comparable
// value type and is used directly as a map key; it carries no ordering
// semantics.
type Name struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// NewName creates a Name from a namespace and a name.
func NewName(namespace, name string) Name {
	return Name{Namespace: namespace, Name: name}
}

// String returns the canonical "namespace:name" form.
func (n Name) String() string {
	return n.Namespace + ":" + n.Name
}

// BucketType describes how a histogram partitions its recorded range into
// a fixed number of buckets. Values below RangeFrom and at or above RangeTo
// are outliers and are never assigned a bucket index.
//
// Implementations must be comparable value types; histogram registration
// compares layouts with ==.
type BucketType interface {
	// NumBuckets returns the number of in-range buckets.
	NumBuckets() int

	// RangeFrom returns the inclusive lower bound of the recorded range.
	RangeFrom() float64

	// RangeTo returns the exclusive upper bound of the recorded range.
	RangeTo() float64

	// BucketIndex returns the bucket index for a value. The result is only
	// meaningful for values in [RangeFrom, RangeTo); callers classify
	// out-of-range values as outliers before indexing.
	BucketIndex(value float64) int

	// String returns a short human-readable description of the layout.
	String() string
}

// LinearBuckets is a bucket layout of Count equal-width buckets starting at
// Start. Bucket i covers [Start+i*Width, Start+(i+1)*Width).
type LinearBuckets struct {
	Start float64
	Width float64
	Count int
}

// NewLinearBuckets creates a validated linear bucket layout.
func NewLinearBuckets(start, width float64, count int) (LinearBuckets, error) {
	lb := LinearBuckets{Start: start, Width: width, Count: count}
	if err := lb.Validate(); err != nil {
		return LinearBuckets{}, err
	}
	return lb, nil
}

// Validate checks that the layout parameters describe a usable range.
func (lb LinearBuckets) Validate() error {
	if lb.Count <= 0 {
		return fmt.Errorf("%w: bucket count %d must be positive", ErrInvalidBuckets, lb.Count)
	}
	if lb.Width <= 0 {
		return fmt.Errorf("%w: bucket width %g must be positive", ErrInvalidBuckets, lb.Width)
	}
	return nil
}

// NumBuckets implements BucketType.
func (lb LinearBuckets) NumBuckets() int { return lb.Count }

// RangeFrom implements BucketType.
func (lb LinearBuckets) RangeFrom() float64 { return lb.Start }

// RangeTo implements BucketType.
func (lb LinearBuckets) RangeTo() float64 {
	return lb.Start + lb.Width*float64(lb.Count)
}

// BucketIndex implements BucketType. The result is clamped to the valid
// index range to absorb floating point error at bucket boundaries.
func (lb LinearBuckets) BucketIndex(value float64) int {
	idx := int(math.Floor((value - lb.Start) / lb.Width))
	if idx < 0 {
		return 0
	}
	if idx >= lb.Count {
		return lb.Count - 1
	}
	return idx
}

// String implements BucketType.
func (lb LinearBuckets) String() string {
	return fmt.Sprintf("linear(start=%g width=%g count=%d)", lb.Start, lb.Width, lb.Count)
}

// ExponentialBuckets is a base-2 exponential bucket layout. With
// base = 2^(2^-Scale), bucket i covers [base^i, base^(i+1)) for i > 0 and
// bucket 0 covers [0, base). A positive Scale subdivides each power of two
// into 2^Scale buckets; a negative Scale merges powers of two.
type ExponentialBuckets struct {
	Scale int
	Count int
}

// MaxExponentialSpan caps the exponent of the layout's upper bound so that
// Count * 2^-Scale stays within a range a backend can represent.
const MaxExponentialSpan = 32

// NewExponentialBuckets creates a validated exponential bucket layout.
func NewExponentialBuckets(scale, count int) (ExponentialBuckets, error) {
	eb := ExponentialBuckets{Scale: scale, Count: count}
	if err := eb.Validate(); err != nil {
		return ExponentialBuckets{}, err
	}
	return eb, nil
}

// Validate checks that the layout parameters describe a usable range.
func (eb ExponentialBuckets) Validate() error {
	if eb.Count <= 0 {
		return fmt.Errorf("%w: bucket count %d must be positive", ErrInvalidBuckets, eb.Count)
	}
	if span := float64(eb.Count) * math.Exp2(-float64(eb.Scale)); span > MaxExponentialSpan {
		return fmt.Errorf("%w: layout spans 2^%g, limit is 2^%d", ErrInvalidBuckets, span, MaxExponentialSpan)
	}
	return nil
}

// Base returns the growth factor between consecutive bucket boundaries.
func (eb ExponentialBuckets) Base() float64 {
	return math.Exp2(math.Exp2(-float64(eb.Scale)))
}

// NumBuckets implements BucketType.
func (eb ExponentialBuckets) NumBuckets() int { return eb.Count }

// RangeFrom implements BucketType.
func (eb ExponentialBuckets) RangeFrom() float64 { return 0 }

// RangeTo implements BucketType.
func (eb ExponentialBuckets) RangeTo() float64 {
	return math.Exp2(math.Exp2(-float64(eb.Scale)) * float64(eb.Count))
}

// BucketIndex implements BucketType. Values in [0, 1) land in bucket 0
// together with [1, base); indices are clamped to absorb floating point
// error at bucket boundaries.
func (eb ExponentialBuckets) BucketIndex(value float64) int {
	if value < 1 {
		return 0
	}
	idx := int(math.Floor(math.Log2(value) * math.Exp2(float64(eb.Scale))))
	if idx < 0 {
		return 0
	}
	if idx >= eb.Count {
		return eb.Count - 1
	}
	return idx
}

// String implements BucketType.
func (eb ExponentialBuckets) String() string {
	return fmt.Sprintf("exponential(scale=%d count=%d)", eb.Scale, eb.Count)
}
