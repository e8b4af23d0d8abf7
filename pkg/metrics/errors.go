package metrics

import (
	"errors"
	"fmt"
)

// Common errors for metric registration and recording
var (
	// ErrInvalidBuckets indicates an invalid histogram bucket layout
	ErrInvalidBuckets = errors.New("invalid bucket layout")

	// ErrNilBucketType indicates a histogram was requested without a layout
	ErrNilBucketType = errors.New("nil bucket type")

	// ErrLayoutConflict indicates a histogram is already registered under the
	// same name with a different bucket layout
	ErrLayoutConflict = errors.New("bucket layout conflict")
)

// MetricError carries the operation and metric name that failed.
type MetricError struct {
	Op   string // operation that failed
	Name Name   // metric identifier
	Err  error  // underlying error
}

// Error implements the error interface
func (e *MetricError) Error() string {
	if e.Name == (Name{}) {
		return fmt.Sprintf("metrics: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("metrics: %s %s: %v", e.Op, e.Name, e.Err)
}

// Unwrap returns the underlying error
func (e *MetricError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target
func (e *MetricError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// LayoutConflictError reports the registered and requested bucket layouts
// of a conflicting histogram registration.
type LayoutConflictError struct {
	Name       Name
	Registered BucketType
	Requested  BucketType
}

// Error implements the error interface
func (e *LayoutConflictError) Error() string {
	return fmt.Sprintf("metrics: histogram %s registered with %s, requested %s",
		e.Name, e.Registered, e.Requested)
}

// Unwrap returns ErrLayoutConflict so errors.Is matching works.
func (e *LayoutConflictError) Unwrap() error {
	return ErrLayoutConflict
}
