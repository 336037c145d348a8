// Package planerrors defines the planner's error taxonomy: configuration
// errors (a bad manifest), query resolution errors (a bad query against a
// good manifest), and internal invariant errors (a planner bug). Each kind
// is a marker interface satisfied by one or more concrete struct types,
// following the struct-implements-error plus constructor-function pattern
// used for ConfigError/ErrInvalidConfig in the example pack.
package planerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigurationError is returned when a manifest violates a structural
// invariant. It is fatal to building a semantic index.
type ConfigurationError interface {
	error
	configurationError()
}

// QueryResolutionError is returned when a query references something
// absent or ambiguous. The planner remains usable after returning one.
type QueryResolutionError interface {
	error
	queryResolutionError()
}

// InternalInvariantError indicates a bug in the planner itself - an
// assertion about internal state that should never fail in normal
// operation.
type InternalInvariantError interface {
	error
	internalInvariantError()
}

// DuplicateMetricError is raised when a metric name is registered twice.
type DuplicateMetricError struct {
	MetricName string
}

func (e DuplicateMetricError) Error() string {
	return fmt.Sprintf("metric `%s` has already been registered", e.MetricName)
}
func (e DuplicateMetricError) configurationError() {}

// NonExistentMeasureError is raised when a metric references a measure that
// has not been registered in the semantic model.
type NonExistentMeasureError struct {
	MetricName  string
	MeasureName string
}

func (e NonExistentMeasureError) Error() string {
	return fmt.Sprintf("metric `%s` references measure `%s` which has not been registered", e.MetricName, e.MeasureName)
}
func (e NonExistentMeasureError) configurationError() {}

// ManifestInvariantError is raised for any other structural manifest
// violation (duplicate element registration, more than one validity-start
// dimension, more than one primary entity, a metric cycle, and so on).
type ManifestInvariantError struct {
	Message string
}

func (e ManifestInvariantError) Error() string { return e.Message }
func (e ManifestInvariantError) configurationError() {}

// NewManifestInvariantError builds a ManifestInvariantError from a format
// string, following ErrInvalidConfig's constructor-function shape.
func NewManifestInvariantError(format string, args ...interface{}) ManifestInvariantError {
	return ManifestInvariantError{Message: fmt.Sprintf(format, args...)}
}

// MetricNotFoundError is raised when a query references a metric that does
// not exist in the semantic model.
type MetricNotFoundError struct {
	MetricName string
}

func (e MetricNotFoundError) Error() string {
	return fmt.Sprintf("unable to find metric `%s`. Perhaps it has not been registered", e.MetricName)
}
func (e MetricNotFoundError) queryResolutionError() {}

// UnableToSatisfyQueryError is raised when a requested group-by is
// unreachable from the query's measures, or is reachable through more than
// one join path that cannot be disambiguated.
type UnableToSatisfyQueryError struct {
	RequestedName string
	Reason        string
}

func (e UnableToSatisfyQueryError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unable to satisfy query: `%s` is not reachable from the requested metrics", e.RequestedName)
	}
	return fmt.Sprintf("unable to satisfy query for `%s`: %s", e.RequestedName, e.Reason)
}
func (e UnableToSatisfyQueryError) queryResolutionError() {}

// NameParseError is raised when a user-facing canonical name does not match
// the `(<entity>__)*<element_name>(__<grain>)?` grammar, or names an
// element the semantic model does not define.
type NameParseError struct {
	Name   string
	Reason string
}

func (e NameParseError) Error() string {
	return fmt.Sprintf("unable to parse `%s` as a linkable name: %s", e.Name, e.Reason)
}
func (e NameParseError) queryResolutionError() {}

// PlannerInvariantError wraps an assertion failure about the planner's own
// internal state with a captured stack trace, via pkg/errors, so that a bug
// report carries enough context to debug without reproducing it live.
type PlannerInvariantError struct {
	Message string
	cause   error
}

func (e PlannerInvariantError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("internal invariant violated: %s: %v", e.Message, e.cause)
	}
	return fmt.Sprintf("internal invariant violated: %s", e.Message)
}
func (e PlannerInvariantError) internalInvariantError() {}

// Unwrap exposes the captured cause so errors.Is/errors.As keep working
// through a PlannerInvariantError.
func (e PlannerInvariantError) Unwrap() error { return e.cause }

// NewPlannerInvariantError builds a PlannerInvariantError, capturing a
// stack trace via pkg/errors.New so the failure site survives beyond the
// call stack that raised it (useful when this surfaces in a bug report
// filed long after the plan that triggered it has been discarded).
func NewPlannerInvariantError(format string, args ...interface{}) PlannerInvariantError {
	msg := fmt.Sprintf(format, args...)
	return PlannerInvariantError{Message: msg, cause: errors.New(msg)}
}

// WrapPlannerInvariantError wraps an existing error as a
// PlannerInvariantError, attaching a stack trace at the wrap site via
// pkg/errors.Wrap.
func WrapPlannerInvariantError(err error, message string) PlannerInvariantError {
	return PlannerInvariantError{Message: message, cause: errors.Wrap(err, message)}
}
