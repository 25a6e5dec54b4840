package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is matching against the typed errors below.
var (
	ErrConfig     = errors.New("config error")
	ErrData       = errors.New("data error")
	ErrOrdering   = errors.New("ordering error")
	ErrDependency = errors.New("dependency error")
	ErrCoverage   = errors.New("coverage error")
	ErrSize       = errors.New("size error")
)

// ConfigError reports a malformed or incomplete property descriptor.
type ConfigError struct {
	Property string
	Reason   string
	Err      error
}

func (e ConfigError) Error() string {
	msg := e.Reason
	if e.Property != "" {
		msg = e.Property + ", " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e ConfigError) Unwrap() error        { return e.Err }
func (e ConfigError) Is(target error) bool { return target == ErrConfig }

// DataError reports numerically invalid inputs, such as a condition group
// whose weights sum to zero.
type DataError struct {
	Property string
	Group    int
	Reason   string
}

func (e DataError) Error() string {
	return fmt.Sprintf("%s, condition group %d: %s", e.Property, e.Group, e.Reason)
}

func (e DataError) Is(target error) bool { return target == ErrData }

// OrderingError reports a catalog with no valid sampling order.
type OrderingError struct {
	Reason string
	Cycle  []string
}

func (e OrderingError) Error() string {
	if len(e.Cycle) > 0 {
		return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Cycle, " -> "))
	}
	return e.Reason
}

func (e OrderingError) Is(target error) bool { return target == ErrOrdering }

// DependencyError reports a condition on a property that is unknown or not
// yet sampled into the population table.
type DependencyError struct {
	Property   string
	Referenced string
	Reason     string
}

func (e DependencyError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "referenced property not sampled"
	}
	return fmt.Sprintf("%s depends on %s: %s", e.Property, e.Referenced, reason)
}

func (e DependencyError) Is(target error) bool { return target == ErrDependency }

// CoverageError reports a sampling pass whose condition groups did not
// partition the population: Missing rows were in no group, Overlapping rows
// were in more than one.
type CoverageError struct {
	Property    string
	Missing     []int
	Overlapping []int
}

func (e CoverageError) Error() string {
	var parts []string
	if n := len(e.Missing); n > 0 {
		parts = append(parts, fmt.Sprintf("%d rows unset (first person_id %d)", n, e.Missing[0]))
	}
	if n := len(e.Overlapping); n > 0 {
		parts = append(parts, fmt.Sprintf("%d rows in overlapping groups (first person_id %d)", n, e.Overlapping[0]))
	}
	return fmt.Sprintf("%s: condition groups do not cover the population: %s", e.Property, strings.Join(parts, "; "))
}

func (e CoverageError) Is(target error) bool { return target == ErrCoverage }

// SizeError reports an invalid population size.
type SizeError struct {
	Size int
}

func (e SizeError) Error() string {
	return fmt.Sprintf("population size must be 1 or greater, got %d", e.Size)
}

func (e SizeError) Is(target error) bool { return target == ErrSize }
