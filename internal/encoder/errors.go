package encoder

import (
	"errors"
	"fmt"
)

// UnsupportedValueError reports a property whose value is neither a scalar,
// a resource, nor a list of resources. Value is the offending value itself.
type UnsupportedValueError struct {
	Resource string
	Property string
	Value    any
}

func (e *UnsupportedValueError) Error() string {
	return fmt.Sprintf("encoder: property %q of resource %q has unsupported value of type %T", e.Property, e.Resource, e.Value)
}

// MemberResolutionError reports a failed member fetch.
type MemberResolutionError struct {
	ID  string
	URI string
	Err error
}

func (e *MemberResolutionError) Error() string {
	return fmt.Sprintf("encoder: resolving members of %q (%s): %v", e.ID, e.URI, e.Err)
}

func (e *MemberResolutionError) Unwrap() error { return e.Err }

// ReferenceError reports a failed address computation. Property is
// "members" when the target is a member.
type ReferenceError struct {
	Resource string
	Property string
	Target   string
	Err      error
}

func (e *ReferenceError) Error() string {
	if e.Property == "" {
		return fmt.Sprintf("encoder: addressing %q: %v", e.Target, e.Err)
	}
	return fmt.Sprintf("encoder: addressing %q for property %q of %q: %v", e.Target, e.Property, e.Resource, e.Err)
}

func (e *ReferenceError) Unwrap() error { return e.Err }

// CycleError reports a member that is also one of its own ancestors.
type CycleError struct {
	ID  string
	URI string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("encoder: member %q (%s) is its own ancestor", e.ID, e.URI)
}

// DepthError reports a member nested deeper than the configured maximum.
type DepthError struct {
	ID    string
	Depth int
	Max   int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("encoder: resource %q at depth %d exceeds maximum depth %d", e.ID, e.Depth, e.Max)
}

// SinkError wraps an error returned by the Sink for a given event.
type SinkError struct {
	Event string
	Err   error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("encoder: sink %s: %v", e.Event, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

var (
	errNilResource = errors.New("encoder: nil resource")
	errNilMember   = errors.New("nil member")
	errNoResult    = errors.New("runtime returned no result channel")
)
