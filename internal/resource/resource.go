// Package resource defines the capabilities the encoder borrows from the
// backing store: identified resources with ordered properties, collections
// with asynchronously enumerated members, and address-only references.
package resource

import (
	"context"
	"reflect"
)

// Resource is a named entity with ordered properties.
//
// Parent returns the owning resource, or nil for a root. The parent chain is
// the ancestry used to derive the resource's address.
type Resource interface {
	ID() string
	Parent() Resource
	Properties() *State
}

// Collection is a Resource that owns an ordered sequence of members.
//
// Members may block on I/O and must honour ctx. Calling it again without an
// intervening mutation must return the same members in the same order.
type Collection interface {
	Resource
	Members(ctx context.Context) ([]Resource, error)
}

// IsNil reports whether r is nil or an interface holding a nil pointer.
func IsNil(r Resource) bool {
	if r == nil {
		return true
	}
	rv := reflect.ValueOf(r)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
