// Package reqid carries a per-request identifier through a context so that
// events emitted while serving one request can be correlated.
package reqid

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
)

// Header is the HTTP header that carries a request ID in and out.
const Header = "X-Request-Id"

type key struct{}

// ID identifies one request. It renders as 16 hex digits.
type ID uint64

func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// Parse reads an ID rendered by String. Zero is not a valid ID.
func Parse(s string) (ID, bool) {
	if s == "" || len(s) > 16 {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return ID(v), true
}

// NewContext stores a fresh random ID in parent and returns it.
func NewContext(parent context.Context) (context.Context, ID) {
	id := ID(rand.Uint64())
	for id == 0 {
		id = ID(rand.Uint64())
	}
	return WithID(parent, id), id
}

// WithID stores id in parent.
func WithID(parent context.Context, id ID) context.Context {
	return context.WithValue(parent, key{}, id)
}

// FromContext extracts the request ID from ctx.
func FromContext(ctx context.Context) (ID, bool) {
	id, ok := ctx.Value(key{}).(ID)
	return id, ok
}
