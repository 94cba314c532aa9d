package resource

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Ref is an address-only pointer to another resource. Two refs to the same
// resource compare equal.
type Ref struct {
	URI string
}

func (r Ref) String() string { return r.URI }

// ErrMalformedAncestry is returned when an address cannot be derived from a
// resource's parent chain.
var ErrMalformedAncestry = errors.New("resource: malformed ancestry")

// maxAncestry bounds parent-chain walks; a longer chain is treated as cyclic.
const maxAncestry = 256

// Addresser derives the canonical address of a resource from its identifier
// and ancestry. Implementations must be deterministic for the duration of an
// encode.
type Addresser interface {
	Address(r Resource) (string, error)
}

// AddresserFunc adapts a function to Addresser.
type AddresserFunc func(r Resource) (string, error)

func (f AddresserFunc) Address(r Resource) (string, error) { return f(r) }

// PathAddresser addresses a resource as Base followed by the path-escaped
// identifiers of its parent chain, root first: "/people/bob".
type PathAddresser struct {
	Base string
}

func (a PathAddresser) Address(r Resource) (string, error) {
	if IsNil(r) {
		return "", fmt.Errorf("%w: nil resource", ErrMalformedAncestry)
	}
	var ids []string
	for cur := r; !IsNil(cur); cur = cur.Parent() {
		if len(ids) == maxAncestry {
			return "", fmt.Errorf("%w: ancestry of %q exceeds %d levels or is cyclic", ErrMalformedAncestry, r.ID(), maxAncestry)
		}
		id := cur.ID()
		if id == "" {
			return "", fmt.Errorf("%w: empty identifier %d levels above %q", ErrMalformedAncestry, len(ids), r.ID())
		}
		ids = append(ids, url.PathEscape(id))
	}
	var b strings.Builder
	b.WriteString(strings.TrimSuffix(a.Base, "/"))
	for i := len(ids) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(ids[i])
	}
	return b.String(), nil
}

// RefTo computes the reference for r using a.
func RefTo(a Addresser, r Resource) (Ref, error) {
	uri, err := a.Address(r)
	if err != nil {
		return Ref{}, err
	}
	return Ref{URI: uri}, nil
}
