// Package store is an in-memory backing store of resources. Collections
// enumerate their members asynchronously and can simulate latency and
// failure of a remote store.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hanpama/resgraph/internal/resource"
)

// ErrNotFound is returned by Lookup when a path does not name a resource.
var ErrNotFound = errors.New("store: resource not found")

// Node is a resource owned by this store. Only store types implement it.
type Node interface {
	resource.Resource
	setParent(parent resource.Resource)
}

// Object is a leaf resource.
type Object struct {
	id     string
	parent resource.Resource
	props  *resource.State
}

var _ Node = (*Object)(nil)

// NewObject creates an Object. A nil props is an empty property set.
func NewObject(id string, props *resource.State) *Object {
	if props == nil {
		props = resource.NewState()
	}
	return &Object{id: id, props: props}
}

func (o *Object) ID() string                    { return o.id }
func (o *Object) Parent() resource.Resource     { return o.parent }
func (o *Object) Properties() *resource.State   { return o.props }
func (o *Object) setParent(p resource.Resource) { o.parent = p }

// Collection is a resource with ordered members.
type Collection struct {
	Object
	mu      sync.RWMutex
	members []resource.Resource
	latency time.Duration
	err     error
}

var _ resource.Collection = (*Collection)(nil)

// Option configures a Collection.
type Option func(*Collection)

// WithLatency delays every member fetch by d.
func WithLatency(d time.Duration) Option {
	return func(c *Collection) { c.latency = d }
}

// WithError makes every member fetch fail with err.
func WithError(err error) Option {
	return func(c *Collection) { c.err = err }
}

// NewCollection creates an empty Collection.
func NewCollection(id string, props *resource.State, opts ...Option) *Collection {
	c := &Collection{Object: *NewObject(id, props)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add appends members in order and makes c their parent.
func (c *Collection) Add(members ...Node) *Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range members {
		m.setParent(c)
		c.members = append(c.members, m)
	}
	return c
}

// Members returns a fresh copy of the members after the configured latency.
func (c *Collection) Members(ctx context.Context) ([]resource.Resource, error) {
	if c.latency > 0 {
		t := time.NewTimer(c.latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.err != nil {
		return nil, c.err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]resource.Resource, len(c.members))
	copy(out, c.members)
	return out, nil
}

// Lookup resolves a slash-separated path of member ids below root. An empty
// path or "/" names root itself. Segments are path-unescaped.
func Lookup(ctx context.Context, root resource.Resource, path string) (resource.Resource, error) {
	cur := root
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		id, err := url.PathUnescape(seg)
		if err != nil {
			return nil, fmt.Errorf("store: bad path segment %q: %w", seg, err)
		}
		coll, ok := cur.(resource.Collection)
		if !ok {
			return nil, fmt.Errorf("%w: %q has no members", ErrNotFound, cur.ID())
		}
		members, err := coll.Members(ctx)
		if err != nil {
			return nil, fmt.Errorf("store: members of %q: %w", coll.ID(), err)
		}
		var next resource.Resource
		for _, m := range members {
			if m.ID() == id {
				next = m
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("%w: %q in %q", ErrNotFound, id, coll.ID())
		}
		cur = next
	}
	return cur, nil
}

// Resolve resolves an address as produced by resource.PathAddresser: the
// first segment is root's id, the rest are member ids below it.
func Resolve(ctx context.Context, root resource.Resource, addr string) (resource.Resource, error) {
	first, rest, _ := strings.Cut(strings.Trim(addr, "/"), "/")
	id, err := url.PathUnescape(first)
	if err != nil || id != root.ID() {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, addr)
	}
	return Lookup(ctx, root, rest)
}
