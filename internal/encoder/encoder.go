package encoder

import (
	"context"
	"sync"
	"time"

	eventbus "github.com/hanpama/resgraph/internal/eventbus"
	events "github.com/hanpama/resgraph/internal/events"
	"github.com/hanpama/resgraph/internal/fieldsel"
	"github.com/hanpama/resgraph/internal/resource"
)

// Encoder turns resource graphs into sink events. An Encoder holds no
// per-encode state and is safe for concurrent use.
type Encoder struct {
	runtime   Runtime
	addresser resource.Addresser
	maxDepth  int
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithRuntime sets the runtime used to fetch members.
func WithRuntime(rt Runtime) Option {
	return func(e *Encoder) { e.runtime = rt }
}

// WithAddresser sets how resources are turned into URIs.
func WithAddresser(a resource.Addresser) Option {
	return func(e *Encoder) { e.addresser = a }
}

// WithMaxDepth bounds member nesting; the root is depth 1. Zero means
// unbounded.
func WithMaxDepth(n int) Option {
	return func(e *Encoder) { e.maxDepth = n }
}

// New creates an Encoder. By default members are fetched through a
// StoreRuntime without timeout and addresses come from a PathAddresser.
func New(opts ...Option) *Encoder {
	e := &Encoder{
		runtime:   NewStoreRuntime(0),
		addresser: resource.PathAddresser{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runtime == nil {
		e.runtime = NewStoreRuntime(0)
	}
	if e.addresser == nil {
		e.addresser = resource.PathAddresser{}
	}
	return e
}

// Encode walks res depth-first and reports it to sink. Properties of a
// resource precede its members; members are inlined recursively in
// collection order. A nil selection includes everything.
//
// Encode blocks until the traversal completes or fails. The first failure
// stops it: no sink event follows the failing step and the error is
// returned as is. The sink is not finished; see Run.
func (e *Encoder) Encode(ctx context.Context, res resource.Resource, sel *fieldsel.Selection, sink Sink) error {
	if resource.IsNil(res) {
		return errNilResource
	}
	id := res.ID()
	uri, err := e.addresser.Address(res)
	if err != nil {
		return &ReferenceError{Target: id, Err: err}
	}

	start := time.Now()
	eventbus.Publish(ctx, events.EncodeStart{ID: id, URI: uri})
	st := newEncodeState(ctx, e, sink)
	err = st.run(res, uri, sel)
	eventbus.Publish(ctx, events.EncodeFinish{
		ID:        id,
		URI:       uri,
		Resources: st.resources,
		Err:       err,
		Duration:  time.Since(start),
	})
	return err
}

// Start runs Encode on its own goroutine and calls done exactly once with
// the outcome.
func (e *Encoder) Start(ctx context.Context, res resource.Resource, sel *fieldsel.Selection, sink Sink, done func(error)) {
	go func() {
		done(e.Encode(ctx, res, sel, sink))
	}()
}

// Run encodes res into sink and, on success, finishes it. On failure the
// sink's partial output is discarded and the error is returned.
func Run[T any](ctx context.Context, e *Encoder, res resource.Resource, sel *fieldsel.Selection, sink Finalizer[T]) (T, error) {
	if err := e.Encode(ctx, res, sel, sink); err != nil {
		var zero T
		return zero, err
	}
	return sink.Finish()
}

// Future is the pending outcome of an asynchronous encode.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// resolve settles f. Later calls are ignored.
func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		f.value, f.err = v, err
		close(f.done)
	})
}

// Done is closed once the outcome is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the encode completes or ctx ends. Abandoning the wait
// does not cancel the encode; cancel the context passed to Go for that.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Go starts Run on its own goroutine and returns its Future.
func Go[T any](ctx context.Context, e *Encoder, res resource.Resource, sel *fieldsel.Selection, sink Finalizer[T]) *Future[T] {
	f := newFuture[T]()
	go func() {
		f.resolve(Run(ctx, e, res, sel, sink))
	}()
	return f
}
