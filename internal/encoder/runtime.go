package encoder

import (
	"context"
	"time"

	"github.com/hanpama/resgraph/internal/resource"
)

// Runtime is the storage-side collaborator the encoder suspends on.
//
// General contract
//   - FetchMembers is the only suspension point of an encode. The encoder
//     issues at most one fetch at a time and does nothing else until the
//     returned channel yields a result or the encode context is done.
//   - The channel must deliver exactly one MembersResult. Implementations
//     should buffer it so an abandoned fetch never blocks a goroutine.
//   - Members must be returned in collection order. The encoder applies
//     selection and pagination itself; the runtime returns the full sequence.
//   - Timeouts are the runtime's policy. The encoder exposes no cancellation
//     of its own beyond observing ctx.
//   - Implementations must not mutate the collection.
type Runtime interface {
	FetchMembers(ctx context.Context, req MembersRequest) <-chan MembersResult
}

// MembersRequest identifies the collection whose members are needed.
type MembersRequest struct {
	// Collection is the resource being encoded.
	Collection resource.Collection
	// URI is the collection's computed address.
	URI string
}

// MembersResult carries the resolved members, or the failure.
type MembersResult struct {
	Members []resource.Resource
	Err     error
}

// StoreRuntime resolves members by calling Collection.Members on its own
// goroutine, optionally bounded by a per-fetch timeout.
type StoreRuntime struct {
	timeout time.Duration
}

var _ Runtime = (*StoreRuntime)(nil)

// NewStoreRuntime returns a StoreRuntime. A zero timeout leaves deadlines to
// the caller's context.
func NewStoreRuntime(timeout time.Duration) *StoreRuntime {
	return &StoreRuntime{timeout: timeout}
}

func (r *StoreRuntime) FetchMembers(ctx context.Context, req MembersRequest) <-chan MembersResult {
	out := make(chan MembersResult, 1)
	go func() {
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		// The collection may ignore ctx; the deadline still wins.
		done := make(chan MembersResult, 1)
		go func() {
			members, err := req.Collection.Members(ctx)
			done <- MembersResult{Members: members, Err: err}
		}()
		select {
		case res := <-done:
			out <- res
		case <-ctx.Done():
			out <- MembersResult{Err: ctx.Err()}
		}
	}()
	return out
}
