package encoder

import "github.com/hanpama/resgraph/internal/resource"

// Sink receives ordered encoding events and assembles the output document.
//
// Events arrive in a depth-first pre-order walk:
//
//	BeginResource(id)
//	  BeginProperties
//	    WriteScalar | WriteReference | WriteReferenceList ...
//	  EndProperties
//	  [BeginMembers
//	    BeginResource ... EndResource   (nested, recursive)
//	  EndMembers]
//	EndResource(id)
//
// BeginMembers/EndMembers are only emitted when at least one member is
// encoded. Any error returned by a Sink aborts the whole encode. A Sink
// belongs to a single encode and need not be safe for concurrent use.
type Sink interface {
	BeginResource(id string) error
	EndResource(id string) error
	BeginProperties() error
	EndProperties() error
	// WriteScalar receives nil, string, bool, int64, uint64, float64,
	// time.Time (date) or []byte (binary).
	WriteScalar(name string, value any) error
	WriteReference(name string, ref resource.Ref) error
	WriteReferenceList(name string, refs []resource.Ref) error
	BeginMembers() error
	EndMembers() error
}

// Finalizer is a Sink that produces a payload once the root resource has
// closed. Wire sinks finish to bytes; the in-memory sink to a document tree.
type Finalizer[T any] interface {
	Sink
	Finish() (T, error)
}
