package encoder

import (
	"context"
	"fmt"
	"time"

	eventbus "github.com/hanpama/resgraph/internal/eventbus"
	events "github.com/hanpama/resgraph/internal/events"
	"github.com/hanpama/resgraph/internal/fieldsel"
	"github.com/hanpama/resgraph/internal/resource"
)

// taskKind is the closed set of traversal units.
type taskKind uint8

const (
	resourceTask taskKind = iota + 1
	propertiesTask
	membersTask
)

func (k taskKind) String() string {
	switch k {
	case resourceTask:
		return "resource"
	case propertiesTask:
		return "properties"
	case membersTask:
		return "members"
	default:
		return fmt.Sprintf("taskKind(%d)", uint8(k))
	}
}

const noParent = -1

// task is one node of the driver tree. Tasks live in the arena and refer to
// each other by index only.
type task struct {
	kind   taskKind
	parent int
	res    resource.Resource
	sel    *fieldsel.Selection
	// uri is the address of res (resource and members tasks).
	uri string
	// depth counts nested resources; the root resource is 1.
	depth   int
	started bool
	// children is the FIFO queue of enqueued child tasks; next is the head.
	children []int
	next     int
}

// encodeState is the root driver: it owns the arena, the sink and the
// completion of one encode.
type encodeState struct {
	ctx       context.Context
	enc       *Encoder
	sink      Sink
	tasks     []task
	free      []int
	resources int
}

func newEncodeState(ctx context.Context, enc *Encoder, sink Sink) *encodeState {
	return &encodeState{ctx: ctx, enc: enc, sink: sink}
}

// run drives the whole tree. Exactly one task is active at a time: a task is
// encoded when first reached, then its children are driven in FIFO order,
// then it closes and control resumes at its parent. The first error aborts
// the traversal; no further task runs.
func (st *encodeState) run(root resource.Resource, uri string, sel *fieldsel.Selection) error {
	active := st.push(task{kind: resourceTask, parent: noParent, res: root, sel: sel, uri: uri, depth: 1})
	for active != noParent {
		if !st.tasks[active].started {
			st.tasks[active].started = true
			if err := st.encode(active); err != nil {
				return err
			}
		}
		t := &st.tasks[active]
		if t.next < len(t.children) {
			child := t.children[t.next]
			t.next++
			active = child
			continue
		}
		if err := st.close(active); err != nil {
			return err
		}
		parent := st.tasks[active].parent
		st.release(active)
		active = parent
	}
	return nil
}

func (st *encodeState) push(t task) int {
	if n := len(st.free); n > 0 {
		idx := st.free[n-1]
		st.free = st.free[:n-1]
		st.tasks[idx] = t
		return idx
	}
	st.tasks = append(st.tasks, t)
	return len(st.tasks) - 1
}

func (st *encodeState) enqueue(parent int, t task) {
	t.parent = parent
	idx := st.push(t)
	st.tasks[parent].children = append(st.tasks[parent].children, idx)
}

// release drops a finished task so its resource and children are no longer
// referenced, and recycles its slot.
func (st *encodeState) release(idx int) {
	st.tasks[idx] = task{}
	st.free = append(st.free, idx)
}

func (st *encodeState) encode(idx int) error {
	switch st.tasks[idx].kind {
	case resourceTask:
		return st.encodeResource(idx)
	case propertiesTask:
		return st.encodeProperties(idx)
	case membersTask:
		return st.encodeMembers(idx)
	default:
		panic(fmt.Sprintf("encoder: unknown task kind %v", st.tasks[idx].kind))
	}
}

func (st *encodeState) close(idx int) error {
	t := &st.tasks[idx]
	switch t.kind {
	case resourceTask:
		return sinkErr("end-resource", st.sink.EndResource(t.res.ID()))
	case propertiesTask:
		return sinkErr("end-properties", st.sink.EndProperties())
	case membersTask:
		if len(t.children) == 0 {
			return nil
		}
		return sinkErr("end-members", st.sink.EndMembers())
	default:
		panic(fmt.Sprintf("encoder: unknown task kind %v", t.kind))
	}
}

// encodeResource brackets one resource. Properties are enqueued before
// members, which fixes their order in the output.
func (st *encodeState) encodeResource(idx int) error {
	t := st.tasks[idx]
	if max := st.enc.maxDepth; max > 0 && t.depth > max {
		return &DepthError{ID: t.res.ID(), Depth: t.depth, Max: max}
	}
	st.resources++
	if err := sinkErr("begin-resource", st.sink.BeginResource(t.res.ID())); err != nil {
		return err
	}
	st.enqueue(idx, task{kind: propertiesTask, res: t.res, sel: t.sel, uri: t.uri, depth: t.depth})
	st.enqueue(idx, task{kind: membersTask, res: t.res, sel: t.sel, uri: t.uri, depth: t.depth})
	return nil
}

// encodeProperties writes the selected properties in definition order.
// Resource-valued properties become references; it never enqueues children.
func (st *encodeState) encodeProperties(idx int) error {
	t := st.tasks[idx]
	if err := sinkErr("begin-properties", st.sink.BeginProperties()); err != nil {
		return err
	}
	var err error
	t.res.Properties().Range(func(name string, value any) bool {
		if !t.sel.Included(name) {
			return true
		}
		err = st.writeProperty(t.res, name, value)
		return err == nil
	})
	return err
}

func (st *encodeState) writeProperty(owner resource.Resource, name string, value any) error {
	c := Classify(value)
	switch c.Kind {
	case KindScalar:
		return sinkErr("write-scalar", st.sink.WriteScalar(name, c.Scalar))
	case KindReference:
		ref, err := st.reference(owner, name, c.Resources[0])
		if err != nil {
			return err
		}
		return sinkErr("write-reference", st.sink.WriteReference(name, ref))
	case KindReferenceList:
		refs := make([]resource.Ref, len(c.Resources))
		for i, target := range c.Resources {
			ref, err := st.reference(owner, name, target)
			if err != nil {
				return err
			}
			refs[i] = ref
		}
		return sinkErr("write-reference-list", st.sink.WriteReferenceList(name, refs))
	default:
		return &UnsupportedValueError{Resource: owner.ID(), Property: name, Value: value}
	}
}

func (st *encodeState) reference(owner resource.Resource, name string, target resource.Resource) (resource.Ref, error) {
	ref, err := resource.RefTo(st.enc.addresser, target)
	if err != nil {
		return resource.Ref{}, &ReferenceError{Resource: owner.ID(), Property: name, Target: target.ID(), Err: err}
	}
	return ref, nil
}

// encodeMembers suspends on the runtime, then enqueues one resource task per
// selected member. Members are inlined in full, recursively.
func (st *encodeState) encodeMembers(idx int) error {
	t := st.tasks[idx]
	coll, ok := t.res.(resource.Collection)
	if !ok {
		return nil
	}
	msel := t.sel.Lookup(fieldsel.MembersField)
	if msel.Kind() == fieldsel.Exclude {
		return nil
	}
	members, err := st.fetchMembers(coll, t.uri)
	if err != nil {
		return err
	}
	offset, limit := msel.Bounds()
	for _, m := range page(members, offset, limit) {
		if resource.IsNil(m) {
			return &MemberResolutionError{ID: coll.ID(), URI: t.uri, Err: errNilMember}
		}
		uri, err := st.enc.addresser.Address(m)
		if err != nil {
			return &ReferenceError{Resource: coll.ID(), Property: fieldsel.MembersField, Target: m.ID(), Err: err}
		}
		if st.onAncestry(idx, uri) {
			return &CycleError{ID: m.ID(), URI: uri}
		}
		st.enqueue(idx, task{kind: resourceTask, res: m, sel: msel, uri: uri, depth: t.depth + 1})
	}
	if len(st.tasks[idx].children) == 0 {
		return nil
	}
	return sinkErr("begin-members", st.sink.BeginMembers())
}

// fetchMembers is the traversal's only suspension point. Nothing else in the
// tree runs until the runtime answers or the context ends.
func (st *encodeState) fetchMembers(coll resource.Collection, uri string) ([]resource.Resource, error) {
	id := coll.ID()
	start := time.Now()
	eventbus.Publish(st.ctx, events.MembersFetchStart{ID: id, URI: uri})

	var res MembersResult
	if ch := st.enc.runtime.FetchMembers(st.ctx, MembersRequest{Collection: coll, URI: uri}); ch == nil {
		res.Err = errNoResult
	} else {
		select {
		case res = <-ch:
		case <-st.ctx.Done():
			res.Err = st.ctx.Err()
		}
	}

	eventbus.Publish(st.ctx, events.MembersFetchFinish{
		ID:       id,
		URI:      uri,
		Count:    len(res.Members),
		Err:      res.Err,
		Duration: time.Since(start),
	})
	if res.Err != nil {
		return nil, &MemberResolutionError{ID: id, URI: uri, Err: res.Err}
	}
	return res.Members, nil
}

// onAncestry reports whether uri addresses a resource task above idx.
func (st *encodeState) onAncestry(idx int, uri string) bool {
	for i := idx; i != noParent; i = st.tasks[i].parent {
		if st.tasks[i].kind == resourceTask && st.tasks[i].uri == uri {
			return true
		}
	}
	return false
}

func page(members []resource.Resource, offset, limit int) []resource.Resource {
	if offset >= len(members) {
		return nil
	}
	members = members[offset:]
	if limit > 0 && limit < len(members) {
		members = members[:limit]
	}
	return members
}

func sinkErr(event string, err error) error {
	if err != nil {
		return &SinkError{Event: event, Err: err}
	}
	return nil
}
