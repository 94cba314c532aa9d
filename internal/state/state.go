// Package state is the introspectable sink: it assembles encoder events into
// a Document tree that tests and tools can inspect independently of any wire
// format.
package state

import (
	"errors"
	"fmt"

	"github.com/hanpama/resgraph/internal/resource"
)

// Document is one encoded resource.
type Document struct {
	ID         string
	Properties []Property
	Members    []*Document
}

// Property is one encoded property. Value is a normalized scalar, a
// resource.Ref, or a []resource.Ref.
type Property struct {
	Name  string
	Value any
}

// Property returns the value of name.
func (d *Document) Property(name string) (any, bool) {
	for _, p := range d.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// PropertyNames lists property names in encoded order.
func (d *Document) PropertyNames() []string {
	out := make([]string, len(d.Properties))
	for i, p := range d.Properties {
		out[i] = p.Name
	}
	return out
}

// Member returns the member with the given id.
func (d *Document) Member(id string) (*Document, bool) {
	for _, m := range d.Members {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

var (
	ErrFinished   = errors.New("state: sink already finished")
	ErrUnbalanced = errors.New("state: unbalanced events")
)

type frame struct {
	doc       *Document
	inProps   bool
	propsDone bool
	inMembers bool
}

// Sink builds a Document from encoder events. It rejects out-of-order
// events so that tests catch traversal bugs at the event that causes them.
type Sink struct {
	stack    []*frame
	root     *Document
	finished bool
}

// NewSink returns an empty Sink.
func NewSink() *Sink { return &Sink{} }

func (s *Sink) top() (*frame, error) {
	if s.finished {
		return nil, ErrFinished
	}
	if len(s.stack) == 0 {
		return nil, fmt.Errorf("%w: no open resource", ErrUnbalanced)
	}
	return s.stack[len(s.stack)-1], nil
}

func (s *Sink) BeginResource(id string) error {
	if s.finished {
		return ErrFinished
	}
	doc := &Document{ID: id}
	if len(s.stack) == 0 {
		if s.root != nil {
			return fmt.Errorf("%w: second root resource %q", ErrUnbalanced, id)
		}
		s.root = doc
	} else {
		parent := s.stack[len(s.stack)-1]
		if !parent.inMembers {
			return fmt.Errorf("%w: resource %q outside a member list", ErrUnbalanced, id)
		}
		parent.doc.Members = append(parent.doc.Members, doc)
	}
	s.stack = append(s.stack, &frame{doc: doc})
	return nil
}

func (s *Sink) EndResource(id string) error {
	f, err := s.top()
	if err != nil {
		return err
	}
	if f.doc.ID != id {
		return fmt.Errorf("%w: end of %q while %q is open", ErrUnbalanced, id, f.doc.ID)
	}
	if f.inProps || f.inMembers {
		return fmt.Errorf("%w: end of %q with an open section", ErrUnbalanced, id)
	}
	s.stack = s.stack[:len(s.stack)-1]
	return nil
}

func (s *Sink) BeginProperties() error {
	f, err := s.top()
	if err != nil {
		return err
	}
	if f.inProps || f.propsDone || f.inMembers {
		return fmt.Errorf("%w: properties of %q opened twice", ErrUnbalanced, f.doc.ID)
	}
	f.inProps = true
	return nil
}

func (s *Sink) EndProperties() error {
	f, err := s.top()
	if err != nil {
		return err
	}
	if !f.inProps {
		return fmt.Errorf("%w: properties of %q not open", ErrUnbalanced, f.doc.ID)
	}
	f.inProps, f.propsDone = false, true
	return nil
}

func (s *Sink) write(name string, v any) error {
	f, err := s.top()
	if err != nil {
		return err
	}
	if !f.inProps {
		return fmt.Errorf("%w: property %q outside a property set", ErrUnbalanced, name)
	}
	if _, dup := f.doc.Property(name); dup {
		return fmt.Errorf("state: duplicate property %q on %q", name, f.doc.ID)
	}
	f.doc.Properties = append(f.doc.Properties, Property{Name: name, Value: v})
	return nil
}

func (s *Sink) WriteScalar(name string, value any) error { return s.write(name, value) }

func (s *Sink) WriteReference(name string, ref resource.Ref) error { return s.write(name, ref) }

func (s *Sink) WriteReferenceList(name string, refs []resource.Ref) error {
	return s.write(name, append([]resource.Ref{}, refs...))
}

func (s *Sink) BeginMembers() error {
	f, err := s.top()
	if err != nil {
		return err
	}
	if f.inProps || f.inMembers {
		return fmt.Errorf("%w: members of %q opened inside a section", ErrUnbalanced, f.doc.ID)
	}
	f.inMembers = true
	return nil
}

func (s *Sink) EndMembers() error {
	f, err := s.top()
	if err != nil {
		return err
	}
	if !f.inMembers {
		return fmt.Errorf("%w: members of %q not open", ErrUnbalanced, f.doc.ID)
	}
	f.inMembers = false
	return nil
}

// Finish returns the root document. It fails if the tree is incomplete.
func (s *Sink) Finish() (*Document, error) {
	if s.finished {
		return nil, ErrFinished
	}
	if s.root == nil || len(s.stack) != 0 {
		return nil, fmt.Errorf("%w: document incomplete", ErrUnbalanced)
	}
	s.finished = true
	return s.root, nil
}
