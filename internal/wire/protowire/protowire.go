// Package protowire encodes documents as protobuf messages of a schema built
// at init time (see Descriptor). Messages are assembled with dynamicpb and
// marshalled deterministically, so equal documents produce equal bytes.
package protowire

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/hanpama/resgraph/internal/resource"
	"github.com/hanpama/resgraph/internal/state"
)

// ContentType is the media type of the payload.
const ContentType = "application/x-protobuf"

var errUnbalanced = errors.New("protowire: unbalanced events")

// Sink builds a Document message. Finish marshals it.
type Sink struct {
	stack []*dynamicpb.Message
	root  *dynamicpb.Message
}

// NewSink returns an empty Sink.
func NewSink() *Sink { return &Sink{} }

func (s *Sink) top() (*dynamicpb.Message, error) {
	if len(s.stack) == 0 {
		return nil, errUnbalanced
	}
	return s.stack[len(s.stack)-1], nil
}

func (s *Sink) BeginResource(id string) error {
	doc := dynamicpb.NewMessage(documentDesc)
	doc.Set(docID, protoreflect.ValueOfString(id))
	if len(s.stack) == 0 {
		if s.root != nil {
			return fmt.Errorf("%w: second root %q", errUnbalanced, id)
		}
		s.root = doc
	}
	s.stack = append(s.stack, doc)
	return nil
}

// EndResource attaches the finished document to its parent's members.
func (s *Sink) EndResource(string) error {
	doc, err := s.top()
	if err != nil {
		return err
	}
	s.stack = s.stack[:len(s.stack)-1]
	if parent, err := s.top(); err == nil {
		parent.Mutable(docMembers).List().Append(protoreflect.ValueOfMessage(doc))
	}
	return nil
}

func (s *Sink) BeginProperties() error { _, err := s.top(); return err }
func (s *Sink) EndProperties() error   { _, err := s.top(); return err }
func (s *Sink) BeginMembers() error    { _, err := s.top(); return err }
func (s *Sink) EndMembers() error      { _, err := s.top(); return err }

func (s *Sink) property(name string, value any) error {
	doc, err := s.top()
	if err != nil {
		return err
	}
	prop, err := propertyMessage(name, value)
	if err != nil {
		return err
	}
	doc.Mutable(docProperties).List().Append(protoreflect.ValueOfMessage(prop))
	return nil
}

func (s *Sink) WriteScalar(name string, value any) error { return s.property(name, value) }

func (s *Sink) WriteReference(name string, ref resource.Ref) error {
	return s.property(name, ref)
}

func (s *Sink) WriteReferenceList(name string, refs []resource.Ref) error {
	return s.property(name, refs)
}

func reference(ref resource.Ref) *dynamicpb.Message {
	m := dynamicpb.NewMessage(referenceDesc)
	m.Set(refURI, protoreflect.ValueOfString(ref.URI))
	return m
}

// propertyMessage builds a Property from a scalar, a resource.Ref or a
// []resource.Ref.
func propertyMessage(name string, value any) (*dynamicpb.Message, error) {
	var fd protoreflect.FieldDescriptor
	var v protoreflect.Value
	switch x := value.(type) {
	case nil:
		fd, v = propNull, protoreflect.ValueOfBool(true)
	case string:
		fd, v = propString, protoreflect.ValueOfString(x)
	case bool:
		fd, v = propBool, protoreflect.ValueOfBool(x)
	case int64:
		fd, v = propInt, protoreflect.ValueOfInt64(x)
	case uint64:
		fd, v = propUint, protoreflect.ValueOfUint64(x)
	case float64:
		fd, v = propDouble, protoreflect.ValueOfFloat64(x)
	case time.Time:
		date := dynamicpb.NewMessage(dateDesc)
		date.Set(dateSeconds, protoreflect.ValueOfInt64(x.Unix()))
		date.Set(dateNanos, protoreflect.ValueOfInt32(int32(x.Nanosecond())))
		fd, v = propDate, protoreflect.ValueOfMessage(date)
	case []byte:
		fd, v = propBinary, protoreflect.ValueOfBytes(x)
	case resource.Ref:
		fd, v = propReference, protoreflect.ValueOfMessage(reference(x))
	case []resource.Ref:
		list := dynamicpb.NewMessage(refListDesc)
		l := list.Mutable(refListRefs).List()
		for _, r := range x {
			l.Append(protoreflect.ValueOfMessage(reference(r)))
		}
		fd, v = propReferences, protoreflect.ValueOfMessage(list)
	default:
		return nil, fmt.Errorf("protowire: property %q: unsupported scalar %T", name, value)
	}
	prop := dynamicpb.NewMessage(propertyDesc)
	prop.Set(propName, protoreflect.ValueOfString(name))
	prop.Set(fd, v)
	return prop, nil
}

// Finish marshals the root document.
func (s *Sink) Finish() ([]byte, error) {
	if s.root == nil || len(s.stack) != 0 {
		return nil, fmt.Errorf("%w: document incomplete", errUnbalanced)
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(s.root)
}

// Decode parses a payload back into a document tree. Property values come
// back as the types the encoder writes: dates as UTC time.Time, references
// as resource.Ref and reference lists as []resource.Ref.
func Decode(data []byte) (*state.Document, error) {
	msg := dynamicpb.NewMessage(documentDesc)
	if err := proto.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("protowire: %w", err)
	}
	return DocumentFromMessage(msg)
}

// DocumentMessage converts doc into a Document message. Property values must
// be scalars as the encoder writes them, resource.Ref or []resource.Ref.
func DocumentMessage(doc *state.Document) (*dynamicpb.Message, error) {
	m := dynamicpb.NewMessage(documentDesc)
	m.Set(docID, protoreflect.ValueOfString(doc.ID))
	props := m.Mutable(docProperties).List()
	for _, p := range doc.Properties {
		prop, err := propertyMessage(p.Name, p.Value)
		if err != nil {
			return nil, err
		}
		props.Append(protoreflect.ValueOfMessage(prop))
	}
	members := m.Mutable(docMembers).List()
	for _, child := range doc.Members {
		cm, err := DocumentMessage(child)
		if err != nil {
			return nil, err
		}
		members.Append(protoreflect.ValueOfMessage(cm))
	}
	return m, nil
}

// DocumentFromMessage converts a Document message into a document tree.
func DocumentFromMessage(m protoreflect.Message) (*state.Document, error) {
	doc := &state.Document{ID: m.Get(docID).String()}
	props := m.Get(docProperties).List()
	for i := 0; i < props.Len(); i++ {
		p := props.Get(i).Message()
		v, err := propertyValue(p)
		if err != nil {
			return nil, err
		}
		doc.Properties = append(doc.Properties, state.Property{Name: p.Get(propName).String(), Value: v})
	}
	members := m.Get(docMembers).List()
	for i := 0; i < members.Len(); i++ {
		child, err := DocumentFromMessage(members.Get(i).Message())
		if err != nil {
			return nil, err
		}
		doc.Members = append(doc.Members, child)
	}
	return doc, nil
}

func propertyValue(p protoreflect.Message) (any, error) {
	fd := p.WhichOneof(propValue)
	if fd == nil {
		return nil, fmt.Errorf("protowire: property %q has no value", p.Get(propName).String())
	}
	v := p.Get(fd)
	switch fd.Number() {
	case propNull.Number():
		return nil, nil
	case propString.Number():
		return v.String(), nil
	case propBool.Number():
		return v.Bool(), nil
	case propInt.Number():
		return v.Int(), nil
	case propUint.Number():
		return v.Uint(), nil
	case propDouble.Number():
		return v.Float(), nil
	case propDate.Number():
		d := v.Message()
		return time.Unix(d.Get(dateSeconds).Int(), d.Get(dateNanos).Int()).UTC(), nil
	case propBinary.Number():
		return v.Bytes(), nil
	case propReference.Number():
		return resource.Ref{URI: v.Message().Get(refURI).String()}, nil
	case propReferences.Number():
		l := v.Message().Get(refListRefs).List()
		refs := make([]resource.Ref, l.Len())
		for i := range refs {
			refs[i] = resource.Ref{URI: l.Get(i).Message().Get(refURI).String()}
		}
		return refs, nil
	default:
		return nil, fmt.Errorf("protowire: unknown property field %s", fd.FullName())
	}
}
