// Package jsonwire streams encoder events as a JSON document:
//
//	{"id":"bob","properties":{"name":"Bob","dog":{"href":"/moses"}},"members":[]}
//
// References render as {"href": uri}; dates as RFC 3339 strings; binary as
// base64 strings.
package jsonwire

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/hanpama/resgraph/internal/resource"
)

// ContentType is the media type of the payload.
const ContentType = "application/json"

var errUnbalanced = errors.New("jsonwire: unbalanced events")

type link struct {
	Href string `json:"href"`
}

type frame struct {
	first     bool // nothing written yet in the open container
	members   bool // member list written
	inMembers bool
}

// Sink writes JSON into an internal buffer. Finish returns the bytes.
type Sink struct {
	buf    bytes.Buffer
	stack  []*frame
	roots  int
	pretty bool
}

// Option configures a Sink.
type Option func(*Sink)

// WithIndent makes Finish return indented JSON.
func WithIndent() Option {
	return func(s *Sink) { s.pretty = true }
}

// NewSink returns an empty Sink.
func NewSink(opts ...Option) *Sink {
	s := &Sink{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) top() (*frame, error) {
	if len(s.stack) == 0 {
		return nil, errUnbalanced
	}
	return s.stack[len(s.stack)-1], nil
}

// sep writes a comma before every element but the first.
func (s *Sink) sep(f *frame) {
	if f.first {
		f.first = false
		return
	}
	s.buf.WriteByte(',')
}

func (s *Sink) value(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.buf.Write(b)
	return nil
}

func (s *Sink) BeginResource(id string) error {
	if n := len(s.stack); n > 0 {
		parent := s.stack[n-1]
		if !parent.inMembers {
			return fmt.Errorf("%w: resource %q outside members", errUnbalanced, id)
		}
		s.sep(parent)
	} else {
		if s.roots > 0 {
			return fmt.Errorf("%w: second root %q", errUnbalanced, id)
		}
		s.roots++
	}
	s.buf.WriteString(`{"id":`)
	if err := s.value(id); err != nil {
		return err
	}
	s.stack = append(s.stack, &frame{})
	return nil
}

func (s *Sink) EndResource(string) error {
	f, err := s.top()
	if err != nil {
		return err
	}
	if !f.members {
		s.buf.WriteString(`,"members":[]`)
	}
	s.buf.WriteByte('}')
	s.stack = s.stack[:len(s.stack)-1]
	return nil
}

func (s *Sink) BeginProperties() error {
	f, err := s.top()
	if err != nil {
		return err
	}
	f.first = true
	s.buf.WriteString(`,"properties":{`)
	return nil
}

func (s *Sink) EndProperties() error {
	if _, err := s.top(); err != nil {
		return err
	}
	s.buf.WriteByte('}')
	return nil
}

func (s *Sink) property(name string, v any) error {
	f, err := s.top()
	if err != nil {
		return err
	}
	s.sep(f)
	if err := s.value(name); err != nil {
		return err
	}
	s.buf.WriteByte(':')
	return s.value(v)
}

func (s *Sink) WriteScalar(name string, v any) error {
	if t, ok := v.(time.Time); ok {
		v = t.Format(time.RFC3339Nano)
	}
	return s.property(name, v)
}

func (s *Sink) WriteReference(name string, ref resource.Ref) error {
	return s.property(name, link{Href: ref.URI})
}

func (s *Sink) WriteReferenceList(name string, refs []resource.Ref) error {
	links := make([]link, len(refs))
	for i, r := range refs {
		links[i] = link{Href: r.URI}
	}
	return s.property(name, links)
}

func (s *Sink) BeginMembers() error {
	f, err := s.top()
	if err != nil {
		return err
	}
	f.first, f.inMembers, f.members = true, true, true
	s.buf.WriteString(`,"members":[`)
	return nil
}

func (s *Sink) EndMembers() error {
	f, err := s.top()
	if err != nil {
		return err
	}
	f.inMembers = false
	s.buf.WriteByte(']')
	return nil
}

// Finish returns the document. The Sink must not be reused.
func (s *Sink) Finish() ([]byte, error) {
	if s.roots == 0 || len(s.stack) != 0 {
		return nil, fmt.Errorf("%w: document incomplete", errUnbalanced)
	}
	if !s.pretty {
		return s.buf.Bytes(), nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, s.buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
