// Package cborwire streams encoder events as CBOR. Resources are
// indefinite-length maps with the keys "id", "properties" and "members" so
// that property order survives encoding; references are {"href": uri} maps
// and dates carry tag 0.
package cborwire

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/hanpama/resgraph/internal/resource"
)

// ContentType is the media type of the payload.
const ContentType = "application/cbor"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Time:        cbor.TimeRFC3339Nano,
		TimeTag:     cbor.EncTagRequired,
		IndefLength: cbor.IndefLengthAllowed,
	}.EncMode()
	if err != nil {
		panic("cborwire: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("cborwire: CBOR decoder initialization failed: " + err.Error())
	}
}

var errUnbalanced = errors.New("cborwire: unbalanced events")

type link struct {
	Href string `cbor:"href"`
}

type frame struct {
	members   bool
	inMembers bool
}

// Sink writes CBOR into an internal buffer. Finish returns the bytes.
type Sink struct {
	buf   bytes.Buffer
	enc   *cbor.Encoder
	stack []*frame
	roots int
}

// NewSink returns an empty Sink.
func NewSink() *Sink {
	s := &Sink{}
	s.enc = encMode.NewEncoder(&s.buf)
	return s
}

func (s *Sink) top() (*frame, error) {
	if len(s.stack) == 0 {
		return nil, errUnbalanced
	}
	return s.stack[len(s.stack)-1], nil
}

func (s *Sink) BeginResource(id string) error {
	if n := len(s.stack); n > 0 {
		if !s.stack[n-1].inMembers {
			return fmt.Errorf("%w: resource %q outside members", errUnbalanced, id)
		}
	} else {
		if s.roots > 0 {
			return fmt.Errorf("%w: second root %q", errUnbalanced, id)
		}
		s.roots++
	}
	if err := s.enc.StartIndefiniteMap(); err != nil {
		return err
	}
	if err := s.pair("id", id); err != nil {
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
		if err := s.pair("members", []any{}); err != nil {
			return err
		}
	}
	s.stack = s.stack[:len(s.stack)-1]
	return s.enc.EndIndefinite()
}

func (s *Sink) BeginProperties() error {
	if _, err := s.top(); err != nil {
		return err
	}
	if err := s.enc.Encode("properties"); err != nil {
		return err
	}
	return s.enc.StartIndefiniteMap()
}

func (s *Sink) EndProperties() error {
	if _, err := s.top(); err != nil {
		return err
	}
	return s.enc.EndIndefinite()
}

func (s *Sink) pair(key string, v any) error {
	if err := s.enc.Encode(key); err != nil {
		return err
	}
	return s.enc.Encode(v)
}

func (s *Sink) WriteScalar(name string, v any) error {
	return s.pair(name, v)
}

func (s *Sink) WriteReference(name string, ref resource.Ref) error {
	return s.pair(name, link{Href: ref.URI})
}

func (s *Sink) WriteReferenceList(name string, refs []resource.Ref) error {
	links := make([]link, len(refs))
	for i, r := range refs {
		links[i] = link{Href: r.URI}
	}
	return s.pair(name, links)
}

func (s *Sink) BeginMembers() error {
	f, err := s.top()
	if err != nil {
		return err
	}
	f.members, f.inMembers = true, true
	if err := s.enc.Encode("members"); err != nil {
		return err
	}
	return s.enc.StartIndefiniteArray()
}

func (s *Sink) EndMembers() error {
	f, err := s.top()
	if err != nil {
		return err
	}
	f.inMembers = false
	return s.enc.EndIndefinite()
}

// Finish returns the encoded document. The Sink must not be reused.
func (s *Sink) Finish() ([]byte, error) {
	if s.roots == 0 || len(s.stack) != 0 {
		return nil, fmt.Errorf("%w: document incomplete", errUnbalanced)
	}
	return s.buf.Bytes(), nil
}

// Decode parses a payload into generic values: maps decode as
// map[string]any, dates as time.Time.
func Decode(data []byte) (map[string]any, error) {
	var out map[string]any
	if err := decMode.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
