package store

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hanpama/resgraph/internal/resource"
)

// refKey marks a mapping that links to another loaded resource by address.
const refKey = "$ref"

// LoadYAML builds a resource tree from a YAML document:
//
//	id: people
//	properties:
//	  title: People
//	members:
//	  - id: bob
//	    properties:
//	      name: Bob
//	      dog: {$ref: /people/moses}
//	  - id: moses
//
// A node with a members key is a Collection; other nodes are Objects.
// Property order follows the document. A {$ref: <address>} value, alone or
// in a sequence, becomes the loaded resource at that PathAddresser address.
// Mappings and mixed sequences load as plain Go values. opts apply to every
// collection.
func LoadYAML(r io.Reader, opts ...Option) (Node, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("store: decode yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("store: empty yaml document")
	}
	l := &loader{opts: opts, byAddr: make(map[string]resource.Resource)}
	root, err := l.node(doc.Content[0], nil)
	if err != nil {
		return nil, err
	}
	if err := l.link(); err != nil {
		return nil, err
	}
	return root, nil
}

type pendingRef struct {
	props   *resource.State
	name    string
	targets []string
	list    bool
	line    int
}

type loader struct {
	opts    []Option
	byAddr  map[string]resource.Resource
	pending []pendingRef
}

func (l *loader) node(n *yaml.Node, parent *Collection) (Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("store: line %d: resource must be a mapping", n.Line)
	}
	var (
		id          string
		propsNode   *yaml.Node
		membersNode *yaml.Node
	)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		switch key.Value {
		case "id":
			if err := val.Decode(&id); err != nil {
				return nil, fmt.Errorf("store: line %d: id: %w", val.Line, err)
			}
		case "properties":
			propsNode = val
		case "members":
			membersNode = val
		default:
			return nil, fmt.Errorf("store: line %d: unknown key %q", key.Line, key.Value)
		}
	}
	if id == "" {
		return nil, fmt.Errorf("store: line %d: resource without id", n.Line)
	}

	props := resource.NewState()
	var res Node
	var coll *Collection
	if membersNode != nil {
		coll = NewCollection(id, props, l.opts...)
		res = coll
	} else {
		res = NewObject(id, props)
	}
	if parent != nil {
		parent.Add(res)
	}
	addr, err := resource.PathAddresser{}.Address(res)
	if err != nil {
		return nil, fmt.Errorf("store: line %d: %w", n.Line, err)
	}
	if _, dup := l.byAddr[addr]; dup {
		return nil, fmt.Errorf("store: line %d: duplicate resource %s", n.Line, addr)
	}
	l.byAddr[addr] = res

	if propsNode != nil {
		if err := l.properties(propsNode, props); err != nil {
			return nil, err
		}
	}
	if membersNode != nil {
		if membersNode.Kind != yaml.SequenceNode && membersNode.ShortTag() != "!!null" {
			return nil, fmt.Errorf("store: line %d: members must be a sequence", membersNode.Line)
		}
		for _, m := range membersNode.Content {
			if _, err := l.node(m, coll); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}

func (l *loader) properties(n *yaml.Node, props *resource.State) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("store: line %d: properties must be a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		name := key.Value
		if _, dup := props.Get(name); dup {
			return fmt.Errorf("store: line %d: duplicate property %q", key.Line, name)
		}
		if target, ok := refTarget(val); ok {
			props.Put(name, nil)
			l.pending = append(l.pending, pendingRef{props: props, name: name, targets: []string{target}, line: val.Line})
			continue
		}
		if targets, ok := refTargets(val); ok {
			props.Put(name, nil)
			l.pending = append(l.pending, pendingRef{props: props, name: name, targets: targets, list: true, line: val.Line})
			continue
		}
		v, err := scalarValue(val)
		if err != nil {
			return fmt.Errorf("store: line %d: property %q: %w", val.Line, name, err)
		}
		props.Put(name, v)
	}
	return nil
}

// link replaces ref placeholders once every resource is known.
func (l *loader) link() error {
	for _, p := range l.pending {
		list := make([]resource.Resource, len(p.targets))
		for i, addr := range p.targets {
			r, ok := l.byAddr[addr]
			if !ok {
				return fmt.Errorf("store: line %d: property %q: %w: %s", p.line, p.name, ErrNotFound, addr)
			}
			list[i] = r
		}
		if p.list {
			p.props.Put(p.name, list)
		} else {
			p.props.Put(p.name, list[0])
		}
	}
	return nil
}

func refTarget(n *yaml.Node) (string, bool) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 || n.Content[0].Value != refKey {
		return "", false
	}
	return n.Content[1].Value, true
}

func refTargets(n *yaml.Node) ([]string, bool) {
	if n.Kind != yaml.SequenceNode || len(n.Content) == 0 {
		return nil, false
	}
	out := make([]string, len(n.Content))
	for i, item := range n.Content {
		t, ok := refTarget(item)
		if !ok {
			return nil, false
		}
		out[i] = t
	}
	return out, true
}

// scalarValue decodes n into the value kinds the encoder understands.
// Anything else decodes generically and is left to the encoder to reject.
func scalarValue(n *yaml.Node) (any, error) {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n.Kind != yaml.ScalarNode {
		var v any
		err := n.Decode(&v)
		return v, err
	}
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		err := n.Decode(&b)
		return b, err
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return i, nil
		}
		var u uint64
		err := n.Decode(&u)
		return u, err
	case "!!float":
		var f float64
		err := n.Decode(&f)
		return f, err
	case "!!timestamp":
		var t time.Time
		err := n.Decode(&t)
		return t, err
	case "!!binary":
		return base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), ""))
	default:
		return n.Value, nil
	}
}
