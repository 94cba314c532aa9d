package resource

import (
	"errors"
	"testing"
)

type node struct {
	id     string
	parent Resource
}

func (n *node) ID() string         { return n.id }
func (n *node) Parent() Resource   { return n.parent }
func (n *node) Properties() *State { return nil }

func TestPathAddresser_ParentChain(t *testing.T) {
	people := &node{id: "people"}
	bob := &node{id: "bob", parent: people}

	cases := []struct {
		name string
		base string
		res  Resource
		want string
	}{
		{name: "Root", res: people, want: "/people"},
		{name: "Nested", res: bob, want: "/people/bob"},
		{name: "Base", base: "http://example.com/api/", res: bob, want: "http://example.com/api/people/bob"},
		{name: "Escaped", res: &node{id: "a b/c"}, want: "/a%20b%2Fc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PathAddresser{Base: tc.base}.Address(tc.res)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("address = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPathAddresser_Deterministic(t *testing.T) {
	moses := &node{id: "moses"}
	first, err := RefTo(PathAddresser{}, moses)
	if err != nil {
		t.Fatal(err)
	}
	second, err := RefTo(PathAddresser{}, moses)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("refs differ: %v != %v", first, second)
	}
}

func TestPathAddresser_MalformedAncestry(t *testing.T) {
	t.Run("EmptyID", func(t *testing.T) {
		_, err := PathAddresser{}.Address(&node{id: "bob", parent: &node{}})
		if !errors.Is(err, ErrMalformedAncestry) {
			t.Fatalf("expected ErrMalformedAncestry, got %v", err)
		}
	})
	t.Run("Cycle", func(t *testing.T) {
		a := &node{id: "a"}
		b := &node{id: "b", parent: a}
		a.parent = b
		_, err := PathAddresser{}.Address(a)
		if !errors.Is(err, ErrMalformedAncestry) {
			t.Fatalf("expected ErrMalformedAncestry, got %v", err)
		}
	})
	t.Run("Nil", func(t *testing.T) {
		var n *node
		_, err := PathAddresser{}.Address(n)
		if !errors.Is(err, ErrMalformedAncestry) {
			t.Fatalf("expected ErrMalformedAncestry, got %v", err)
		}
	})
}
