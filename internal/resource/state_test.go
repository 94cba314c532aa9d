package resource

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestState_PreservesDefinitionOrder(t *testing.T) {
	s := NewState().Put("name", "Bob McWhirter").Put("age", 42).Put("dog", nil)
	s.Put("name", "Robert")

	if diff := cmp.Diff([]string{"name", "age", "dog"}, s.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	v, ok := s.Get("name")
	if !ok || v != "Robert" {
		t.Fatalf("expected replaced value, got %v ok=%v", v, ok)
	}

	var seen []string
	s.Range(func(name string, _ any) bool {
		seen = append(seen, name)
		return name != "age"
	})
	if diff := cmp.Diff([]string{"name", "age"}, seen); diff != "" {
		t.Fatalf("range mismatch (-want +got):\n%s", diff)
	}
}

func TestState_Remove(t *testing.T) {
	s := NewState().Put("a", 1).Put("b", 2).Put("c", 3)
	s.Remove("b")
	s.Remove("missing")
	if diff := cmp.Diff([]string{"a", "c"}, s.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 properties, got %d", s.Len())
	}
}

func TestState_NilIsEmpty(t *testing.T) {
	var s *State
	if s.Len() != 0 || s.Names() != nil {
		t.Fatalf("nil state should be empty")
	}
	if _, ok := s.Get("x"); ok {
		t.Fatalf("nil state should not contain values")
	}
	s.Range(func(string, any) bool {
		t.Fatalf("nil state should not iterate")
		return false
	})
}
