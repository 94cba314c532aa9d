package reqid

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx, id := NewContext(context.Background())
	got, ok := FromContext(ctx)
	if !ok || got != id {
		t.Fatalf("expected %v from context, got %v ok=%v", id, got, ok)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("unexpected id in empty context")
	}
}

func TestStringParse(t *testing.T) {
	id := ID(0xbeef)
	if got := id.String(); got != "000000000000beef" {
		t.Fatalf("String() = %q", got)
	}
	back, ok := Parse(id.String())
	if !ok || back != id {
		t.Fatalf("Parse(%q) = %v, %v", id.String(), back, ok)
	}
	for _, bad := range []string{"", "0", "xyz", "12345678901234567"} {
		if _, ok := Parse(bad); ok {
			t.Errorf("Parse(%q) accepted", bad)
		}
	}
}
