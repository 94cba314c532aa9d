package eventbus

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type ping struct{ N int }
type pong struct{ N int }

func TestPublish_DispatchesByType(t *testing.T) {
	Use(New())
	defer Use(nil)

	var got []string
	unsubA := Subscribe(func(_ context.Context, p ping) { got = append(got, "a") })
	Subscribe(func(_ context.Context, p ping) { got = append(got, "b") })
	Subscribe(func(_ context.Context, p pong) { got = append(got, "pong") })

	Publish(context.Background(), ping{N: 1})
	unsubA()
	unsubA()
	Publish(context.Background(), ping{N: 2})

	if diff := cmp.Diff([]string{"a", "b", "b"}, got); diff != "" {
		t.Fatalf("dispatch mismatch (-want +got):\n%s", diff)
	}
}

func TestPublish_WithoutBusIsNoop(t *testing.T) {
	Use(nil)
	called := false
	unsub := Subscribe(func(context.Context, ping) { called = true })
	Publish(context.Background(), ping{})
	unsub()
	if called {
		t.Fatalf("handler should not run without a bus")
	}
}
