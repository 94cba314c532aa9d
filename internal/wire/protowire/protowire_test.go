package protowire

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/resgraph/internal/encoder"
	"github.com/hanpama/resgraph/internal/resource"
	"github.com/hanpama/resgraph/internal/state"
	"github.com/hanpama/resgraph/internal/store"
)

func graph() *store.Collection {
	moses := store.NewObject("moses", resource.NewState().Put("name", "Moses"))
	rex := store.NewObject("rex", resource.NewState().Put("weight", 11.5))
	bob := store.NewCollection("bob", resource.NewState().
		Put("name", "Bob").
		Put("age", -42).
		Put("id", uint32(7)).
		Put("admin", true).
		Put("born", time.Date(2001, 2, 3, 4, 5, 6, 7, time.UTC)).
		Put("avatar", []byte("hi")).
		Put("nickname", nil).
		Put("dog", moses).
		Put("dogs", []resource.Resource{moses, rex})).Add(rex)
	return store.NewCollection("people", nil).Add(bob, moses)
}

func TestSink_RoundTripMatchesStateSink(t *testing.T) {
	ctx := context.Background()
	enc := encoder.New()

	want, err := encoder.Run[*state.Document](ctx, enc, graph(), nil, state.NewSink())
	require.NoError(t, err)

	out, err := encoder.Run[[]byte](ctx, enc, graph(), nil, NewSink())
	require.NoError(t, err)
	got, err := Decode(out)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestSink_Deterministic(t *testing.T) {
	ctx := context.Background()
	a, err := encoder.Run[[]byte](ctx, encoder.New(), graph(), nil, NewSink())
	require.NoError(t, err)
	b, err := encoder.Run[[]byte](ctx, encoder.New(), graph(), nil, NewSink())
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestDescriptor(t *testing.T) {
	fd := Descriptor()
	require.Equal(t, "resgraph.wire.v1", string(fd.Package()))
	doc := fd.Messages().ByName("Document")
	require.NotNil(t, doc)
	require.True(t, doc.Fields().ByName("members").IsList())
	require.Equal(t, doc, doc.Fields().ByName("members").Message())
}

func TestSink_RejectsUnknownScalar(t *testing.T) {
	s := NewSink()
	require.NoError(t, s.BeginResource("a"))
	require.Error(t, s.WriteScalar("x", struct{}{}))
}
