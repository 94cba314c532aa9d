package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/resgraph/internal/resource"
)

func ids(rs []resource.Resource) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID()
	}
	return out
}

func TestCollection_MembersInOrderAndReenumerable(t *testing.T) {
	people := NewCollection("people", nil)
	people.Add(NewObject("bob", nil), NewObject("alice", nil))

	first, err := people.Members(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"bob", "alice"}, ids(first))

	first[0] = nil
	second, err := people.Members(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"bob", "alice"}, ids(second))
	require.Same(t, people, second[0].Parent())
}

func TestCollection_Error(t *testing.T) {
	boom := errors.New("backend down")
	c := NewCollection("people", nil, WithError(boom))
	_, err := c.Members(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestCollection_LatencyHonoursContext(t *testing.T) {
	c := NewCollection("slow", nil, WithLatency(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Members(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLookup(t *testing.T) {
	root := NewCollection("people", nil)
	bob := NewCollection("bob", nil)
	dog := NewObject("moses dog", nil)
	bob.Add(dog)
	root.Add(bob)

	ctx := context.Background()
	got, err := Lookup(ctx, root, "/")
	require.NoError(t, err)
	require.Same(t, root, got)

	got, err = Lookup(ctx, root, "/bob/moses%20dog")
	require.NoError(t, err)
	require.Same(t, dog, got)

	_, err = Lookup(ctx, root, "/carol")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = Lookup(ctx, root, "/bob/moses%20dog/tail")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolveAddress(t *testing.T) {
	root := NewCollection("people", nil)
	bob := NewObject("bob", nil)
	root.Add(bob)

	ctx := context.Background()
	addr, err := resource.PathAddresser{}.Address(bob)
	require.NoError(t, err)
	got, err := Resolve(ctx, root, addr)
	require.NoError(t, err)
	require.Same(t, bob, got)

	got, err = Resolve(ctx, root, "/people")
	require.NoError(t, err)
	require.Same(t, root, got)

	for _, addr := range []string{"", "/", "/other/bob", "/people/carol"} {
		_, err = Resolve(ctx, root, addr)
		require.ErrorIs(t, err, ErrNotFound, addr)
	}
}
