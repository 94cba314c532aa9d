package fieldsel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_Empty(t *testing.T) {
	sel, err := Parse("   ")
	require.NoError(t, err)
	require.Equal(t, IncludeAll, sel.Kind())
}

func TestParse_NestedWithBounds(t *testing.T) {
	sel, err := Parse("name, dog, members(limit: 10, offset: 20) { name members { id } }")
	require.NoError(t, err)
	require.Equal(t, []string{"name", "dog", "members"}, sel.Names())
	require.Equal(t, IncludeAll, sel.Lookup("dog").Kind())
	require.False(t, sel.Included("breed"))

	members := sel.Lookup(MembersField)
	off, lim := members.Bounds()
	require.Equal(t, 20, off)
	require.Equal(t, 10, lim)
	require.Equal(t, []string{"name", "members"}, members.Names())
	require.Equal(t, []string{"id"}, members.Lookup(MembersField).Names())
}

func TestParse_RoundTripsThroughString(t *testing.T) {
	sel, err := Parse("name members(limit: 2) { name }")
	require.NoError(t, err)
	require.Equal(t, "{name members(limit: 2) {name}}", sel.String())

	again, err := Parse(sel.String())
	require.NoError(t, err)
	require.Equal(t, sel.String(), again.String())
}

func TestParse_Errors(t *testing.T) {
	for _, src := range []string{
		"name {",
		"alias: name",
		"members(limit: \"ten\")",
		"members(limit: -1)",
		"members(first: 1)",
		"{ ...F } fragment F on T { a }",
	} {
		_, err := Parse(src)
		require.Error(t, err, src)
	}
}
