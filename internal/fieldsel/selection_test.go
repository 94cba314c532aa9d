package fieldsel

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLookup_Variants(t *testing.T) {
	sel := Subset(
		Include("name"),
		Nested("members", Subset(Include("breed")).Page(1, 2)),
	)

	cases := []struct {
		name string
		sel  *Selection
		key  string
		want Kind
	}{
		{name: "NilIsAll", sel: nil, key: "anything", want: IncludeAll},
		{name: "AllPropagates", sel: All(), key: "anything", want: IncludeAll},
		{name: "NoneExcludes", sel: None(), key: "name", want: Exclude},
		{name: "SubsetListed", sel: sel, key: "name", want: IncludeAll},
		{name: "SubsetNested", sel: sel, key: "members", want: IncludeSubset},
		{name: "SubsetUnlisted", sel: sel, key: "dog", want: Exclude},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.sel.Lookup(tc.key).Kind(); got != tc.want {
				t.Fatalf("Lookup(%q).Kind() = %v, want %v", tc.key, got, tc.want)
			}
		})
	}

	members := sel.Lookup(MembersField)
	off, lim := members.Bounds()
	if off != 1 || lim != 2 {
		t.Fatalf("bounds = (%d, %d), want (1, 2)", off, lim)
	}
	if !members.Included("breed") || members.Included("name") {
		t.Fatalf("member selection should include only breed")
	}
}

func TestSubset_DuplicateReplacesInPlace(t *testing.T) {
	sel := Subset(Include("a"), Include("b"), Nested("a", None()))
	if diff := cmp.Diff([]string{"a", "b"}, sel.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if sel.Included("a") {
		t.Fatalf("later duplicate should win")
	}
}

func TestPage_DoesNotMutateShared(t *testing.T) {
	paged := All().Page(3, 4)
	if off, lim := All().Bounds(); off != 0 || lim != 0 {
		t.Fatalf("All() mutated: (%d, %d)", off, lim)
	}
	if off, lim := paged.Bounds(); off != 3 || lim != 4 {
		t.Fatalf("paged bounds = (%d, %d)", off, lim)
	}
	if paged.Kind() != IncludeAll {
		t.Fatalf("paging should keep the variant")
	}
}
