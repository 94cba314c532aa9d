// Package fieldsel models per-request field selections: a recursive variant
// that is IncludeAll, Exclude, or an explicit subset mapping names to nested
// selections. One level is consumed per traversal depth.
package fieldsel

import (
	"strconv"
	"strings"
)

// Kind distinguishes the three selection variants.
type Kind uint8

const (
	IncludeAll Kind = iota
	Exclude
	IncludeSubset
)

func (k Kind) String() string {
	switch k {
	case IncludeAll:
		return "all"
	case Exclude:
		return "exclude"
	case IncludeSubset:
		return "subset"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// MembersField is the reserved name selecting a collection's members. Its
// nested selection applies to every member and its bounds paginate them.
const MembersField = "members"

// Selection is immutable once built. A nil *Selection behaves as All().
type Selection struct {
	kind    Kind
	entries []entry
	index   map[string]int
	offset  int
	limit   int
}

type entry struct {
	name string
	sel  *Selection
}

// Field names one entry of a subset.
type Field struct {
	Name      string
	Selection *Selection
}

var (
	all  = &Selection{kind: IncludeAll}
	none = &Selection{kind: Exclude}
)

// All includes every name at this level and below.
func All() *Selection { return all }

// None excludes everything.
func None() *Selection { return none }

// Include selects name fully.
func Include(name string) Field { return Field{Name: name, Selection: all} }

// Nested selects name with a sub-selection.
func Nested(name string, sel *Selection) Field { return Field{Name: name, Selection: sel} }

// Subset includes only the given names. A later duplicate replaces an earlier
// one in place.
func Subset(fields ...Field) *Selection {
	s := &Selection{kind: IncludeSubset, index: make(map[string]int, len(fields))}
	for _, f := range fields {
		sel := f.Selection
		if sel == nil {
			sel = all
		}
		if i, ok := s.index[f.Name]; ok {
			s.entries[i].sel = sel
			continue
		}
		s.index[f.Name] = len(s.entries)
		s.entries = append(s.entries, entry{name: f.Name, sel: sel})
	}
	return s
}

// Kind returns the variant of s.
func (s *Selection) Kind() Kind {
	if s == nil {
		return IncludeAll
	}
	return s.kind
}

// Lookup returns the selection governing name one level down.
func (s *Selection) Lookup(name string) *Selection {
	switch s.Kind() {
	case IncludeAll:
		return all
	case IncludeSubset:
		if i, ok := s.index[name]; ok {
			return s.entries[i].sel
		}
	}
	return none
}

// Included reports whether name is selected at this level.
func (s *Selection) Included(name string) bool {
	return s.Lookup(name).Kind() != Exclude
}

// Names returns the explicitly listed names of a subset in order.
func (s *Selection) Names() []string {
	if s.Kind() != IncludeSubset {
		return nil
	}
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.name
	}
	return out
}

// Page returns a copy of s bounded to limit items after skipping offset.
// A limit of zero means unbounded.
func (s *Selection) Page(offset, limit int) *Selection {
	if s == nil {
		s = all
	}
	cp := *s
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	cp.offset = offset
	cp.limit = limit
	return &cp
}

// Bounds returns the pagination offset and limit (0 = unbounded).
func (s *Selection) Bounds() (offset, limit int) {
	if s == nil {
		return 0, 0
	}
	return s.offset, s.limit
}

// String renders s for diagnostics. Subsets render in the syntax accepted by
// Parse; All and None render as "*" and "-".
func (s *Selection) String() string {
	var b strings.Builder
	s.render(&b)
	return b.String()
}

func (s *Selection) render(b *strings.Builder) {
	switch s.Kind() {
	case IncludeAll:
		b.WriteString("*")
		return
	case Exclude:
		b.WriteString("-")
		return
	}
	b.WriteString("{")
	for i, e := range s.entries {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(e.name)
		if off, lim := e.sel.Bounds(); off > 0 || lim > 0 {
			var args []string
			if lim > 0 {
				args = append(args, "limit: "+strconv.Itoa(lim))
			}
			if off > 0 {
				args = append(args, "offset: "+strconv.Itoa(off))
			}
			b.WriteString("(" + strings.Join(args, ", ") + ")")
		}
		if e.sel.Kind() == IncludeSubset {
			b.WriteString(" ")
			e.sel.render(b)
		}
	}
	b.WriteString("}")
}
