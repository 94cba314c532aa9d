package fieldsel

import (
	"fmt"
	"strconv"
	"strings"

	language "github.com/hanpama/resgraph/internal/language"
)

// Parse builds a Selection from GraphQL selection syntax:
//
//	name, dog, members(limit: 10, offset: 20) { name }
//
// A field without a sub-selection is included fully. Only integer limit and
// offset arguments are accepted. Empty text selects everything.
func Parse(text string) (*Selection, error) {
	if strings.TrimSpace(text) == "" {
		return All(), nil
	}
	set, err := language.ParseSelectionSet(text)
	if err != nil {
		return nil, fmt.Errorf("fieldsel: %w", err)
	}
	return fromSelectionSet(set)
}

func fromSelectionSet(set language.SelectionSet) (*Selection, error) {
	fields := make([]Field, 0, len(set))
	for _, selection := range set {
		f, ok := selection.(*language.Field)
		if !ok {
			return nil, fmt.Errorf("fieldsel: fragments are not supported")
		}
		if f.Alias != "" && f.Alias != f.Name {
			return nil, fmt.Errorf("fieldsel: alias %q for %q is not supported", f.Alias, f.Name)
		}
		child := All()
		if len(f.SelectionSet) > 0 {
			var err error
			child, err = fromSelectionSet(f.SelectionSet)
			if err != nil {
				return nil, err
			}
		}
		if len(f.Arguments) > 0 {
			offset, limit, err := pageArguments(f)
			if err != nil {
				return nil, err
			}
			child = child.Page(offset, limit)
		}
		fields = append(fields, Nested(f.Name, child))
	}
	return Subset(fields...), nil
}

func pageArguments(f *language.Field) (offset, limit int, err error) {
	for _, arg := range f.Arguments {
		if arg.Value == nil || arg.Value.Kind != language.IntValue {
			return 0, 0, fmt.Errorf("fieldsel: argument %q on %q must be an integer", arg.Name, f.Name)
		}
		n, convErr := strconv.Atoi(arg.Value.Raw)
		if convErr != nil || n < 0 {
			return 0, 0, fmt.Errorf("fieldsel: argument %q on %q must be a non-negative integer", arg.Name, f.Name)
		}
		switch arg.Name {
		case "limit":
			limit = n
		case "offset":
			offset = n
		default:
			return 0, 0, fmt.Errorf("fieldsel: unknown argument %q on %q", arg.Name, f.Name)
		}
	}
	return offset, limit, nil
}
