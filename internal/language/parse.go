package language

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// ParseSelectionSet parses a single anonymous selection set. The surrounding
// braces are optional: "name, dog" and "{ name dog }" are equivalent.
func ParseSelectionSet(source string) (SelectionSet, error) {
	src := strings.TrimSpace(source)
	if !strings.HasPrefix(src, "{") {
		src = "{" + src + "}"
	}
	doc, err := parser.ParseQuery(&ast.Source{Name: "fields", Input: src})
	if err != nil {
		return nil, err
	}
	if len(doc.Fragments) > 0 {
		return nil, fmt.Errorf("fragments are not allowed in a selection")
	}
	if len(doc.Operations) != 1 {
		return nil, fmt.Errorf("expected a single selection set, got %d", len(doc.Operations))
	}
	return doc.Operations[0].SelectionSet, nil
}
