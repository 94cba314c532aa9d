// Package language wraps the gqlparser AST for the subset of GraphQL syntax
// used to write field selections.
package language

import "github.com/vektah/gqlparser/v2/ast"

type (
	SelectionSet = ast.SelectionSet
	Selection    = ast.Selection
	Field        = ast.Field
	Argument     = ast.Argument
	ArgumentList = ast.ArgumentList
	Value        = ast.Value
	Position     = ast.Position
)

type ValueKind = ast.ValueKind

const (
	Variable     ValueKind = ast.Variable
	IntValue     ValueKind = ast.IntValue
	FloatValue   ValueKind = ast.FloatValue
	StringValue  ValueKind = ast.StringValue
	BooleanValue ValueKind = ast.BooleanValue
	NullValue    ValueKind = ast.NullValue
	EnumValue    ValueKind = ast.EnumValue
)
