// Package buildutil provides helpers for reading call attributes out of
// buildtools Starlark syntax trees.
package buildutil

import (
	"github.com/bazelbuild/buildtools/build"
)

// String extracts a string attribute from a function call by name.
// If name is empty and the call has positional arguments, returns the first
// positional string argument.
// Returns empty string if the attribute is not found or not a string.
func String(call *build.CallExpr, name string) string {
	if name == "" && len(call.List) > 0 {
		if str, ok := call.List[0].(*build.StringExpr); ok {
			return str.Value
		}
		return ""
	}

	if str, ok := attr(call, name).(*build.StringExpr); ok {
		return str.Value
	}
	return ""
}

// Bool extracts a boolean attribute from a function call by name.
// Returns false if the attribute is not found or not a boolean identifier.
func Bool(call *build.CallExpr, name string) bool {
	if ident, ok := attr(call, name).(*build.Ident); ok {
		return ident.Name == "True"
	}
	return false
}

// Has reports whether the call sets the named attribute.
func Has(call *build.CallExpr, name string) bool {
	return attr(call, name) != nil
}

// StringList extracts a list of strings attribute from a function call by name.
// A single string is accepted as a one-element list.
// Returns nil if the attribute is not found.
// Non-string elements in the list are silently skipped.
func StringList(call *build.CallExpr, name string) []string {
	switch v := attr(call, name).(type) {
	case *build.StringExpr:
		return []string{v.Value}
	case *build.ListExpr:
		result := make([]string, 0, len(v.List))
		for _, elem := range v.List {
			if str, ok := elem.(*build.StringExpr); ok {
				result = append(result, str.Value)
			}
		}
		return result
	default:
		return nil
	}
}

// PositionalStrings returns all positional string arguments from a call,
// optionally skipping the first n arguments.
func PositionalStrings(call *build.CallExpr, skip int) []string {
	var result []string
	for i, arg := range call.List {
		if i < skip {
			continue
		}
		if _, ok := arg.(*build.AssignExpr); ok {
			continue
		}
		if str, ok := arg.(*build.StringExpr); ok {
			result = append(result, str.Value)
		}
	}
	return result
}

// FuncName returns the function name from a CallExpr.
// Returns empty string if the call is not a simple function call
// (e.g., method calls like foo.bar()).
func FuncName(call *build.CallExpr) string {
	if ident, ok := call.X.(*build.Ident); ok {
		return ident.Name
	}
	return ""
}

// Line returns the 1-based source line a call starts on.
func Line(call *build.CallExpr) int {
	start, _ := call.Span()
	return start.Line
}

func attr(call *build.CallExpr, name string) build.Expr {
	for _, arg := range call.List {
		assign, ok := arg.(*build.AssignExpr)
		if !ok {
			continue
		}
		if lhs, ok := assign.LHS.(*build.Ident); ok && lhs.Name == name {
			return assign.RHS
		}
	}
	return nil
}
