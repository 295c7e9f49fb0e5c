// Package long sits at the end of a long import path.
package long

// NestedNoop does nothing, deep down.
func NestedNoop() {}
