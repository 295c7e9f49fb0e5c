// Package mymodule is reached from other packages through its import path.
// Only exported (capitalized) names are visible from outside.
package mymodule

// Noop does nothing.
func Noop() {}
