// Package lesson is the suite the harness ships with: small procedures that
// return nothing, take procedures as arguments, never return or end the
// process, each registered as a test case.
//
// Most cases pass. an_actual_test fails on purpose, will_panic expects a
// panic, loops is tagged nonterminating and aborts is tagged fatal; the
// default profile leaves the last two out.
package lesson
