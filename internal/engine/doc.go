// Package engine runs Starlark scripts on behalf of the test harness.
//
// It implements the script.Engine boundary on top of go.starlark.net and adds
// the two conventions the harness relies on:
//
// # Metadata
//
// A script declares directives with a top-level assignment of a literal
// dictionary to __meta__. The value is read from the syntax tree without
// executing the script:
//
//	__meta__ = {"imports": ["helpers.star", "fixtures/data.star"]}
//
// # Attributes
//
// The predeclared builtin attr tags a value with an attribute. Tagged callables
// stay callable, and tagging an already tagged value adds another attribute:
//
//	def test_sum():
//	    if 1 + 1 != 2:
//	        fail("math is broken")
//
//	test_sum = attr(test_sum, "test")
//
//	def test_rejects_zero():
//	    divide(1, 0)
//
//	test_rejects_zero = attr(test_rejects_zero, "test", "err")
//
// All programs executed on one Instance share its top-level scope: globals
// defined by an earlier program are predeclared for the next one, and
// Instance.Scope lists them in the order they were first bound.
//
// WithMaxSteps caps the interpreter steps of each Exec or ExecFn call. A
// script that runs past the cap fails with a timeout error wrapping
// *StepsExceededError.
package engine
