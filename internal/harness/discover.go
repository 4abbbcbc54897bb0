package harness

import (
	"context"
	"fmt"

	"github.com/roach88/attest/internal/script"
)

const (
	// TestAttr is the attribute name that marks a test function.
	TestAttr = "test"

	// ExpectErrorValue is the test attribute value of an expected-error test.
	ExpectErrorValue = "err"
)

// testKind is the decoded meaning of a test attribute's value.
type testKind int

const (
	testOrdinary    testKind = iota // true
	testExpectError                 // "err"
	testUnexpected                  // false, or any other string
	testMalformed                   // neither a boolean nor a string
)

// decodeTestAttr classifies a test attribute value.
func decodeTestAttr(v script.AttrValue) testKind {
	switch v.Kind {
	case script.AttrBool:
		if v.Bool {
			return testOrdinary
		}
		return testUnexpected
	case script.AttrString:
		if v.Str == ExpectErrorValue {
			return testExpectError
		}
		return testUnexpected
	case script.AttrOther:
		return testMalformed
	default:
		return testMalformed
	}
}

// runTestFunctions calls every test-attributed binding of the final scope.
//
// Bindings are visited in scope order. Invalid attributes are recorded and
// skipped without stopping discovery of the rest.
func (c *Context) runTestFunctions(ctx context.Context) error {
	for _, b := range c.instance.Scope() {
		for _, attr := range b.Value.Attrs {
			if attr.Name != TestAttr {
				c.addError(fmt.Sprintf("Unknown attribute for variable '%s': '%s'", b.Name, attr.Name), "")
				continue
			}
			if !b.Value.Callable {
				c.addError(fmt.Sprintf("'%s' is %s, but has test attribute", b.Name, b.Value.Type), "")
				continue
			}

			var err error
			switch decodeTestAttr(attr.Value) {
			case testOrdinary:
				err = c.runTest(ctx, b)
			case testExpectError:
				err = c.runExpectErrorTest(ctx, b)
			case testUnexpected:
				c.addError(fmt.Sprintf("Unexpected test attribute: %s, function: '%s'", attr.Value.Repr, b.Name), "")
			case testMalformed:
				c.addError(fmt.Sprintf("Unexpected test attribute value: %s, function: '%s'", attr.Value.Repr, b.Name), "")
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// runTest calls an ordinary test function. Any script error is a failure.
func (c *Context) runTest(ctx context.Context, b script.Binding) error {
	return c.guard(labelFunction(b.Name), func() error {
		_, err := c.instance.ExecFn(ctx, b.Value, nil)
		return err
	})
}

// runExpectErrorTest calls a test function that must raise a script error.
func (c *Context) runExpectErrorTest(ctx context.Context, b script.Binding) error {
	label := labelFunction(b.Name)
	c.acceptError = true
	defer func() {
		c.acceptError = false
		c.acceptedError = nil
	}()

	if err := c.guard(label, func() error {
		_, err := c.instance.ExecFn(ctx, b.Value, nil)
		return err
	}); err != nil {
		return err
	}

	if c.acceptedError == nil {
		c.addError("Expected error", label)
	} else {
		c.logger.Debug("expected error raised", "path", c.path, "label", label, "error", c.acceptedError.Message)
	}
	return nil
}
