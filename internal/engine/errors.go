package engine

import (
	"context"
	"errors"
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/roach88/attest/internal/script"
)

// parseError converts a scanner or parser failure into a script error.
func parseError(err error) *script.Error {
	var se syntax.Error
	if errors.As(err, &se) {
		return script.NewError(script.KindParse, se.Msg, se.Error(), err)
	}
	return script.NewError(script.KindParse, err.Error(), "", err)
}

// resolveError converts a failure to resolve or compile a file into a script
// error. These are static errors in the script, such as an undefined name.
func resolveError(err error) *script.Error {
	return script.NewError(script.KindParse, err.Error(), "", err)
}

// execError classifies an error returned by the interpreter while running
// script code. A cancelled context takes precedence because cancellation
// surfaces from Starlark as an ordinary evaluation error.
func execError(ctx context.Context, err error) *script.Error {
	if ctx.Err() != nil {
		msg := fmt.Sprintf("execution cancelled: %v", context.Cause(ctx))
		return script.NewError(script.KindTimeout, msg, "", err)
	}

	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return script.NewError(script.KindRuntime, evalErr.Msg, evalErr.Backtrace(), err)
	}
	return script.NewError(script.KindRuntime, err.Error(), "", err)
}
