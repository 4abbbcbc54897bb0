// Package harness runs script files as tests and collects their results.
//
// # Test files
//
// Every regular file under the test root is a test file. A file is run in its
// own interpreter instance through these steps, strictly in order:
//
//  1. Parse the file.
//  2. Load the files named by its imports directive, relative to the file's
//     directory, and execute them in declared order.
//  3. Execute the file's top-level body.
//  4. Inspect the final scope and call every binding carrying a test attribute.
//
// A failure in one step does not stop later steps; every failure is recorded
// as a TestError attributed to the step that produced it, and a file passes
// iff it recorded none.
//
// # Test attributes
//
// A callable bound with attribute test = true is an ordinary test: it fails if
// calling it raises a script error. A callable bound with test = "err" is an
// expected-error test: it fails if calling it does NOT raise a script error.
// Any other attribute name or value is reported as an error of its own.
//
// # Errors
//
// Only script errors (script.Error) are recovered. Anything else, including
// an unreadable file or a malformed imports directive, is harness-fatal and is
// handled according to the walker's FatalPolicy.
//
// # Usage
//
//	w := harness.NewWalker(engine.New(), harness.Options{OnFatal: harness.FatalIsolate})
//	results, err := w.Walk(ctx, "tests")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range results {
//	    fmt.Println(r.Path, r.Pass)
//	}
package harness
