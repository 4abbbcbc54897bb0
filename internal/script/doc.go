// Package script defines the boundary between the test harness and the
// interpreter that runs the scripts under test.
//
// The harness never looks inside an interpreter. It parses source into a
// Program, executes programs and callable values against an Instance, reads
// declarative directives with CollectMetadata and inspects the final top-level
// scope through Instance.Scope. Every failure the interpreter attributes to the
// script itself is reported as a *Error; any other error returned across this
// boundary is treated by callers as a failure of the harness.
package script
