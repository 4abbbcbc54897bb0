// Package report renders test run results.
//
// Build turns harness results into a RunReport, the shape shared by the JSON
// output and the results store. TextReporter prints the human-readable form:
//
//	✔ ok.star
//	✘ bad.star
//	  • function 'test_math'
//	    Traceback (most recent call last):
//	    ...
//
//	1 passed, 1 failed, 2 total
//
// Each FileReport carries a digest of its canonical JSON form so two runs of
// the same tree can be compared without looking at timings.
package report
