// Package convert drives one site-to-APK conversion attempt.
//
// Step is a pure transition function over Session; the Orchestrator executes
// the effects it returns (validation, encoding, endpoint lookup, the build
// request, saving and notification) and feeds the resulting events back in.
// An Orchestrator runs one attempt at a time and reports exactly one
// notification per attempt.
package convert
