// Package errors provides coded, actionable errors for the command line.
//
// Each error has a unique code that maps to a short message, a detailed
// explanation and an optional suggestion:
//
//   - E1xx: configuration
//   - E2xx: prerendering and publishing
//   - E3xx: serving
//
// # Usage
//
//	err := errors.New("E102").
//	    WithDetail(`"concurrency" is -1`).
//	    WithSuggestion("Set concurrency to a positive number")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E102: Invalid configuration value
//	//
//	//   "concurrency" is -1
//	//
//	//   Hint: Set concurrency to a positive number
package errors
