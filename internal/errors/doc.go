// Package errors provides structured, actionable errors for the qaglue
// command line and configuration layer.
//
// Each error carries a code (e.g. "Q101") that maps to a category, a short
// message and a longer explanation. Callers add detail and a hint with the
// builder methods and wrap the underlying cause:
//
//	err := errors.New("Q101").
//	    WithDetail("parsing qaglue.json: unexpected end of JSON input").
//	    WithSuggestion("Check the file for trailing commas").
//	    Wrap(cause)
//
//	errors.PrintError(err)
//	// ERROR Q101: Invalid configuration file
//	//
//	//   parsing qaglue.json: unexpected end of JSON input
//	//
//	//   Hint: Check the file for trailing commas
package errors
