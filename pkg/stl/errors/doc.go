// Package errors provides rich error types for template parsing and validation.
//
// Template problems are data, not control flow: the compiler collects them in
// an ErrorList and attaches them to the compiled template, so a caller can
// report every problem at once instead of failing on the first.
//
// # Error Types
//
// ErrorTypeSyntax: malformed document or expression syntax
//
// ErrorTypeStructural: missing or invalid template fields
//
// ErrorTypeSemantic: undeclared variables, unknown fields or helpers, cycles
//
// ErrorTypeValidation: animation and timing problems
//
// ErrorTypeIO: file I/O errors
//
// # Error Format
//
//	[semantic] Rule "emphasis" references undeclared variable "treshold"
//	  --> templates/karaoke.yaml:14:7 (rules[1].condition)
//	  = suggestion: Did you mean 'threshold'?
package errors
