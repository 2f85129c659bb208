// Package validator performs static analysis of subtitle templates.
//
// Validation runs in two passes. The structural pass checks required fields,
// unique rule ids and variable names, finite priorities, intensity ranges and
// timing values. The semantic pass parses every condition, variable and
// intensity expression and checks it against the expression Schema: known
// roots and fields, declared variables, helper names and arities, literal
// regular expressions, and cycles between variables.
//
// Problems are collected, not raised. Analyze returns an Analysis holding
// the errors, the warnings, the parsed expressions, the variable dependency
// order and a complexity estimate:
//
//	analysis := validator.NewValidator().Analyze(tpl)
//	if !analysis.Valid() {
//	    for _, e := range analysis.Errors.Errors {
//	        fmt.Println(e.Short())
//	    }
//	}
//
// A Validator keeps per-run state and must not be shared between goroutines.
package validator
