// Package rules implements the rule engine: it evaluates the compiled rules
// of a template against one word and decides which animations apply.
//
// # Conflict Resolution
//
// Every matching rule belongs to a conflict group ("default" unless the
// rule declares one). Inside a group exactly one rule wins, chosen by a
// total order:
//
//  1. higher priority
//  2. more specific condition (more clauses joined by and/or)
//  3. earlier declaration
//
// Groups with more than one match produce a Conflict listing all of the
// group's matches, so losing rules remain visible to diagnostics.
//
// # Failures
//
// A condition that fails to evaluate marks only its own rule as
// non-matching and adds one RuleError; sibling rules are unaffected.
package rules
