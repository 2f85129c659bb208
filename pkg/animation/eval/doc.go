// Package eval evaluates template expressions against a word context.
//
// Expressions are the closed AST of package ast: literals, references,
// lists, unary and binary operators, and helper calls. They are evaluated by
// structural recursion into a tagged Value (null, boolean, number, string or
// list).
//
// # Coercion Rules
//
// Nothing is coerced implicitly:
//
//   - Ordering operators (< <= > >=) accept two numbers or two strings;
//     anything else is an ErrTypeMismatch. Thresholds compare exactly.
//   - == and != compare kinds strictly; different kinds are never equal and
//     null equals only null.
//   - + adds two numbers or concatenates two strings.
//   - / and % by zero fail with ErrDivisionByZero.
//   - and/or short-circuit and yield booleans from the truthiness of their
//     operands: null is false, numbers are true when non-zero, strings and
//     lists when non-empty.
//   - in, contains, starts_with, ends_with and matches are false for a null
//     subject.
//
// Optional data (word features, metadata keys, prev/next words) resolves to
// null when absent, so coalesce(word.features.loudness, 0) is the idiom for
// defaults.
//
// # Helpers
//
// abs ceil floor round clamp min max between, len lower upper title,
// contains starts_with ends_with matches, coalesce is_null count, and the
// statistics mean stddev median quantile over lists of numbers.
package eval
