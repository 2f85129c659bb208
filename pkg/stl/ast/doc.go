// Package ast provides the Abstract Syntax Tree definitions for the Subtitle
// Template Language (STL).
//
// A template has two layers. The document layer (Template, Rule, Variable,
// AnimationSpec, Timing) mirrors the authored YAML/JSON/TOML structure and
// keeps condition and variable expressions as source strings. The expression
// layer (Expr and its node types) is the closed form those strings compile
// into: literals, context references, list literals, unary and binary
// operators, and helper calls.
//
// # Core Types
//
// Template: Root node containing metadata, variables, and rules
//
// Rule: Condition, priority, conflict group, and animation
//
// Variable: Named expression computed once per transcript
//
// Expr: Literal, Ref, List, Unary, Binary, Call
//
// Location: Source location (file, line, column, logical path)
//
// # Document Structure
//
//	Template
//	├── Metadata (id, name, version, description, ...)
//	├── Variables ([]*Variable, declaration order)
//	└── Rules ([]*Rule, declaration order)
//	    ├── Condition (expression source)
//	    └── Animation
//	        ├── PluginName
//	        ├── Params (map[string]any)
//	        ├── Timing (offset, duration, delay, easing, stagger)
//	        └── Intensity / IntensityExpr
//
// # Immutability
//
// AST nodes should be treated as immutable after construction. Compiled
// templates keep pointers into the AST and are cached by template ID.
package ast
