package ast

// Template is the root AST node for a subtitle template: an author-defined
// bundle of rules and variables describing how a transcript is animated.
//
// ID is the template's stable identity. Compiled templates and cached
// variables are keyed by it, so a template edited in place must either get
// a new ID or be invalidated explicitly.
type Template struct {
	// Metadata
	ID          string   // Stable template identifier (required)
	Name        string   // Human-readable name
	Version     string   // Template version
	Description string   // Human-readable description
	Author      string   // Template author
	Tags        []string // Tags for categorization

	// Content
	Variables []*Variable // Variable declarations (declaration order)
	Rules     []*Rule     // Rules (declaration order matters for tie-breaking)

	// Source tracking
	SourceFile string   // Path to the template document, if any
	Location   Location // Source location
}

// Variable is a named, template-scoped expression computed once per
// transcript and reused for every word.
type Variable struct {
	Name       string   // Variable name, referenced as variables.<name>
	Expression string   // Expression source
	Cached     bool     // Memoize across applications for the same transcript
	Location   Location // Source location
}

// GetVariable returns the variable with the given name, or nil if not found.
func (t *Template) GetVariable(name string) *Variable {
	for _, v := range t.Variables {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// HasVariable returns true if the template declares a variable with the given name.
func (t *Template) HasVariable(name string) bool {
	return t.GetVariable(name) != nil
}

// GetRule returns the rule with the given id, or nil if not found.
func (t *Template) GetRule(id string) *Rule {
	for _, rule := range t.Rules {
		if rule.ID == id {
			return rule
		}
	}
	return nil
}

// HasRule returns true if the template has a rule with the given id.
func (t *Template) HasRule(id string) bool {
	return t.GetRule(id) != nil
}

// EnabledRules returns all enabled rules in declaration order.
func (t *Template) EnabledRules() []*Rule {
	var enabled []*Rule
	for _, rule := range t.Rules {
		if rule.IsEnabled() {
			enabled = append(enabled, rule)
		}
	}
	return enabled
}

// RuleCount returns the total number of rules in the template.
func (t *Template) RuleCount() int {
	return len(t.Rules)
}
