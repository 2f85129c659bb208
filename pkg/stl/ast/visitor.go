package ast

// Visitor provides an interface for traversing a template.
// Implement this interface to perform operations on template nodes
// (validation, analysis, etc.).
type Visitor interface {
	VisitTemplate(*Template) error
	VisitVariable(*Variable) error
	VisitRule(*Rule) error
}

// Walk traverses the template and calls the visitor for the template, then
// each variable, then each rule, in declaration order. It returns the first
// error encountered, or nil if traversal completes.
func Walk(tpl *Template, visitor Visitor) error {
	if err := visitor.VisitTemplate(tpl); err != nil {
		return err
	}

	for _, variable := range tpl.Variables {
		if err := visitor.VisitVariable(variable); err != nil {
			return err
		}
	}

	for _, rule := range tpl.Rules {
		if err := visitor.VisitRule(rule); err != nil {
			return err
		}
	}

	return nil
}

// Inspect traverses an expression depth-first, calling fn for each node.
// If fn returns false, the children of that node are skipped.
func Inspect(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}

	switch n := e.(type) {
	case *List:
		for _, el := range n.Elems {
			Inspect(el, fn)
		}
	case *Unary:
		Inspect(n.X, fn)
	case *Binary:
		Inspect(n.Left, fn)
		Inspect(n.Right, fn)
	case *Call:
		for _, a := range n.Args {
			Inspect(a, fn)
		}
	}
}
