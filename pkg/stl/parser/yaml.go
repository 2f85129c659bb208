package parser

import (
	"fmt"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// templateDoc represents the intermediate structure for parsing template
// documents. It matches the authored YAML/JSON/TOML structure before
// transformation to AST.
type templateDoc struct {
	ID          string       `yaml:"id" toml:"id"`
	Name        string       `yaml:"name" toml:"name"`
	Version     string       `yaml:"version" toml:"version"`
	Description string       `yaml:"description" toml:"description"`
	Author      string       `yaml:"author" toml:"author"`
	Tags        []string     `yaml:"tags" toml:"tags"`
	Variables   variableDocs `yaml:"variables" toml:"variables"`
	Rules       []ruleDoc    `yaml:"rules" toml:"rules"`
}

// variableDoc represents an intermediate variable declaration.
type variableDoc struct {
	Name       string `yaml:"name" toml:"name"`
	Expression string `yaml:"expression" toml:"expression"`
	Cached     bool   `yaml:"cached" toml:"cached"`

	// Internal tracking
	line, column int
}

// variableDocs accepts either a list of declarations or, in YAML, a mapping
// of name to expression (or to a declaration without its name).
type variableDocs []variableDoc

// ruleDoc represents an intermediate rule structure.
type ruleDoc struct {
	ID          string       `yaml:"id" toml:"id"`
	Description string       `yaml:"description" toml:"description"`
	Condition   string       `yaml:"condition" toml:"condition"`
	Priority    any          `yaml:"priority" toml:"priority"`
	Group       string       `yaml:"group" toml:"group"`
	Enabled     *bool        `yaml:"enabled" toml:"enabled"` // Pointer to distinguish unset vs false
	Animation   animationDoc `yaml:"animation" toml:"animation"`

	// Internal tracking
	line, column int
}

// animationDoc represents an intermediate animation spec.
type animationDoc struct {
	PluginName    string         `yaml:"pluginName" toml:"pluginName"`
	Params        map[string]any `yaml:"params" toml:"params"`
	Timing        timingDoc      `yaml:"timing" toml:"timing"`
	Intensity     any            `yaml:"intensity" toml:"intensity"`
	IntensityExpr string         `yaml:"intensityExpr" toml:"intensityExpr"`
}

// timingDoc keeps timing values loosely typed: authors write both "200ms" and 200.
type timingDoc struct {
	Offset   []any  `yaml:"offset" toml:"offset"`
	Duration any    `yaml:"duration" toml:"duration"`
	Delay    any    `yaml:"delay" toml:"delay"`
	Easing   string `yaml:"easing" toml:"easing"`
	Stagger  any    `yaml:"stagger" toml:"stagger"`
}

// UnmarshalYAML decodes a rule and records its position.
func (r *ruleDoc) UnmarshalYAML(node *yaml.Node) error {
	type plain ruleDoc
	if err := node.Decode((*plain)(r)); err != nil {
		return err
	}
	r.line, r.column = node.Line, node.Column
	return nil
}

// UnmarshalYAML decodes a variable declaration and records its position.
func (v *variableDoc) UnmarshalYAML(node *yaml.Node) error {
	type plain variableDoc
	if err := node.Decode((*plain)(v)); err != nil {
		return err
	}
	v.line, v.column = node.Line, node.Column
	return nil
}

// UnmarshalYAML decodes the variables section in either accepted form,
// preserving declaration order.
func (vs *variableDocs) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []variableDoc
		if err := node.Decode(&list); err != nil {
			return err
		}
		*vs = list
		return nil

	case yaml.MappingNode:
		list := make([]variableDoc, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			v := variableDoc{Name: key.Value, line: key.Line, column: key.Column}

			switch value.Kind {
			case yaml.ScalarNode:
				v.Expression = value.Value
			case yaml.MappingNode:
				var decl variableDoc
				if err := value.Decode(&decl); err != nil {
					return err
				}
				v.Expression = decl.Expression
				v.Cached = decl.Cached
			default:
				return fmt.Errorf("line %d: variable %q must be an expression string or a mapping", value.Line, key.Value)
			}
			list = append(list, v)
		}
		*vs = list
		return nil

	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*vs = nil
			return nil
		}
	}

	return fmt.Errorf("line %d: variables must be a list or a mapping", node.Line)
}

// parseYAMLBytes parses YAML (or JSON) bytes into the intermediate structure.
func parseYAMLBytes(data []byte) (*templateDoc, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}

	var doc templateDoc
	if err := node.Decode(&doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// yamlErrorLine extracts the first line number mentioned in a yaml.v3 error,
// or 1 when none is present.
func yamlErrorLine(err error) int {
	m := yamlLinePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 1
	}
	n, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return 1
	}
	return n
}
