// Package parser reads subtitle template documents and expression sources.
//
// Templates are authored as YAML (JSON is accepted as a YAML subset) or TOML,
// chosen by file extension. The document layer builds an ast.Template with
// source locations; condition, variable and intensity expressions stay as
// strings until the compiler calls ParseExpression on them.
//
// # Basic Usage
//
//	tpl, err := parser.ParseFile("templates/karaoke.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Parse from memory:
//
//	data := []byte(`
//	id: emphasis
//	variables:
//	  - name: loud
//	    expression: "quantile(audioData.confidences, 0.75)"
//	    cached: true
//	rules:
//	  - id: r1
//	    condition: "word.confidence >= variables.loud"
//	    priority: 1
//	    animation:
//	      pluginName: bounce
//	      timing:
//	        offset: ["0", "200ms"]
//	`)
//	tpl, err := parser.ParseBytes(data, "memory://emphasis.yaml")
//
// Parse an expression:
//
//	expr, perr := parser.ParseExpression(`word.emotion in ["happy", "excited"] and not position.isLastInSegment`, ast.Location{})
//
// # Expression Syntax
//
// Operators by increasing precedence: "or"/"||", "and"/"&&", "not", the
// comparisons (== != < <= > >= in contains matches starts_with ends_with),
// "+ -", "* / %", and prefix "-"/"!". Strings take single or double quotes;
// lists use brackets. Identifiers followed by "(" are helper calls; other
// identifiers start a dotted context reference such as word.features.pitch.
package parser
