// Package webtmpl renders text templates for CGI-style web output.
//
// Templates are plain text with directives between {{ and }} delimiters:
//
//	Hello {{$username}}{{#FOR orders}} #{{.$id}}:{{.$total}}{{#ENDFOR}} ({{%ROWS}} orders)
//
// # Basic Usage
//
// Create an engine, load a template, bind values and render:
//
//	engine := webtmpl.MustNew()
//	engine.LoadString(source)
//	engine.Set("username", "alice")
//	engine.DefineLoop("orders", "id", "total")
//	engine.AppendRow("orders", []string{"1", "20"})
//	engine.AppendRow("orders", []string{"2", "30"})
//	out := engine.RenderString()
//	// out: "Hello alice #1:20 #2:30 (2 orders)"
//
// # Template Syntax
//
// Values:
//
//	{{$name}}              scalar value, "" when unset
//	{{.$field}}            field of the current row of the loop in scope
//	{{.$field@loop}}       field of the current row of a named loop
//	{{%CURSOR}}            1-based row number of the loop in scope ({{%CURSOR@loop}} for a named one)
//	{{%ROWS}}              row count of the loop in scope ({{%ROWS@loop}} for a named one)
//	{{%DATE}} {{%TIME}}    render start date and time
//	{{%SPACE}} {{%BLANK}}  a single space, the empty string
//
// The part after @ is itself resolved, so {{.$id@$which}} reads the loop named by $which.
//
// Blocks:
//
//	{{#FOR loop}} ... {{#ENDFOR}}
//	{{#IF cond}} ... {{#ELSIF cond}} ... {{#ELSE}} ... {{#ENDIF}}
//
// A condition is a single comparison (==, !=, <=, <, >=, >) or a lone value, which is
// true unless it is "" or "0". Two all-digit operands compare as integers, anything else
// compares byte-wise. AND(c1,c2,...) and OR(c1,c2,...) combine a flat list of comparisons.
//
// # Diagnostics
//
// Rendering never fails on template problems. Unknown tags are passed through, unclosed
// blocks run to the end of input, and every such event is recorded with its line number:
//
//	engine.RenderWithDiagnostics(w) // appends an HTML comment listing loops and diagnostics
//	for _, d := range engine.Diagnostics() { ... }
//
// # Configuration
//
// Customize the engine with functional options:
//
//	engine, _ := webtmpl.New(
//	    webtmpl.WithLogger(logger),
//	    webtmpl.WithDelimiters("<%", "%>"),
//	)
package webtmpl
