package synth

import (
	"fmt"
	"strings"

	"github.com/toolforge-dev/toolforge/internal/session"
)

// rustEmitter renders blocking reqwest tool functions. Crate paths are fully
// qualified so fragments need no use declarations.
type rustEmitter struct{}

func (rustEmitter) FuncName(op Operation) string {
	return op.Name
}

func (rustEmitter) Prologue(_ session.Configuration, _ []Operation) string {
	return ""
}

func (rustEmitter) Emit(cfg session.Configuration, op Operation) string {
	var b strings.Builder

	if op.Summary != "" {
		fmt.Fprintf(&b, "\n/// %s\n", op.Summary)
	} else {
		b.WriteByte('\n')
	}

	params := make([]string, 0, len(op.PathParams)+len(op.QueryParams)+1)
	for _, p := range op.PathParams {
		params = append(params, rustIdent(p.Name)+": &str")
	}
	for _, p := range op.QueryParams {
		params = append(params, rustIdent(p.Name)+": Option<&str>")
	}
	if op.HasBody {
		params = append(params, "body: &serde_json::Value")
	}
	fmt.Fprintf(&b, "pub fn %s(%s) -> Result<serde_json::Value, Box<dyn std::error::Error>> {\n",
		op.Name, strings.Join(params, ", "))

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	path := op.Path
	for _, p := range op.PathParams {
		path = strings.ReplaceAll(path, "{"+p.Name+"}", "{"+rustIdent(p.Name)+"}")
	}
	fmt.Fprintf(&b, "    let mut url = format!(\"%s%s\");\n", base, path)

	if len(op.QueryParams) > 0 {
		b.WriteString("    let mut query: Vec<String> = Vec::new();\n")
		for _, p := range op.QueryParams {
			arg := rustIdent(p.Name)
			fmt.Fprintf(&b, "    if let Some(v) = %s {\n", arg)
			fmt.Fprintf(&b, "        query.push(format!(\"%s={}\", v));\n", p.Name)
			b.WriteString("    }\n")
		}
		b.WriteString("    if !query.is_empty() {\n")
		b.WriteString("        url = format!(\"{}?{}\", url, query.join(\"&\"));\n")
		b.WriteString("    }\n")
	}

	b.WriteString("    let client = reqwest::blocking::Client::new();\n")
	method := strings.ToLower(op.Method)
	if op.HasBody {
		fmt.Fprintf(&b, "    let response = client.%s(&url).json(body).send()?;\n", method)
	} else {
		fmt.Fprintf(&b, "    let response = client.%s(&url).send()?;\n", method)
	}
	b.WriteString("    let response = response.error_for_status()?;\n")
	b.WriteString("    Ok(response.json()?)\n")
	b.WriteString("}\n")

	return b.String()
}

// rustIdent guards against parameter names that collide with keywords.
func rustIdent(name string) string {
	switch name {
	case "type", "ref", "self", "match", "move", "fn", "impl":
		return name + "_"
	default:
		return name
	}
}
