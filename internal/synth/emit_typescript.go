package synth

import (
	"fmt"
	"strings"

	"github.com/toolforge-dev/toolforge/internal/session"
)

// typescriptEmitter renders fetch-based async tool functions.
type typescriptEmitter struct{}

func (typescriptEmitter) FuncName(op Operation) string {
	return toCamel(op.Name, false)
}

func (typescriptEmitter) Prologue(_ session.Configuration, _ []Operation) string {
	return ""
}

func (typescriptEmitter) Emit(cfg session.Configuration, op Operation) string {
	var b strings.Builder
	name := toCamel(op.Name, false)

	if op.Summary != "" {
		fmt.Fprintf(&b, "\n/** %s */\n", op.Summary)
	} else {
		b.WriteByte('\n')
	}

	params := make([]string, 0, len(op.PathParams)+len(op.QueryParams)+1)
	for _, p := range op.PathParams {
		params = append(params, toCamel(p.Name, false)+": string")
	}
	for _, p := range op.QueryParams {
		if p.Required {
			params = append(params, toCamel(p.Name, false)+": string")
		} else {
			params = append(params, toCamel(p.Name, false)+"?: string")
		}
	}
	if op.HasBody {
		params = append(params, "body?: unknown")
	}
	fmt.Fprintf(&b, "export async function %s(%s): Promise<unknown> {\n", name, strings.Join(params, ", "))

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	path := op.Path
	for _, p := range op.PathParams {
		path = strings.ReplaceAll(path, "{"+p.Name+"}", "${"+toCamel(p.Name, false)+"}")
	}
	fmt.Fprintf(&b, "  let url = `%s%s`;\n", base, path)

	if len(op.QueryParams) > 0 {
		b.WriteString("  const query = new URLSearchParams();\n")
		for _, p := range op.QueryParams {
			arg := toCamel(p.Name, false)
			fmt.Fprintf(&b, "  if (%s !== undefined) {\n    query.set(%q, %s);\n  }\n", arg, p.Name, arg)
		}
		b.WriteString("  if ([...query].length > 0) {\n    url += `?${query}`;\n  }\n")
	}

	fmt.Fprintf(&b, "  const response = await fetch(url, {\n    method: %q,\n", op.Method)
	if op.HasBody {
		b.WriteString("    headers: { \"Content-Type\": \"application/json\" },\n")
		b.WriteString("    body: JSON.stringify(body),\n")
	}
	b.WriteString("  });\n")
	b.WriteString("  if (!response.ok) {\n")
	fmt.Fprintf(&b, "    throw new Error(`%s: unexpected status ${response.status}`);\n", op.Name)
	b.WriteString("  }\n")
	b.WriteString("  return response.json();\n")
	b.WriteString("}\n")

	return b.String()
}
