package synth

import (
	"fmt"
	"strings"

	"github.com/toolforge-dev/toolforge/internal/session"
)

// goEmitter renders net/http based tool functions. Each synthesis run yields
// a self-contained file in package tools.
type goEmitter struct{}

func (goEmitter) FuncName(op Operation) string {
	return toCamel(op.Name, true)
}

func (goEmitter) Prologue(_ session.Configuration, ops []Operation) string {
	hasBody := false
	hasQuery := false
	for _, op := range ops {
		if op.HasBody {
			hasBody = true
		}
		if len(op.QueryParams) > 0 {
			hasQuery = true
		}
	}

	imports := []string{`"context"`, `"encoding/json"`, `"fmt"`, `"net/http"`}
	if hasBody {
		imports = append([]string{`"bytes"`}, imports...)
	}
	if hasQuery {
		imports = append(imports, `"net/url"`)
	}

	return "package tools\n\nimport (\n\t" + strings.Join(imports, "\n\t") + "\n)\n"
}

func (goEmitter) Emit(cfg session.Configuration, op Operation) string {
	var b strings.Builder
	name := toCamel(op.Name, true)

	if op.Summary != "" {
		fmt.Fprintf(&b, "\n// %s %s\n", name, lowerFirst(op.Summary))
	} else {
		b.WriteByte('\n')
	}

	params := []string{"ctx context.Context", "client *http.Client"}
	for _, p := range op.PathParams {
		params = append(params, toCamel(p.Name, false)+" string")
	}
	for _, p := range op.QueryParams {
		params = append(params, toCamel(p.Name, false)+" string")
	}
	if op.HasBody {
		params = append(params, "body any")
	}
	fmt.Fprintf(&b, "func %s(%s) (map[string]any, error) {\n", name, strings.Join(params, ", "))

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	pathExpr := fmt.Sprintf("%q", base+op.Path)
	for _, p := range op.PathParams {
		pathExpr = strings.Replace(pathExpr, "{"+p.Name+"}", `"+`+toCamel(p.Name, false)+`+"`, 1)
	}
	fmt.Fprintf(&b, "\tendpoint := %s\n", strings.TrimSuffix(strings.TrimPrefix(pathExpr, `""+`), `+""`))

	if len(op.QueryParams) > 0 {
		b.WriteString("\tq := url.Values{}\n")
		for _, p := range op.QueryParams {
			arg := toCamel(p.Name, false)
			fmt.Fprintf(&b, "\tif %s != \"\" {\n\t\tq.Set(%q, %s)\n\t}\n", arg, p.Name, arg)
		}
		b.WriteString("\tif len(q) > 0 {\n\t\tendpoint += \"?\" + q.Encode()\n\t}\n")
	}

	if op.HasBody {
		b.WriteString("\tpayload, err := json.Marshal(body)\n")
		b.WriteString("\tif err != nil {\n\t\treturn nil, err\n\t}\n")
		fmt.Fprintf(&b, "\treq, err := http.NewRequestWithContext(ctx, %q, endpoint, bytes.NewReader(payload))\n", op.Method)
	} else {
		fmt.Fprintf(&b, "\treq, err := http.NewRequestWithContext(ctx, %q, endpoint, nil)\n", op.Method)
	}
	b.WriteString("\tif err != nil {\n\t\treturn nil, err\n\t}\n")
	if op.HasBody {
		b.WriteString("\treq.Header.Set(\"Content-Type\", \"application/json\")\n")
	}

	b.WriteString("\tresp, err := client.Do(req)\n")
	b.WriteString("\tif err != nil {\n\t\treturn nil, err\n\t}\n")
	b.WriteString("\tdefer resp.Body.Close()\n")
	b.WriteString("\tif resp.StatusCode >= 400 {\n")
	fmt.Fprintf(&b, "\t\treturn nil, fmt.Errorf(\"%s: unexpected status %%d\", resp.StatusCode)\n", op.Name)
	b.WriteString("\t}\n")
	b.WriteString("\tvar out map[string]any\n")
	b.WriteString("\tif err := json.NewDecoder(resp.Body).Decode(&out); err != nil {\n\t\treturn nil, err\n\t}\n")
	b.WriteString("\treturn out, nil\n")
	b.WriteString("}\n")

	return b.String()
}

// toCamel converts a snake_case identifier to CamelCase (exported) or
// camelCase (unexported).
func toCamel(name string, exported bool) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 && !exported {
			b.WriteString(p)
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]) + p[1:])
	}
	return b.String()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
