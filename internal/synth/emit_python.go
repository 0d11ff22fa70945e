package synth

import (
	"fmt"
	"strings"

	"github.com/toolforge-dev/toolforge/internal/session"
)

// pythonEmitter renders requests-based tool functions.
type pythonEmitter struct{}

func (pythonEmitter) FuncName(op Operation) string {
	return op.Name
}

func (pythonEmitter) Prologue(_ session.Configuration, _ []Operation) string {
	return "import requests\n"
}

func (pythonEmitter) Emit(cfg session.Configuration, op Operation) string {
	var b strings.Builder

	params := make([]string, 0, len(op.PathParams)+len(op.QueryParams)+1)
	for _, p := range op.PathParams {
		params = append(params, p.Name)
	}
	for _, p := range op.QueryParams {
		if p.Required {
			params = append(params, p.Name)
		} else {
			params = append(params, p.Name+"=None")
		}
	}
	if op.HasBody {
		params = append(params, "body=None")
	}

	fmt.Fprintf(&b, "\ndef %s(%s):\n", op.Name, strings.Join(params, ", "))
	if op.Summary != "" {
		fmt.Fprintf(&b, "    \"\"\"%s\"\"\"\n", op.Summary)
	}

	// Path templates like /users/{user_id} line up with the function
	// parameters, so the f-string interpolates them directly.
	fmt.Fprintf(&b, "    url = f\"%s%s\"\n", strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"), op.Path)

	if len(op.QueryParams) > 0 {
		b.WriteString("    params = {}\n")
		for _, p := range op.QueryParams {
			fmt.Fprintf(&b, "    if %s is not None:\n", p.Name)
			fmt.Fprintf(&b, "        params[\"%s\"] = %s\n", p.Name, p.Name)
		}
	}

	method := strings.ToLower(op.Method)
	args := []string{"url"}
	if len(op.QueryParams) > 0 {
		args = append(args, "params=params")
	}
	if op.HasBody {
		args = append(args, "json=body")
	}
	fmt.Fprintf(&b, "    response = requests.%s(%s)\n", method, strings.Join(args, ", "))
	b.WriteString("    response.raise_for_status()\n")
	b.WriteString("    return response.json()\n")

	return b.String()
}
