package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// Param is one named parameter of an operation.
type Param struct {
	Name     string
	Required bool
}

// Operation is the language-independent description of one API endpoint,
// extracted from the swagger spec.
type Operation struct {
	Name        string
	Method      string
	Path        string
	Summary     string
	PathParams  []Param
	QueryParams []Param
	HasBody     bool
}

// methodOrder fixes the emission order of operations sharing a path.
var methodOrder = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}

// ParseOperations loads data as an OpenAPI document and extracts its
// operations in deterministic order: paths sorted lexically, methods in
// methodOrder. Swagger 2.0 documents are converted to OpenAPI 3 first.
func ParseOperations(ctx context.Context, data []byte) ([]Operation, error) {
	doc, err := loadDocument(ctx, data)
	if err != nil {
		return nil, err
	}
	if doc.Paths == nil {
		return nil, nil
	}

	paths := make([]string, 0, doc.Paths.Len())
	for p := range doc.Paths.Map() {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var ops []Operation
	for _, path := range paths {
		item := doc.Paths.Value(path)
		for _, method := range methodOrder {
			op := item.GetOperation(method)
			if op == nil {
				continue
			}
			ops = append(ops, buildOperation(method, path, item, op))
		}
	}
	return ops, nil
}

func loadDocument(ctx context.Context, data []byte) (*openapi3.T, error) {
	if isSwagger2(data) {
		v2, err := loadSwagger2(data)
		if err != nil {
			return nil, err
		}
		doc, err := openapi2conv.ToV3(v2)
		if err != nil {
			return nil, fmt.Errorf("synth: convert swagger 2.0 document: %w", err)
		}
		return doc, nil
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("synth: load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("synth: validate openapi document: %w", err)
	}
	return doc, nil
}

// isSwagger2 sniffs for a top-level "swagger" version field in either JSON
// or YAML. The loader in kin-openapi only accepts OpenAPI 3 documents, so
// 2.0 needs conversion.
func isSwagger2(data []byte) bool {
	var probe struct {
		Swagger string `json:"swagger" yaml:"swagger"`
	}
	if err := json.Unmarshal(data, &probe); err == nil {
		return probe.Swagger != ""
	}
	if err := yaml.Unmarshal(data, &probe); err == nil {
		return probe.Swagger != ""
	}
	return false
}

// loadSwagger2 decodes a Swagger 2.0 document from JSON or, failing that,
// YAML re-encoded as JSON.
func loadSwagger2(data []byte) (*openapi2.T, error) {
	var v2 openapi2.T
	if err := v2.UnmarshalJSON(data); err == nil {
		return &v2, nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("synth: decode swagger 2.0 document: %w", err)
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("synth: re-encode swagger 2.0 document: %w", err)
	}
	if err := v2.UnmarshalJSON(encoded); err != nil {
		return nil, fmt.Errorf("synth: decode swagger 2.0 document: %w", err)
	}
	return &v2, nil
}

func buildOperation(method, path string, item *openapi3.PathItem, op *openapi3.Operation) Operation {
	out := Operation{
		Name:    op.OperationID,
		Method:  method,
		Path:    path,
		Summary: strings.TrimSpace(op.Summary),
	}
	if out.Name == "" {
		out.Name = deriveName(method, path)
	}
	out.Name = sanitizeName(out.Name)

	// Path-level parameters apply to every operation on the path.
	collect := func(params openapi3.Parameters) {
		for _, ref := range params {
			if ref == nil || ref.Value == nil {
				continue
			}
			p := ref.Value
			switch p.In {
			case openapi3.ParameterInPath:
				out.PathParams = append(out.PathParams, Param{Name: p.Name, Required: true})
			case openapi3.ParameterInQuery:
				out.QueryParams = append(out.QueryParams, Param{Name: p.Name, Required: p.Required})
			}
		}
	}
	collect(item.Parameters)
	collect(op.Parameters)

	out.HasBody = op.RequestBody != nil

	return out
}

// deriveName builds an operation name from method and path for operations
// without an operationId, e.g. GET /payments/{id}/status -> get_payments_status.
func deriveName(method, path string) string {
	parts := []string{strings.ToLower(method)}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		parts = append(parts, seg)
	}
	return strings.Join(parts, "_")
}

// sanitizeName lowercases a name to snake_case and strips characters that
// are not valid in identifiers across the target languages.
func sanitizeName(name string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range name {
		switch {
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		default:
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
			prevLower = false
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "unnamed_operation"
	}
	if unicode.IsDigit(rune(out[0])) {
		out = "op_" + out
	}
	return out
}
