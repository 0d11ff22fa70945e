// Package synth turns a validated configuration into tool source code. It
// parses the configured swagger spec into operations, emits one tool function
// per operation in the target language, and verifies with tree-sitter that
// the emitted code defines exactly the functions the manifest claims.
package synth

import (
	"context"
	"fmt"

	"github.com/toolforge-dev/toolforge/internal/session"
)

// Language selects the target language for emitted tool code.
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangTypeScript Language = "typescript"
	LangRust       Language = "rust"
)

// ParseLanguage maps a user-supplied string to a Language.
func ParseLanguage(s string) (Language, error) {
	switch s {
	case "go", "golang":
		return LangGo, nil
	case "python", "py":
		return LangPython, nil
	case "typescript", "ts":
		return LangTypeScript, nil
	case "rust", "rs":
		return LangRust, nil
	default:
		return "", fmt.Errorf("synth: unknown language %q", s)
	}
}

// FileName returns the module file name for the language, e.g. "tools.py".
func (l Language) FileName() string {
	switch l {
	case LangGo:
		return "tools.go"
	case LangPython:
		return "tools.py"
	case LangTypeScript:
		return "tools.ts"
	case LangRust:
		return "tools.rs"
	default:
		return "tools.txt"
	}
}

// Result is the output of one synthesis run: the generated code and the
// names of the tool functions it defines, in definition order.
type Result struct {
	Code      string
	ToolNames []string
	Language  Language
}

// SynthesisError reports a failed synthesis run. Cause is a short
// human-readable reason surfaced to callers; Err carries the underlying
// error when one exists.
type SynthesisError struct {
	Cause string
	Err   error
}

func (e *SynthesisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("synth: %s: %v", e.Cause, e.Err)
	}
	return "synth: " + e.Cause
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// Synthesizer generates tool code from a complete configuration.
// Implementations may take arbitrarily long; callers bound them with a
// context deadline.
type Synthesizer interface {
	Synthesize(ctx context.Context, cfg session.Configuration) (*Result, error)
}

// OpenAPISynthesizer generates one tool function per operation found in the
// configured swagger spec.
type OpenAPISynthesizer struct {
	Language Language
}

var _ Synthesizer = (*OpenAPISynthesizer)(nil)

// NewOpenAPISynthesizer returns a synthesizer targeting lang.
func NewOpenAPISynthesizer(lang Language) *OpenAPISynthesizer {
	return &OpenAPISynthesizer{Language: lang}
}

// Synthesize parses cfg.SwaggerSpec, emits one function per operation and
// verifies the manifest against the emitted code before returning.
func (s *OpenAPISynthesizer) Synthesize(ctx context.Context, cfg session.Configuration) (*Result, error) {
	ops, err := ParseOperations(ctx, []byte(cfg.SwaggerSpec))
	if err != nil {
		return nil, &SynthesisError{Cause: "parse swagger spec", Err: err}
	}
	if len(ops) == 0 {
		return nil, &SynthesisError{Cause: "swagger spec defines no operations"}
	}

	em, err := emitterFor(s.Language)
	if err != nil {
		return nil, &SynthesisError{Cause: "select emitter", Err: err}
	}

	res, err := emitAll(em, s.Language, cfg, ops)
	if err != nil {
		return nil, err
	}
	if err := VerifyManifest(res); err != nil {
		return nil, err
	}
	return res, nil
}

// emitter generates code for a single operation. Each target language
// provides one implementation.
type emitter interface {
	// FuncName maps an operation to the identifier of its tool function.
	FuncName(op Operation) string
	// Emit renders the tool function body for op.
	Emit(cfg session.Configuration, op Operation) string
	// Prologue renders imports and shared declarations, if any.
	Prologue(cfg session.Configuration, ops []Operation) string
}

func emitterFor(lang Language) (emitter, error) {
	switch lang {
	case LangGo:
		return goEmitter{}, nil
	case LangPython:
		return pythonEmitter{}, nil
	case LangTypeScript:
		return typescriptEmitter{}, nil
	case LangRust:
		return rustEmitter{}, nil
	default:
		return nil, fmt.Errorf("synth: no emitter for language %q", lang)
	}
}

func emitAll(em emitter, lang Language, cfg session.Configuration, ops []Operation) (*Result, error) {
	var code string
	if p := em.Prologue(cfg, ops); p != "" {
		code = p + "\n"
	}

	seen := make(map[string]bool)
	names := make([]string, 0, len(ops))
	for _, op := range ops {
		name := em.FuncName(op)
		if seen[name] {
			return nil, &SynthesisError{
				Cause: fmt.Sprintf("duplicate tool name %q derived from spec", name),
			}
		}
		seen[name] = true
		names = append(names, name)
		code += em.Emit(cfg, op) + "\n"
	}

	return &Result{Code: code, ToolNames: names, Language: lang}, nil
}
