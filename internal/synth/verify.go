package synth

import (
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// grammarFor returns the tree-sitter grammar for lang.
func grammarFor(lang Language) (*tree_sitter.Language, error) {
	switch lang {
	case LangGo:
		return tree_sitter.NewLanguage(tree_sitter_go.Language()), nil
	case LangPython:
		return tree_sitter.NewLanguage(tree_sitter_python.Language()), nil
	case LangTypeScript:
		return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()), nil
	case LangRust:
		return tree_sitter.NewLanguage(tree_sitter_rust.Language()), nil
	default:
		return nil, fmt.Errorf("synth: no grammar for language %q", lang)
	}
}

// ExtractToolNames parses code with the grammar for lang and returns the
// names of its top-level function definitions, in source order. A new parser
// is created per call, so this is safe for concurrent use.
func ExtractToolNames(code string, lang Language) ([]string, error) {
	grammar, err := grammarFor(lang)
	if err != nil {
		return nil, err
	}

	// Bare Go fragments are accepted by prepending a package clause,
	// since the grammar rejects files without one.
	if lang == LangGo && !strings.HasPrefix(strings.TrimSpace(code), "package ") {
		code = "package tools\n\n" + code
	}
	source := []byte(code)

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(grammar); err != nil {
		return nil, fmt.Errorf("synth: set grammar: %w", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("synth: parse produced no tree")
	}
	defer tree.Close()

	var names []string
	root := tree.RootNode()
	for i := uint(0); i < root.NamedChildCount(); i++ {
		node := root.NamedChild(i)
		if node == nil {
			continue
		}
		if name, ok := functionName(node, source, lang); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// functionName reports the identifier of node when it is a function
// definition for lang. TypeScript export statements wrap the declaration in
// an extra node level.
func functionName(node *tree_sitter.Node, source []byte, lang Language) (string, bool) {
	kind := node.Kind()
	switch lang {
	case LangGo:
		if kind != "function_declaration" {
			return "", false
		}
	case LangPython:
		if kind != "function_definition" {
			return "", false
		}
	case LangRust:
		if kind != "function_item" {
			return "", false
		}
	case LangTypeScript:
		if kind == "export_statement" {
			for i := uint(0); i < node.NamedChildCount(); i++ {
				child := node.NamedChild(i)
				if child != nil && child.Kind() == "function_declaration" {
					node = child
					kind = child.Kind()
					break
				}
			}
		}
		if kind != "function_declaration" {
			return "", false
		}
	default:
		return "", false
	}

	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return "", false
	}
	return nameNode.Utf8Text(source), true
}

// VerifyManifest checks that res.Code defines exactly the functions listed
// in res.ToolNames. A mismatch in either direction is a synthesis failure.
func VerifyManifest(res *Result) error {
	found, err := ExtractToolNames(res.Code, res.Language)
	if err != nil {
		return &SynthesisError{Cause: "parse generated code", Err: err}
	}

	defined := make(map[string]bool, len(found))
	for _, name := range found {
		defined[name] = true
	}
	for _, name := range res.ToolNames {
		if !defined[name] {
			return &SynthesisError{
				Cause: fmt.Sprintf("manifest names %q but generated code does not define it", name),
			}
		}
	}

	claimed := make(map[string]bool, len(res.ToolNames))
	for _, name := range res.ToolNames {
		claimed[name] = true
	}
	for _, name := range found {
		if !claimed[name] {
			return &SynthesisError{
				Cause: fmt.Sprintf("generated code defines %q missing from the manifest", name),
			}
		}
	}

	return nil
}
