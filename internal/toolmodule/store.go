// Package toolmodule persists generated tool source as an ordered,
// append-only sequence of fragments plus a manifest of the tool identifiers
// those fragments define. Fragments are never reordered or removed, and the
// manifest always reflects the fragment sequence.
package toolmodule

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
)

// Fragment is one unit of generated code produced by a single synthesis run.
type Fragment struct {
	ID        string    `json:"id"`
	Checksum  string    `json:"checksum"`
	Code      string    `json:"code"`
	Tools     []string  `json:"tools"`
	CreatedAt time.Time `json:"createdAt"`
}

// CodeChecksum returns the hex SHA-256 of a code fragment. It is the key
// used to detect and skip re-appends of identical output.
func CodeChecksum(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// Store is the interface for the tool module backend.
// Implementations: FileStore (production), MemStore (testing),
// KuzuStore (graph catalog, cgo builds).
type Store interface {
	io.Closer

	// Append adds frag after all previously appended fragments, preserving
	// total order. It returns false without writing when a fragment with
	// the same checksum is already present. A tool name colliding with one
	// defined by an earlier fragment is an error; storage errors are
	// propagated to the caller unmodified.
	Append(ctx context.Context, frag Fragment) (bool, error)

	// Manifest returns all tool identifiers in fragment order.
	Manifest(ctx context.Context) ([]string, error)

	// Fragments returns every fragment in append order.
	Fragments(ctx context.Context) ([]Fragment, error)

	// Render returns the single growing text artifact: the code of every
	// fragment, in order, joined by blank lines.
	Render(ctx context.Context) (string, error)
}

// prepareAppend normalizes frag (filling a missing checksum) and validates it
// against the existing fragment sequence. It reports dup=true when an
// identical fragment is already present.
func prepareAppend(existing []Fragment, frag *Fragment) (dup bool, err error) {
	if frag.Checksum == "" {
		frag.Checksum = CodeChecksum(frag.Code)
	}

	defined := make(map[string]bool)
	for _, f := range existing {
		if f.Checksum == frag.Checksum {
			return true, nil
		}
		for _, tool := range f.Tools {
			defined[tool] = true
		}
	}

	for _, tool := range frag.Tools {
		if defined[tool] {
			return false, fmt.Errorf("toolmodule: tool %q already defined by an earlier fragment", tool)
		}
		defined[tool] = true
	}

	return false, nil
}

// renderFragments joins fragment code in append order.
func renderFragments(fragments []Fragment) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		parts = append(parts, strings.TrimRight(f.Code, "\n"))
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// manifestOf collects tool identifiers in fragment order.
func manifestOf(fragments []Fragment) []string {
	var names []string
	for _, f := range fragments {
		names = append(names, f.Tools...)
	}
	return names
}

// copyFragment returns a deep copy of f so callers can mutate results freely.
func copyFragment(f Fragment) Fragment {
	out := f
	if f.Tools != nil {
		out.Tools = make([]string, len(f.Tools))
		copy(out.Tools, f.Tools)
	}
	return out
}
