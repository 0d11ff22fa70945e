package toolmodule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Compile-time assertion: *FileStore satisfies Store.
var _ Store = (*FileStore)(nil)

// manifestFileName is the durable record of the module; the module file is a
// rendered artifact derived from it.
const manifestFileName = "manifest.json"

// manifestFile is the on-disk layout of manifest.json.
type manifestFile struct {
	Fragments []Fragment `json:"fragments"`
}

// FileStore implements Store on the filesystem. The fragment sequence lives
// in manifest.json, written atomically via temp file + rename, and the
// module file holds the rendered artifact for consumers. Reopening a
// FileStore on an existing directory yields the same fragments and manifest.
type FileStore struct {
	mu         sync.Mutex
	dir        string
	moduleFile string
	fragments  []Fragment
}

// NewFileStore opens (or creates) a file-backed store in dir. moduleFile is
// the name of the rendered module artifact, e.g. "tools.py".
func NewFileStore(dir, moduleFile string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("toolmodule: create %s: %w", dir, err)
	}

	s := &FileStore{dir: dir, moduleFile: moduleFile}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads manifest.json if present. A missing file means an empty module.
func (s *FileStore) load() error {
	data, err := os.ReadFile(s.manifestPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("toolmodule: read manifest: %w", err)
	}

	var mf manifestFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return fmt.Errorf("toolmodule: decode manifest: %w", err)
	}
	s.fragments = mf.Fragments
	return nil
}

// Append adds frag and persists the new state. On persistence failure the
// in-memory sequence is rolled back and the error propagated unmodified.
func (s *FileStore) Append(_ context.Context, frag Fragment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dup, err := prepareAppend(s.fragments, &frag)
	if err != nil {
		return false, err
	}
	if dup {
		return false, nil
	}

	s.fragments = append(s.fragments, copyFragment(frag))
	if err := s.persist(); err != nil {
		s.fragments = s.fragments[:len(s.fragments)-1]
		return false, err
	}
	return true, nil
}

// persist writes manifest.json first (the source of truth), then the
// rendered module file. Both writes are atomic temp-file renames.
func (s *FileStore) persist() error {
	data, err := json.MarshalIndent(manifestFile{Fragments: s.fragments}, "", "  ")
	if err != nil {
		return fmt.Errorf("toolmodule: encode manifest: %w", err)
	}
	if err := writeFileAtomic(s.manifestPath(), data); err != nil {
		return err
	}
	return writeFileAtomic(s.modulePath(), []byte(renderFragments(s.fragments)))
}

// Manifest returns all tool identifiers in fragment order.
func (s *FileStore) Manifest(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return manifestOf(s.fragments), nil
}

// Fragments returns a deep copy of all fragments in append order.
func (s *FileStore) Fragments(_ context.Context) ([]Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Fragment, len(s.fragments))
	for i, f := range s.fragments {
		out[i] = copyFragment(f)
	}
	return out, nil
}

// Render returns the concatenated module text.
func (s *FileStore) Render(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return renderFragments(s.fragments), nil
}

// ModulePath returns the path of the rendered module artifact.
func (s *FileStore) ModulePath() string {
	return s.modulePath()
}

// Close is a no-op; every Append is already durable.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) manifestPath() string {
	return filepath.Join(s.dir, manifestFileName)
}

func (s *FileStore) modulePath() string {
	return filepath.Join(s.dir, s.moduleFile)
}

// writeFileAtomic writes data to path via a temp file in the same directory
// followed by a rename.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("toolmodule: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("toolmodule: rename %s: %w", path, err)
	}
	return nil
}
