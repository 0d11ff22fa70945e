//go:build cgo

package toolmodule

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as a queryable tool
// catalog: fragments and the tools they define are nodes connected by
// DEFINES edges. It requires CGO because the go-kuzu driver wraps KuzuDB's
// C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuCatalog creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path. KuzuDB creates the leaf directory itself for new
// databases. This enables a persistent tool catalog that survives across
// sessions.
func NewKuzuCatalog(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	s := &KuzuStore{db: db, conn: conn}
	if err := s.initSchema(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ddlStatements defines the Cypher DDL executed on open.
// Node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Fragment(
		id STRING,
		checksum STRING,
		code STRING,
		position INT64,
		created_at STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Tool(
		name STRING,
		PRIMARY KEY(name)
	)`,
	`CREATE REL TABLE IF NOT EXISTS DEFINES(FROM Fragment TO Tool, ordinal INT64)`,
}

func (s *KuzuStore) initSchema() error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// Append adds frag after all existing fragments, skipping checksum
// duplicates. The fragment node and its DEFINES edges are inserted together.
func (s *KuzuStore) Append(ctx context.Context, frag Fragment) (bool, error) {
	existing, err := s.Fragments(ctx)
	if err != nil {
		return false, err
	}

	dup, err := prepareAppend(existing, &frag)
	if err != nil {
		return false, err
	}
	if dup {
		return false, nil
	}

	if err := s.exec(
		`CREATE (f:Fragment {
			id: $id,
			checksum: $checksum,
			code: $code,
			position: $position,
			created_at: $created
		})`,
		map[string]any{
			"id":       frag.ID,
			"checksum": frag.Checksum,
			"code":     frag.Code,
			"position": int64(len(existing)),
			"created":  frag.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	); err != nil {
		return false, err
	}

	for i, tool := range frag.Tools {
		if err := s.exec(
			"CREATE (t:Tool {name: $name})",
			map[string]any{"name": tool},
		); err != nil {
			return false, err
		}
		if err := s.exec(
			`MATCH (f:Fragment {id: $fid}), (t:Tool {name: $name})
			 CREATE (f)-[:DEFINES {ordinal: $ordinal}]->(t)`,
			map[string]any{
				"fid":     frag.ID,
				"name":    tool,
				"ordinal": int64(i),
			},
		); err != nil {
			return false, err
		}
	}

	return true, nil
}

// Manifest returns all tool identifiers in fragment, then ordinal, order.
func (s *KuzuStore) Manifest(ctx context.Context) ([]string, error) {
	fragments, err := s.Fragments(ctx)
	if err != nil {
		return nil, err
	}
	return manifestOf(fragments), nil
}

// Fragments returns every fragment in append order, with tools in the order
// they were defined.
func (s *KuzuStore) Fragments(_ context.Context) ([]Fragment, error) {
	rows, err := s.query(
		`MATCH (f:Fragment)
		 RETURN f.id, f.checksum, f.code, f.created_at
		 ORDER BY f.position`,
		nil,
	)
	if err != nil {
		return nil, err
	}

	out := make([]Fragment, 0, len(rows))
	for _, r := range rows {
		frag := Fragment{
			ID:       toString(r[0]),
			Checksum: toString(r[1]),
			Code:     toString(r[2]),
		}
		if ts, err := time.Parse(time.RFC3339Nano, toString(r[3])); err == nil {
			frag.CreatedAt = ts
		}

		toolRows, err := s.query(
			`MATCH (f:Fragment {id: $fid})-[d:DEFINES]->(t:Tool)
			 RETURN t.name ORDER BY d.ordinal`,
			map[string]any{"fid": frag.ID},
		)
		if err != nil {
			return nil, err
		}
		for _, tr := range toolRows {
			frag.Tools = append(frag.Tools, toString(tr[0]))
		}

		out = append(out, frag)
	}
	return out, nil
}

// Render returns the concatenated module text.
func (s *KuzuStore) Render(ctx context.Context) (string, error) {
	fragments, err := s.Fragments(ctx)
	if err != nil {
		return "", err
	}
	return renderFragments(fragments), nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// toString coerces a KuzuDB result value to string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
