package export

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/agentic-research/archmap/internal/actions"
	"github.com/agentic-research/archmap/internal/arch"
	"github.com/agentic-research/archmap/internal/dotpath"
	"github.com/agentic-research/archmap/internal/engine"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS components (
	path TEXT PRIMARY KEY,
	parent TEXT,
	name TEXT NOT NULL,
	class TEXT,
	kind TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS attributes (
	path TEXT NOT NULL,
	name TEXT NOT NULL,
	ord INTEGER NOT NULL,
	value JSON,
	PRIMARY KEY (path, name)
) WITHOUT ROWID;
CREATE TABLE IF NOT EXISTS correspondence (
	destination TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	class TEXT,
	rule TEXT
);
CREATE TABLE IF NOT EXISTS action_counts (
	component TEXT NOT NULL,
	action TEXT NOT NULL,
	counts INTEGER NOT NULL,
	PRIMARY KEY (component, action)
) WITHOUT ROWID;
`

// SQLiteWriter persists a run into a SQLite database. All writes of one
// writer share a single transaction, committed by Close.
type SQLiteWriter struct {
	db *sql.DB
	tx *sql.Tx
	mu sync.Mutex
}

// NewSQLiteWriter opens dbPath, creates the schema and starts a transaction.
func NewSQLiteWriter(dbPath string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	tx, err := db.Begin()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteWriter{db: db, tx: tx}, nil
}

// WriteResult stores the tree, the correspondence table and the action counts.
func (w *SQLiteWriter) WriteResult(res *engine.Result) error {
	if err := w.WriteTree(res.Tree); err != nil {
		return err
	}
	if err := w.WriteCorrespondence(res.Correspondence.All()); err != nil {
		return err
	}
	return w.WriteActionCounts(res.Counts)
}

func (w *SQLiteWriter) WriteTree(t *arch.Tree) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	stmtNode, err := w.tx.Prepare(`INSERT OR REPLACE INTO components (path, parent, name, class, kind) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmtNode.Close() }()
	stmtAttr, err := w.tx.Prepare(`INSERT OR REPLACE INTO attributes (path, name, ord, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmtAttr.Close() }()

	return t.Walk(func(p dotpath.Path, n *arch.Node) error {
		var parent *string
		if pp := p.Parent(); !pp.IsEmpty() {
			s := pp.String()
			parent = &s
		}
		var class *string
		if n.Class != "" {
			class = &n.Class
		}
		if _, err := stmtNode.Exec(p.String(), parent, n.Name, class, n.Kind.String()); err != nil {
			return fmt.Errorf("insert component %s: %w", p, err)
		}
		for i, k := range n.Attributes.Keys() {
			v, _ := n.Attributes.Get(k)
			data, err := json.Marshal(v)
			if err != nil {
				log.Printf("SQLiteWriter: cannot encode %s.%s: %v", p, k, err)
				continue
			}
			if _, err := stmtAttr.Exec(p.String(), k, i, string(data)); err != nil {
				return fmt.Errorf("insert attribute %s.%s: %w", p, k, err)
			}
		}
		return nil
	})
}

func (w *SQLiteWriter) WriteCorrespondence(entries []engine.Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	stmt, err := w.tx.Prepare(`INSERT OR REPLACE INTO correspondence (destination, source, class, rule) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, e := range entries {
		if _, err := stmt.Exec(e.Destination.String(), e.Source.String(), e.Class, e.Rule); err != nil {
			return fmt.Errorf("insert correspondence %s: %w", e.Destination, err)
		}
	}
	return nil
}

func (w *SQLiteWriter) WriteActionCounts(counts []actions.ComponentCounts) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	stmt, err := w.tx.Prepare(`INSERT OR REPLACE INTO action_counts (component, action, counts) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, cc := range counts {
		for _, a := range cc.Actions {
			if _, err := stmt.Exec(cc.Component.String(), a.Name, a.Counts); err != nil {
				return fmt.Errorf("insert action %s.%s: %w", cc.Component, a.Name, err)
			}
		}
	}
	return nil
}

// Close commits and closes the database.
func (w *SQLiteWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.tx.Commit(); err != nil {
		_ = w.db.Close()
		return err
	}
	if _, err := w.db.Exec(`CREATE INDEX IF NOT EXISTS idx_components_parent ON components(parent)`); err != nil {
		log.Printf("SQLiteWriter: index creation failed: %v", err)
	}
	return w.db.Close()
}
