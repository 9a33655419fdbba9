// Package dict stores the code table used by the table engine.
//
// Entries map an input code (a run of lowercase letters) to a text with a
// weight. They live in SQLite so learned weights survive restarts, and are
// indexed in memory by a trie for prefix lookups.
package dict

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
    code        TEXT NOT NULL,
    text        TEXT NOT NULL,
    weight      INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (code, text)
);

CREATE INDEX IF NOT EXISTS idx_entries_code ON entries(code, weight DESC);

CREATE TABLE IF NOT EXISTS imports (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    source      TEXT NOT NULL,
    imported_ns INTEGER NOT NULL,
    entries     INTEGER NOT NULL
);
`

// ErrBadLine is returned for dictionary lines that cannot be parsed.
var ErrBadLine = errors.New("dict: bad line")

// Entry is one dictionary row.
type Entry struct {
	Code   string
	Text   string
	Weight int64
}

// Import describes one completed import.
type Import struct {
	Source     string
	ImportedAt time.Time
	Entries    int
}

// Store is the SQLite dictionary.
type Store struct {
	db *sql.DB
}

// Open opens or creates the dictionary database at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create dictionary directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ParseLine parses "code<TAB>text[<TAB>weight]". Blank lines and lines
// starting with '#' report ok == false without error.
func ParseLine(line string) (e Entry, ok bool, err error) {
	line = strings.TrimRight(line, "\r\n")
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return Entry{}, false, nil
	}

	fields := strings.Split(trimmed, "\t")
	if len(fields) == 1 {
		fields = strings.Fields(trimmed)
	}
	if len(fields) < 2 || len(fields) > 3 {
		return Entry{}, false, fmt.Errorf("%w: want 2 or 3 fields, got %d", ErrBadLine, len(fields))
	}

	e.Code = strings.ToLower(strings.TrimSpace(fields[0]))
	e.Text = strings.TrimSpace(fields[1])
	if !ValidCode(e.Code) {
		return Entry{}, false, fmt.Errorf("%w: invalid code %q", ErrBadLine, e.Code)
	}
	if e.Text == "" {
		return Entry{}, false, fmt.Errorf("%w: empty text", ErrBadLine)
	}
	if len(fields) == 3 {
		e.Weight, err = strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
		if err != nil {
			return Entry{}, false, fmt.Errorf("%w: weight: %v", ErrBadLine, err)
		}
	}
	return e, true, nil
}

// ValidCode reports whether code is a non-empty run of a-z and apostrophes.
func ValidCode(code string) bool {
	if code == "" {
		return false
	}
	for _, r := range code {
		if (r < 'a' || r > 'z') && r != '\'' {
			return false
		}
	}
	return true
}

// Import reads dictionary lines from r and merges them into the store.
// Existing rows keep the larger of the two weights, so learned weights are
// not lost when a source file is re-imported.
func (s *Store) Import(ctx context.Context, r io.Reader, source string) (int, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		e, ok, err := ParseLine(scanner.Text())
		if err != nil {
			return 0, fmt.Errorf("%s:%d: %w", source, lineNo, err)
		}
		if ok {
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read %s: %w", source, err)
	}

	if err := s.Insert(ctx, entries); err != nil {
		return 0, err
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO imports (source, imported_ns, entries) VALUES (?, ?, ?)`,
		source, time.Now().UnixNano(), len(entries),
	); err != nil {
		return 0, fmt.Errorf("record import: %w", err)
	}
	return len(entries), nil
}

// ImportFile imports the dictionary file at path.
func (s *Store) ImportFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open dictionary source: %w", err)
	}
	defer f.Close()
	return s.Import(ctx, f, path)
}

// Insert upserts entries in one transaction.
func (s *Store) Insert(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (code, text, weight) VALUES (?, ?, ?)
		ON CONFLICT(code, text) DO UPDATE SET weight = MAX(weight, excluded.weight)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Code, e.Text, e.Weight); err != nil {
			return fmt.Errorf("insert entry %s/%s: %w", e.Code, e.Text, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Entries returns every row ordered by code, then descending weight.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, text, weight FROM entries ORDER BY code, weight DESC, text`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Code, &e.Text, &e.Weight); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Lookup returns the rows for one code.
func (s *Store) Lookup(ctx context.Context, code string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, text, weight FROM entries WHERE code = ? ORDER BY weight DESC, text`, code)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", code, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Code, &e.Text, &e.Weight); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Bump increments the weight of an existing entry.
func (s *Store) Bump(ctx context.Context, code, text string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE entries SET weight = weight + 1 WHERE code = ? AND text = ?`, code, text,
	); err != nil {
		return fmt.Errorf("bump %s/%s: %w", code, text, err)
	}
	return nil
}

// Count returns the number of entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// LastImport returns the most recent import, or nil if there was none.
func (s *Store) LastImport(ctx context.Context) (*Import, error) {
	var imp Import
	var ns int64
	err := s.db.QueryRowContext(ctx,
		`SELECT source, imported_ns, entries FROM imports ORDER BY id DESC LIMIT 1`,
	).Scan(&imp.Source, &ns, &imp.Entries)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last import: %w", err)
	}
	imp.ImportedAt = time.Unix(0, ns)
	return &imp, nil
}
