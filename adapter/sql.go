package adapter

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ndlib/arbor/pathmatch"
	"github.com/ndlib/arbor/query"
	"github.com/ndlib/arbor/resource"
)

// SQLLanguage is the query language understood only by the SQL adapters.
// An expression in it is a WHERE clause over the columns path, parent and
// value of the resources table, written in the database's own dialect.
// Expressions are pasted into the statement, so they must come from a
// trusted source.
const SQLLanguage = "sql"

// SQL keeps a resource tree in a table with one row per resource. The
// value column holds the properties as JSON. The statements differ
// between databases, so each database supplies a dialect.
type SQL struct {
	db  *sql.DB
	d   dialect
	log zerolog.Logger
}

var (
	_ resource.Adapter = &SQL{}
)

// dialect holds the statements and helpers for one kind of database.
type dialect struct {
	get         string // path -> value
	children    string // parent -> path, value
	all         string // -> path, value
	where       string // format string taking a WHERE clause
	deleteUnder string // path, pattern

	// pattern returns the argument to LIKE matching everything which
	// begins with prefix
	pattern func(prefix string) string

	// store saves one row, reporting whether it was inserted
	store func(db *sql.DB, path, parent, value string) (bool, error)
}

// ValidPath implements resource.Adapter.
func (s *SQL) ValidPath(path string) bool {
	return ValidPath(path)
}

// Get loads the row for path.
func (s *SQL) Get(path string) (*resource.Data, error) {
	var value string
	err := s.db.QueryRow(s.d.get, path).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("get")
		return nil, err
	}
	return decode(path, []byte(value))
}

// Children loads the rows whose parent is path.
func (s *SQL) Children(path string) ([]*resource.Data, error) {
	rows, err := s.db.Query(s.d.children, path)
	if err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("children")
		return nil, err
	}
	return resource.Collect(rowsIterator(rows))
}

// Store inserts or replaces the row for d.
func (s *SQL) Store(d *resource.Data) (bool, error) {
	b, err := encode(d)
	if err != nil {
		return false, err
	}
	parent, _ := pathmatch.Parent(d.Path())
	created, err := s.d.store(s.db, d.Path(), parent, string(b))
	if err != nil {
		s.log.Error().Err(err).Str("path", d.Path()).Msg("store")
	}
	return created, err
}

// DeleteRecursive deletes the row for path and every row under it.
func (s *SQL) DeleteRecursive(path string) error {
	prefix := path + pathmatch.Separator
	if pathmatch.IsRoot(path) {
		prefix = pathmatch.Root
	}
	_, err := performExec(s.db, s.d.deleteUnder, path, s.d.pattern(prefix))
	if err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("delete")
	}
	return err
}

// Query runs a WHERE clause for the sql language, and otherwise scans the
// whole table filtering with the query package. Rows are read as the
// iterator advances.
func (s *SQL) Query(expression, language string) (resource.Iterator, error) {
	if language == SQLLanguage {
		if strings.TrimSpace(expression) == "" || strings.Contains(expression, ";") {
			return nil, &query.Error{
				Language:   SQLLanguage,
				Expression: expression,
				Err:        errors.New("bad WHERE clause"),
			}
		}
		rows, err := s.db.Query(fmt.Sprintf(s.d.where, expression))
		if err != nil {
			return nil, &query.Error{Language: SQLLanguage, Expression: expression, Err: err}
		}
		return rowsIterator(rows), nil
	}
	m, err := compileQuery(expression, language)
	if m == nil || err != nil {
		return nil, err
	}
	rows, err := s.db.Query(s.d.all)
	if err != nil {
		return nil, err
	}
	return filter(rowsIterator(rows), m), nil
}

// Close closes the database.
func (s *SQL) Close() error {
	return s.db.Close()
}

// rowsIterator yields a resource for each (path, value) row.
func rowsIterator(rows *sql.Rows) resource.Iterator {
	return resource.NewFuncIterator(func() (*resource.Data, error) {
		if !rows.Next() {
			return nil, rows.Err()
		}
		var path, value string
		if err := rows.Scan(&path, &value); err != nil {
			return nil, err
		}
		return decode(path, []byte(value))
	}, rows.Close)
}

// performExec runs a statement inside its own transaction.
func performExec(db *sql.DB, query string, args ...interface{}) (sql.Result, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	var result sql.Result
	result, err = tx.Exec(query, args...)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	err = tx.Commit()
	return result, err
}
