package adapter

import (
	"database/sql"
	"regexp"

	_ "github.com/cznic/ql/driver"
	"github.com/google/uuid"

	"github.com/ndlib/arbor/logging"
)

// The QL embedded database is intended to be used only in development.

const qlInit = `
	CREATE TABLE IF NOT EXISTS resources (
		path string,
		parent string,
		value string
	);
	CREATE UNIQUE INDEX IF NOT EXISTS resourcepath ON resources (path);
	CREATE INDEX IF NOT EXISTS resourceparent ON resources (parent);
`

var qlDialect = dialect{
	get:         `SELECT value FROM resources WHERE path == ?1 LIMIT 1`,
	children:    `SELECT path, value FROM resources WHERE parent == ?1 ORDER BY path`,
	all:         `SELECT path, value FROM resources ORDER BY path`,
	where:       `SELECT path, value FROM resources WHERE %s ORDER BY path`,
	deleteUnder: `DELETE FROM resources WHERE path == ?1 OR path LIKE ?2`,
	// LIKE in QL is a regular expression match
	pattern: func(prefix string) string {
		return "^" + regexp.QuoteMeta(prefix)
	},
	store: qlStore,
}

// NewQL opens a QL database adapter. filename is the name of the file to
// save the database to. The filename "memory" means to keep everything in
// memory. Each memory database is private to the adapter.
func NewQL(filename string) (*SQL, error) {
	var db *sql.DB
	var err error
	if filename == "memory" {
		db, err = sql.Open("ql-mem", uuid.New().String()+".db")
	} else {
		db, err = sql.Open("ql", filename)
	}
	if err == nil {
		_, err = performExec(db, qlInit)
	}
	log := logging.Get("ql").With().Str("file", filename).Logger()
	if err != nil {
		log.Error().Err(err).Msg("Open QL")
		return nil, err
	}
	return &SQL{db: db, d: qlDialect, log: log}, nil
}

// qlStore tries an update first, and inserts if that touched nothing.
func qlStore(db *sql.DB, path, parent, value string) (bool, error) {
	const dbUpdate = `UPDATE resources SET parent = ?2, value = ?3 WHERE path == ?1`
	const dbInsert = `INSERT INTO resources VALUES (?1, ?2, ?3)`

	tx, err := db.Begin()
	if err != nil {
		return false, err
	}
	result, err := tx.Exec(dbUpdate, path, parent, value)
	if err != nil {
		_ = tx.Rollback()
		return false, err
	}
	nrows, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return false, err
	}
	if nrows == 0 {
		// record didn't exist. create it
		_, err = tx.Exec(dbInsert, path, parent, value)
		if err != nil {
			_ = tx.Rollback()
			return false, err
		}
	}
	return nrows == 0, tx.Commit()
}
