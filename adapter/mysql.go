package adapter

import (
	"database/sql"
	"strings"

	"github.com/BurntSushi/migration"
	_ "github.com/go-sql-driver/mysql"

	"github.com/ndlib/arbor/logging"
)

// List of migrations to perform. Add new ones to the end.
// DO NOT change the order of items already in this list.
var mysqlMigrations = []migration.Migrator{
	mysqlschema1,
}

// Adapt the schema versioning for MySQL

var mysqlVersioning = dbVersion{
	GetSQL:    `SELECT max(version) FROM migration_version`,
	SetSQL:    `INSERT INTO migration_version (version, applied) VALUES (?, now())`,
	CreateSQL: `CREATE TABLE migration_version (version INTEGER, applied datetime)`,
}

var mysqlDialect = dialect{
	get:         `SELECT value FROM resources WHERE path = ? LIMIT 1`,
	children:    `SELECT path, value FROM resources WHERE parent = ? ORDER BY path`,
	all:         `SELECT path, value FROM resources ORDER BY path`,
	where:       `SELECT path, value FROM resources WHERE %s ORDER BY path`,
	deleteUnder: `DELETE FROM resources WHERE path = ? OR path LIKE ?`,
	pattern: func(prefix string) string {
		return likeEscaper.Replace(prefix) + "%"
	},
	store: mysqlStore,
}

// backslash is the default escape character for LIKE
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// NewMySQL connects to a MySQL database, bringing its schema up to date.
func NewMySQL(dial string) (*SQL, error) {
	log := logging.Get("mysql")
	db, err := migration.OpenWith(
		"mysql",
		dial,
		mysqlMigrations,
		mysqlVersioning.Get,
		mysqlVersioning.Set)
	if err != nil {
		log.Error().Err(err).Msg("Open Mysql")
		return nil, err
	}
	return &SQL{db: db, d: mysqlDialect, log: log}, nil
}

// mysqlStore upserts one row. MySQL reports 1 affected row for an insert,
// and 2 (or 0 if nothing changed) for an update.
func mysqlStore(db *sql.DB, path, parent, value string) (bool, error) {
	const stmt = `INSERT INTO resources (path, parent, value) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE parent = ?, value = ?`

	result, err := db.Exec(stmt, path, parent, value, parent, value)
	if err != nil {
		return false, err
	}
	nrows, err := result.RowsAffected()
	return nrows == 1, err
}

func mysqlschema1(tx migration.LimitedTx) error {
	var s = []string{
		`CREATE TABLE IF NOT EXISTS resources (
		id int PRIMARY KEY AUTO_INCREMENT,
		path varchar(700) NOT NULL,
		parent varchar(700) NOT NULL,
		value LONGTEXT,
		UNIQUE INDEX resources_path (path),
		INDEX resources_parent (parent))`,
	}
	return execlist(tx, s)
}

// execlist exec's each item in the list, return if there is an error.
// Used to work around mysql driver not handling compound exec statements.
func execlist(tx migration.LimitedTx, stms []string) error {
	var err error
	for _, s := range stms {
		_, err = tx.Exec(s)
		if err != nil {
			break
		}
	}
	return err
}
