package cache

import (
	"fmt"
	"strings"

	"github.com/Combine-Capital/pgcache/pkg/errors"
	"github.com/jackc/pgx/v5"
)

// maxIdentifierBytes is PostgreSQL's NAMEDATALEN-1.
const maxIdentifierBytes = 63

// Location identifies the table that holds one cache instance's entries.
type Location struct {
	Schema string
	Table  string
}

// NewLocation validates schema and table as PostgreSQL identifiers. Names
// are used verbatim (quoted), so "Cache" and "cache" are different tables.
func NewLocation(schema, table string) (Location, error) {
	if err := validateIdentifier("schema_name", schema); err != nil {
		return Location{}, err
	}
	if err := validateIdentifier("table_name", table); err != nil {
		return Location{}, err
	}
	return Location{Schema: schema, Table: table}, nil
}

func validateIdentifier(field, name string) error {
	switch {
	case name == "":
		return errors.NewInvalidInput(field, "must not be empty")
	case len(name) > maxIdentifierBytes:
		return errors.NewInvalidInput(field, fmt.Sprintf("exceeds %d bytes", maxIdentifierBytes))
	case strings.ContainsRune(name, 0):
		return errors.NewInvalidInput(field, "must not contain NUL")
	}
	return nil
}

// Sanitized returns the quoted, schema-qualified table name.
func (l Location) Sanitized() string {
	return pgx.Identifier{l.Schema, l.Table}.Sanitize()
}

func (l Location) String() string {
	return l.Schema + "." + l.Table
}

// statements holds the SQL for one location. Only the sanitized location is
// interpolated; keys, values and timestamps are always bound parameters.
type statements struct {
	tableExists string
	selectLive  string
	upsert      string
	delete      string
	extend      string
	purge       string
	table       string
}

func newStatements(loc Location) statements {
	t := loc.Sanitized()
	return statements{
		table:       t,
		tableExists: `SELECT EXISTS (SELECT 1 FROM pg_catalog.pg_tables WHERE schemaname = $1 AND tablename = $2)`,
		selectLive:  `SELECT "value" FROM ` + t + ` WHERE "key" = $1 AND ("expiration" IS NULL OR "expiration" > $2)`,
		upsert: `INSERT INTO ` + t + ` ("key", "value", "expiration") VALUES ($1, $2, $3) ` +
			`ON CONFLICT ("key") DO UPDATE SET "value" = EXCLUDED."value", "expiration" = EXCLUDED."expiration"`,
		delete: `DELETE FROM ` + t + ` WHERE "key" = $1`,
		extend: `UPDATE ` + t + ` SET "expiration" = $2 WHERE "key" = $1`,
		purge:  `DELETE FROM ` + t + ` WHERE "expiration" IS NOT NULL AND "expiration" <= $1`,
	}
}

// createTable returns the DDL for the cache table with the given primary
// key constraint name.
func (s statements) createTable(constraint string) string {
	return `CREATE TABLE IF NOT EXISTS ` + s.table + ` (` +
		`"key" varchar(255) NOT NULL, ` +
		`"value" bytea NOT NULL, ` +
		`"expiration" timestamp with time zone NULL, ` +
		`CONSTRAINT ` + pgx.Identifier{constraint}.Sanitize() + ` PRIMARY KEY ("key"))`
}
