package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed schema_mysql.sql
var mysqlSchema string

//go:embed schema_sqlite.sql
var sqliteSchema string

// Dialect holds what differs between the supported engines.
type Dialect struct {
	Driver              string
	schema              string
	upsertEstablishment string
	isUniqueViolation   func(error) bool
}

var MySQL = Dialect{
	Driver:              "mysql",
	schema:              mysqlSchema,
	upsertEstablishment: upsertEstablishmentMySQL,
	isUniqueViolation: func(err error) bool {
		var me *mysql.MySQLError
		return errors.As(err, &me) && me.Number == 1062
	},
}

var SQLite = Dialect{
	Driver:              "sqlite",
	schema:              sqliteSchema,
	upsertEstablishment: upsertEstablishmentSQLite,
	isUniqueViolation: func(err error) bool {
		var se *sqlite.Error
		if errors.As(err, &se) {
			switch se.Code() {
			case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
				return true
			}
		}
		return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
	},
}

func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("unsupported db driver %q", driver)
}

// Open connects and pings. MySQL DSNs should carry parseTime=true&loc=UTC.
func Open(ctx context.Context, d Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Driver, err)
	}
	switch d.Driver {
	case SQLite.Driver:
		// one writer at a time; the busy timeout in the DSN covers readers
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Driver, err)
	}
	return db, nil
}

// SQLiteDSN builds a file DSN with the pragmas the store relies on.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

// Migrate applies the embedded schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, stmt := range strings.Split(d.schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", d.Driver, err)
		}
	}
	return nil
}

// Connect opens the configured backend and brings its schema up to date.
func Connect(ctx context.Context, driver, mysqlDSN, sqlitePath string) (*sql.DB, Dialect, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return nil, Dialect{}, err
	}
	dsn := mysqlDSN
	if d.Driver == SQLite.Driver {
		dsn = SQLiteDSN(sqlitePath)
	}
	db, err := Open(ctx, d, dsn)
	if err != nil {
		return nil, Dialect{}, err
	}
	if err := Migrate(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, Dialect{}, err
	}
	return db, d, nil
}
