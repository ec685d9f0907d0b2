package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	pkgdb "github.com/smallbiznis/webhookharness/pkg/db"
	"gorm.io/gorm"
)

//go:embed migrations/postgres/*.sql migrations/mysql/*.sql migrations/sqlite/*.sql
var embeddedMigrations embed.FS

// Run brings the schema up to date. Server databases go through
// golang-migrate; sqlite applies its idempotent up files directly because
// the golang-migrate sqlite driver registers a second "sqlite" database/sql
// driver next to glebarez.
func Run(conn *gorm.DB, dbType string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}

	switch dbType {
	case pkgdb.TypePostgres, pkgdb.TypeMySQL:
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB, dbType)
	case pkgdb.TypeSQLite, "":
		return RunSQLite(conn)
	default:
		return fmt.Errorf("unsupported %s type", dbType)
	}
}

// RunSQLite executes every embedded sqlite up file in version order. The
// table keeps AUTOINCREMENT so ids are never reused after a replace or a
// clear.
func RunSQLite(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}

	files, err := fs.Glob(embeddedMigrations, "migrations/sqlite/*.up.sql")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	sort.Strings(files)

	for _, name := range files {
		raw, err := embeddedMigrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		for _, stmt := range strings.Split(string(raw), ";") {
			if stmt = strings.TrimSpace(stmt); stmt == "" {
				continue
			}
			if err := conn.Exec(stmt).Error; err != nil {
				return fmt.Errorf("apply %s: %w", name, err)
			}
		}
	}
	return nil
}

func RunMigrations(db *sql.DB, dbType string) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, "migrations/"+dbType)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	var driver database.Driver
	switch dbType {
	case pkgdb.TypePostgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case pkgdb.TypeMySQL:
		driver, err = mysql.WithInstance(db, &mysql.Config{})
	default:
		return fmt.Errorf("unsupported %s type", dbType)
	}
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, dbType, driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}
