package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"

	"github.com/pdr-rating-server/migrations"
)

// SchemaVersion is the newest migration shipped with this build
const SchemaVersion uint = 2

// ErrDirtySchema is returned when a previous migration failed half way. The
// schema has to be repaired by hand before the server can start.
var ErrDirtySchema = errors.New("database schema is dirty")

// MigrationRunner applies the reference and history schema
type MigrationRunner struct {
	m   *migrate.Migrate
	log *logrus.Logger
}

// NewMigrationRunner opens databaseURL with either the embedded migrations or,
// when dir is set, the *.sql files in dir.
func NewMigrationRunner(databaseURL, dir string, logger *logrus.Logger) (*MigrationRunner, error) {
	m, err := newMigrate(databaseURL, dir)
	if err != nil {
		return nil, fmt.Errorf("creating migration instance: %w", err)
	}
	return &MigrationRunner{m: m, log: logger}, nil
}

func newMigrate(databaseURL, dir string) (*migrate.Migrate, error) {
	if dir != "" {
		return migrate.New("file://"+dir, databaseURL)
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("opening embedded migrations: %w", err)
	}
	return migrate.NewWithSourceInstance("iofs", src, databaseURL)
}

// Up applies every pending migration. A dirty schema is refused.
func (r *MigrationRunner) Up(ctx context.Context) error {
	if _, dirty, err := r.Version(); err == nil && dirty {
		return ErrDirtySchema
	}

	err := r.m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		r.log.WithField("version", SchemaVersion).Debug("Schema already current")
		return nil
	case err != nil:
		return fmt.Errorf("applying migrations: %w", err)
	}

	version, _, err := r.Version()
	if err != nil {
		return err
	}
	r.log.WithField("version", version).Info("Schema migrated")
	return nil
}

// Down reverts the most recent migration
func (r *MigrationRunner) Down(ctx context.Context) error {
	if err := r.m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("reverting migration: %w", err)
	}
	r.log.Info("Reverted one migration")
	return nil
}

// Version reports the applied migration. An empty database is version 0.
func (r *MigrationRunner) Version() (uint, bool, error) {
	version, dirty, err := r.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Close releases the source and database handles
func (r *MigrationRunner) Close() error {
	srcErr, dbErr := r.m.Close()
	return errors.Join(srcErr, dbErr)
}

// Migrate brings the schema at databaseURL up to SchemaVersion
func Migrate(ctx context.Context, databaseURL, dir string, logger *logrus.Logger) error {
	runner, err := NewMigrationRunner(databaseURL, dir, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := runner.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close migration runner")
		}
	}()

	if err := runner.Up(ctx); err != nil {
		return err
	}
	version, _, err := runner.Version()
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if version < SchemaVersion {
		return fmt.Errorf("schema version %d is older than required %d", version, SchemaVersion)
	}
	return nil
}
