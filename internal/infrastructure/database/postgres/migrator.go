package postgres

import (
	stderrors "errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // pgx5:// driver
	_ "github.com/golang-migrate/migrate/v4/source/file"     // file:// source

	"github.com/turtacn/MolGraph-Codec/internal/config"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

// migrationRunner is the subset of *migrate.Migrate the Migrator drives.
type migrationRunner interface {
	Up() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Close() (source error, database error)
}

// newRunner is a variable to allow substitution in tests.
var newRunner = func(sourceURL, databaseURL string) (migrationRunner, error) {
	return migrate.New(sourceURL, databaseURL)
}

// Migrator applies the encoded_graphs schema migrations.
type Migrator struct {
	runner migrationRunner
	logger logging.Logger
}

// NewMigrator opens a migrate instance over cfg.MigrationPath.
func NewMigrator(cfg config.DatabaseConfig, log logging.Logger) (*Migrator, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if cfg.MigrationPath == "" {
		return nil, errors.Validation("migration_path", "migration path is required")
	}
	runner, err := newRunner(sourceURL(cfg.MigrationPath), migrateDatabaseURL(cfg))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance").
			WithDetailf("path=%s", cfg.MigrationPath)
	}
	return &Migrator{runner: runner, logger: log}, nil
}

// Up applies all pending migrations.  An up-to-date schema is not an error.
func (m *Migrator) Up() error {
	if err := m.runner.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		version, dirty, _ := m.runner.Version()
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to run migrations").
			WithDetailf("version=%d dirty=%t", version, dirty)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.logger.Info("Database migrations completed",
		logging.Int64("version", int64(version)),
		logging.Bool("dirty", dirty))
	return nil
}

// Down rolls back steps migrations.
func (m *Migrator) Down(steps int) error {
	if steps <= 0 {
		return errors.Validation("steps", "steps must be greater than 0").WithDetailf("steps=%d", steps)
	}
	if err := m.runner.Steps(-steps); err != nil {
		if stderrors.Is(err, migrate.ErrNoChange) {
			return errors.New(errors.ErrCodeConflict, "no migrations to roll back")
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to roll back migrations").
			WithDetailf("steps=%d", steps)
	}
	m.logger.Info("Database migrations rolled back", logging.Int("steps", steps))
	return nil
}

// Version reports the applied version.  A fresh database reports 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.runner.Version()
	if err != nil {
		if stderrors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read migration version")
	}
	return version, dirty, nil
}

// Force records version as applied and clears the dirty flag.
func (m *Migrator) Force(version int) error {
	if version < -1 {
		return errors.Validation("version", "version must be >= -1")
	}
	if err := m.runner.Force(version); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to force migration version").
			WithDetailf("version=%d", version)
	}
	m.logger.Warn("Forced migration version", logging.Int("version", version))
	return nil
}

// Close releases the source and database handles.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.runner.Close()
	if srcErr != nil {
		return errors.Wrap(srcErr, errors.ErrCodeInternal, "failed to close migration source")
	}
	if dbErr != nil {
		return errors.Wrap(dbErr, errors.ErrCodeDatabaseError, "failed to close migration database")
	}
	return nil
}

func sourceURL(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	return "file://" + path
}

// migrateDatabaseURL swaps the scheme for golang-migrate's pgx v5 driver.
func migrateDatabaseURL(cfg config.DatabaseConfig) string {
	return "pgx5" + strings.TrimPrefix(buildConnString(cfg), "postgres")
}

//Personal.AI order the ending
