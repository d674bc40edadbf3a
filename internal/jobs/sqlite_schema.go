package jobs

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"creatorpack/internal/logging"
	"creatorpack/internal/services"
)

//go:embed schema.sql
var jobsTableDDL string

// jobsTableVersion is stored in PRAGMA user_version. A database created by a
// build with a different record layout is refused, never migrated in place.
const jobsTableVersion = 1

var errJobsTableVersion = errors.New("jobs table version mismatch")

// prepareTables creates the jobs table in an empty database and checks the
// layout version of an existing one.
func (s *SQLiteStore) prepareTables(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return services.Wrap(services.ErrStorage, component, "open", s.path, fmt.Errorf("read user_version: %w", err))
	}
	switch version {
	case jobsTableVersion:
		return nil
	case 0:
		return s.createTables(ctx)
	default:
		return services.Wrap(services.ErrStorage, component, "open",
			fmt.Sprintf("%s has jobs table version %d, this build expects %d; move the file aside to start fresh", s.path, version, jobsTableVersion),
			errJobsTableVersion)
	}
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return services.Wrap(services.ErrStorage, component, "open", s.path, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, jobsTableDDL); err != nil {
		return services.Wrap(services.ErrStorage, component, "open", s.path, fmt.Errorf("create jobs table: %w", err))
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", jobsTableVersion)); err != nil {
		return services.Wrap(services.ErrStorage, component, "open", s.path, fmt.Errorf("set user_version: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return services.Wrap(services.ErrStorage, component, "open", s.path, err)
	}
	s.logger.Debug("created jobs table", logging.String("path", s.path), logging.Int("version", jobsTableVersion))
	return nil
}
