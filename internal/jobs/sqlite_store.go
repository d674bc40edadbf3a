package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"creatorpack/internal/logging"
	"creatorpack/internal/services"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const jobColumns = "id, status, progress, source_type, language, preset_id, input_json, logs_json, artifacts_json, error_message, created_at, updated_at"

// SQLiteStore keeps job records in a SQLite table. Inputs and artifacts still
// live on disk under the jobs directory.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	disk   diskArtifacts
	clock  *monotonicClock
	logger *slog.Logger
}

// OpenSQLiteStore opens (or creates) the database at dbPath. Artifact and input
// files are kept under jobsRoot.
func OpenSQLiteStore(dbPath, jobsRoot string, logger *slog.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(jobsRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create jobs directory: %w", err)
	}
	dsn := dbPath + "?" + url.Values{
		"_pragma": []string{"busy_timeout(5000)", "journal_mode(WAL)", "foreign_keys(1)"},
		"_txlock": []string{"immediate"},
	}.Encode()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		path:   dbPath,
		disk:   diskArtifacts{layout: layout{root: jobsRoot}},
		clock:  newClock(nil),
		logger: logging.NewComponentLogger(logger, "job-store"),
	}
	if err := store.prepareTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create inserts a new queued job and prepares its directories.
func (s *SQLiteStore) Create(ctx context.Context, initial NewJob) (*Job, error) {
	ctx = ensureContext(ctx)
	if err := initial.validate(); err != nil {
		return nil, invalid("create", err)
	}
	job := initial.build(s.clock.Now())
	input, logs, artifacts, err := encodeJSONColumns(job)
	if err != nil {
		return nil, storageErr("create", job.ID, err)
	}
	err = retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			job.ID, job.Status, job.Progress, job.SourceType, job.Language,
			nullableString(job.PresetID), input, logs, artifacts, nullableString(job.ErrorMessage),
			formatRecordTime(job.CreatedAt), formatRecordTime(job.UpdatedAt),
		)
		return execErr
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, services.Wrap(services.ErrAlreadyExists, component, "create", "job "+job.ID, nil)
		}
		return nil, storageErr("create", job.ID, err)
	}
	if err := s.disk.ensureJobDirs(job.ID); err != nil {
		return nil, storageErr("create", job.ID, err)
	}
	return job.Clone(), nil
}

// Get fetches a job by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	if ValidateID(id) != nil {
		return nil, notFound("get", "job "+id)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("get", "job "+id)
	}
	if err != nil {
		return nil, storageErr("get", id, err)
	}
	return job, nil
}

// Update merges patch into the stored record.
func (s *SQLiteStore) Update(ctx context.Context, id string, patch Patch) (*Job, error) {
	return s.mutate(ctx, "update", id, func(job *Job, now time.Time) error {
		return patch.apply(job, now)
	})
}

// AppendLog prefixes a timestamped message to the job's log.
func (s *SQLiteStore) AppendLog(ctx context.Context, id, message string) (*Job, error) {
	return s.mutate(ctx, "append log", id, func(job *Job, now time.Time) error {
		prependLog(job, message, now)
		return nil
	})
}

// WriteArtifact writes content to disk, then registers it in the record.
func (s *SQLiteStore) WriteArtifact(ctx context.Context, id, name string, content []byte) (*Job, error) {
	if err := ValidateName(name); err != nil {
		return nil, invalid("write artifact", err)
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	location, err := s.disk.writeArtifact(id, name, content)
	if err != nil {
		return nil, storageErr("write artifact", id, err)
	}
	job, err := s.mutate(ctx, "register artifact", id, func(job *Job, now time.Time) error {
		registerArtifact(job, name, location, now)
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrPartialArtifact, component, "write artifact", name, err)
	}
	return job, nil
}

// ArtifactExists reports whether name is registered and its file is present.
func (s *SQLiteStore) ArtifactExists(ctx context.Context, id, name string) (bool, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		if services.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	location, ok := job.Artifacts[name]
	if !ok {
		return false, nil
	}
	present, err := s.disk.artifactPresent(id, location)
	if err != nil {
		return false, storageErr("artifact exists", id, err)
	}
	return present, nil
}

// ReadArtifact opens a registered artifact.
func (s *SQLiteStore) ReadArtifact(ctx context.Context, id, name string) (io.ReadCloser, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	location, ok := job.Artifacts[name]
	if !ok {
		return nil, notFound("read artifact", name)
	}
	return s.disk.openArtifact(id, name, location)
}

// List returns every job, newest first. Rows that fail to decode are skipped
// with a warning.
func (s *SQLiteStore) List(ctx context.Context) ([]*Job, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, component, "list", "query jobs", err)
	}
	defer rows.Close()

	list := make([]*Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			logging.WarnWithContext(s.logger, "skipping unreadable job row", "job_record_corrupt",
				logging.Error(err),
				logging.String(logging.FieldImpact, "job hidden from listings"),
			)
			continue
		}
		list = append(list, job)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStorage, component, "list", "iterate jobs", err)
	}
	sortNewestFirst(list)
	return list, nil
}

// StageInput stores uploaded bytes under the job's input directory.
func (s *SQLiteStore) StageInput(ctx context.Context, id, filename string, r io.Reader) (StagedInput, error) {
	if err := ValidateName(filename); err != nil {
		return StagedInput{}, invalid("stage input", err)
	}
	if _, err := s.Get(ctx, id); err != nil {
		return StagedInput{}, err
	}
	staged, err := s.disk.stageInput(id, filename, r)
	if err != nil {
		return StagedInput{}, storageErr("stage input", id, err)
	}
	return staged, nil
}

// Stats counts jobs per status.
func (s *SQLiteStore) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, component, "stats", "query", err)
	}
	defer rows.Close()

	counts := make(map[Status]int, len(allStatuses))
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, services.Wrap(services.ErrStorage, component, "stats", "scan", err)
		}
		counts[Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStorage, component, "stats", "iterate", err)
	}
	return counts, nil
}

// mutate runs fn inside an immediate transaction so concurrent writers to the
// same row serialize on the database write lock.
func (s *SQLiteStore) mutate(ctx context.Context, operation, id string, fn func(*Job, time.Time) error) (*Job, error) {
	ctx = ensureContext(ctx)
	if ValidateID(id) != nil {
		return nil, notFound(operation, "job "+id)
	}
	var result *Job
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		row := tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
		job, err := scanJob(row)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(operation, "job "+id)
		}
		if err != nil {
			return err
		}
		if err := fn(job, s.clock.Now()); err != nil {
			return invalid(operation, err)
		}
		input, logs, artifacts, err := encodeJSONColumns(job)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE jobs SET status = ?, progress = ?, input_json = ?, logs_json = ?, artifacts_json = ?,
                error_message = ?, updated_at = ? WHERE id = ?`,
			job.Status, job.Progress, input, logs, artifacts,
			nullableString(job.ErrorMessage), formatRecordTime(job.UpdatedAt), id,
		); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		result = job
		return nil
	})
	if err != nil {
		if isClassified(err) {
			return nil, err
		}
		return nil, storageErr(operation, id, err)
	}
	return result, nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		status       string
		progress     int
		sourceType   string
		language     string
		presetID     sql.NullString
		inputJSON    string
		logsJSON     string
		artifactJSON string
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(&id, &status, &progress, &sourceType, &language, &presetID,
		&inputJSON, &logsJSON, &artifactJSON, &errorMessage, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	parsedStatus, ok := ParseStatus(status)
	if !ok {
		return nil, fmt.Errorf("job %s: unknown status %q", id, status)
	}
	input, err := decodeInput(SourceType(sourceType), json.RawMessage(inputJSON))
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", id, err)
	}
	job := &Job{
		ID:           id,
		Status:       parsedStatus,
		Progress:     progress,
		SourceType:   SourceType(sourceType),
		Language:     language,
		PresetID:     presetID.String,
		Input:        input,
		ErrorMessage: errorMessage.String,
	}
	if err := json.Unmarshal([]byte(logsJSON), &job.Logs); err != nil {
		return nil, fmt.Errorf("job %s: decode logs: %w", id, err)
	}
	if err := json.Unmarshal([]byte(artifactJSON), &job.Artifacts); err != nil {
		return nil, fmt.Errorf("job %s: decode artifacts: %w", id, err)
	}
	if job.Logs == nil {
		job.Logs = []string{}
	}
	if job.Artifacts == nil {
		job.Artifacts = map[string]string{}
	}
	if job.CreatedAt, err = parseRecordTime(createdRaw); err != nil {
		return nil, fmt.Errorf("job %s: created_at: %w", id, err)
	}
	if job.UpdatedAt, err = parseRecordTime(updatedRaw); err != nil {
		return nil, fmt.Errorf("job %s: updated_at: %w", id, err)
	}
	return job, nil
}

func encodeJSONColumns(job *Job) (input, logs, artifacts string, err error) {
	rawInput, err := json.Marshal(job.Input)
	if err != nil {
		return "", "", "", fmt.Errorf("encode input: %w", err)
	}
	rawLogs, err := json.Marshal(job.Logs)
	if err != nil {
		return "", "", "", fmt.Errorf("encode logs: %w", err)
	}
	rawArtifacts, err := json.Marshal(job.Artifacts)
	if err != nil {
		return "", "", "", fmt.Errorf("encode artifacts: %w", err)
	}
	return string(rawInput), string(rawLogs), string(rawArtifacts), nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: jobs.id")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
