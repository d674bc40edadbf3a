package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"creatorpack/internal/fileutil"
	"creatorpack/internal/logging"
	"creatorpack/internal/services"
)

var errCorruptRecord = errors.New("corrupt job record")

// FileStore persists each job as <root>/<id>/job.json.
type FileStore struct {
	layout layout
	disk   diskArtifacts
	locks  *recordLocks
	clock  *monotonicClock
	logger *slog.Logger
}

// OpenFileStore prepares root and returns a FileStore rooted there.
func OpenFileStore(root string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create jobs directory: %w", err)
	}
	l := layout{root: root}
	return &FileStore{
		layout: l,
		disk:   diskArtifacts{layout: l},
		locks:  newRecordLocks(),
		clock:  newClock(nil),
		logger: logging.NewComponentLogger(logger, "job-store"),
	}, nil
}

// Create writes a new queued job record.
func (s *FileStore) Create(ctx context.Context, initial NewJob) (*Job, error) {
	if err := initial.validate(); err != nil {
		return nil, invalid("create", err)
	}
	id := initial.ID
	if err := s.disk.ensureJobDirs(id); err != nil {
		return nil, storageErr("create", id, err)
	}

	var created *Job
	err := s.withRecordLock(ctx, id, func() error {
		if _, err := os.Stat(s.layout.recordPath(id)); err == nil {
			return services.Wrap(services.ErrAlreadyExists, component, "create", "job "+id, nil)
		} else if !os.IsNotExist(err) {
			return storageErr("create", id, err)
		}
		job := initial.build(s.clock.Now())
		if err := s.writeRecord(job); err != nil {
			return storageErr("create", id, err)
		}
		created = job.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Get reads the current record without taking any lock; atomic replacement
// guarantees the file is always complete.
func (s *FileStore) Get(_ context.Context, id string) (*Job, error) {
	if ValidateID(id) != nil {
		return nil, notFound("get", "job "+id)
	}
	return s.readRecord("get", id)
}

// Update merges patch into the stored record.
func (s *FileStore) Update(ctx context.Context, id string, patch Patch) (*Job, error) {
	return s.mutate(ctx, "update", id, func(job *Job, now time.Time) error {
		return patch.apply(job, now)
	})
}

// AppendLog prefixes a timestamped message to the job's log.
func (s *FileStore) AppendLog(ctx context.Context, id, message string) (*Job, error) {
	return s.mutate(ctx, "append log", id, func(job *Job, now time.Time) error {
		prependLog(job, message, now)
		return nil
	})
}

// WriteArtifact writes content first and registers it second, so a failed
// registration leaves an unreferenced file rather than a dangling entry.
func (s *FileStore) WriteArtifact(ctx context.Context, id, name string, content []byte) (*Job, error) {
	if err := ValidateName(name); err != nil {
		return nil, invalid("write artifact", err)
	}
	if err := s.requireRecord("write artifact", id); err != nil {
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
func (s *FileStore) ArtifactExists(ctx context.Context, id, name string) (bool, error) {
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
func (s *FileStore) ReadArtifact(ctx context.Context, id, name string) (io.ReadCloser, error) {
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

// List returns every readable job, newest first. Directories without a
// record are ignored and undecodable records are skipped with a warning.
func (s *FileStore) List(ctx context.Context) ([]*Job, error) {
	entries, err := os.ReadDir(s.layout.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Job{}, nil
		}
		return nil, services.Wrap(services.ErrStorage, component, "list", "read jobs directory", err)
	}
	list := make([]*Job, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() || ValidateID(entry.Name()) != nil {
			continue
		}
		job, err := s.readRecord("list", entry.Name())
		switch {
		case err == nil:
			list = append(list, job)
		case services.IsNotFound(err):
		case errors.Is(err, errCorruptRecord):
			logging.WarnWithContext(s.logger, "skipping unreadable job record", "job_record_corrupt",
				logging.String(logging.FieldJobID, entry.Name()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "job hidden from listings"),
				logging.String(logging.FieldErrorHint, "inspect or remove the job directory"),
			)
		default:
			return nil, err
		}
	}
	sortNewestFirst(list)
	return list, nil
}

// StageInput stores uploaded bytes under the job's input directory.
func (s *FileStore) StageInput(_ context.Context, id, filename string, r io.Reader) (StagedInput, error) {
	if err := ValidateName(filename); err != nil {
		return StagedInput{}, invalid("stage input", err)
	}
	if err := s.requireRecord("stage input", id); err != nil {
		return StagedInput{}, err
	}
	staged, err := s.disk.stageInput(id, filename, r)
	if err != nil {
		return StagedInput{}, storageErr("stage input", id, err)
	}
	return staged, nil
}

// Stats counts jobs per status.
func (s *FileStore) Stats(ctx context.Context) (map[Status]int, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[Status]int, len(allStatuses))
	for _, job := range list {
		counts[job.Status]++
	}
	return counts, nil
}

// Close releases nothing; FileStore holds no open handles between calls.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) mutate(ctx context.Context, operation, id string, fn func(*Job, time.Time) error) (*Job, error) {
	if err := s.requireRecord(operation, id); err != nil {
		return nil, err
	}
	var result *Job
	err := s.withRecordLock(ctx, id, func() error {
		job, err := s.readRecord(operation, id)
		if err != nil {
			return err
		}
		if err := fn(job, s.clock.Now()); err != nil {
			return invalid(operation, err)
		}
		if err := s.writeRecord(job); err != nil {
			return storageErr(operation, id, err)
		}
		result = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *FileStore) withRecordLock(ctx context.Context, id string, fn func() error) error {
	unlock := s.locks.lock(id)
	defer unlock()
	err := withFileLock(ctx, s.layout.lockPath(id), fn)
	if err != nil && !isClassified(err) {
		return storageErr("lock", id, err)
	}
	return err
}

func (s *FileStore) requireRecord(operation, id string) error {
	if ValidateID(id) != nil {
		return notFound(operation, "job "+id)
	}
	if _, err := os.Stat(s.layout.recordPath(id)); err != nil {
		if os.IsNotExist(err) {
			return notFound(operation, "job "+id)
		}
		return storageErr(operation, id, err)
	}
	return nil
}

func (s *FileStore) readRecord(operation, id string) (*Job, error) {
	data, err := os.ReadFile(s.layout.recordPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(operation, "job "+id)
		}
		return nil, storageErr(operation, id, err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, storageErr(operation, id, fmt.Errorf("%w: %w", errCorruptRecord, err))
	}
	return &job, nil
}

func (s *FileStore) writeRecord(job *Job) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return fileutil.WriteFileAtomic(s.layout.recordPath(job.ID), data, 0o644)
}

func isClassified(err error) bool {
	for _, marker := range []error{
		services.ErrNotFound, services.ErrAlreadyExists, services.ErrValidation,
		services.ErrStorage, services.ErrPartialArtifact,
	} {
		if errors.Is(err, marker) {
			return true
		}
	}
	return false
}
