package jobs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"creatorpack/internal/config"
	"creatorpack/internal/fileutil"
	"creatorpack/internal/services"
)

const component = "jobs"

// Store is the durable job record contract shared by every backend.
//
// Mutating operations are atomic read-modify-writes: a concurrent Get or List
// observes either the state before or after the mutation, never a torn record.
// Missing jobs yield an error matching services.ErrNotFound.
type Store interface {
	// Create persists a new queued job. Fails with services.ErrAlreadyExists
	// when the id is taken.
	Create(ctx context.Context, initial NewJob) (*Job, error)
	Get(ctx context.Context, id string) (*Job, error)
	Update(ctx context.Context, id string, patch Patch) (*Job, error)
	// AppendLog prefixes a timestamped entry to the job's log.
	AppendLog(ctx context.Context, id, message string) (*Job, error)
	// WriteArtifact stores content under the job's artifact directory and then
	// registers it. If registration fails the error matches
	// services.ErrPartialArtifact and the file is left in place.
	WriteArtifact(ctx context.Context, id, name string, content []byte) (*Job, error)
	ArtifactExists(ctx context.Context, id, name string) (bool, error)
	// ReadArtifact opens registered artifact content. The caller closes it.
	ReadArtifact(ctx context.Context, id, name string) (io.ReadCloser, error)
	// List returns every job, newest first.
	List(ctx context.Context) ([]*Job, error)
	// StageInput copies uploaded bytes into the job's input directory.
	StageInput(ctx context.Context, id, filename string, r io.Reader) (StagedInput, error)
	// Stats counts jobs per status.
	Stats(ctx context.Context) (map[Status]int, error)
	Close() error
}

// StagedInput describes bytes written by StageInput.
type StagedInput struct {
	Path   string
	Size   int64
	SHA256 string
}

// Open returns the backend selected by cfg.Store.Backend.
func Open(cfg *config.Config, logger *slog.Logger) (Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	switch cfg.Store.Backend {
	case config.StoreBackendSQLite:
		return OpenSQLiteStore(cfg.SQLitePath(), cfg.JobsDir(), logger)
	case config.StoreBackendFile, "":
		return OpenFileStore(cfg.JobsDir(), logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func storageErr(operation, id string, err error) error {
	return services.Wrap(services.ErrStorage, component, operation, "job "+id, err)
}

func notFound(operation, what string) error {
	return services.Wrap(services.ErrNotFound, component, operation, what, nil)
}

func invalid(operation string, err error) error {
	return services.Wrap(services.ErrValidation, component, operation, err.Error(), nil)
}

// sortNewestFirst orders by createdAt descending with id as a stable tiebreak.
func sortNewestFirst(list []*Job) {
	slices.SortFunc(list, func(a, b *Job) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// monotonicClock never returns a time earlier than the previous call so
// updatedAt strictly advances even when the wall clock steps backwards.
type monotonicClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newClock(now func() time.Time) *monotonicClock {
	if now == nil {
		now = time.Now
	}
	return &monotonicClock{now: now}
}

func (c *monotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}

// diskArtifacts handles the on-disk half of inputs and artifacts for both backends.
type diskArtifacts struct {
	layout layout
}

func (d diskArtifacts) ensureJobDirs(id string) error {
	for _, dir := range []string{d.layout.inputDir(id), d.layout.artifactDir(id)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (d diskArtifacts) writeArtifact(id, name string, content []byte) (string, error) {
	location := artifactLocation(name)
	path, err := d.layout.resolve(id, location)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.layout.artifactDir(id), 0o755); err != nil {
		return "", err
	}
	if err := fileutil.WriteFileAtomic(path, content, 0o644); err != nil {
		return "", err
	}
	return location, nil
}

// artifactPresent reports whether a registered location still holds a regular file.
func (d diskArtifacts) artifactPresent(id, location string) (bool, error) {
	path, err := d.layout.resolve(id, location)
	if err != nil {
		return false, nil
	}
	return fileutil.IsRegularFile(path)
}

func (d diskArtifacts) openArtifact(id, name, location string) (io.ReadCloser, error) {
	path, err := d.layout.resolve(id, location)
	if err != nil {
		return nil, notFound("read artifact", name)
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound("read artifact", name)
		}
		return nil, storageErr("read artifact", id, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, storageErr("read artifact", id, err)
	}
	if !info.Mode().IsRegular() {
		_ = file.Close()
		return nil, notFound("read artifact", name)
	}
	return file, nil
}

func (d diskArtifacts) stageInput(id, filename string, r io.Reader) (StagedInput, error) {
	if err := os.MkdirAll(d.layout.inputDir(id), 0o755); err != nil {
		return StagedInput{}, err
	}
	path := d.layout.inputPath(id, filename)
	size, sum, err := fileutil.WriteReaderAtomic(path, r, 0o644)
	if err != nil {
		return StagedInput{}, err
	}
	return StagedInput{Path: path, Size: size, SHA256: sum}, nil
}
