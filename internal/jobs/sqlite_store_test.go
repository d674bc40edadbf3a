package jobs_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"creatorpack/internal/jobs"
	"creatorpack/internal/services"
)

func TestSQLiteStoreWriteArtifactRegistrationFailure(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(root, "jobs.db")
	jobsRoot := filepath.Join(root, "jobs")
	store, err := jobs.OpenSQLiteStore(dbPath, jobsRoot, nil)
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	mustCreate(t, store, uploadJob("job-p"))

	// A trigger rejects the registering UPDATE, which runs only after the
	// content has been written.
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TRIGGER reject_artifacts BEFORE UPDATE OF artifacts_json ON jobs
		BEGIN SELECT RAISE(ABORT, 'artifact registration rejected'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	_, err = store.WriteArtifact(context.Background(), "job-p", "transcript.txt", []byte("orphan"))
	assertOrphanedArtifact(t, store, jobsRoot, "job-p", "transcript.txt", err)
}

func TestSQLiteStoreRefusesOtherTableVersion(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(root, "jobs.db")
	store, err := jobs.OpenSQLiteStore(dbPath, filepath.Join(root, "jobs"), nil)
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	mustCreate(t, store, uploadJob("job-v"))
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := jobs.OpenSQLiteStore(dbPath, filepath.Join(root, "jobs"), nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := reopened.Get(context.Background(), "job-v"); err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if err := reopened.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 7"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	_ = db.Close()

	if _, err := jobs.OpenSQLiteStore(dbPath, filepath.Join(root, "jobs"), nil); !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage error for foreign table version, got %v", err)
	}
}
