package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"creatorpack/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("disk full")
	err := services.Wrap(services.ErrStorage, "jobs", "update", "write record", base)
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"jobs", "update", "write record", "disk full"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestKindSurvivesOuterWrapping(t *testing.T) {
	tests := []struct {
		marker error
		want   string
	}{
		{services.ErrNotFound, "not_found"},
		{services.ErrAlreadyExists, "already_exists"},
		{services.ErrValidation, "validation"},
		{services.ErrStorage, "storage"},
		{services.ErrPartialArtifact, "partial_artifact"},
		{services.ErrUpstream, "upstream"},
		{services.ErrTransient, "internal"},
	}
	for _, tc := range tests {
		err := fmt.Errorf("outer: %w", services.Wrap(tc.marker, "c", "op", "msg", nil))
		if got := services.Kind(err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.marker, got, tc.want)
		}
	}
	if services.Kind(nil) != "" {
		t.Fatal("expected empty kind for nil")
	}
}

func TestUserMessage(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "ingest", "upload", "Unsupported file type", nil)
	if got := services.UserMessage(err); got != "Unsupported file type" {
		t.Fatalf("unexpected validation message: %q", got)
	}
	err = services.Wrap(services.ErrNotFound, "jobs", "get", "job abc", nil)
	if got := services.UserMessage(err); got != "jobs: get: job abc" {
		t.Fatalf("unexpected not-found message: %q", got)
	}
}
