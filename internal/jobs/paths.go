package jobs

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	recordFileName = "job.json"
	lockFileName   = "job.lock"
	inputDirName   = "input"
	artifactsDir   = "artifacts"
)

var (
	idPattern   = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)
	namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 ._()-]{0,254}$`)
)

// ValidateID rejects identifiers that are not a single safe path segment.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid job id %q", id)
	}
	return nil
}

// ValidateName rejects artifact and input names that could escape the job directory.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid file name %q", name)
	}
	return nil
}

// layout maps job ids onto the on-disk directory structure:
//
//	<root>/<id>/job.json
//	<root>/<id>/job.lock
//	<root>/<id>/input/<filename>
//	<root>/<id>/artifacts/<name>
type layout struct {
	root string
}

func (l layout) jobDir(id string) string { return filepath.Join(l.root, id) }

func (l layout) recordPath(id string) string { return filepath.Join(l.root, id, recordFileName) }

func (l layout) lockPath(id string) string { return filepath.Join(l.root, id, lockFileName) }

func (l layout) inputDir(id string) string { return filepath.Join(l.root, id, inputDirName) }

func (l layout) artifactDir(id string) string { return filepath.Join(l.root, id, artifactsDir) }

func (l layout) inputPath(id, name string) string {
	return filepath.Join(l.root, id, inputDirName, name)
}

// artifactLocation is the job-relative location stored in Job.Artifacts.
func artifactLocation(name string) string {
	return artifactsDir + "/" + name
}

// resolve turns a stored job-relative location into an absolute path,
// refusing anything that points outside the job directory.
func (l layout) resolve(id, location string) (string, error) {
	base := l.jobDir(id)
	full := filepath.Join(base, filepath.FromSlash(location))
	rel, err := filepath.Rel(base, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(location) {
		return "", fmt.Errorf("artifact location %q escapes job directory", location)
	}
	return full, nil
}
