package jobs

import (
	"fmt"
	"strings"
	"time"
)

// Patch is a partial update. Nil fields are left untouched. Input replaces the
// whole payload; callers enriching a job pass the complete new value.
type Patch struct {
	Status       *Status
	Progress     *int
	Input        Input
	ErrorMessage *string
}

// SetStatus returns a copy of p with Status set.
func (p Patch) SetStatus(status Status) Patch {
	p.Status = &status
	return p
}

// SetProgress returns a copy of p with Progress set.
func (p Patch) SetProgress(progress int) Patch {
	p.Progress = &progress
	return p
}

// SetError returns a copy of p that moves the job to the error state.
func (p Patch) SetError(message string) Patch {
	status := StatusError
	p.Status = &status
	p.ErrorMessage = &message
	return p
}

// SetInput returns a copy of p with Input replaced.
func (p Patch) SetInput(input Input) Patch {
	p.Input = input
	return p
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Status == nil && p.Progress == nil && p.Input == nil && p.ErrorMessage == nil
}

// apply merges p into job, enforcing the lifecycle rules:
//   - status only moves forward and terminal states are final
//   - progress stays within 0..100, never decreases, and is pinned to 100 once terminal
//   - errorMessage is only present on errored jobs and never rewritten
//   - the input variant always matches the job's source type
//
// A terminal job only accepts Input-only patches.
func (p Patch) apply(job *Job, now time.Time) error {
	if job.Status.IsTerminal() && (p.Status != nil || p.Progress != nil || p.ErrorMessage != nil) {
		return fmt.Errorf("changes to a %s job are not allowed", job.Status)
	}
	nextStatus := job.Status
	if p.Status != nil {
		status, ok := ParseStatus(string(*p.Status))
		if !ok {
			return fmt.Errorf("unknown status %q", *p.Status)
		}
		if !job.Status.canTransition(status) {
			return fmt.Errorf("status transition %s -> %s is not allowed", job.Status, status)
		}
		nextStatus = status
	}

	nextProgress := job.Progress
	if p.Progress != nil {
		value := *p.Progress
		if value < 0 || value > 100 {
			return fmt.Errorf("progress %d outside 0..100", value)
		}
		if value < job.Progress {
			return fmt.Errorf("progress cannot decrease from %d to %d", job.Progress, value)
		}
		nextProgress = value
	}
	if nextStatus.IsTerminal() {
		nextProgress = 100
	}

	nextError := job.ErrorMessage
	if p.ErrorMessage != nil {
		nextError = strings.TrimSpace(*p.ErrorMessage)
	}
	if nextStatus == StatusError {
		if nextError == "" {
			return fmt.Errorf("errored jobs require an error message")
		}
	} else if nextError != "" {
		return fmt.Errorf("error message is only allowed with status %s", StatusError)
	}

	var nextInput Input
	if p.Input != nil {
		if err := checkInput(job.SourceType, p.Input); err != nil {
			return err
		}
		nextInput = p.Input.clone()
	}

	job.Status = nextStatus
	job.Progress = nextProgress
	job.ErrorMessage = nextError
	if nextInput != nil {
		job.Input = nextInput
	}
	job.UpdatedAt = now
	return nil
}

// logTimeLayout matches the ISO-8601 millisecond form used for log prefixes.
const logTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// prependLog adds a "<timestamp> <message>" entry at the front of the log.
func prependLog(job *Job, message string, now time.Time) {
	entry := now.UTC().Format(logTimeLayout) + " " + message
	logs := make([]string, 0, len(job.Logs)+1)
	logs = append(logs, entry)
	logs = append(logs, job.Logs...)
	job.Logs = logs
	job.UpdatedAt = now
}

// registerArtifact records name -> location; an existing name is overwritten.
func registerArtifact(job *Job, name, location string, now time.Time) {
	if job.Artifacts == nil {
		job.Artifacts = map[string]string{}
	}
	job.Artifacts[name] = location
	job.UpdatedAt = now
}
