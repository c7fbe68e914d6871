package capture

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrTransientCapture marks a failed Capture call. The tick is lost and the
// loop carries on.
var ErrTransientCapture = errors.New("transient capture failure")

// ErrAlreadyRunning is returned by Run on a loop that is already running
var ErrAlreadyRunning = errors.New("capture loop is already running")

type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return ErrTransientCapture.Error() + ": " + e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}

func (e *transientError) Is(target error) bool {
	return target == ErrTransientCapture
}

// Stage names a persistence step
type Stage string

const (
	StageArtifact Stage = "artifact"
	StageExtract  Stage = "extract"
	StageEmbed    Stage = "embed"
	StageStore    Stage = "store"
)

// CollaboratorError reports a failed persistence step. The frame is
// abandoned; its slot keeps the new baseline.
type CollaboratorError struct {
	Stage Stage
	Index int
	Err   error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s failed for monitor %d: %v", e.Stage, e.Index, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
