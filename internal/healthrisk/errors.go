package healthrisk

import (
	"errors"
	"fmt"
)

var (
	// ErrPersistence is wrapped by stores when a read or write is rejected.
	ErrPersistence = errors.New("persistence error")

	// ErrBatchFatal is returned when the user directory cannot be enumerated.
	ErrBatchFatal = errors.New("batch aborted")

	// ErrRunInProgress is returned when another run holds the run lock.
	ErrRunInProgress = errors.New("health history generation already in progress")
)

// Stages of per-user processing, used in UserProcessingError.
const (
	StageProfile     = "profile"
	StageLocation    = "location"
	StageEnvironment = "environment"
	StageHistory     = "history"
	StagePanic       = "panic"
)

// UserProcessingError wraps any failure while processing one user.
type UserProcessingError struct {
	UserID string
	Stage  string
	Err    error
}

func (e *UserProcessingError) Error() string {
	return fmt.Sprintf("user %s: %s: %v", e.UserID, e.Stage, e.Err)
}

func (e *UserProcessingError) Unwrap() error {
	return e.Err
}
