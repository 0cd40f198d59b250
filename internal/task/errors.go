// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package task

// Sentinel errors. Use errors.Is to check for them; wrapped instances
// produced by WithCause compare equal to their sentinel.
var (
	// ErrTaskNotFound is returned when no scanned root contains the task.
	ErrTaskNotFound = &TaskError{Message: "task not found"}
	// ErrReadFailed is returned when a file read kept failing after retries.
	ErrReadFailed = &TaskError{Message: "read failed"}
	// ErrTimeout is returned when a bounded read did not finish in time.
	ErrTimeout = &TaskError{Message: "read timed out"}
	// ErrAdviceExists is returned when an advice id is already on disk.
	ErrAdviceExists = &TaskError{Message: "advice already exists"}
	// ErrAdviceDisabled is returned when config forbids advice writes.
	ErrAdviceDisabled = &TaskError{Message: "advice writes are disabled"}
)

// TaskError represents a task-access error.
// It implements the error interface and can be compared using errors.Is.
type TaskError struct {
	Message string
	Err     error // wrapped cause, may be nil
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the cause so errors.Is can see through to it.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support: two TaskErrors match when they carry
// the same message, regardless of cause.
func (e *TaskError) Is(target error) bool {
	t, ok := target.(*TaskError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// WithCause returns a copy of the sentinel carrying a cause. The copy
// still matches the sentinel under errors.Is, and errors.Is also finds
// the cause through Unwrap.
func (e *TaskError) WithCause(err error) *TaskError {
	return &TaskError{Message: e.Message, Err: err}
}
