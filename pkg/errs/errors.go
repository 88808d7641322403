// Package errs defines the error taxonomy for the pipeline. Each category
// carries an explicit recovery policy: ConfigurationError and AuthError are
// fatal and abort the run; DataError and UploadError are recovered locally
// by the caller (log, skip, continue).
package errs

import "fmt"

// ConfigurationError marks missing or malformed required input: the exercise
// CSV cannot be located, the archive layout is unrecognized, an expected
// folder is absent. Fatal.
type ConfigurationError struct {
	msg string
}

func NewConfiguration(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string { return e.msg }

// DataError marks one unreadable or malformed sample file. The file's
// contribution is excluded and processing continues.
type DataError struct {
	Path string
	Err  error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("unusable sample file %s: %v", e.Path, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// AuthError marks a credential that could not be validated against the
// upload service. Fatal; nothing is uploaded.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("not authorized: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// UploadError marks a single failed submission or processing result. The
// file is skipped and the batch continues; retry happens on a later run,
// gated by the ledger.
type UploadError struct {
	ExerciseID string
	Err        error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed for %s: %v", e.ExerciseID, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
