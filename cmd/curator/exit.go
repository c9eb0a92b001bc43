package main

import "curator/internal/pipeline"

// exitError carries a pipeline status out through cobra so main can map it
// to a process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return "run finished with a non-zero status"
}

func (e *exitError) Unwrap() error {
	return e.err
}

// statusExit converts a run outcome into the command's return value. A clean
// success returns nil so cobra exits zero.
func statusExit(status pipeline.Status, err error) error {
	if code := status.ExitCode(); code != 0 {
		return &exitError{code: code, err: err}
	}
	if err != nil {
		return err
	}
	return nil
}
