package main

import "github.com/forgebuild/forge/internal/forgeerr"

// exitError pairs an error with the process exit code it should
// produce, so run can recover the right code from whatever bubbled up
// through cobra's RunE chain.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// solveFailure and scheduleFailure mark an error as originating from
// the solver or the scheduler, both mapped to exit code 101 regardless
// of the underlying cause; every other error keeps the default code 1.
// A cancelled scheduler run is not a failure, so it gets the
// conventional SIGINT exit code 130 instead, and run skips printing it
// as a "forge: ..." error.
func solveFailure(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: 101, err: err}
}

func scheduleFailure(err error) error {
	if err == nil {
		return nil
	}
	if err == forgeerr.Cancelled {
		return &exitError{code: 130, err: err}
	}
	return &exitError{code: 101, err: err}
}

func codeOf(err error) int {
	if ee, ok := err.(*exitError); ok {
		return ee.code
	}
	return 1
}
