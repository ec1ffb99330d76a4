package main

import (
	"errors"
	"testing"

	"github.com/forgebuild/forge/internal/forgeerr"
)

func TestSolveFailureAndScheduleFailureMapToCode101(t *testing.T) {
	base := errors.New("boom")

	for _, wrap := range []func(error) error{solveFailure, scheduleFailure} {
		err := wrap(base)
		if got := codeOf(err); got != 101 {
			t.Errorf("codeOf(%v) = %d, want 101", err, got)
		}
		if !errors.Is(err, base) {
			t.Errorf("wrapped error does not unwrap to the original: %v", err)
		}
	}
}

func TestSolveFailureNilStaysNil(t *testing.T) {
	if solveFailure(nil) != nil {
		t.Error("solveFailure(nil) should return nil")
	}
	if scheduleFailure(nil) != nil {
		t.Error("scheduleFailure(nil) should return nil")
	}
}

func TestCodeOfDefaultsToOne(t *testing.T) {
	if got := codeOf(errors.New("plain")); got != 1 {
		t.Errorf("codeOf(plain error) = %d, want 1", got)
	}
}

func TestScheduleFailureMapsCancelledTo130(t *testing.T) {
	err := scheduleFailure(forgeerr.Cancelled)
	if got := codeOf(err); got != 130 {
		t.Errorf("codeOf(cancelled) = %d, want 130", got)
	}
	if !errors.Is(err, forgeerr.Cancelled) {
		t.Error("expected scheduleFailure(forgeerr.Cancelled) to unwrap to forgeerr.Cancelled")
	}
}
