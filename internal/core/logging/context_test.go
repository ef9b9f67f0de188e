package logging

import (
	"context"
	"testing"
)

func TestWithRunID(t *testing.T) {
	ctx := context.Background()
	runID := "01JRUN"

	ctx = WithRunID(ctx, runID)
	got := GetRunID(ctx)

	if got != runID {
		t.Errorf("GetRunID() = %q, want %q", got, runID)
	}
}

func TestWithCommand(t *testing.T) {
	ctx := context.Background()
	command := "run"

	ctx = WithCommand(ctx, command)
	got := GetCommand(ctx)

	if got != command {
		t.Errorf("GetCommand() = %q, want %q", got, command)
	}
}

func TestGetRunID_NotPresent(t *testing.T) {
	ctx := context.Background()
	got := GetRunID(ctx)

	if got != "" {
		t.Errorf("GetRunID() = %q, want empty string", got)
	}
}

func TestGetCommand_NotPresent(t *testing.T) {
	ctx := context.Background()
	got := GetCommand(ctx)

	if got != "" {
		t.Errorf("GetCommand() = %q, want empty string", got)
	}
}

func TestRunIDAndCommand(t *testing.T) {
	ctx := context.Background()
	runID := "01JRUN"
	command := "settings import"

	ctx = WithRunID(ctx, runID)
	ctx = WithCommand(ctx, command)

	if got := GetRunID(ctx); got != runID {
		t.Errorf("GetRunID() = %q, want %q", got, runID)
	}

	if got := GetCommand(ctx); got != command {
		t.Errorf("GetCommand() = %q, want %q", got, command)
	}
}
