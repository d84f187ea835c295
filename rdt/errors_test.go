package rdt

import (
	"errors"
	"fmt"
	"testing"
)

func TestTrainErrorIsMatchesByKindOnly(t *testing.T) {
	specific := newError(AlreadyComplete, "run %s already finished", "abc123")
	if !errors.Is(specific, ErrAlreadyComplete) {
		t.Fatal("expected errors.Is to match on Kind regardless of Msg")
	}
	if errors.Is(specific, ErrMalformedInput) {
		t.Fatal("errors of different kinds should not match")
	}
}

func TestTrainErrorMessageIsFormatted(t *testing.T) {
	err := newError(MalformedInput, "label %d exceeds max %d", 9, 3)
	want := fmt.Sprintf("label %d exceeds max %d", 9, 3)
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorKindString(t *testing.T) {
	if MalformedInput.String() != "malformed input" {
		t.Fatalf("String() = %q", MalformedInput.String())
	}
}
