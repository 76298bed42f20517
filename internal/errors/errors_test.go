package errors

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestLensError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      EngineFailure,
			message:   "lint call failed",
			cause:     errors.New("exit status 2"),
			wantParts: []string{"ENGINE_FAILURE", "lint call failed", "exit status 2"},
		},
		{
			name:      "without cause",
			code:      MissingParameter,
			message:   "path is required",
			cause:     nil,
			wantParts: []string{"MISSING_PARAMETER", "path is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, tt.cause)
			got := err.Error()

			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestLensError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(InternalError, "something went wrong", cause)

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should see through LensError")
	}

	errNoCause := New(EngineFailure, "engine died", nil)
	if errNoCause.Unwrap() != nil {
		t.Error("Unwrap() on error without cause should return nil")
	}
}

func TestNewUnknownCommand(t *testing.T) {
	err := NewUnknownCommand("linty", []string{"lint", "analyze", "callers"})

	if err.Code != UnknownCommand {
		t.Errorf("Code = %v, want %v", err.Code, UnknownCommand)
	}

	available, ok := err.Details["available"].([]string)
	if !ok {
		t.Fatalf("details.available missing or wrong type: %#v", err.Details["available"])
	}
	want := []string{"analyze", "callers", "lint"}
	if !reflect.DeepEqual(available, want) {
		t.Errorf("details.available = %v, want sorted %v", available, want)
	}
}

func TestNewMissingParameter(t *testing.T) {
	err := NewMissingParameter("path")

	if err.Code != MissingParameter {
		t.Errorf("Code = %v, want %v", err.Code, MissingParameter)
	}
	if !strings.Contains(err.Message, "path") {
		t.Errorf("Message = %q, want to name the field", err.Message)
	}
	if err.Details["parameter"] != "path" {
		t.Errorf("details.parameter = %v, want %q", err.Details["parameter"], "path")
	}
}

func TestAsLensError(t *testing.T) {
	le := NewEngineFailure("analyze", errors.New("boom"))
	wrapped := fmt.Errorf("dispatch: %w", le)

	got, ok := AsLensError(wrapped)
	if !ok {
		t.Fatal("AsLensError should find a LensError through wrapping")
	}
	if got.Code != EngineFailure {
		t.Errorf("Code = %v, want %v", got.Code, EngineFailure)
	}

	if _, ok := AsLensError(errors.New("plain")); ok {
		t.Error("AsLensError on a plain error should report false")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"lens error", NewMissingParameter("var_name"), MissingParameter},
		{"wrapped lens error", fmt.Errorf("ctx: %w", NewUnknownCommand("x", nil)), UnknownCommand},
		{"plain error", errors.New("nope"), InternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}
