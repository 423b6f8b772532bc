package institution

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassNone},
		{"plain error", errors.New("boom"), ClassTransient},
		{"transient", Transient("waiting for results", errors.New("timeout")), ClassTransient},
		{"not found", &NotFoundError{Reason: "no matching row"}, ClassNotFound},
		{"wrapped not found", fmt.Errorf("attempt 1: %w", &NotFoundError{Reason: "x"}), ClassNotFound},
		{"persistence", &PersistenceError{Op: "write", Path: "ids.json", Err: os.ErrPermission}, ClassPersistence},
		{"wrapped persistence", fmt.Errorf("extract: %w", &PersistenceError{Op: "write", Err: os.ErrPermission}), ClassPersistence},
		{"canceled", fmt.Errorf("navigate: %w", context.Canceled), ClassCanceled},
		{"deadline is transient", fmt.Errorf("request: %w", context.DeadlineExceeded), ClassTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestNotFoundError(t *testing.T) {
	err := error(&NotFoundError{Reason: "no matching row", Closest: "Springfield College", Similarity: 0.91})

	if !errors.Is(err, ErrNotFound) {
		t.Error("errors.Is(err, ErrNotFound) = false")
	}
	want := `institution not found: no matching row (closest: "Springfield College", similarity 0.91)`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	plain := &NotFoundError{Reason: "no results"}
	if plain.Error() != "institution not found: no results" {
		t.Errorf("Error() = %q", plain.Error())
	}
}

func TestTransient(t *testing.T) {
	if Transient("op", nil) != nil {
		t.Error("Transient(op, nil) should be nil")
	}

	inner := errors.New("element not found")
	err := Transient("clicking next page", inner)
	if !errors.Is(err, inner) {
		t.Error("TransientError should unwrap to the inner error")
	}
	if err.Error() != "clicking next page: element not found" {
		t.Errorf("Error() = %q", err.Error())
	}
}
