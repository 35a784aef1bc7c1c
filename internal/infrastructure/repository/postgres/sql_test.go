package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"

	"github.com/oddsmith/playerident/internal/domain/storage"
)

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	if !isNotFound(sql.ErrNoRows) {
		t.Fatalf("sql.ErrNoRows not detected")
	}
	if !isNotFound(fmt.Errorf("select sighting: %w", sql.ErrNoRows)) {
		t.Fatalf("wrapped sql.ErrNoRows not detected")
	}
	if isNotFound(errors.New("boom")) {
		t.Fatalf("unrelated error detected as not-found")
	}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"deadlock", &pq.Error{Code: "40P01"}, true},
		{"lock not available", &pq.Error{Code: "55P03"}, true},
		{"wrapped deadlock", fmt.Errorf("upsert: %w", &pq.Error{Code: "40P01"}), true},
		{"unique violation", &pq.Error{Code: "23505"}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isTransient(tt.err); got != tt.want {
				t.Fatalf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyMarksTransient(t *testing.T) {
	t.Parallel()

	err := classify(&pq.Error{Code: "40001"})
	if !errors.Is(err, storage.ErrTransient) {
		t.Fatalf("transient error not marked: %v", err)
	}

	permanent := classify(errors.New("boom"))
	if errors.Is(permanent, storage.ErrTransient) {
		t.Fatalf("permanent error marked transient: %v", permanent)
	}

	if classify(nil) != nil {
		t.Fatalf("classify(nil) should be nil")
	}
}
