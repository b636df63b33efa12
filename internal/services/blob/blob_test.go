package blob

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/cifan-festival/submission-service/internal/types"
)

func TestSubmissionObjectKey(t *testing.T) {
	key := SubmissionObjectKey("youth_1718000000000_abc123def", types.RoleFilm, "film.mp4")
	want := "submissions/youth_1718000000000_abc123def/film/film.mp4"
	if key != want {
		t.Fatalf("SubmissionObjectKey = %q, want %q", key, want)
	}
}

func TestProfilePhotoObjectKey(t *testing.T) {
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	key := ProfilePhotoObjectKey("user_1", at)
	want := "profiles/user_1/photo_1780315200"
	if key != want {
		t.Fatalf("ProfilePhotoObjectKey = %q, want %q", key, want)
	}
}

func TestSubmissionIDFromKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"submissions/youth_1_abc/film/film.mp4", "youth_1_abc"},
		{"submissions/world_2_def/poster/poster.jpg", "world_2_def"},
		{"profiles/user_1/photo_1", ""},
		{"submissions/only-id", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SubmissionIDFromKey(tt.key); got != tt.want {
			t.Errorf("SubmissionIDFromKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestProgressReader_MonotoneAndCapped(t *testing.T) {
	data := strings.Repeat("x", 1000)
	var reported []float64

	reader := &progressReader{
		r:     strings.NewReader(data),
		total: int64(len(data)),
		onProgress: func(pct float64) {
			reported = append(reported, pct)
		},
	}

	buf := make([]byte, 100)
	for {
		if _, err := reader.Read(buf); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("Unexpected read error: %v", err)
		}
	}

	if len(reported) == 0 {
		t.Fatal("Expected progress callbacks")
	}

	prev := -1.0
	for i, pct := range reported {
		if pct <= prev {
			t.Fatalf("Progress not strictly increasing at %d: %v -> %v", i, prev, pct)
		}
		if pct > 99 {
			t.Fatalf("Reader reported %v; 100 is reserved for the confirmed write", pct)
		}
		prev = pct
	}
}

func TestProgressReader_NilCallback(t *testing.T) {
	reader := &progressReader{
		r:     strings.NewReader("data"),
		total: 4,
	}

	buf := make([]byte, 4)
	if _, err := reader.Read(buf); err != nil && err != io.EOF {
		t.Fatalf("Unexpected error with nil callback: %v", err)
	}
}
