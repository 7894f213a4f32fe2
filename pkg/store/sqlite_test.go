package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "empath.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &Record{
		UserID:       "u1",
		Type:         TypeRespond,
		Input:        "I lost my keys again",
		Emotion:      "angry",
		Confidence:   0.71,
		Scores:       map[string]float64{"angry": 0.71, "sad": 0.2},
		Response:     "That sounds frustrating.",
		ProviderUsed: "gemini",
	}
	id, err := s.Save(ctx, rec)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id == "" || rec.ID != id {
		t.Fatalf("expected ID assigned, got %q / %q", id, rec.ID)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Response != rec.Response || got.ProviderUsed != "gemini" || got.IsFallback {
		t.Errorf("unexpected record %+v", got)
	}
	if got.Scores["sad"] != 0.2 {
		t.Errorf("scores not round-tripped: %v", got.Scores)
	}
	if got.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	records := []Record{
		{UserID: "u1", Type: TypeRespond, Emotion: "sad", ProviderUsed: "gemini", Timestamp: base},
		{UserID: "u1", Type: TypeChat, Emotion: "happy", ProviderUsed: "secondary", Timestamp: base.Add(time.Minute)},
		{UserID: "u2", Type: TypeRespond, Emotion: "sad", ProviderUsed: "fallback", IsFallback: true, Timestamp: base.Add(2 * time.Minute)},
	}
	for i := range records {
		if _, err := s.Save(ctx, &records[i]); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 3},
		{"by user", Filter{UserID: "u1"}, 2},
		{"by type", Filter{Type: TypeRespond}, 2},
		{"by emotion", Filter{Emotion: "sad"}, 2},
		{"since", Filter{Since: base.Add(30 * time.Second)}, 2},
		{"limit", Filter{Limit: 1}, 1},
		{"combined", Filter{UserID: "u1", Emotion: "sad"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d records, got %d", tt.want, len(got))
			}
		})
	}

	all, _ := s.Query(ctx, Filter{})
	if all[0].UserID != "u2" || !all[0].IsFallback {
		t.Errorf("expected newest first, got %+v", all[0])
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empath.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(context.Background(), &Record{Type: TypeSpeak, ProviderUsed: "piper"}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	got, err := s.Query(context.Background(), Filter{})
	if err != nil || len(got) != 1 {
		t.Errorf("expected 1 record after reopen, got %d (%v)", len(got), err)
	}
}

func TestMemoryStore(t *testing.T) {
	s, err := OpenSQLite(MemoryPath)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.Save(context.Background(), &Record{Type: TypeChat, ProviderUsed: "gemini"}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Query(context.Background(), Filter{Type: TypeChat})
	if err != nil || len(got) != 1 {
		t.Errorf("expected 1 record, got %d (%v)", len(got), err)
	}
}

func TestSaveAfterClose(t *testing.T) {
	s, err := OpenSQLite(MemoryPath)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	if _, err := s.Save(context.Background(), &Record{Type: TypeChat}); err == nil {
		t.Error("expected error after close")
	}
}
