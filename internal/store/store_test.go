package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func seedUser(t *testing.T, s *Store) *User {
	t.Helper()
	_, err := s.db.Exec(`
		INSERT INTO users (phone_number, first_name, last_name, title, email,
		                   description, location, languages, country, expectations)
		VALUES ('15125550100', 'Ada', 'Lovelace', 'engineer', 'ada@example.com',
		        'detail-oriented', 'Austin, Texas, United States', 'en', 'us',
		        'scheduling and research')
	`)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	u, err := s.GetUserByPhone(context.Background(), "15125550100")
	if err != nil || u == nil {
		t.Fatalf("get seeded user: %v %v", u, err)
	}
	return u
}

func seedAssistant(t *testing.T, s *Store, userID int64) {
	t.Helper()
	_, err := s.db.Exec(`
		INSERT INTO assistants (user_id, name, disposition, personality, favorite_author, origin)
		VALUES (?, 'Jeeves', 'calm', 'dry-witted', 'P.G. Wodehouse', 'London')
	`, userID)
	if err != nil {
		t.Fatalf("seed assistant: %v", err)
	}
}

func TestGetUserByPhone(t *testing.T) {
	s := setupTestStore(t)
	u := seedUser(t, s)

	if u.FirstName != "Ada" || u.Location != "Austin, Texas, United States" {
		t.Errorf("unexpected user fields: %+v", u)
	}
}

func TestGetUserByPhoneUnknown(t *testing.T) {
	s := setupTestStore(t)

	u, err := s.GetUserByPhone(context.Background(), "19999999999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil for unknown phone, got %+v", u)
	}
}

func TestGetAssistant(t *testing.T) {
	s := setupTestStore(t)
	u := seedUser(t, s)
	seedAssistant(t, s, u.ID)

	a, err := s.GetAssistant(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("get assistant: %v", err)
	}
	if a == nil || a.Name != "Jeeves" || a.FavoriteAuthor != "P.G. Wodehouse" {
		t.Errorf("unexpected assistant: %+v", a)
	}
}

func TestGetAssistantMissing(t *testing.T) {
	s := setupTestStore(t)
	u := seedUser(t, s)

	a, err := s.GetAssistant(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != nil {
		t.Errorf("expected nil for user without assistant, got %+v", a)
	}
}

func TestHistoryAppendAndRecent(t *testing.T) {
	s := setupTestStore(t)
	u := seedUser(t, s)
	ctx := context.Background()

	for _, turn := range []struct{ role, content string }{
		{"user", "first"},
		{"assistant", "second"},
		{"user", "third"},
	} {
		if err := s.AppendHistory(ctx, u.ID, turn.role, turn.content); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	records, err := s.RecentHistory(ctx, u.ID, 8)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	// Newest first, exactly as stored.
	if records[0].Content != "third" || records[2].Content != "first" {
		t.Errorf("expected newest-first ordering, got %q .. %q", records[0].Content, records[2].Content)
	}
	if records[0].Role != "user" || records[1].Role != "assistant" {
		t.Errorf("roles out of order: %q %q", records[0].Role, records[1].Role)
	}
}

func TestRecentHistoryLimit(t *testing.T) {
	s := setupTestStore(t)
	u := seedUser(t, s)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		if err := s.AppendHistory(ctx, u.ID, "user", "msg"); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	records, err := s.RecentHistory(ctx, u.ID, 8)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 8 {
		t.Errorf("expected limit of 8, got %d", len(records))
	}
}

func TestRecentHistoryEmpty(t *testing.T) {
	s := setupTestStore(t)
	u := seedUser(t, s)

	records, err := s.RecentHistory(context.Background(), u.ID, 8)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestHistoryRecordLine(t *testing.T) {
	r := HistoryRecord{
		Role:      "assistant",
		Content:   "On my way.",
		CreatedAt: time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC),
	}

	want := "2024-03-01 15:04:05: assistant: On my way."
	if got := r.Line(); got != want {
		t.Errorf("Line() = %q, want %q", got, want)
	}
}
