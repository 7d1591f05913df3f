package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/improbability/sms-assistant/internal/answers"
	"github.com/improbability/sms-assistant/internal/llm"
	"github.com/improbability/sms-assistant/internal/store"
)

func testUser() *store.User {
	return &store.User{
		ID:           1,
		PhoneNumber:  "15125550100",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Title:        "engineer",
		Email:        "ada@example.com",
		Description:  "detail-oriented",
		Location:     "Austin, Texas, United States",
		Languages:    "en",
		Country:      "us",
		Expectations: "scheduling and research",
	}
}

func testAssistant() *store.Assistant {
	return &store.Assistant{
		ID:             1,
		UserID:         1,
		Name:           "Jeeves",
		Disposition:    "calm",
		Personality:    "dry-witted",
		FavoriteAuthor: "P.G. Wodehouse",
		Origin:         "London",
		CreatedAt:      time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func strptr(s string) *string { return &s }

func TestBuildSystemDeterministic(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC)
	resolved := []answers.Resolved{
		{Question: strptr("What is the weather in Austin?"), Answer: strptr("94F and sunny.")},
	}

	a := BuildSystem(resolved, testUser(), testAssistant(), now)
	b := BuildSystem(resolved, testUser(), testAssistant(), now)
	if a != b {
		t.Fatal("BuildSystem is not deterministic for fixed inputs")
	}
}

func TestBuildSystemContents(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC)
	out := BuildSystem(nil, testUser(), testAssistant(), now)

	for _, want := range []string{
		"virtual assistant named Jeeves",
		"calm demeanor and dry-witted personality",
		"favorite author is P.G. Wodehouse",
		"Originating from London",
		"Your user is Ada Lovelace, a engineer",
		"phone number 15125550100",
		"ada@example.com",
		"reside in Austin, Texas, United States",
		"strip any markup from your responses, however, URLs should still work",
		"illusion of you being a human assistant",
		"Current UTC Time: 2024-03-01 15:04:05 UTC",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}

	if strings.Contains(out, "Questions and Answers") {
		t.Error("Q&A section present despite no resolved answers")
	}
}

func TestBuildSystemQASection(t *testing.T) {
	now := time.Now().UTC()
	resolved := []answers.Resolved{
		{Question: strptr("What is the weather in Austin?"), Answer: strptr("94F and sunny.")},
		{Question: strptr("Who won the game?"), Answer: nil}, // no information found
		{},                                                   // fully degraded
		{Question: strptr("TSLA price?"), Answer: strptr("$242.")},
	}

	out := BuildSystem(resolved, testUser(), testAssistant(), now)

	if !strings.Contains(out, "Questions and Answers (current information):") {
		t.Fatal("missing Q&A section")
	}
	if !strings.Contains(out, "Q: What is the weather in Austin? A: 94F and sunny.") {
		t.Error("missing first resolved pair")
	}
	if !strings.Contains(out, "Q: TSLA price? A: $242.") {
		t.Error("missing second resolved pair")
	}
	if strings.Contains(out, "Who won the game?") {
		t.Error("degraded pair should not be rendered")
	}
}

func TestBuildSystemAllDegraded(t *testing.T) {
	resolved := []answers.Resolved{{}, {Question: strptr("q"), Answer: nil}}
	out := BuildSystem(resolved, testUser(), testAssistant(), time.Now())

	if strings.Contains(out, "Questions and Answers") {
		t.Error("Q&A section should be omitted when every pair is degraded")
	}
}

func TestBuildMessagesOrdering(t *testing.T) {
	t1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	t3 := t2.Add(time.Minute)

	// Newest first, as RecentHistory returns them.
	history := []store.HistoryRecord{
		{Role: "user", Content: "third", CreatedAt: t3},
		{Role: "assistant", Content: "second", CreatedAt: t2},
		{Role: "user", Content: "first", CreatedAt: t1},
	}

	messages := BuildMessages("system block", history, "new message")

	if len(messages) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(messages))
	}
	if messages[0].Role != llm.RoleSystem || messages[0].Content != "system block" {
		t.Errorf("system block must be first, got %+v", messages[0])
	}

	// Chronological, oldest first, immediately before the new user turn.
	for i, want := range []string{"first", "second", "third"} {
		if !strings.Contains(messages[i+1].Content, want) {
			t.Errorf("message %d = %q, want it to contain %q", i+1, messages[i+1].Content, want)
		}
	}
	if messages[4].Content != "new message" {
		t.Errorf("new user turn must be last, got %q", messages[4].Content)
	}
}

func TestBuildMessagesNoHistory(t *testing.T) {
	messages := BuildMessages("sys", nil, "hello")
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[1].Role != llm.RoleUser || messages[1].Content != "hello" {
		t.Errorf("unexpected final turn: %+v", messages[1])
	}
}
