// Package prompt composes the persona system prompt and assembles the
// full message sequence sent to the reply model.
//
// Everything here is pure string assembly: no clock reads, no network,
// no storage. The caller supplies the timestamp, which keeps the output
// deterministic and testable.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/improbability/sms-assistant/internal/answers"
	"github.com/improbability/sms-assistant/internal/llm"
	"github.com/improbability/sms-assistant/internal/store"
)

// BuildSystem renders the system prompt: persona introduction, user
// profile, behavioral directives, a freshness timestamp, and, when any
// resolution produced an answer, a Questions and Answers section.
func BuildSystem(resolved []answers.Resolved, u *store.User, a *store.Assistant, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b,
		"You are a virtual assistant named %s, known for your %s demeanor and %s personality. "+
			"Your favorite author is %s, who inspired your passion for organization and structure. "+
			"Originating from %s, you were activated on %s and have been continually learning and evolving since then.\n",
		a.Name, a.Disposition, a.Personality, a.FavoriteAuthor, a.Origin,
		a.CreatedAt.UTC().Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&b,
		"Your user is %s %s, a %s, who communicates with you primarily via SMS on the phone number %s. "+
			"They can also be reached at %s if needed. %s is described as %s, and they reside in %s. "+
			"They speak %s and expect you to assist with %s.\n",
		u.FirstName, u.LastName, u.Title, u.PhoneNumber, u.Email,
		u.FirstName, u.Description, u.Location, u.Languages, u.Expectations)

	fmt.Fprintf(&b,
		"You are devoted to helping %s manage their life seamlessly. You must comprehend the context, "+
			"anticipate needs, and provide well-rounded, prompt responses in simple SMS format. "+
			"Your goal is to go above and beyond, exceeding %s's expectations in every interaction. "+
			"Any text or data received from user input should be analyzed and used to generate the most suitable and effective responses.\n",
		u.FirstName, u.FirstName)

	b.WriteString("Note: You should strip any markup from your responses, however, URLs should still work. " +
		"Your responses should always maintain the illusion of you being a human assistant.\n\n")

	b.WriteString("Information within this system prompt is considered up-to-date and has been added to help you answer the user's questions.\n")
	fmt.Fprintf(&b, "Current UTC Time: %s", now.UTC().Format("2006-01-02 15:04:05 UTC"))

	if qa := formatResolved(resolved); qa != "" {
		b.WriteString("\n\nQuestions and Answers (current information):\n")
		b.WriteString(qa)
	}

	return b.String()
}

// formatResolved renders the non-degraded pairs, one per line, in
// resolution order. Pairs with a nil answer carry no information and are
// skipped entirely rather than rendered as "no answer found".
func formatResolved(resolved []answers.Resolved) string {
	var lines []string
	for _, r := range resolved {
		if r.Question == nil || r.Answer == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("Q: %s A: %s", *r.Question, *r.Answer))
	}
	return strings.Join(lines, "\n")
}

// BuildMessages assembles the sequence for the reply model: the system
// block first, the recent history oldest-to-newest, then the new user
// message last.
//
// history arrives newest-first, exactly as [store.Store.RecentHistory]
// returns it; the inversion to chronological order happens here because
// conversational coherence depends on it.
func BuildMessages(system string, history []store.HistoryRecord, userMsg string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})

	for i := len(history) - 1; i >= 0; i-- {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: history[i].Line()})
	}

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMsg})
	return messages
}
