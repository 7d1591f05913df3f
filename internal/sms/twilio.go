// Package sms delivers outbound messages through the Twilio REST API.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/improbability/sms-assistant/internal/httpkit"
)

// MaxMessageLength is the per-message length ceiling. Replies longer
// than this are split into ordered parts before transmission.
const MaxMessageLength = 1600

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// Sender delivers one reply to a destination number. Satisfied by
// Twilio; the webhook server depends on this interface so tests can
// capture outbound traffic.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Twilio is a Sender backed by the Twilio Messages API.
type Twilio struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTwilio creates a Twilio sender. fromNumber is the provisioned
// E.164 source number.
func NewTwilio(accountSID, authToken, fromNumber string, logger *slog.Logger) *Twilio {
	if logger == nil {
		logger = slog.Default()
	}
	return &Twilio{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    twilioAPIBase,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(15 * time.Second),
		),
		logger: logger.With("provider", "twilio"),
	}
}

// Send cleans the body down to transport-safe ASCII, splits it into
// parts no longer than [MaxMessageLength], and transmits each part in
// order. The first part that fails aborts the remainder.
func (t *Twilio) Send(ctx context.Context, to, body string) error {
	if !strings.HasPrefix(to, "+") {
		to = "+" + to
	}

	for i, part := range Split(CleanASCII(body)) {
		if err := t.sendPart(ctx, to, part); err != nil {
			return fmt.Errorf("send part %d: %w", i+1, err)
		}
	}
	return nil
}

func (t *Twilio) sendPart(ctx context.Context, to, body string) error {
	form := url.Values{
		"To":   {to},
		"From": {t.fromNumber},
		"Body": {body},
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.baseURL, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 512))
	}

	var sent struct {
		SID string `json:"sid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sent); err == nil && sent.SID != "" {
		t.logger.Debug("message part sent", "sid", sent.SID, "chars", len(body))
	}
	return nil
}

// CleanASCII drops every non-ASCII rune. SMS segments carrying non-GSM
// characters are billed and split differently; the assistant's prompt
// already steers output toward plain text, this is the backstop.
func CleanASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Split breaks body into ordered parts of at most [MaxMessageLength]
// characters. A body at or under the limit comes back as a single part.
func Split(body string) []string {
	if len(body) <= MaxMessageLength {
		return []string{body}
	}

	var parts []string
	for len(body) > MaxMessageLength {
		parts = append(parts, body[:MaxMessageLength])
		body = body[MaxMessageLength:]
	}
	return append(parts, body)
}
