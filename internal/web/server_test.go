package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/improbability/sms-assistant/internal/pipeline"
)

type fakePipeline struct {
	outcome pipeline.Outcome
	phone   string
	message string
	calls   int
}

func (f *fakePipeline) Handle(_ context.Context, phone, message string) pipeline.Outcome {
	f.calls++
	f.phone = phone
	f.message = message
	return f.outcome
}

type fakeSender struct {
	err   error
	to    string
	body  string
	calls int
}

func (f *fakeSender) Send(_ context.Context, to, body string) error {
	f.calls++
	f.to = to
	f.body = body
	return f.err
}

func postSMS(t *testing.T, handler http.Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/sms", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleSMSSuccess(t *testing.T) {
	pipe := &fakePipeline{outcome: pipeline.Outcome{Reply: "On my way.", Status: http.StatusOK}}
	sender := &fakeSender{}
	srv := NewServer("", 0, pipe, sender, nil)

	rec := postSMS(t, srv.Routes(), url.Values{
		"From": {"+15125550100"},
		"Body": {"Where are you?"},
	})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if pipe.phone != "+15125550100" {
		t.Errorf("pipeline phone = %q", pipe.phone)
	}
	if sender.calls != 1 || sender.to != "+15125550100" || sender.body != "On my way." {
		t.Errorf("sender got to=%q body=%q calls=%d", sender.to, sender.body, sender.calls)
	}
}

func TestHandleSMSEscapesBody(t *testing.T) {
	pipe := &fakePipeline{outcome: pipeline.Outcome{Reply: "ok", Status: http.StatusOK}}
	srv := NewServer("", 0, pipe, &fakeSender{}, nil)

	postSMS(t, srv.Routes(), url.Values{
		"From": {"+15125550100"},
		"Body": {`<b>bold</b> & "quoted"`},
	})

	if strings.Contains(pipe.message, "<b>") {
		t.Errorf("body not escaped: %q", pipe.message)
	}
	if !strings.Contains(pipe.message, "&lt;b&gt;") {
		t.Errorf("expected escaped markup, got %q", pipe.message)
	}
}

func TestHandleSMSDenied(t *testing.T) {
	pipe := &fakePipeline{outcome: pipeline.Outcome{Reply: pipeline.DeniedAccess, Status: http.StatusForbidden}}
	sender := &fakeSender{}
	srv := NewServer("", 0, pipe, sender, nil)

	rec := postSMS(t, srv.Routes(), url.Values{
		"From": {"+19999999999"},
		"Body": {"hello"},
	})

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if sender.calls != 0 {
		t.Error("denied requests must not trigger outbound delivery")
	}
}

func TestHandleSMSMissingFields(t *testing.T) {
	pipe := &fakePipeline{}
	srv := NewServer("", 0, pipe, &fakeSender{}, nil)

	rec := postSMS(t, srv.Routes(), url.Values{"From": {"+15125550100"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if pipe.calls != 0 {
		t.Error("pipeline must not run without a message body")
	}
}

func TestHandleSMSDeliveryFailure(t *testing.T) {
	pipe := &fakePipeline{outcome: pipeline.Outcome{Reply: "reply", Status: http.StatusOK}}
	sender := &fakeSender{err: context.DeadlineExceeded}
	srv := NewServer("", 0, pipe, sender, nil)

	rec := postSMS(t, srv.Routes(), url.Values{
		"From": {"+15125550100"},
		"Body": {"hi"},
	})

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 on delivery failure", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv := NewServer("", 0, &fakePipeline{}, &fakeSender{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
}
