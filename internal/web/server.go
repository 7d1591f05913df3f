// Package web serves the inbound SMS webhook.
package web

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"time"

	"github.com/improbability/sms-assistant/internal/pipeline"
	"github.com/improbability/sms-assistant/internal/sms"
)

// Handler is the message-processing surface the server dispatches to.
// Satisfied by pipeline.Pipeline.
type Handler interface {
	Handle(ctx context.Context, phone, message string) pipeline.Outcome
}

// Server is the inbound webhook HTTP server.
type Server struct {
	address  string
	port     int
	pipeline Handler
	sender   sms.Sender
	logger   *slog.Logger
	server   *http.Server
}

// NewServer creates the webhook server.
func NewServer(address string, port int, p Handler, sender sms.Sender, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address:  address,
		port:     port,
		pipeline: p,
		sender:   sender,
		logger:   logger,
	}
}

// Routes returns the server's handler. Exposed separately from Start so
// tests can drive it with httptest.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sms", s.handleSMS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	return mux
}

// handleSMS processes one Twilio inbound-message webhook. The form
// carries From (E.164 source number) and Body (message text).
func (s *Server) handleSMS(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form data", http.StatusBadRequest)
		return
	}

	from := r.PostFormValue("From")
	body := r.PostFormValue("Body")
	if from == "" || body == "" {
		http.Error(w, "missing From or Body", http.StatusBadRequest)
		return
	}

	// Basic transport-safety escaping; the pipeline treats message text
	// as opaque beyond this.
	body = html.EscapeString(body)

	outcome := s.pipeline.Handle(r.Context(), from, body)

	if outcome.Delivered() {
		if err := s.sender.Send(r.Context(), from, outcome.Reply); err != nil {
			s.logger.Error("outbound delivery failed", "error", err)
			http.Error(w, pipeline.DeniedInternal, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
		return
	}

	http.Error(w, outcome.Reply, outcome.Status)
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.address, s.port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("webhook server listening", "addr", addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("webhook server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook shutdown: %w", err)
		}
		return nil
	}
}
