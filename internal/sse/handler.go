package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	// reconnectDelay is the retry hint sent to browsers, in milliseconds.
	reconnectDelay = 5000
	writeTimeout   = 60 * time.Second
)

// Handler serves the live update stream at GET /api/v1/events.
// An optional book_id query parameter limits the stream to one book.
// Heartbeats come from the Manager, so an idle stream still sees traffic.
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger,
	}
}

// stream writes framed events to one connection. Event IDs count up from 1
// per connection.
type stream struct {
	w   http.ResponseWriter
	rc  *http.ResponseController
	seq uint64
}

func (s *stream) write(eventType string, payload any, retry bool) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	s.seq++
	frame := fmt.Sprintf("event: %s\nid: %d\n", eventType, s.seq)
	if retry {
		frame += fmt.Sprintf("retry: %d\n", reconnectDelay)
	}
	if _, err := fmt.Fprintf(s.w, "%sdata: %s\n\n", frame, body); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil {
		return err
	}

	// Not every writer supports deadlines; the flush above already succeeded.
	_ = s.rc.SetWriteDeadline(time.Now().Add(writeTimeout))
	return nil
}

// ServeHTTP streams events until the client goes away or the manager shuts down.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	if ctx.Err() != nil {
		return
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	out := &stream{w: w, rc: http.NewResponseController(w)}
	if err := out.rc.Flush(); err != nil {
		h.logger.Error("event stream not supported", "error", err)
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	bookID := r.URL.Query().Get("book_id")
	client, err := h.manager.Connect(bookID)
	if err != nil {
		h.logger.Warn("event stream refused", "error", err)
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.manager.Disconnect(client.ID)

	log := h.logger.With("client_id", client.ID, "book_id", bookID)

	hello := map[string]string{"client_id": client.ID}
	if bookID != "" {
		hello["book_id"] = bookID
	}
	if err := out.write("connected", hello, true); err != nil {
		log.Debug("event stream closed before first event", "error", err)
		return
	}

	for {
		select {
		case event, ok := <-client.EventChan:
			if !ok {
				return
			}
			if err := out.write(string(event.Type), event, false); err != nil {
				log.Debug("event stream write failed", "error", err, "sent", out.seq)
				return
			}
		case <-client.Done:
			log.Debug("event stream closed by server", "sent", out.seq)
			return
		case <-ctx.Done():
			log.Debug("event stream client left", "sent", out.seq)
			return
		}
	}
}
