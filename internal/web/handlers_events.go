package web

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/asheshgoplani/bookmark-deck/internal/logging"
)

var (
	displayEventsPollInterval      = 2 * time.Second
	displayEventsHeartbeatInterval = 15 * time.Second
)

// streamState tracks what a client has already been sent.
type streamState struct {
	display, views, prefs string
}

// handleDisplayEvents streams "display", "views" and "prefs" events. Each
// is sent on connect and again whenever its content changes.
func (s *Server) handleDisplayEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	if !s.authorizeRequest(r) {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeAPIError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "stream unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	displayChanges, unsubscribe := s.deck.Engine.Subscribe()
	defer unsubscribe()
	stateChanges := s.subscribeStateChanges()
	defer s.unsubscribeStateChanges(stateChanges)

	var sent streamState
	emitIfChanged := func() error {
		events := []struct {
			name    string
			last    *string
			payload any
		}{
			{"display", &sent.display, s.displayState()},
			{"views", &sent.views, s.viewsList()},
			{"prefs", &sent.prefs, s.prefsState(r)},
		}
		for _, ev := range events {
			fp := payloadFingerprint(ev.payload)
			if fp == *ev.last {
				continue
			}
			if err := writeSSEEvent(w, flusher, ev.name, ev.payload); err != nil {
				return err
			}
			*ev.last = fp
			logging.Aggregate(logging.CompWeb, "sse_event_sent", slog.String("event", ev.name))
		}
		return nil
	}

	if err := emitIfChanged(); err != nil {
		return
	}

	pollTicker := time.NewTicker(displayEventsPollInterval)
	defer pollTicker.Stop()

	heartbeatTicker := time.NewTicker(displayEventsHeartbeatInterval)
	defer heartbeatTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeatTicker.C:
			if err := writeSSEComment(w, flusher, "keepalive"); err != nil {
				return
			}
		case <-displayChanges:
			if err := emitIfChanged(); err != nil {
				return
			}
		case <-stateChanges:
			if err := emitIfChanged(); err != nil {
				return
			}
		case <-pollTicker.C:
			// Catches views edited by another process.
			if err := emitIfChanged(); err != nil {
				return
			}
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func writeSSEComment(w http.ResponseWriter, flusher http.Flusher, comment string) error {
	if _, err := fmt.Fprintf(w, ": %s\n\n", comment); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func payloadFingerprint(payload any) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "marshal-error"
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
