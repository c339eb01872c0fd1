package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/asheshgoplani/bookmark-deck/internal/filter"
)

type wsClientMessage struct {
	Type          string          `json:"type"`
	Input         string          `json:"input,omitempty"`
	Filter        json.RawMessage `json:"filter,omitempty"`
	ID            string          `json:"id,omitempty"`
	Sort          string          `json:"sort,omitempty"`
	SortDirection string          `json:"sortDirection,omitempty"`
}

type wsServerMessage struct {
	Type    string          `json:"type"` // display, status, error
	Event   string          `json:"event,omitempty"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	State   *displayPayload `json:"state,omitempty"`
	Time    time.Time       `json:"time,omitempty"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     allowWSOrigin,
}

func allowWSOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil || originURL.Host == "" {
		return false
	}

	return strings.EqualFold(originURL.Host, r.Host)
}

type wsConnWriter struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newWSConnWriter(conn *websocket.Conn) *wsConnWriter {
	return &wsConnWriter{conn: conn}
}

func (w *wsConnWriter) WriteJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.conn.WriteJSON(v)
}

func (w *wsConnWriter) writeError(code, message string) error {
	return w.WriteJSON(wsServerMessage{Type: "error", Code: code, Message: message, Time: time.Now().UTC()})
}

// handleDisplayWS pushes the display on connect and after every change, and
// accepts filter, sort and view commands from the client.
func (s *Server) handleDisplayWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	if !s.authorizeRequest(r) {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	writer := newWSConnWriter(conn)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	changes, unsubscribe := s.deck.Engine.Subscribe()
	defer unsubscribe()
	stateChanges := s.subscribeStateChanges()
	defer s.unsubscribeStateChanges(stateChanges)

	_ = writer.WriteJSON(wsServerMessage{Type: "status", Event: "connected", Time: time.Now().UTC()})
	if err := s.pushDisplay(writer); err != nil {
		return
	}

	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
			case _, ok := <-stateChanges:
				if !ok {
					return
				}
			}
			if err := s.pushDisplay(writer); err != nil {
				return
			}
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				webLog.Warn("websocket_closed_unexpectedly", slog.String("error", err.Error()))
			}
			return
		}

		var msg wsClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			_ = writer.writeError("INVALID_MESSAGE", "invalid json payload")
			continue
		}
		s.handleWSCommand(ctx, writer, msg)
	}
}

func (s *Server) pushDisplay(writer *wsConnWriter) error {
	state := s.displayState()
	return writer.WriteJSON(wsServerMessage{Type: "display", State: &state, Time: time.Now().UTC()})
}

func (s *Server) handleWSCommand(ctx context.Context, writer *wsConnWriter, msg wsClientMessage) {
	if msg.Type == "ping" {
		_ = writer.WriteJSON(wsServerMessage{Type: "status", Event: "pong", Time: time.Now().UTC()})
		return
	}
	if s.cfg.ReadOnly {
		_ = writer.writeError("READ_ONLY", "commands are disabled in read-only mode")
		return
	}

	e := s.deck.Engine
	switch msg.Type {
	case "addFilter", "removeFilter":
		f, err := resolveFilter(filterRequest{Input: msg.Input, Filter: msg.Filter})
		if err != nil {
			_ = writer.writeError("INVALID_FILTER", err.Error())
			return
		}
		if msg.Type == "addFilter" {
			if _, err := e.AddFilter(f); err != nil {
				_ = writer.writeError("INVALID_FILTER", err.Error())
				return
			}
		} else if !e.RemoveFilter(f) {
			_ = writer.writeError("NOT_FOUND", "filter is not active: "+filter.FormatInput(f))
			return
		}
	case "clearFilters":
		e.ClearFilters()
	case "setSort":
		key, dir, err := parseSort(msg.Sort, msg.SortDirection)
		if err != nil {
			_ = writer.writeError("INVALID_SORT", err.Error())
			return
		}
		e.SetSort(key, dir)
	case "toggleDirection":
		e.ToggleDirection()
	case "loadView":
		if !s.deck.Views.Load(msg.ID) {
			_ = writer.writeError("NOT_FOUND", "view not found")
			return
		}
		s.notifyStateChanged()
	default:
		_ = writer.writeError("UNSUPPORTED_MESSAGE",
			"supported message types: ping,addFilter,removeFilter,clearFilters,setSort,toggleDirection,loadView")
		return
	}
	_ = s.deck.SaveState(ctx)
}
