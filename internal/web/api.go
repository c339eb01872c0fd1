package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/asheshgoplani/bookmark-deck/internal/bookmark"
	"github.com/asheshgoplani/bookmark-deck/internal/engine"
	"github.com/asheshgoplani/bookmark-deck/internal/filter"
	"github.com/asheshgoplani/bookmark-deck/internal/query"
	"github.com/asheshgoplani/bookmark-deck/internal/tags"
)

const maxBodyBytes = 1 << 20

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiErrorResponse struct {
	Error apiError `json:"error"`
}

// displayPayload is the live state pushed to clients and returned by
// /api/state.
type displayPayload struct {
	engine.Display
	ActiveView string `json:"activeView"`
	// Query is the display's sort and filters as URL query parameters.
	Query string `json:"query"`
	Error string `json:"error,omitempty"`
}

type bookmarksResponse struct {
	Bookmarks     []bookmark.Node  `json:"bookmarks"`
	Count         int              `json:"count"`
	Sort          query.SortKey    `json:"sort"`
	SortDirection query.Direction  `json:"sortDirection"`
	Filters       []filter.Capsule `json:"filters"`
	Warning       string           `json:"warning,omitempty"`
}

type filterRequest struct {
	// Input is filter-box text such as "-#js" or "url:github".
	Input string `json:"input,omitempty"`
	// Filter is a filter in its stored JSON form.
	Filter json.RawMessage `json:"filter,omitempty"`
}

type replaceFiltersRequest struct {
	Filters filter.List `json:"filters"`
}

type sortRequest struct {
	Sort          string `json:"sort"`
	SortDirection string `json:"sortDirection"`
}

type renameRequest struct {
	Title *string `json:"title"`
}

type suggestionResponse struct {
	tags.Suggestion
	Text string `json:"text"`
}

func (s *Server) displayState() displayPayload {
	e := s.deck.Engine
	p := displayPayload{
		Display:    e.Display(),
		ActiveView: s.deck.Views.ActiveID(),
	}
	if v, err := engine.EncodeParams(e.Params()); err == nil {
		p.Query = v.Encode()
	}
	if err := e.LastError(); err != nil {
		p.Error = err.Error()
	}
	return p
}

// handleBookmarks answers a one-off query from URL parameters without
// touching the shared filter state.
func (s *Server) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w, r, http.MethodGet) {
		return
	}
	p, err := engine.DecodeParams(r.URL.Query())
	resp := bookmarksResponse{
		Sort:          p.Key,
		SortDirection: p.Direction,
		Filters:       make([]filter.Capsule, len(p.Filters)),
	}
	if err != nil {
		resp.Warning = err.Error()
	}
	names := s.deck.Engine.Snapshot()
	for i, f := range p.Filters {
		resp.Filters[i] = filter.Describe(f, names)
	}
	resp.Bookmarks = s.deck.Engine.Query(p)
	resp.Count = len(resp.Bookmarks)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.displayState())
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w, r, http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete) {
		return
	}
	e := s.deck.Engine

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"filters": filter.List(e.Filters())})
		return

	case http.MethodPost:
		var req filterRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		f, err := resolveFilter(req)
		if err != nil {
			writeFilterError(w, err)
			return
		}
		added, err := e.AddFilter(f)
		if err != nil {
			writeFilterError(w, err)
			return
		}
		s.afterFilterChange(r, "filter_added", f)
		writeJSON(w, http.StatusOK, map[string]any{"added": added, "state": s.displayState()})
		return

	case http.MethodPut:
		var req replaceFiltersRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		if err := e.ReplaceFilters(req.Filters); err != nil {
			writeFilterError(w, err)
			return
		}
		s.afterFilterChange(r, "filters_replaced", nil)

	case http.MethodDelete:
		if input := strings.TrimSpace(r.URL.Query().Get("input")); input != "" {
			f, err := filter.ParseInput(input)
			if err != nil {
				writeFilterError(w, err)
				return
			}
			if !e.RemoveFilter(f) {
				writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "filter is not active")
				return
			}
			s.afterFilterChange(r, "filter_removed", f)
		} else {
			e.ClearFilters()
			s.afterFilterChange(r, "filters_cleared", nil)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": s.displayState()})
}

func (s *Server) afterFilterChange(r *http.Request, event string, f filter.Filter) {
	attrs := []any{slog.Int("active", len(s.deck.Engine.Filters()))}
	if f != nil {
		attrs = append(attrs, slog.String("filter", filter.FormatInput(f)))
	}
	webLog.Debug(event, attrs...)
	_ = s.deck.SaveState(r.Context())
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w, r, http.MethodGet) {
		return
	}
	raw := s.deck.Engine.Suggest(r.URL.Query().Get("input"))
	out := make([]suggestionResponse, len(raw))
	for i, sg := range raw {
		out[i] = suggestionResponse{Suggestion: sg, Text: sg.Text()}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": out})
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w, r, http.MethodGet, http.MethodPut) {
		return
	}
	e := s.deck.Engine
	if r.Method == http.MethodPut {
		var req sortRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		key, dir, err := parseSort(req.Sort, req.SortDirection)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, "INVALID_SORT", err.Error())
			return
		}
		e.SetSort(key, dir)
		_ = s.deck.SaveState(r.Context())
	}
	key, dir := e.Sort()
	writeJSON(w, http.StatusOK, sortRequest{Sort: string(key), SortDirection: string(dir)})
}

func (s *Server) handleSortToggle(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w, r, http.MethodPost) {
		return
	}
	s.deck.Engine.ToggleDirection()
	_ = s.deck.SaveState(r.Context())
	key, dir := s.deck.Engine.Sort()
	writeJSON(w, http.StatusOK, sortRequest{Sort: string(key), SortDirection: string(dir)})
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": s.deck.Engine.Sidebar()})
}

func (s *Server) handleFolders(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w, r, http.MethodGet) {
		return
	}
	folders := s.deck.Engine.FolderTree()
	if folders == nil {
		folders = []*bookmark.FolderNode{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

func (s *Server) handleBookmarkByID(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w, r, http.MethodPatch) {
		return
	}
	const prefix = "/api/bookmarks/"
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || strings.Contains(id, "/") {
		writeAPIError(w, http.StatusBadRequest, "INVALID_REQUEST", "bookmark id is required")
		return
	}

	var req renameRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Title == nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_REQUEST", "title is required")
		return
	}

	updated, err := s.deck.Engine.RenameBookmark(r.Context(), id, *req.Title)
	switch {
	case errors.Is(err, engine.ErrUnknownBookmark):
		writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "bookmark not found")
		return
	case errors.Is(err, engine.ErrNoHostStore):
		writeAPIError(w, http.StatusServiceUnavailable, "NO_HOST_STORE", "bookmarks are not writable")
		return
	case err != nil:
		writeAPIError(w, http.StatusBadGateway, "HOST_WRITE_FAILED", "failed to update bookmark")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "updated": updated})
}

func resolveFilter(req filterRequest) (filter.Filter, error) {
	switch {
	case len(req.Filter) > 0:
		return filter.Unmarshal(req.Filter)
	case strings.TrimSpace(req.Input) != "":
		return filter.ParseInput(req.Input)
	}
	return nil, &filter.ConstructionError{Reason: "input or filter is required"}
}

func parseSort(keyStr, dirStr string) (query.SortKey, query.Direction, error) {
	var (
		key query.SortKey
		dir query.Direction
		err error
	)
	if keyStr != "" {
		if key, err = query.ParseSortKey(keyStr); err != nil {
			return "", "", err
		}
	}
	if dirStr != "" {
		if dir, err = query.ParseDirection(dirStr); err != nil {
			return "", "", err
		}
	}
	return key, dir, nil
}

func writeFilterError(w http.ResponseWriter, err error) {
	var cerr *filter.ConstructionError
	var perr *filter.ParseError
	if errors.As(err, &cerr) || errors.As(err, &perr) {
		writeAPIError(w, http.StatusBadRequest, "INVALID_FILTER", err.Error())
		return
	}
	webLog.Error("filter_request_failed", slog.String("error", err.Error()))
	writeAPIError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to update filters")
}

// decodeJSONBody decodes the request body into v, writing a 400 response
// and returning false on failure.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var cerr *filter.ConstructionError
		var perr *filter.ParseError
		if errors.As(err, &cerr) || errors.As(err, &perr) {
			writeAPIError(w, http.StatusBadRequest, "INVALID_FILTER", err.Error())
			return false
		}
		writeAPIError(w, http.StatusBadRequest, "INVALID_REQUEST", fmt.Sprintf("invalid json body: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiErrorResponse{
		Error: apiError{
			Code:    code,
			Message: message,
		},
	})
}
