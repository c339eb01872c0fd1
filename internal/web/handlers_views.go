package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/asheshgoplani/bookmark-deck/internal/filter"
	"github.com/asheshgoplani/bookmark-deck/internal/views"
)

type viewResponse struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Label   string      `json:"label"`
	Active  bool        `json:"active"`
	Filters filter.List `json:"filters"`
}

type viewNameRequest struct {
	Name string `json:"name"`
}

func (s *Server) viewResponse(v views.View) viewResponse {
	filters := v.Filters
	if filters == nil {
		filters = filter.List{}
	}
	return viewResponse{
		ID:      v.ID,
		Name:    v.Name,
		Label:   views.DisplayName(v, s.deck.Engine.Snapshot()),
		Active:  v.ID != "" && v.ID == s.deck.Views.ActiveID(),
		Filters: filters,
	}
}

func (s *Server) viewsList() map[string]any {
	list := s.deck.Views.List()
	out := make([]viewResponse, len(list))
	for i, v := range list {
		out[i] = s.viewResponse(v)
	}
	return map[string]any{"views": out, "activeView": s.deck.Views.ActiveID()}
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, s.viewsList())
		return
	}

	var req viewNameRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	v := s.deck.Views.Save(r.Context(), req.Name)
	s.afterViewChange(r)
	writeJSON(w, http.StatusCreated, map[string]any{"view": s.viewResponse(v)})
}

// handleViewByID serves /api/views/{id} and /api/views/{id}/{action}.
func (s *Server) handleViewByID(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/views/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	id, action, _ := strings.Cut(rest, "/")
	if id == "" || strings.Contains(action, "/") {
		if s.authorizeRequest(r) {
			writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
		} else {
			writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		}
		return
	}

	ctx := r.Context()
	store := s.deck.Views

	switch action {
	case "":
		if !s.guard(w, r, http.MethodGet, http.MethodDelete) {
			return
		}
		if r.Method == http.MethodGet {
			v, err := store.Get(id)
			if errors.Is(err, views.ErrViewNotFound) {
				writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "view not found")
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"view": s.viewResponse(v)})
			return
		}
		if !store.Delete(ctx, id) {
			writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "view not found")
			return
		}
		s.afterViewChange(r)
		writeJSON(w, http.StatusOK, s.viewsList())

	case "load":
		if !s.guard(w, r, http.MethodPost) {
			return
		}
		if _, err := store.Get(id); err != nil {
			writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "view not found")
			return
		}
		if !store.Load(id) {
			writeAPIError(w, http.StatusUnprocessableEntity, "INVALID_VIEW", "view filters were rejected")
			return
		}
		s.afterViewChange(r)
		writeJSON(w, http.StatusOK, map[string]any{"state": s.displayState()})

	case "duplicate":
		if !s.guard(w, r, http.MethodPost) {
			return
		}
		dup, ok := store.Duplicate(ctx, id)
		if !ok {
			writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "view not found")
			return
		}
		s.afterViewChange(r)
		writeJSON(w, http.StatusCreated, map[string]any{"view": s.viewResponse(dup)})

	case "rename":
		if !s.guard(w, r, http.MethodPost) {
			return
		}
		var req viewNameRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		if !store.Rename(ctx, id, req.Name) {
			writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "view not found")
			return
		}
		s.afterViewChange(r)
		v, _ := store.Get(id)
		writeJSON(w, http.StatusOK, map[string]any{"view": s.viewResponse(v)})

	default:
		writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	}
}

func (s *Server) handleActiveView(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w, r, http.MethodGet, http.MethodDelete) {
		return
	}
	if r.Method == http.MethodDelete {
		s.deck.Views.ClearActive()
		s.afterViewChange(r)
	}
	writeJSON(w, http.StatusOK, map[string]any{"activeView": s.deck.Views.ActiveID()})
}

func (s *Server) afterViewChange(r *http.Request) {
	_ = s.deck.SaveState(r.Context())
	s.notifyStateChanged()
}
