package web

import (
	"net/http"

	"github.com/asheshgoplani/bookmark-deck/internal/prefs"
)

type prefsPayload struct {
	prefs.Prefs
	// Resolved is light or dark, with a system theme resolved against the OS.
	Resolved prefs.Theme `json:"resolvedTheme"`
}

type prefsRequest struct {
	Theme       *string `json:"theme"`
	SidebarOpen *bool   `json:"sidebarOpen"`
	SidebarMode *string `json:"sidebarMode"`
}

func (s *Server) prefsState(r *http.Request) prefsPayload {
	p, _ := prefs.Load(r.Context(), s.deck.State)
	return prefsPayload{Prefs: p, Resolved: s.resolveTheme(p)}
}

// resolveTheme prefers the last theme reported by the OS watcher.
func (s *Server) resolveTheme(p prefs.Prefs) prefs.Theme {
	if p.Theme == prefs.ThemeSystem {
		s.osThemeMu.RLock()
		current := s.osTheme
		s.osThemeMu.RUnlock()
		if current != "" {
			return current
		}
	}
	return p.Resolve()
}

func (s *Server) handlePrefs(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w, r, http.MethodGet, http.MethodPut) {
		return
	}
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, s.prefsState(r))
		return
	}

	var req prefsRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	p, _ := prefs.Load(r.Context(), s.deck.State)
	if req.Theme != nil {
		t, err := prefs.ParseTheme(*req.Theme)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, "INVALID_PREFS", err.Error())
			return
		}
		p.Theme = t
	}
	if req.SidebarMode != nil {
		m, err := prefs.ParseSidebarMode(*req.SidebarMode)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, "INVALID_PREFS", err.Error())
			return
		}
		p.SidebarMode = m
	}
	if req.SidebarOpen != nil {
		p.SidebarOpen = *req.SidebarOpen
	}
	if err := prefs.Save(r.Context(), s.deck.State, p); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "PERSISTENCE_FAILED", "failed to save preferences")
		return
	}
	s.notifyStateChanged()
	writeJSON(w, http.StatusOK, prefsPayload{Prefs: p, Resolved: s.resolveTheme(p)})
}
