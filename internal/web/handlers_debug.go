package web

import (
	"net/http"
	"strconv"

	"github.com/asheshgoplani/bookmark-deck/internal/logging"
)

const defaultLogLines = 200

type logsResponse struct {
	Lines []string `json:"lines"`
}

// handleDebugLogs returns the tail of the in-memory log ring buffer. It is
// empty unless logging runs in debug mode.
func (s *Server) handleDebugLogs(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w, r, http.MethodGet) {
		return
	}
	n := defaultLogLines
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeAPIError(w, http.StatusBadRequest, "INVALID_ARGS", "n must be a non-negative integer")
			return
		}
		n = v
	}
	lines := logging.RecentLines(n)
	if lines == nil {
		lines = []string{}
	}
	writeJSON(w, http.StatusOK, logsResponse{Lines: lines})
}
