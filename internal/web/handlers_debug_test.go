package web

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asheshgoplani/bookmark-deck/internal/logging"
)

func TestDebugLogsTail(t *testing.T) {
	logging.Shutdown()
	logging.Init(logging.Config{Debug: true, RingLines: 50})
	defer logging.Shutdown()

	env := newTestEnv(t, Config{})
	logging.Logger().Info("first_line")
	logging.Logger().Info("second_line")

	rr := env.do(t, http.MethodGet, "/api/debug/logs?n=1", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp logsResponse
	decodeBody(t, rr, &resp)
	require.Len(t, resp.Lines, 1)
	assert.Contains(t, resp.Lines[0], "second_line")

	rr = env.do(t, http.MethodGet, "/api/debug/logs?n=-3", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/debug/logs", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestDebugLogsRequiresToken(t *testing.T) {
	env := newTestEnv(t, Config{Token: "secret"})
	rr := env.do(t, http.MethodGet, "/api/debug/logs", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/debug/logs?token=secret", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp logsResponse
	decodeBody(t, rr, &resp)
	assert.NotNil(t, resp.Lines)
}

func TestServerErrorLogGoesToSlog(t *testing.T) {
	logging.Shutdown()
	logging.Init(logging.Config{Debug: true, RingLines: 50})
	defer logging.Shutdown()

	env := newTestEnv(t, Config{})
	require.NotNil(t, env.srv.httpServer.ErrorLog)
	env.srv.httpServer.ErrorLog.Printf("http: TLS handshake error from 127.0.0.1:1234: EOF")

	found := false
	for _, line := range logging.RecentLines(0) {
		if strings.Contains(line, "TLS handshake error") {
			found = true
			assert.Contains(t, line, `"component":"web"`)
			assert.Contains(t, line, `"level":"WARN"`)
		}
	}
	assert.True(t, found, "server error log line should reach the ring buffer")
}
