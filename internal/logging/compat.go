package logging

import (
	"bytes"
	"context"
	"log"
	"log/slog"
	"strings"
)

// BridgeWriter is an io.Writer that forwards stdlib log output (net/http's
// server error log, third-party packages that call log.Printf) into slog.
// A leading "[category] " or "http: " prefix is turned into the component.
type BridgeWriter struct {
	component string
	level     slog.Level
}

// NewBridgeWriter creates a writer that logs at level under defaultComponent
// when no prefix names another one.
func NewBridgeWriter(defaultComponent string, level slog.Level) *BridgeWriter {
	return &BridgeWriter{component: defaultComponent, level: level}
}

// NewStdLogger returns a *log.Logger writing through a BridgeWriter, for
// APIs such as http.Server.ErrorLog.
func NewStdLogger(component string, level slog.Level) *log.Logger {
	return log.New(NewBridgeWriter(component, level), "", 0)
}

// Write implements io.Writer. Each write is treated as one log line.
func (bw *BridgeWriter) Write(p []byte) (int, error) {
	n := len(p)
	msg := string(bytes.TrimSpace(p))
	if msg == "" {
		return n, nil
	}
	msg = stripLogTimestamp(msg)

	component := bw.component
	switch {
	case strings.HasPrefix(msg, "["):
		if idx := strings.Index(msg, "] "); idx > 0 {
			component = canonicalComponent(strings.ToLower(msg[1:idx]))
			msg = msg[idx+2:]
		}
	case strings.HasPrefix(msg, "http: "):
		component = CompWeb
		msg = msg[len("http: "):]
	}

	Logger().Log(context.Background(), bw.level, msg, slog.String("component", component))
	return n, nil
}

// stripLogTimestamp removes the time prefix added by log.Ltime, with or
// without log.Lmicroseconds.
func stripLogTimestamp(s string) string {
	if len(s) > 16 && s[2] == ':' && s[5] == ':' && s[8] == '.' && s[15] == ' ' {
		return s[16:]
	}
	if len(s) > 9 && s[2] == ':' && s[5] == ':' && s[8] == ' ' {
		return s[9:]
	}
	return s
}

func canonicalComponent(cat string) string {
	switch cat {
	case "http", "server", "sse", "ws", "websocket":
		return CompWeb
	case "sqlite", "statedb", "kv":
		return CompStore
	case "fsnotify", "watcher":
		return CompWatch
	case "chrome", "browser", "hoststore":
		return CompHost
	default:
		return cat
	}
}
