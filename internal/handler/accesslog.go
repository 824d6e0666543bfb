package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// accessLogFormatter sends chi's request logs through slog.
type accessLogFormatter struct {
	log *slog.Logger
}

func (f accessLogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return accessLogEntry{
		log: f.log.With(
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
		),
	}
}

type accessLogEntry struct {
	log *slog.Logger
}

func (e accessLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	e.log.Info("request served", "status", status, "bytes", bytes, "elapsed", elapsed)
}

func (e accessLogEntry) Panic(v interface{}, stack []byte) {
	e.log.Error("request panicked", "panic", v, "stack", string(stack))
}
