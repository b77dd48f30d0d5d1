// Package sse streams broadcaster items to HTTP clients as server-sent events.
package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Source is a subscribable stream of items. *broadcast.Broadcaster implements it.
type Source[T any] interface {
	Subscribe(clientID string) <-chan T
	Release(clientID string, endpoint <-chan T)
}

// WriteEvent writes one frame: "event: <event>\ndata: <json>\n\n".
func WriteEvent(w io.Writer, event string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: encode %s payload: %w", event, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, body)
	return err
}

// HandlerOption configures a stream handler
type HandlerOption func(*handlerOptions)

type handlerOptions struct {
	heartbeat time.Duration
	logger    *slog.Logger
}

// WithHeartbeat sends a comment line at the given interval so proxies keep the stream open
func WithHeartbeat(interval time.Duration) HandlerOption {
	return func(o *handlerOptions) {
		o.heartbeat = interval
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(o *handlerOptions) {
		o.logger = logger
	}
}

// Handler streams every item src publishes after the request arrives. Each
// request subscribes under a fresh client id and unsubscribes when the client
// goes away or the source closes its endpoint.
func Handler[T any](src Source[T], payload func(T) any, eventName func(T) string, opts ...HandlerOption) http.HandlerFunc {
	o := handlerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		clientID := uuid.NewString()
		items := src.Subscribe(clientID)
		defer src.Release(clientID, items)

		logger := o.logger.With("clientId", clientID, "path", r.URL.Path)
		logger.Debug("stream opened")

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		var heartbeat <-chan time.Time
		if o.heartbeat > 0 {
			ticker := time.NewTicker(o.heartbeat)
			defer ticker.Stop()
			heartbeat = ticker.C
		}

		for {
			select {
			case <-r.Context().Done():
				logger.Debug("stream closed by client")
				return

			case item, ok := <-items:
				if !ok {
					logger.Debug("stream closed by source")
					return
				}
				if err := WriteEvent(w, eventName(item), payload(item)); err != nil {
					logger.Warn("failed to write event", "error", err)
					return
				}
				flusher.Flush()

			case <-heartbeat:
				if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
