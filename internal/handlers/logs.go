package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"anprserver/internal/logger"
	"anprserver/internal/services/logstream"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// GetLogsHandler returns the current contents of the log ring.
func GetLogsHandler(broadcaster *logstream.Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"logs":          broadcaster.Entries(),
			"total_count":   broadcaster.Len(),
			"max_retention": broadcaster.Capacity(),
		})
	}
}

// ClearLogsHandler empties the log ring.
func ClearLogsHandler(broadcaster *logstream.Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count := broadcaster.Clear()
		broadcaster.Emit(logstream.LevelInfo, "Logs cleared (%d entries removed)", count)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": fmt.Sprintf("Cleared %d log entries", count),
		})
	}
}

// StreamLogsHandler streams live log entries over Server-Sent Events,
// starting with a replay of the ring. Idle connections get a keepalive so
// proxies don't cut them off.
func StreamLogsHandler(broadcaster *logstream.Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		sub := broadcaster.Subscribe()
		defer broadcaster.Unsubscribe(sub)

		keepalive := time.NewTicker(logstream.KeepaliveInterval)
		defer keepalive.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case entry, open := <-sub.C():
				if !open {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", entry.StreamLine())
				flusher.Flush()
			case <-keepalive.C:
				fmt.Fprintf(w, "data: keepalive\n\n")
				flusher.Flush()
			}
		}
	}
}

// LogsWebsocketHandler streams live log entries over a WebSocket connection.
func LogsWebsocketHandler(broadcaster *logstream.Broadcaster, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		defer connection.Close()

		sub := broadcaster.Subscribe()
		defer broadcaster.Unsubscribe(sub)

		// Reader goroutine only watches for the client closing.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := connection.ReadMessage(); err != nil {
					return
				}
			}
		}()

		keepalive := time.NewTicker(logstream.KeepaliveInterval)
		defer keepalive.Stop()

		for {
			select {
			case <-done:
				return
			case entry, open := <-sub.C():
				if !open {
					return
				}
				data, err := json.Marshal(entry)
				if err != nil {
					continue
				}
				if err := connection.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			case <-keepalive.C:
				if err := connection.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}
