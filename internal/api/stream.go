package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jorikfon/JollyKite-sub001/internal/hub"
	"github.com/jorikfon/JollyKite-sub001/internal/models"
)

const streamHeartbeat = 25 * time.Second

// handleStream serves live wind updates over Server-Sent Events. The first
// event replays the latest stored measurement so a reconnecting client is
// never blank until the next collection tick.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id, events := s.hub.Subscribe()
	defer s.hub.Unsubscribe(id)

	if m, err := s.store.LatestMeasurement(); err == nil && m != nil {
		writeEvent(w, hub.Event{
			Type:      "wind_update",
			Data:      models.NewWindSample(*m),
			Timestamp: time.Now().UTC(),
		})
		flusher.Flush()
	}

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			writeEvent(w, ev)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev hub.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("stream: marshal event: %v", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
}
