package api

import (
	"fmt"
	"net/http"

	pgstore "solana-copydesk/internal/storage/postgres"
)

// handleEvents streams storage change notifications as server-sent events.
// Each event's type is the notifying channel name and its data is the JSON
// payload emitted by the row trigger.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		respondError(w, http.StatusNotImplemented, "event feed not configured")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	notifications, err := s.feed.Listen(r.Context(), pgstore.ChannelPositions, pgstore.ChannelCopyTrades)
	if err != nil {
		s.logger.Error().Err(err).Msg("event feed listen failed")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.Channel, n.Payload)
			flusher.Flush()
		}
	}
}
