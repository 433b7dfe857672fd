package server

import (
	"fmt"
	"net/http"

	"github.com/Its-donkey/Boostalk/internal/countdown"
	"github.com/Its-donkey/Boostalk/internal/metrics"
)

// handleCountdownStream mounts a countdown for the lifetime of the connection
// and forwards each tick as a server-sent event. The terminal value is sent as
// an "expired" event, after which the stream ends.
func (s *server) handleCountdownStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	cd := countdown.New(countdown.Config{
		Target:        s.launchAt,
		Interval:      s.countdownInterval,
		Now:           s.now,
		TickerFactory: s.tickerFactory,
		Logger:        s.logger,
	})
	updates, err := cd.Start(r.Context())
	if err != nil {
		http.Error(w, "countdown unavailable", http.StatusInternalServerError)
		return
	}
	defer cd.Stop()

	metrics.CountdownStreams.Inc()
	defer metrics.CountdownStreams.Dec()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	snapshot := cd.Snapshot()
	if snapshot.Expired {
		fmt.Fprintf(w, "event: expired\ndata: %s\n\n", snapshot.Display)
		flusher.Flush()
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", snapshot.Display)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case display, ok := <-updates:
			if !ok {
				return
			}
			if display == countdown.Expired {
				fmt.Fprintf(w, "event: expired\ndata: %s\n\n", display)
				flusher.Flush()
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", display)
			flusher.Flush()
		}
	}
}
