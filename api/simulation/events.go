package simulation

import (
	"encoding/json"
	"fmt"
	"net/http"

	coresim "github.com/kilianp07/evfleet/core/simulation"
	"github.com/kilianp07/evfleet/internal/eventbus"
)

// NewEventsHandler streams run notices as server-sent events until the
// client disconnects or the bus closes.
func NewEventsHandler(bus *eventbus.Bus[coresim.Notice], token string) http.Handler {
	return requireToken(token, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}
		sub := bus.Subscribe()
		defer bus.Unsubscribe(sub)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()
		for {
			select {
			case <-r.Context().Done():
				return
			case n, ok := <-sub:
				if !ok {
					return
				}
				b, err := json.Marshal(n)
				if err != nil {
					continue
				}
				if _, err := fmt.Fprintf(w, "event: run\ndata: %s\n\n", b); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}))
}
