package status

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

// writeTimeout bounds a single event write to a WebSocket client.
const writeTimeout = 5 * time.Second

// Handler streams events from b to WebSocket clients as JSON text messages.
// The current phase is sent immediately on connect.
func Handler(b *Broadcaster) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			slog.Debug("status: websocket accept failed", "err", err)
			return
		}
		defer conn.CloseNow()

		// Clients only listen; CloseRead handles their control frames and
		// cancels ctx when they go away.
		ctx := conn.CloseRead(r.Context())

		events, cancel := b.Subscribe()
		defer cancel()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					conn.Close(websocket.StatusGoingAway, "shutting down")
					return
				}
				if err := writeEvent(ctx, conn, ev); err != nil {
					slog.Debug("status: websocket write failed", "err", err)
					return
				}
			}
		}
	})
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
