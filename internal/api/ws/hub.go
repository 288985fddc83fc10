package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

// Subscriber opens a live subscription on a pub/sub channel. The returned
// func releases it. *redis.PubSub satisfies this interface.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Hub serves WebSocket feeds backed by pub/sub channels. It is read-only:
// clients never publish through it.
type Hub struct {
	subs Subscriber
	// originPatterns is passed to websocket.Accept; empty means same-origin only.
	originPatterns []string
}

// NewHub creates a new WebSocket hub.
func NewHub(subs Subscriber, originPatterns []string) *Hub {
	return &Hub{subs: subs, originPatterns: originPatterns}
}

// stream upgrades the request and relays every message published on channel
// until the client goes away or the subscription ends.
func (h *Hub) stream(w http.ResponseWriter, r *http.Request, channel string) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Client frames are never read; CloseRead handles control frames and
	// cancels ctx once the client disconnects.
	ctx := conn.CloseRead(r.Context())

	messages, cleanup, err := h.subs.Subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	log.Debug().Str("channel", channel).Msg("websocket stream opened")

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, ok := <-messages:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				log.Debug().Err(err).Str("channel", channel).Msg("websocket write")
				return
			}
		}
	}
}
