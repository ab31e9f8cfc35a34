package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/nhb-labs/agentic-wallet/types"
)

const wsWriteTimeout = 5 * time.Second

type wsInitialState struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// handleWebSocket upgrades the connection, sends an initial_state frame
// with every managed agent, then streams SystemEvents as they're emitted.
// Writes are dropped once the socket leaves the OPEN state; the
// subscription is removed when the connection closes.
func (a *api) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		return
	}
	defer conn.CloseNow()

	if err := a.writeWS(r.Context(), conn, wsInitialState{
		Type: "initial_state",
		Data: map[string]interface{}{"agents": a.cfg.Orchestrator.GetAllAgents()},
	}); err != nil {
		return
	}

	// CloseRead discards any client-sent frames and cancels the returned
	// context once the connection closes or a close frame arrives — the
	// only signal this handler needs, since it never reads a client message.
	ctx := conn.CloseRead(r.Context())

	events := make(chan types.SystemEvent, 64)
	unsubscribe := a.cfg.Bus.Subscribe(func(event types.SystemEvent) {
		select {
		case events <- event:
		default:
		}
	})
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			if ctx.Err() != nil {
				return
			}
			if err := a.writeWS(ctx, conn, event); err != nil {
				return
			}
		}
	}
}

func (a *api) writeWS(ctx context.Context, conn *websocket.Conn, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
