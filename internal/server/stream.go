package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/iwvelando/boom-bust/internal/events"
	"github.com/iwvelando/boom-bust/internal/session"
	"github.com/iwvelando/boom-bust/pkg/eventbus"
)

const (
	streamBuffer = 256
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

// Stream message kinds that are not bus events.
const (
	kindSnapshot = "snapshot"
	kindError    = "error"
	kindAck      = "ack"
)

type streamMessage struct {
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload"`
}

// handleEvents upgrades to a websocket, sends the current snapshot, then
// forwards every core to world event. Inbound envelopes read from the socket
// are published to the session like the HTTP commands.
func (h *handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleEvents"
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.String("op", op), zap.Error(err))
		return
	}
	defer conn.Close()

	clientID := uuid.NewString()
	logger := h.logger.With(zap.String("client", clientID))
	out := make(chan []byte, streamBuffer)
	var dropped atomic.Int64

	var (
		snap session.Snapshot
		sub  eventbus.Subscription
	)
	if err := h.sess.Do(r.Context(), func(s *session.Session) {
		snap = s.Snapshot()
		sub = s.Subscribe(func(ev eventbus.Event) {
			b, err := json.Marshal(events.Wrap(ev))
			if err != nil {
				logger.Error("failed to encode event", zap.String("op", op), zap.String("kind", string(ev.Kind())), zap.Error(err))
				return
			}
			select {
			case out <- b:
			default:
				dropped.Add(1)
			}
		})
	}); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "session unavailable"), time.Now().Add(time.Second))
		return
	}
	defer sub.Unsubscribe()

	logger.Info("event stream connected", zap.String("op", op))
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(streamMessage{Kind: kindSnapshot, Payload: snap}); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Writer goroutine.
	writeErr := make(chan error, 1)
	go func() {
		ping := time.NewTicker(pingPeriod)
		defer ping.Stop()
		for {
			select {
			case <-ctx.Done():
				writeErr <- ctx.Err()
				return
			case b := <-out:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					writeErr <- err
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					writeErr <- err
					return
				}
			}
		}
	}()

	// Reader loop: inbound events from the client.
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		h.handleStreamMessage(r.Context(), msg, out)
	}

	cancel()
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

	// Best-effort wait for the writer to stop so it doesn't outlive conn.
	select {
	case <-writeErr:
	case <-time.After(500 * time.Millisecond):
	}
	logger.Info("event stream closed", zap.String("op", op), zap.Int64("dropped", dropped.Load()))
}

func (h *handler) handleStreamMessage(ctx context.Context, msg []byte, out chan<- []byte) {
	reply := func(kind string, payload interface{}) {
		b, err := json.Marshal(streamMessage{Kind: kind, Payload: payload})
		if err != nil {
			return
		}
		select {
		case out <- b:
		default:
		}
	}

	if !h.limiter.Allow() {
		reply(kindError, map[string]string{"error": errTooMany.Error()})
		return
	}
	var env events.RawEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		reply(kindError, map[string]string{"error": "malformed envelope"})
		return
	}
	ev, err := events.DecodeInbound(env.Kind, env.Payload)
	if err != nil {
		reply(kindError, map[string]string{"error": err.Error()})
		return
	}

	var sendErr error
	if err := h.sess.Do(ctx, func(s *session.Session) { sendErr = s.Send(ev) }); err != nil {
		sendErr = err
	}
	if sendErr != nil {
		reply(kindError, map[string]string{"kind": string(env.Kind), "error": sendErr.Error()})
		return
	}
	reply(kindAck, map[string]string{"kind": string(env.Kind)})
}
