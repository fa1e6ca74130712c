package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stillpointhq/stillpoint/internal/protocol"
	"github.com/stillpointhq/stillpoint/internal/session"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 120 * time.Second
)

// handleSessionWS upgrades the request and runs the session's live channel.
// Client frames are dispatched in arrival order, so turns on one socket are
// processed sequentially; replies and error events share a single writer
// goroutine.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	if _, err := s.orch.Session(r.Context(), sessionID); err != nil {
		respondDomainError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.observeSessionEvent("ws_connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.observeWS("outbound", t)
				}
			}
		}
	}()

	conn.SetReadLimit(2 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.queueOutbound(outbound, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Detail:    err.Error(),
			})
			continue
		}
		if t, ok := messageTypeOf(parsed); ok {
			s.observeWS("inbound", t)
		}

		s.queueOutbound(outbound, s.dispatch(ctx, sessionID, parsed))
	}

	cancel()
	<-writerDone
	s.observeSessionEvent("ws_disconnected")
}

// dispatch runs one parsed client frame against the orchestrator and returns
// the frame to send back.
func (s *Server) dispatch(ctx context.Context, sessionID string, msg any) any {
	switch m := msg.(type) {
	case protocol.TurnSubmit:
		resp, err := s.orch.ProcessTurn(ctx, sessionID, m.Text)
		if err != nil {
			return wsError(sessionID, err)
		}
		return toTurnResult(resp)
	case protocol.SessionControl:
		var (
			sess *session.Session
			err  error
		)
		switch m.Action {
		case protocol.ActionPause:
			sess, err = s.orch.Pause(ctx, sessionID)
		case protocol.ActionResume:
			sess, err = s.orch.Resume(ctx, sessionID)
		case protocol.ActionComplete:
			sess, err = s.orch.Complete(ctx, sessionID)
		case protocol.ActionAbandon:
			sess, err = s.orch.Abandon(ctx, sessionID)
		default:
			return protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_action",
				Detail:    "unsupported control action " + m.Action,
			}
		}
		if err != nil {
			return wsError(sessionID, err)
		}
		return protocol.SessionState{
			Type:      protocol.TypeSessionState,
			SessionID: sess.ID,
			State:     string(sess.State),
		}
	default:
		return protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sessionID,
			Code:      "unsupported_message",
			Detail:    "unsupported message type",
		}
	}
}

func (s *Server) queueOutbound(outbound chan<- any, msg any) {
	select {
	case outbound <- msg:
	default:
		// Keep websocket writes single-threaded; drop if the queue is
		// saturated.
		if s.metrics != nil {
			s.metrics.ObserveTurnIndicator("ws_outbound_dropped")
		}
	}
}

func wsError(sessionID string, err error) protocol.ErrorEvent {
	_, code := errorCode(err)
	return protocol.ErrorEvent{
		Type:      protocol.TypeErrorEvent,
		SessionID: sessionID,
		Code:      code,
		Detail:    err.Error(),
	}
}

func (s *Server) observeWS(direction string, t protocol.MessageType) {
	if s.metrics == nil {
		return
	}
	s.metrics.WSMessages.WithLabelValues(direction, string(t)).Inc()
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.TurnSubmit:
		return m.Type, true
	case protocol.SessionControl:
		return m.Type, true
	case protocol.TurnResult:
		return m.Type, true
	case protocol.SessionState:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
