package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stillpointhq/stillpoint/internal/resources"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeTurnSubmit     MessageType = "turn_submit"
	TypeSessionControl MessageType = "session_control"
	TypeTurnResult     MessageType = "turn_result"
	TypeSessionState   MessageType = "session_state"
	TypeErrorEvent     MessageType = "error_event"
)

// Control actions accepted in a session_control frame.
const (
	ActionPause    = "pause"
	ActionResume   = "resume"
	ActionComplete = "complete"
	ActionAbandon  = "abandon"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// TurnSubmit is one user response to the pending question.
type TurnSubmit struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

// SessionControl requests a lifecycle transition on the socket's session.
type SessionControl struct {
	Type   MessageType `json:"type"`
	Action string      `json:"action"`
}

// TurnResult carries the variant-tagged outcome of one processed turn. Only
// the fields for the named variant are populated.
type TurnResult struct {
	Type          MessageType          `json:"type"`
	SessionID     string               `json:"session_id"`
	Variant       string               `json:"variant"`
	State         string               `json:"state"`
	Iteration     int                  `json:"iteration,omitempty"`
	Question      string               `json:"question,omitempty"`
	Exercise      string               `json:"exercise,omitempty"`
	Message       string               `json:"message,omitempty"`
	Reason        string               `json:"reason,omitempty"`
	Summary       string               `json:"summary,omitempty"`
	DepthScore    float64              `json:"depth_score"`
	SafetyTier    string               `json:"safety_tier,omitempty"`
	ShowResources bool                 `json:"show_resources,omitempty"`
	Helplines     []resources.Helpline `json:"helplines,omitempty"`
}

// SessionState reports the session's lifecycle position after a control
// action.
type SessionState struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	State     string      `json:"state"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeTurnSubmit:
		var msg TurnSubmit
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Text == "" {
			return nil, errors.New("invalid turn_submit: text is required")
		}
		return msg, nil
	case TypeSessionControl:
		var msg SessionControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		switch msg.Action {
		case ActionPause, ActionResume, ActionComplete, ActionAbandon:
			return msg, nil
		default:
			return nil, fmt.Errorf("invalid session_control action %q", msg.Action)
		}
	default:
		return nil, ErrUnsupportedType
	}
}
