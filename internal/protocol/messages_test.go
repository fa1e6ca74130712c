package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageTurnSubmit(t *testing.T) {
	raw := []byte(`{"type":"turn_submit","text":"I notice a heaviness in my chest"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	turn, ok := msg.(TurnSubmit)
	if !ok {
		t.Fatalf("message type = %T, want TurnSubmit", msg)
	}
	if turn.Text != "I notice a heaviness in my chest" {
		t.Fatalf("unexpected turn submit: %+v", turn)
	}
}

func TestParseClientMessageRejectsEmptyTurnText(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"turn_submit","text":""}`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseClientMessageSessionControl(t *testing.T) {
	actions := []string{ActionPause, ActionResume, ActionComplete, ActionAbandon}
	for _, action := range actions {
		raw := []byte(`{"type":"session_control","action":"` + action + `"}`)
		msg, err := ParseClientMessage(raw)
		if err != nil {
			t.Fatalf("ParseClientMessage(%s) error = %v", action, err)
		}
		control, ok := msg.(SessionControl)
		if !ok {
			t.Fatalf("message type = %T, want SessionControl", msg)
		}
		if control.Action != action {
			t.Fatalf("Action = %q, want %q", control.Action, action)
		}
	}
}

func TestParseClientMessageRejectsUnknownAction(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"session_control","action":"rewind"}`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsBadJSON(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":`))
	if err == nil {
		t.Fatalf("expected envelope error")
	}
}

func BenchmarkParseClientMessageTurnSubmit(b *testing.B) {
	raw := []byte(`{"type":"turn_submit","text":"staying with the heaviness in my chest"}`)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		msg, err := ParseClientMessage(raw)
		if err != nil {
			b.Fatalf("ParseClientMessage() error = %v", err)
		}
		if _, ok := msg.(TurnSubmit); !ok {
			b.Fatalf("message type = %T, want TurnSubmit", msg)
		}
	}
}
