package session

import (
	"errors"
	"testing"
)

func TestNextLegalTransitions(t *testing.T) {
	tests := []struct {
		name    string
		current State
		event   Event
		guards  Guards
		want    State
	}{
		{"welcome acknowledges", StateWelcome, EventAcknowledge, Guards{}, StateSpaceSelection},
		{"space selection begins cycle", StateSpaceSelection, EventSelectSpace, Guards{SpaceValid: true}, StateEmergenceCycle},
		{"cycle continues under limits", StateEmergenceCycle, EventContinue, Guards{CanContinue: true}, StateEmergenceCycle},
		{"cycle pauses", StateEmergenceCycle, EventPause, Guards{}, StatePaused},
		{"integration pauses", StateIntegration, EventPause, Guards{}, StatePaused},
		{"paused resumes to cycle", StatePaused, EventResume, Guards{CanContinue: true}, StateEmergenceCycle},
		{"paused resumes to integration at limit", StatePaused, EventResume, Guards{}, StateIntegration},
		{"cycle integrates", StateEmergenceCycle, EventIntegrate, Guards{}, StateIntegration},
		{"paused integrates", StatePaused, EventIntegrate, Guards{}, StateIntegration},
		{"cycle completes", StateEmergenceCycle, EventComplete, Guards{}, StateCompleted},
		{"integration completes", StateIntegration, EventComplete, Guards{}, StateCompleted},
		{"paused completes", StatePaused, EventComplete, Guards{}, StateCompleted},
		{"welcome abandons", StateWelcome, EventAbandon, Guards{}, StateAbandoned},
		{"space selection abandons", StateSpaceSelection, EventAbandon, Guards{}, StateAbandoned},
		{"cycle abandons", StateEmergenceCycle, EventAbandon, Guards{}, StateAbandoned},
		{"paused abandons", StatePaused, EventAbandon, Guards{}, StateAbandoned},
		{"integration abandons", StateIntegration, EventAbandon, Guards{}, StateAbandoned},
	}

	for _, tt := range tests {
		got, err := Next(tt.current, tt.event, tt.guards)
		if err != nil {
			t.Fatalf("%s: Next() error = %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("%s: Next() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestNextGuardMissesAreErrors(t *testing.T) {
	tests := []struct {
		name    string
		current State
		event   Event
		guards  Guards
		wantErr error
	}{
		{"continue past limits", StateEmergenceCycle, EventContinue, Guards{CanContinue: false}, ErrIllegalTransition},
		{"select space without a valid space", StateSpaceSelection, EventSelectSpace, Guards{SpaceValid: false}, ErrInvalidSpace},
		{"acknowledge from cycle", StateEmergenceCycle, EventAcknowledge, Guards{}, ErrIllegalTransition},
		{"select space from welcome", StateWelcome, EventSelectSpace, Guards{SpaceValid: true}, ErrIllegalTransition},
		{"continue from paused", StatePaused, EventContinue, Guards{CanContinue: true}, ErrIllegalTransition},
		{"pause from welcome", StateWelcome, EventPause, Guards{}, ErrIllegalTransition},
		{"resume from cycle", StateEmergenceCycle, EventResume, Guards{CanContinue: true}, ErrIllegalTransition},
		{"complete from welcome", StateWelcome, EventComplete, Guards{}, ErrIllegalTransition},
		{"complete from space selection", StateSpaceSelection, EventComplete, Guards{}, ErrIllegalTransition},
		{"unknown event", StateEmergenceCycle, Event("rewind"), Guards{}, ErrIllegalTransition},
	}

	for _, tt := range tests {
		got, err := Next(tt.current, tt.event, tt.guards)
		if !errors.Is(err, tt.wantErr) {
			t.Fatalf("%s: Next() error = %v, want %v", tt.name, err, tt.wantErr)
		}
		if got != tt.current {
			t.Fatalf("%s: Next() state = %q, want unchanged %q", tt.name, got, tt.current)
		}
	}
}

func TestNextTerminalStatesNeverTransition(t *testing.T) {
	events := []Event{
		EventAcknowledge, EventSelectSpace, EventContinue, EventPause,
		EventResume, EventIntegrate, EventComplete, EventAbandon,
	}
	for _, terminal := range []State{StateCompleted, StateAbandoned} {
		for _, ev := range events {
			got, err := Next(terminal, ev, Guards{SpaceValid: true, CanContinue: true})
			if !errors.Is(err, ErrIllegalTransition) {
				t.Fatalf("Next(%q, %q) error = %v, want ErrIllegalTransition", terminal, ev, err)
			}
			if got != terminal {
				t.Fatalf("Next(%q, %q) = %q, want terminal state unchanged", terminal, ev, got)
			}
		}
	}
}
