package session

import "fmt"

// Event is a requested state transition.
type Event string

const (
	// EventAcknowledge moves a fresh session past the welcome screen once
	// consent is acknowledged.
	EventAcknowledge Event = "acknowledge"
	// EventSelectSpace enters the emergence cycle with a chosen space.
	EventSelectSpace Event = "select_space"
	// EventContinue runs one more emergence iteration.
	EventContinue Event = "continue"
	EventPause    Event = "pause"
	// EventResume returns to the emergence cycle when limits allow, and to
	// integration when they do not.
	EventResume Event = "resume"
	// EventIntegrate enters the closing integration phase.
	EventIntegrate Event = "integrate"
	EventComplete  Event = "complete"
	EventAbandon   Event = "abandon"
)

// Guards carries the inputs the transition guards read. Callers compute them
// from a single clock sample so one turn sees one consistent view of time.
type Guards struct {
	SpaceValid  bool
	CanContinue bool
}

// Next is the transition function: it maps (current, event, guards) to the
// following state or fails with ErrIllegalTransition (or ErrInvalidSpace for
// a space-selection guard miss). It never mutates anything and never
// silently no-ops: a guard miss is always an error.
func Next(current State, event Event, g Guards) (State, error) {
	if current.Terminal() {
		return current, fmt.Errorf("%w: session is %s", ErrIllegalTransition, current)
	}

	switch event {
	case EventAcknowledge:
		if current != StateWelcome {
			return current, fmt.Errorf("%w: acknowledge is only valid in welcome, not %s", ErrIllegalTransition, current)
		}
		return StateSpaceSelection, nil

	case EventSelectSpace:
		if current != StateSpaceSelection {
			return current, fmt.Errorf("%w: select_space is only valid in space_selection, not %s", ErrIllegalTransition, current)
		}
		if !g.SpaceValid {
			return current, fmt.Errorf("%w: a valid space is required to begin", ErrInvalidSpace)
		}
		return StateEmergenceCycle, nil

	case EventContinue:
		if current != StateEmergenceCycle {
			return current, fmt.Errorf("%w: continue is only valid in emergence_cycle, not %s", ErrIllegalTransition, current)
		}
		if !g.CanContinue {
			return current, fmt.Errorf("%w: iteration or time limit reached", ErrIllegalTransition)
		}
		return StateEmergenceCycle, nil

	case EventPause:
		if current != StateEmergenceCycle && current != StateIntegration {
			return current, fmt.Errorf("%w: pause is only valid in emergence_cycle or integration, not %s", ErrIllegalTransition, current)
		}
		return StatePaused, nil

	case EventResume:
		if current != StatePaused {
			return current, fmt.Errorf("%w: resume is only valid in paused, not %s", ErrIllegalTransition, current)
		}
		if g.CanContinue {
			return StateEmergenceCycle, nil
		}
		return StateIntegration, nil

	case EventIntegrate:
		if current != StateEmergenceCycle && current != StatePaused {
			return current, fmt.Errorf("%w: integrate is only valid in emergence_cycle or paused, not %s", ErrIllegalTransition, current)
		}
		return StateIntegration, nil

	case EventComplete:
		if current != StateEmergenceCycle && current != StateIntegration && current != StatePaused {
			return current, fmt.Errorf("%w: complete is only valid in an active state, not %s", ErrIllegalTransition, current)
		}
		return StateCompleted, nil

	case EventAbandon:
		return StateAbandoned, nil

	default:
		return current, fmt.Errorf("%w: unknown event %q", ErrIllegalTransition, event)
	}
}
