package orchestrator

import (
	"github.com/stillpointhq/stillpoint/internal/resources"
	"github.com/stillpointhq/stillpoint/internal/risk"
	"github.com/stillpointhq/stillpoint/internal/session"
)

// Response is the orchestrator's answer to one processed input: exactly one
// of the variants below. The set is closed; callers switch on the concrete
// type or dispatch on Variant().
type Response interface {
	// Variant returns the wire label for this response kind.
	Variant() string

	isResponse()
}

// Variant labels. These appear on the wire and as metric label values.
const (
	VariantContinue       = "continue"
	VariantGrounding      = "grounding"
	VariantPauseSuggested = "pause_suggested"
	VariantCrisis         = "crisis"
	VariantIntegration    = "integration"
	VariantCompleted      = "completed"
)

// Continue carries the next reflection question; the session keeps going.
type Continue struct {
	SessionID     string
	State         session.State
	Iteration     int
	Question      string
	DepthScore    float64
	SafetyTier    risk.Tier
	ShowResources bool
}

func (Continue) Variant() string { return VariantContinue }
func (Continue) isResponse()     {}

// Grounding interposes a calming exercise. The triggering input is not
// stored as a turn; Question repeats the still-pending prompt.
type Grounding struct {
	SessionID  string
	State      session.State
	Exercise   string
	Question   string
	DepthScore float64
	SafetyTier risk.Tier
}

func (Grounding) Variant() string { return VariantGrounding }
func (Grounding) isResponse()     {}

// PauseSuggested invites the user to stop here. The session stays in the
// emergence cycle; NextQuestion is pre-computed so it is ready if the user
// continues, and empty once the iteration limit is reached.
type PauseSuggested struct {
	SessionID    string
	State        session.State
	Message      string
	NextQuestion string
	DepthScore   float64
	SafetyTier   risk.Tier
	Helplines    []resources.Helpline
}

func (PauseSuggested) Variant() string { return VariantPauseSuggested }
func (PauseSuggested) isResponse()     {}

// Crisis pauses the session and surfaces region helplines immediately.
type Crisis struct {
	SessionID  string
	State      session.State
	Message    string
	Helplines  []resources.Helpline
	DepthScore float64
	SafetyTier risk.Tier
}

func (Crisis) Variant() string { return VariantCrisis }
func (Crisis) isResponse()     {}

// Integration moves the session into its closing phase and asks the fixed
// closing question. Reason records what ended the emergence cycle.
type Integration struct {
	SessionID  string
	State      session.State
	Question   string
	Reason     string
	DepthScore float64
	SafetyTier risk.Tier
}

func (Integration) Variant() string { return VariantIntegration }
func (Integration) isResponse()     {}

// Completed closes the session. Submitting again after completion returns
// this same variant unchanged.
type Completed struct {
	SessionID  string
	State      session.State
	Summary    string
	Iterations int
	DepthScore float64
}

func (Completed) Variant() string { return VariantCompleted }
func (Completed) isResponse()     {}
