package session

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// State is the lifecycle position of a reflection session.
type State string

const (
	StateWelcome        State = "welcome"
	StateSpaceSelection State = "space_selection"
	StateEmergenceCycle State = "emergence_cycle"
	StatePaused         State = "paused"
	StateIntegration    State = "integration"
	StateCompleted      State = "completed"
	StateAbandoned      State = "abandoned"
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAbandoned
}

// Space is one of the six fixed symbolic exploration contexts a session
// explores. A session selects exactly one.
type Space string

const (
	SpaceHere          Space = "here"
	SpaceBody          Space = "body"
	SpaceFeelings      Space = "feelings"
	SpaceThoughts      Space = "thoughts"
	SpaceRelationships Space = "relationships"
	SpaceMeaning       Space = "meaning"
)

// Spaces lists the valid selections in display order.
var Spaces = []Space{
	SpaceHere, SpaceBody, SpaceFeelings, SpaceThoughts, SpaceRelationships, SpaceMeaning,
}

var (
	ErrIllegalTransition = errors.New("illegal session transition")
	ErrInvalidSpace      = errors.New("invalid space")
)

// ParseSpace validates a raw space value, case-insensitively.
func ParseSpace(raw string) (Space, error) {
	sp := Space(strings.ToLower(strings.TrimSpace(raw)))
	for _, valid := range Spaces {
		if sp == valid {
			return sp, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSpace, raw)
}

// Structural limits for one session.
const (
	MaxIterations         = 6
	IntegrationTurnNumber = 7

	MaxSessionDuration = 30 * time.Minute
	SoftWarnAfter      = 15 * time.Minute
)

// Session is one reflection episode. The orchestrator is the only writer;
// everything else receives clones.
type Session struct {
	ID              string     `json:"session_id"`
	OwnerID         string     `json:"owner_id"`
	State           State      `json:"state"`
	Space           Space      `json:"space,omitempty"`
	Region          string     `json:"region,omitempty"`
	IterationCount  int        `json:"iteration_count"`
	DepthScore      float64    `json:"depth_score"`
	GroundingCount  int        `json:"grounding_count"`
	SoftLimitWarned bool       `json:"soft_limit_warned"`
	PendingQuestion string     `json:"pending_question,omitempty"`
	ReflectedWords  string     `json:"reflected_words,omitempty"`
	Summary         string     `json:"summary,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Clone returns an independent copy.
func (s *Session) Clone() *Session {
	c := *s
	if s.StartedAt != nil {
		started := *s.StartedAt
		c.StartedAt = &started
	}
	return &c
}

// Elapsed is the time spent in active reflection. Zero before the session
// enters the emergence cycle.
func (s *Session) Elapsed(now time.Time) time.Duration {
	if s.StartedAt == nil {
		return 0
	}
	d := now.Sub(*s.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

// CanContinue reports whether another emergence iteration is allowed.
func (s *Session) CanContinue(now time.Time) bool {
	return s.IterationCount < MaxIterations && s.Elapsed(now) < MaxSessionDuration
}

// Turn is one question/response exchange. Turns are written once and never
// mutated; IterationNumber orders them, with IntegrationTurnNumber reserved
// for the closing exchange.
type Turn struct {
	ID                string    `json:"turn_id"`
	SessionID         string    `json:"session_id"`
	IterationNumber   int       `json:"iteration_number"`
	QuestionAsked     string    `json:"question_asked"`
	UserResponse      string    `json:"user_response"`
	ReflectedWords    string    `json:"reflected_words,omitempty"`
	SpaceExplored     string    `json:"space_explored"`
	DepthScoreAtEnd   float64   `json:"depth_score_at_end"`
	InterventionLabel string    `json:"intervention_label,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// AuditEvent records one safety-relevant action. TriggerSummary carries
// category labels only, never user text.
type AuditEvent struct {
	ID             string    `json:"event_id"`
	SessionID      string    `json:"session_id"`
	EventType      string    `json:"event_type"`
	TriggerSummary string    `json:"trigger_summary,omitempty"`
	DepthScore     float64   `json:"depth_score"`
	ResponseTaken  string    `json:"response_taken,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Audit event types.
const (
	AuditCrisisProtocolActivated = "crisis_protocol_activated"
	AuditResourceDisplayed       = "resource_displayed"
	AuditGroundingInserted       = "grounding_inserted"
	AuditPauseSuggested          = "pause_suggested"
	AuditIntegrationTriggered    = "integration_triggered"
	AuditIterationLimitReached   = "iteration_limit_reached"
	AuditSessionTimeout          = "session_timeout"

	AuditSessionStarted   = "session_started"
	AuditSpaceSelected    = "space_selected"
	AuditSessionPaused    = "session_paused"
	AuditSessionResumed   = "session_resumed"
	AuditSessionCompleted = "session_completed"
	AuditSessionAbandoned = "session_abandoned"
)
