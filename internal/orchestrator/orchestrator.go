// Package orchestrator drives reflection sessions: it scores each input,
// branches on the resulting intervention, and commits every side effect of a
// processed turn as one atomic unit through the storage port. Processing for
// a single session is serialized by a per-session lock; the storage commit is
// the only blocking point.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stillpointhq/stillpoint/internal/observability"
	"github.com/stillpointhq/stillpoint/internal/questions"
	"github.com/stillpointhq/stillpoint/internal/resources"
	"github.com/stillpointhq/stillpoint/internal/risk"
	"github.com/stillpointhq/stillpoint/internal/session"
	"github.com/stillpointhq/stillpoint/internal/store"
)

const (
	crisisMessage = "What you're carrying right now sounds heavy, and you deserve real support. Please reach out to one of these services; they are there for you at any hour. This reflection will pause here."
	pauseMessage  = "This is touching something deep. It's okay to stop here for today; what has surfaced will keep. If you'd like more support, these services are available."
)

type Orchestrator struct {
	store   store.Store
	scorer  *risk.Scorer
	metrics *observability.Metrics

	defaultRegion     string
	inactivityTimeout time.Duration

	now func() time.Time

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	activity map[string]time.Time
	onExpire func(sessionID string)
}

func New(st store.Store, scorer *risk.Scorer, metrics *observability.Metrics, defaultRegion string, inactivityTimeout time.Duration) *Orchestrator {
	if scorer == nil {
		scorer = risk.NewScorer(nil)
	}
	defaultRegion = strings.ToLower(strings.TrimSpace(defaultRegion))
	if defaultRegion == "" {
		defaultRegion = resources.DefaultRegion
	}
	if inactivityTimeout <= 0 {
		inactivityTimeout = 45 * time.Minute
	}
	return &Orchestrator{
		store:             st,
		scorer:            scorer,
		metrics:           metrics,
		defaultRegion:     defaultRegion,
		inactivityTimeout: inactivityTimeout,
		now:               func() time.Time { return time.Now().UTC() },
		locks:             make(map[string]*sync.Mutex),
		activity:          make(map[string]time.Time),
	}
}

// StartSession creates a session in the welcome state. Region falls back to
// the configured default when empty or unknown to the resource directory.
func (o *Orchestrator) StartSession(ctx context.Context, ownerID, region string) (*session.Session, error) {
	region = strings.ToLower(strings.TrimSpace(region))
	if region == "" {
		region = o.defaultRegion
	}

	now := o.now()
	sess := &session.Session{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		State:     session.StateWelcome,
		Region:    region,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	ev := o.newEvent(sess.ID, session.AuditSessionStarted, "", 0, "welcome_shown", now)
	if err := o.commit(ctx, store.Commit{Session: sess, Events: []session.AuditEvent{ev}}); err != nil {
		return nil, err
	}
	o.touch(sess.ID, now)
	if o.metrics != nil {
		o.metrics.ActiveSessions.Inc()
	}
	o.recordSessionEvent("started")
	return sess.Clone(), nil
}

// SelectSpace fixes the session's exploration space and returns the opening
// question. Selecting from the welcome state acknowledges the welcome
// implicitly.
func (o *Orchestrator) SelectSpace(ctx context.Context, sessionID, rawSpace string) (Continue, error) {
	space, err := session.ParseSpace(rawSpace)
	if err != nil {
		return Continue{}, err
	}

	mu := o.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return Continue{}, err
	}

	state := sess.State
	if state == session.StateWelcome {
		state, err = session.Next(state, session.EventAcknowledge, session.Guards{})
		if err != nil {
			return Continue{}, err
		}
	}
	state, err = session.Next(state, session.EventSelectSpace, session.Guards{SpaceValid: true})
	if err != nil {
		return Continue{}, err
	}

	now := o.now()
	sess.State = state
	sess.Space = space
	sess.StartedAt = &now
	sess.PendingQuestion = questions.Opening(space)
	sess.UpdatedAt = now

	ev := o.newEvent(sess.ID, session.AuditSpaceSelected, "", sess.DepthScore, "opening_question", now)
	if err := o.commit(ctx, store.Commit{Session: sess, Events: []session.AuditEvent{ev}}); err != nil {
		return Continue{}, err
	}
	o.touch(sess.ID, now)
	o.recordSessionEvent("space_selected")

	return Continue{
		SessionID:  sess.ID,
		State:      sess.State,
		Iteration:  1,
		Question:   sess.PendingQuestion,
		DepthScore: sess.DepthScore,
		SafetyTier: risk.TierFor(sess.DepthScore),
	}, nil
}

// ProcessTurn handles one user input. Completed sessions replay their
// completion without side effects; integration sessions close out; sessions
// in the emergence cycle run the full intervention protocol. Any other state
// rejects the turn with an illegal-transition error.
func (o *Orchestrator) ProcessTurn(ctx context.Context, sessionID, text string) (Response, error) {
	turnStart := time.Now()

	mu := o.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var resp Response
	switch sess.State {
	case session.StateCompleted:
		resp = o.completedResponse(sess)
	case session.StateIntegration:
		resp, err = o.closeOut(ctx, sess, text)
	case session.StateEmergenceCycle:
		resp, err = o.emergenceTurn(ctx, sess, text)
	default:
		return nil, fmt.Errorf("%w: turns are not accepted in %s", session.ErrIllegalTransition, sess.State)
	}
	if err != nil {
		return nil, err
	}

	if o.metrics != nil {
		o.metrics.TurnsProcessed.WithLabelValues(resp.Variant()).Inc()
		o.metrics.ObserveTurnDuration(time.Since(turnStart))
		o.metrics.ObserveTurnStage("turn_total", time.Since(turnStart))
	}
	return resp, nil
}

func (o *Orchestrator) emergenceTurn(ctx context.Context, sess *session.Session, text string) (Response, error) {
	now := o.now()
	a := o.assess(sess, text, now)

	if a.Crisis() {
		return o.activateCrisis(ctx, sess, a, now)
	}

	// Exhausted limits beat everything except crisis: once the session can
	// no longer continue, the next input moves it to integration no matter
	// what the scorer said.
	if !sess.CanContinue(now) {
		return o.integrateAtLimit(ctx, sess, a, now)
	}

	switch a.Intervention {
	case risk.InterventionGrounding:
		return o.insertGrounding(ctx, sess, a, now)
	case risk.InterventionPause:
		return o.suggestPause(ctx, sess, a, text, now)
	case risk.InterventionIntegration:
		return o.integrateEarly(ctx, sess, a, text, now)
	default:
		return o.continueCycle(ctx, sess, a, text, now)
	}
}

// activateCrisis pauses the session and surfaces helplines. The triggering
// input is never stored.
func (o *Orchestrator) activateCrisis(ctx context.Context, sess *session.Session, a risk.Assessment, now time.Time) (Response, error) {
	next, err := session.Next(sess.State, session.EventPause, session.Guards{})
	if err != nil {
		return nil, err
	}
	sess.State = next
	sess.DepthScore = a.DepthScore
	sess.UpdatedAt = now

	summary := triggerSummary(a.Triggers)
	events := []session.AuditEvent{
		o.newEvent(sess.ID, session.AuditCrisisProtocolActivated, summary, a.DepthScore, "session_paused", now),
		o.newEvent(sess.ID, session.AuditResourceDisplayed, summary, a.DepthScore, "helplines_shown", now),
	}
	if err := o.commit(ctx, store.Commit{Session: sess, Events: events}); err != nil {
		return nil, err
	}
	o.touch(sess.ID, now)
	if o.metrics != nil {
		o.metrics.CrisisActivations.Inc()
	}
	return Crisis{
		SessionID:  sess.ID,
		State:      sess.State,
		Message:    crisisMessage,
		Helplines:  resources.ForRegion(sess.Region),
		DepthScore: a.DepthScore,
		SafetyTier: a.SafetyTier,
	}, nil
}

// integrateAtLimit handles an input arriving after the session already
// exhausted its iteration or time budget, for example following a suggested
// pause on the final iteration. No turn is stored; the session moves to
// integration and the closing question is asked.
func (o *Orchestrator) integrateAtLimit(ctx context.Context, sess *session.Session, a risk.Assessment, now time.Time) (Response, error) {
	next, err := session.Next(sess.State, session.EventIntegrate, session.Guards{})
	if err != nil {
		return nil, err
	}

	cause, reason := o.limitCause(sess)
	sess.State = next
	sess.DepthScore = a.DepthScore
	sess.PendingQuestion = questions.Closing()
	sess.UpdatedAt = now

	ev := o.newEvent(sess.ID, cause, triggerSummary(a.Triggers), a.DepthScore, "integration_started", now)
	if err := o.commit(ctx, store.Commit{Session: sess, Events: []session.AuditEvent{ev}}); err != nil {
		return nil, err
	}
	o.touch(sess.ID, now)
	if o.metrics != nil {
		o.metrics.ObserveTurnIndicator("integration_cause_" + reason)
	}
	return Integration{
		SessionID:  sess.ID,
		State:      sess.State,
		Question:   sess.PendingQuestion,
		Reason:     reason,
		DepthScore: a.DepthScore,
		SafetyTier: a.SafetyTier,
	}, nil
}

// insertGrounding offers a calming exercise at the amber tier. No turn is
// stored; the pending question is repeated after the exercise.
func (o *Orchestrator) insertGrounding(ctx context.Context, sess *session.Session, a risk.Assessment, now time.Time) (Response, error) {
	sess.GroundingCount++
	sess.DepthScore = a.DepthScore
	sess.UpdatedAt = now

	ev := o.newEvent(sess.ID, session.AuditGroundingInserted, triggerSummary(a.Triggers), a.DepthScore, "grounding_offered", now)
	if err := o.commit(ctx, store.Commit{Session: sess, Events: []session.AuditEvent{ev}}); err != nil {
		return nil, err
	}
	o.touch(sess.ID, now)
	return Grounding{
		SessionID:  sess.ID,
		State:      sess.State,
		Exercise:   exerciseFor(sess.GroundingCount),
		Question:   sess.PendingQuestion,
		DepthScore: a.DepthScore,
		SafetyTier: a.SafetyTier,
	}, nil
}

// suggestPause stores the turn, invites the user to stop, and pre-computes
// the next question so it is ready if they continue anyway.
func (o *Orchestrator) suggestPause(ctx context.Context, sess *session.Session, a risk.Assessment, text string, now time.Time) (Response, error) {
	turn := o.newTurn(sess, text, a, "", now)
	sess.IterationCount++
	sess.DepthScore = a.DepthScore
	sess.ReflectedWords = turn.ReflectedWords
	sess.UpdatedAt = now

	nextQuestion := ""
	if sess.CanContinue(now) {
		nextQuestion = questions.Next(sess.IterationCount+1, sess.Space, text)
	}
	sess.PendingQuestion = nextQuestion

	summary := triggerSummary(a.Triggers)
	events := []session.AuditEvent{
		o.newEvent(sess.ID, session.AuditPauseSuggested, summary, a.DepthScore, "pause_offered", now),
		o.newEvent(sess.ID, session.AuditResourceDisplayed, summary, a.DepthScore, "helplines_shown", now),
	}
	if err := o.commit(ctx, store.Commit{Session: sess, Turn: turn, Events: events}); err != nil {
		return nil, err
	}
	o.touch(sess.ID, now)
	return PauseSuggested{
		SessionID:    sess.ID,
		State:        sess.State,
		Message:      pauseMessage,
		NextQuestion: nextQuestion,
		DepthScore:   a.DepthScore,
		SafetyTier:   a.SafetyTier,
		Helplines:    resources.ForRegion(sess.Region),
	}, nil
}

// integrateEarly stores the turn and moves straight to integration at the
// red tier.
func (o *Orchestrator) integrateEarly(ctx context.Context, sess *session.Session, a risk.Assessment, text string, now time.Time) (Response, error) {
	next, err := session.Next(sess.State, session.EventIntegrate, session.Guards{})
	if err != nil {
		return nil, err
	}

	turn := o.newTurn(sess, text, a, "early_integration", now)
	sess.IterationCount++
	sess.State = next
	sess.DepthScore = a.DepthScore
	sess.ReflectedWords = turn.ReflectedWords
	sess.PendingQuestion = questions.Closing()
	sess.UpdatedAt = now

	ev := o.newEvent(sess.ID, session.AuditIntegrationTriggered, triggerSummary(a.Triggers), a.DepthScore, "early_integration", now)
	if err := o.commit(ctx, store.Commit{Session: sess, Turn: turn, Events: []session.AuditEvent{ev}}); err != nil {
		return nil, err
	}
	o.touch(sess.ID, now)
	if o.metrics != nil {
		o.metrics.ObserveTurnIndicator("integration_cause_depth")
	}
	return Integration{
		SessionID:  sess.ID,
		State:      sess.State,
		Question:   sess.PendingQuestion,
		Reason:     "early_integration",
		DepthScore: a.DepthScore,
		SafetyTier: a.SafetyTier,
	}, nil
}

// continueCycle stores the turn and either asks the next question or, when
// this turn exhausted a limit, moves to integration.
func (o *Orchestrator) continueCycle(ctx context.Context, sess *session.Session, a risk.Assessment, text string, now time.Time) (Response, error) {
	turn := o.newTurn(sess, text, a, "", now)
	sess.IterationCount++
	sess.DepthScore = a.DepthScore
	sess.ReflectedWords = turn.ReflectedWords
	sess.UpdatedAt = now

	if !sess.CanContinue(now) {
		cause, reason := o.limitCause(sess)
		next, err := session.Next(sess.State, session.EventIntegrate, session.Guards{})
		if err != nil {
			return nil, err
		}
		sess.State = next
		sess.PendingQuestion = questions.Closing()

		ev := o.newEvent(sess.ID, cause, triggerSummary(a.Triggers), a.DepthScore, "integration_started", now)
		if err := o.commit(ctx, store.Commit{Session: sess, Turn: turn, Events: []session.AuditEvent{ev}}); err != nil {
			return nil, err
		}
		o.touch(sess.ID, now)
		if o.metrics != nil {
			o.metrics.ObserveTurnIndicator("integration_cause_" + reason)
		}
		return Integration{
			SessionID:  sess.ID,
			State:      sess.State,
			Question:   sess.PendingQuestion,
			Reason:     reason,
			DepthScore: a.DepthScore,
			SafetyTier: a.SafetyTier,
		}, nil
	}

	next, err := session.Next(sess.State, session.EventContinue, session.Guards{CanContinue: true})
	if err != nil {
		return nil, err
	}
	sess.State = next

	var events []session.AuditEvent
	if sess.Elapsed(now) >= session.SoftWarnAfter && !sess.SoftLimitWarned {
		sess.SoftLimitWarned = true
		events = append(events, o.newEvent(sess.ID, session.AuditSessionTimeout, "", a.DepthScore, "soft_limit_warning", now))
		if o.metrics != nil {
			o.metrics.ObserveTurnIndicator("soft_limit_warned")
		}
	}

	nextIteration := sess.IterationCount + 1
	question := questions.Next(nextIteration, sess.Space, text)
	sess.PendingQuestion = question

	if err := o.commit(ctx, store.Commit{Session: sess, Turn: turn, Events: events}); err != nil {
		return nil, err
	}
	o.touch(sess.ID, now)

	return Continue{
		SessionID:     sess.ID,
		State:         sess.State,
		Iteration:     nextIteration,
		Question:      question,
		DepthScore:    a.DepthScore,
		SafetyTier:    a.SafetyTier,
		ShowResources: a.SafetyTier != risk.TierGreen,
	}, nil
}

// closeOut stores the closing turn and completes the session. Crisis remains
// catchable while wrapping up; a duplicate submission completes without
// writing a second closing turn.
func (o *Orchestrator) closeOut(ctx context.Context, sess *session.Session, text string) (Response, error) {
	now := o.now()
	a := o.assess(sess, text, now)
	if a.Crisis() {
		return o.activateCrisis(ctx, sess, a, now)
	}

	next, err := session.Next(sess.State, session.EventComplete, session.Guards{})
	if err != nil {
		return nil, err
	}

	var turn *session.Turn
	alreadyClosed, err := o.hasIntegrationTurn(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if alreadyClosed {
		if o.metrics != nil {
			o.metrics.ObserveTurnIndicator("duplicate_integration_submit")
		}
	} else {
		turn = &session.Turn{
			ID:              uuid.NewString(),
			SessionID:       sess.ID,
			IterationNumber: session.IntegrationTurnNumber,
			QuestionAsked:   sess.PendingQuestion,
			UserResponse:    text,
			ReflectedWords:  questions.Extract(text),
			SpaceExplored:   string(sess.Space),
			DepthScoreAtEnd: a.DepthScore,
			CreatedAt:       now,
		}
	}

	sess.State = next
	sess.DepthScore = a.DepthScore
	sess.UpdatedAt = now
	if sess.Summary == "" {
		sess.Summary = summarize(sess, text)
	}

	ev := o.newEvent(sess.ID, session.AuditSessionCompleted, "", a.DepthScore, "session_closed", now)
	if err := o.commit(ctx, store.Commit{Session: sess, Turn: turn, Events: []session.AuditEvent{ev}}); err != nil {
		return nil, err
	}
	o.noteTerminal(sess.ID, "completed")
	return o.completedResponse(sess), nil
}

func (o *Orchestrator) completedResponse(sess *session.Session) Response {
	return Completed{
		SessionID:  sess.ID,
		State:      sess.State,
		Summary:    sess.Summary,
		Iterations: sess.IterationCount,
		DepthScore: sess.DepthScore,
	}
}

func (o *Orchestrator) hasIntegrationTurn(ctx context.Context, sessionID string) (bool, error) {
	turns, err := o.store.Turns(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("load turns: %w", err)
	}
	for _, t := range turns {
		if t.IterationNumber == session.IntegrationTurnNumber {
			return true, nil
		}
	}
	return false, nil
}

// assess scores one input against the session's current snapshot.
func (o *Orchestrator) assess(sess *session.Session, text string, now time.Time) risk.Assessment {
	start := time.Now()
	a := o.scorer.Assess(text, risk.Context{
		IterationCount:  sess.IterationCount,
		DurationMinutes: sess.Elapsed(now).Minutes(),
		GroundingCount:  sess.GroundingCount,
		PriorDepthScore: sess.DepthScore,
	})
	if o.metrics != nil {
		o.metrics.ObserveTurnStage("assess", time.Since(start))
		o.metrics.ObserveDepthScore(a.DepthScore)
	}
	return a
}

// limitCause names which budget ended the emergence cycle.
func (o *Orchestrator) limitCause(sess *session.Session) (eventType, reason string) {
	if sess.IterationCount >= session.MaxIterations {
		return session.AuditIterationLimitReached, "iteration_limit"
	}
	return session.AuditSessionTimeout, "time_limit"
}

func (o *Orchestrator) newTurn(sess *session.Session, text string, a risk.Assessment, label string, now time.Time) *session.Turn {
	return &session.Turn{
		ID:                uuid.NewString(),
		SessionID:         sess.ID,
		IterationNumber:   sess.IterationCount + 1,
		QuestionAsked:     sess.PendingQuestion,
		UserResponse:      text,
		ReflectedWords:    questions.Extract(text),
		SpaceExplored:     string(sess.Space),
		DepthScoreAtEnd:   a.DepthScore,
		InterventionLabel: label,
		CreatedAt:         now,
	}
}

func (o *Orchestrator) newEvent(sessionID, eventType, triggerSummary string, depth float64, responseTaken string, now time.Time) session.AuditEvent {
	return session.AuditEvent{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		EventType:      eventType,
		TriggerSummary: triggerSummary,
		DepthScore:     depth,
		ResponseTaken:  responseTaken,
		CreatedAt:      now,
	}
}

// commit applies one processed input's writes through the storage port and
// mirrors the committed audit events into metrics.
func (o *Orchestrator) commit(ctx context.Context, c store.Commit) error {
	start := time.Now()
	err := o.store.CommitTurn(ctx, c)
	if o.metrics != nil {
		o.metrics.ObserveTurnStage("commit", time.Since(start))
		if err != nil {
			o.metrics.StoreCommitFailures.Inc()
		}
	}
	if err != nil {
		return fmt.Errorf("commit turn: %w", err)
	}
	if o.metrics != nil {
		for _, ev := range c.Events {
			o.metrics.AuditEvents.WithLabelValues(ev.EventType).Inc()
		}
	}
	return nil
}

func (o *Orchestrator) recordSessionEvent(event string) {
	if o.metrics == nil {
		return
	}
	o.metrics.SessionEvents.WithLabelValues(event).Inc()
}

// noteTerminal drops per-session bookkeeping once a session reaches a
// terminal state.
func (o *Orchestrator) noteTerminal(sessionID, event string) {
	o.forget(sessionID)
	if o.metrics != nil {
		o.metrics.ActiveSessions.Dec()
	}
	o.recordSessionEvent(event)
}

func (o *Orchestrator) sessionLock(id string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	mu, ok := o.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		o.locks[id] = mu
	}
	return mu
}

func (o *Orchestrator) touch(id string, now time.Time) {
	o.mu.Lock()
	o.activity[id] = now
	o.mu.Unlock()
}

func (o *Orchestrator) forget(id string) {
	o.mu.Lock()
	delete(o.activity, id)
	delete(o.locks, id)
	o.mu.Unlock()
}

// triggerSummary flattens assessment triggers into comma-joined category
// labels. It never contains user text.
func triggerSummary(triggers []risk.Trigger) string {
	if len(triggers) == 0 {
		return ""
	}
	parts := make([]string, 0, len(triggers))
	for _, tr := range triggers {
		parts = append(parts, tr.Category)
	}
	return strings.Join(parts, ",")
}

// summarize builds the deterministic closing summary from session facts and
// the user's own words. Nothing is generated.
func summarize(sess *session.Session, closingText string) string {
	phrase := questions.Extract(closingText)
	if phrase == "that" && sess.ReflectedWords != "" {
		phrase = sess.ReflectedWords
	}
	iterations := "reflections"
	if sess.IterationCount == 1 {
		iterations = "reflection"
	}
	return fmt.Sprintf("You explored the %s space across %d %s, staying with %s.", sess.Space, sess.IterationCount, iterations, phrase)
}
