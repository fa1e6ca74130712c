package orchestrator

import (
	"context"

	"github.com/stillpointhq/stillpoint/internal/questions"
	"github.com/stillpointhq/stillpoint/internal/session"
	"github.com/stillpointhq/stillpoint/internal/store"
)

// Pause suspends an active session at the user's request.
func (o *Orchestrator) Pause(ctx context.Context, sessionID string) (*session.Session, error) {
	mu := o.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	next, err := session.Next(sess.State, session.EventPause, session.Guards{})
	if err != nil {
		return nil, err
	}

	now := o.now()
	sess.State = next
	sess.UpdatedAt = now

	ev := o.newEvent(sess.ID, session.AuditSessionPaused, "", sess.DepthScore, "user_request", now)
	if err := o.commit(ctx, store.Commit{Session: sess, Events: []session.AuditEvent{ev}}); err != nil {
		return nil, err
	}
	o.touch(sess.ID, now)
	o.recordSessionEvent("paused")
	return sess.Clone(), nil
}

// Resume returns a paused session to the emergence cycle, or to integration
// when the iteration or time budget is already spent.
func (o *Orchestrator) Resume(ctx context.Context, sessionID string) (*session.Session, error) {
	mu := o.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := o.now()
	next, err := session.Next(sess.State, session.EventResume, session.Guards{CanContinue: sess.CanContinue(now)})
	if err != nil {
		return nil, err
	}

	sess.State = next
	sess.UpdatedAt = now
	if next == session.StateIntegration {
		sess.PendingQuestion = questions.Closing()
	} else if sess.PendingQuestion == "" {
		sess.PendingQuestion = questions.Next(sess.IterationCount+1, sess.Space, sess.ReflectedWords)
	}

	ev := o.newEvent(sess.ID, session.AuditSessionResumed, "", sess.DepthScore, string(next), now)
	if err := o.commit(ctx, store.Commit{Session: sess, Events: []session.AuditEvent{ev}}); err != nil {
		return nil, err
	}
	o.touch(sess.ID, now)
	o.recordSessionEvent("resumed")
	return sess.Clone(), nil
}

// Complete closes an active session at the user's request, populating the
// summary when none was written yet.
func (o *Orchestrator) Complete(ctx context.Context, sessionID string) (*session.Session, error) {
	mu := o.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	next, err := session.Next(sess.State, session.EventComplete, session.Guards{})
	if err != nil {
		return nil, err
	}

	now := o.now()
	sess.State = next
	sess.UpdatedAt = now
	if sess.Summary == "" {
		sess.Summary = summarize(sess, sess.ReflectedWords)
	}

	ev := o.newEvent(sess.ID, session.AuditSessionCompleted, "", sess.DepthScore, "user_request", now)
	if err := o.commit(ctx, store.Commit{Session: sess, Events: []session.AuditEvent{ev}}); err != nil {
		return nil, err
	}
	o.noteTerminal(sess.ID, "completed")
	return sess.Clone(), nil
}

// Abandon ends a session without integration. Valid from any non-terminal
// state.
func (o *Orchestrator) Abandon(ctx context.Context, sessionID string) (*session.Session, error) {
	mu := o.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	next, err := session.Next(sess.State, session.EventAbandon, session.Guards{})
	if err != nil {
		return nil, err
	}

	now := o.now()
	sess.State = next
	sess.UpdatedAt = now

	ev := o.newEvent(sess.ID, session.AuditSessionAbandoned, "", sess.DepthScore, "user_request", now)
	if err := o.commit(ctx, store.Commit{Session: sess, Events: []session.AuditEvent{ev}}); err != nil {
		return nil, err
	}
	o.noteTerminal(sess.ID, "abandoned")
	return sess.Clone(), nil
}

// Session returns the current snapshot of one session.
func (o *Orchestrator) Session(ctx context.Context, sessionID string) (*session.Session, error) {
	return o.store.GetSession(ctx, sessionID)
}

// SessionTurns returns the stored turns for one session ordered by iteration
// number.
func (o *Orchestrator) SessionTurns(ctx context.Context, sessionID string) ([]session.Turn, error) {
	if _, err := o.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return o.store.Turns(ctx, sessionID)
}

// SessionAudit returns the audit trail for one session.
func (o *Orchestrator) SessionAudit(ctx context.Context, sessionID string) ([]session.AuditEvent, error) {
	if _, err := o.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return o.store.AuditTrail(ctx, sessionID)
}
