package orchestrator

import (
	"context"
	"time"

	"github.com/stillpointhq/stillpoint/internal/session"
	"github.com/stillpointhq/stillpoint/internal/store"
)

// SetExpireHook registers a callback invoked with the session ID after the
// janitor abandons an idle session.
func (o *Orchestrator) SetExpireHook(hook func(sessionID string)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onExpire = hook
}

// StartJanitor abandons sessions idle beyond the inactivity timeout. It runs
// until ctx is done.
func (o *Orchestrator) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.expireIdle(ctx, o.now())
			}
		}
	}()
}

// expireIdle abandons every tracked session whose last activity is older
// than the inactivity timeout, reporting how many it expired.
func (o *Orchestrator) expireIdle(ctx context.Context, now time.Time) int {
	o.mu.Lock()
	var stale []string
	for id, last := range o.activity {
		if now.Sub(last) >= o.inactivityTimeout {
			stale = append(stale, id)
		}
	}
	hook := o.onExpire
	o.mu.Unlock()

	expired := 0
	for _, id := range stale {
		if o.expireOne(ctx, id, now) {
			expired++
			if hook != nil {
				hook(id)
			}
		}
	}
	return expired
}

func (o *Orchestrator) expireOne(ctx context.Context, id string, now time.Time) bool {
	mu := o.sessionLock(id)
	mu.Lock()
	defer mu.Unlock()

	sess, err := o.store.GetSession(ctx, id)
	if err != nil {
		o.forget(id)
		return false
	}
	if sess.State.Terminal() {
		o.forget(id)
		return false
	}

	next, err := session.Next(sess.State, session.EventAbandon, session.Guards{})
	if err != nil {
		return false
	}
	sess.State = next
	sess.UpdatedAt = now

	ev := o.newEvent(sess.ID, session.AuditSessionAbandoned, "", sess.DepthScore, "inactivity_expiry", now)
	if err := o.commit(ctx, store.Commit{Session: sess, Events: []session.AuditEvent{ev}}); err != nil {
		return false
	}
	o.noteTerminal(sess.ID, "expired")
	return true
}
