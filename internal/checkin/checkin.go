// Package checkin implements the daily check-in streak engine. The server is
// the final arbiter of whether a check-in is allowed and of the points it
// awards; the client only caches the server's answer within the current
// calendar day and never synthesizes streak state locally.
package checkin

import (
	"context"
	"time"

	"uplift/internal/api"
	"uplift/internal/cache"
	"uplift/internal/models"
	"uplift/internal/pkg/logger"
	"uplift/internal/points"
)

const (
	cacheKind  = "checkin_info"
	cacheScope = "me"
)

// Advisory preview constants. The real award rule lives server-side; these
// exist only to render a "what you'll earn" hint when NextPoints is not yet
// known.
const (
	baseCheckinPoints   = 1
	streakBonusPoints   = 2
	streakBonusInterval = 5
)

// Engine drives the check-in state machine.
type Engine struct {
	client api.Client
	store  cache.Store
	points *points.Reconciler
	log    *logger.Logger
	now    func() time.Time
}

// NewEngine creates a check-in engine over the given collaborators.
func NewEngine(client api.Client, store cache.Store, rec *points.Reconciler, l *logger.Logger) *Engine {
	return &Engine{client: client, store: store, points: rec, log: l, now: time.Now}
}

// Info fetches the current check-in snapshot. A successful fetch is cached
// under a same-day key. On failure the engine falls back to today's cached
// snapshot if one exists; yesterday's CanCheckin is never served as valid.
// Auth failures are surfaced directly so the session layer can tear down.
func (e *Engine) Info(ctx context.Context) (*models.CheckinInfo, error) {
	info, err := e.client.CheckinInfo(ctx)
	if err == nil {
		e.store.PutDaily(cacheKind, cacheScope, e.now(), info)
		return info, nil
	}
	if api.IsAuth(err) {
		return nil, err
	}

	var cached models.CheckinInfo
	if e.store.GetDaily(cacheKind, cacheScope, e.now(), &cached) {
		e.log.Sugar().Warnf("Serving cached check-in info after fetch failure: %s", err)
		return &cached, nil
	}
	return nil, err
}

// Perform executes a check-in. The UI disables the action when CanCheckin is
// false, but the guard may be stale, so the server's rejection is surfaced
// rather than swallowed. On success the award is applied immediately through
// the points reconciler and the state transition is observed by refetching
// the server snapshot, never computed locally.
func (e *Engine) Perform(ctx context.Context) (*models.CheckinResult, error) {
	result, err := e.client.Checkin(ctx)
	if err != nil {
		return nil, err
	}

	e.points.ApplyCheckinAward(result.TotalPoints)
	e.store.DeleteDaily(cacheKind, cacheScope, e.now())

	if _, err := e.Info(ctx); err != nil {
		e.log.Sugar().Warnf("Check-in succeeded but info refetch failed: %s", err)
	}
	return result, nil
}

// EstimateNextPoints predicts the next check-in award for preview rendering
// only: the base award, plus a bonus on every fifth cumulative check-in.
// It must never be used to credit points; the server's NextPoints and the
// check-in response are authoritative.
func EstimateNextPoints(totalCheckins int) int {
	if (totalCheckins+1)%streakBonusInterval == 0 {
		return baseCheckinPoints + streakBonusPoints
	}
	return baseCheckinPoints
}
