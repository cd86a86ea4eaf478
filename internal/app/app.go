// Package app wires the engines together and exposes the operations the UI
// layer consumes: session lifecycle, the reconciled balance, check-in,
// per-category daily content, votes, unlocks, submissions, and the points
// ledger. Engines are constructed here and passed by reference; nothing is
// reached through ambient globals.
package app

import (
	"context"
	"errors"
	"sync"

	"uplift/internal/api"
	"uplift/internal/cache"
	"uplift/internal/checkin"
	"uplift/internal/daily"
	"uplift/internal/models"
	"uplift/internal/pkg/logger"
	"uplift/internal/points"
	"uplift/internal/session"
	"uplift/internal/submissions"
)

// ErrNotAuthenticated indicates an operation that needs a session was called
// without one.
var ErrNotAuthenticated = errors.New("app: not authenticated")

// App is the composition root of the client engine.
type App struct {
	client  api.Client
	store   cache.Store
	points  *points.Reconciler
	session *session.Session
	checkin *checkin.Engine
	subs    *submissions.Store
	log     *logger.Logger

	maxDailyItems   int
	submissionAward int

	mu      sync.Mutex
	dailies map[string]*daily.Engine
}

// NewApp builds the engine graph on top of the given collaborators.
func NewApp(client api.Client, store cache.Store, sess *session.Session, rec *points.Reconciler, maxDailyItems, submissionAward int, l *logger.Logger) *App {
	a := &App{
		client:          client,
		store:           store,
		points:          rec,
		session:         sess,
		subs:            submissions.NewStore(store, l),
		log:             l,
		maxDailyItems:   maxDailyItems,
		submissionAward: submissionAward,
		dailies:         make(map[string]*daily.Engine),
	}
	a.checkin = checkin.NewEngine(client, store, rec, l)
	return a
}

// dailyEngine returns the engine owning one category's slots, creating it on
// first use.
func (a *App) dailyEngine(category string) *daily.Engine {
	a.mu.Lock()
	defer a.mu.Unlock()
	engine, ok := a.dailies[category]
	if !ok {
		engine = daily.NewEngine(category, a.maxDailyItems, a.client, a.store, a.points, a.refreshBalanceQuiet, a.log)
		a.dailies[category] = engine
	}
	return engine
}

// Login establishes a session and installs the profile into the points
// reconciler.
func (a *App) Login(ctx context.Context, email, password string) (*models.User, error) {
	token, user, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	a.session.Establish(token, user)
	return user, nil
}

// Restore recovers a persisted session, refetching the profile. It returns
// false when there is nothing to restore.
func (a *App) Restore(ctx context.Context) bool {
	if !a.session.Restore() {
		return false
	}
	user, err := a.client.Profile(ctx)
	if err != nil {
		a.log.Sugar().Warnf("Session restored but profile fetch failed: %s", err)
		a.session.HandleAuthError(err)
		if !a.session.Authenticated() {
			return false
		}
		if cached := a.session.CachedProfile(); cached != nil {
			a.points.SetProfile(cached)
		}
		return true
	}
	a.points.SetProfile(user)
	a.session.SaveProfile(user)
	return true
}

// Logout tears the session down. Per-user submission records stay persisted;
// they are scoped by user id and reload on the next login.
func (a *App) Logout() {
	a.session.Teardown()
}

// Authenticated reports whether a session is established.
func (a *App) Authenticated() bool {
	return a.session.Authenticated()
}

// DisplayBalance returns the reconciled points value to render.
func (a *App) DisplayBalance() int {
	return a.points.DisplayBalance()
}

// User returns the current profile snapshot, or nil.
func (a *App) User() *models.User {
	return a.points.User()
}

// RefreshBalance pulls both balance read paths through the reconciliation
// contract: the stats balance feeds the floor, the profile replaces the
// snapshot. The first error is returned for the caller's information; a
// partial refresh still applies whatever succeeded.
func (a *App) RefreshBalance(ctx context.Context) error {
	var firstErr error

	stats, err := a.client.Stats(ctx)
	if err != nil {
		firstErr = a.session.HandleAuthError(err)
	} else {
		a.points.RecordStatsBalance(stats.PointsBalance)
	}

	user, err := a.client.Profile(ctx)
	if err != nil {
		if firstErr == nil {
			firstErr = a.session.HandleAuthError(err)
		}
	} else {
		a.points.SetProfile(user)
		a.session.SaveProfile(user)
	}
	return firstErr
}

// refreshBalanceQuiet is the best-effort variant handed to the daily engines.
func (a *App) refreshBalanceQuiet(ctx context.Context) {
	if err := a.RefreshBalance(ctx); err != nil {
		a.log.Sugar().Warnf("Balance refresh failed: %s", err)
	}
}

// CheckinInfo returns today's check-in snapshot, cached same-day on failure.
func (a *App) CheckinInfo(ctx context.Context) (*models.CheckinInfo, error) {
	info, err := a.checkin.Info(ctx)
	if err != nil {
		return nil, a.session.HandleAuthError(err)
	}
	return info, nil
}

// PerformCheckin executes the daily check-in.
func (a *App) PerformCheckin(ctx context.Context) (*models.CheckinResult, error) {
	result, err := a.checkin.Perform(ctx)
	if err != nil {
		return nil, a.session.HandleAuthError(err)
	}
	return result, nil
}

// EstimateNextPoints exposes the advisory next-award preview.
func (a *App) EstimateNextPoints(totalCheckins int) int {
	return checkin.EstimateNextPoints(totalCheckins)
}

// Daily loads today's slots for a category.
func (a *App) Daily(ctx context.Context, category string) ([]models.DailyContentItem, error) {
	items, err := a.dailyEngine(category).Load(ctx)
	if err != nil {
		return nil, a.session.HandleAuthError(err)
	}
	return items, nil
}

// DailyItems returns the last loaded slots for a category without a fetch.
func (a *App) DailyItems(category string) []models.DailyContentItem {
	return a.dailyEngine(category).Items()
}

// Unlock unlocks one slot in a category.
func (a *App) Unlock(ctx context.Context, category, contentID string) error {
	if err := a.dailyEngine(category).Unlock(ctx, contentID); err != nil {
		return a.session.HandleAuthError(err)
	}
	return nil
}

// Vote votes on an unlocked content item. The optimistic local mutation
// survives a failed confirmation; the error is informational.
func (a *App) Vote(ctx context.Context, category, contentID string, vote models.VoteType) error {
	if err := a.dailyEngine(category).Vote(ctx, contentID, vote); err != nil {
		return a.session.HandleAuthError(err)
	}
	return nil
}

// Submit sends a content draft to the server. On success the item is
// recorded in the durability store so it stays visible regardless of server
// read-path lag, and the submission award is credited optimistically.
func (a *App) Submit(ctx context.Context, draft models.ContentDraft) (*models.ContentItem, error) {
	userID := a.session.UserID()
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	item, err := a.client.Submit(ctx, draft)
	if err != nil {
		return nil, a.session.HandleAuthError(err)
	}

	a.subs.Add(userID, *item)
	a.points.ApplySubmissionAward(a.submissionAward)
	return item, nil
}

// MyContent returns the user's own submissions: the server's indexed view
// merged over the local durability records, server copy winning by id. When
// the server is unreachable the local records alone are returned, which is
// the durability guarantee.
func (a *App) MyContent(ctx context.Context) ([]models.ContentItem, error) {
	userID := a.session.UserID()
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	serverItems, err := a.client.Mine(ctx)
	if err != nil {
		if api.IsAuth(err) {
			return nil, a.session.HandleAuthError(err)
		}
		a.log.Sugar().Warnf("Serving local submissions after fetch failure: %s", err)
		return a.subs.Items(userID), nil
	}
	return a.subs.Merge(userID, serverItems), nil
}

// RemoveMyContent drops one submission record locally, by explicit user
// action only.
func (a *App) RemoveMyContent(contentID string) error {
	userID := a.session.UserID()
	if userID == "" {
		return ErrNotAuthenticated
	}
	a.subs.Remove(userID, contentID)
	return nil
}

// PointsHistory returns one page of the points ledger.
func (a *App) PointsHistory(ctx context.Context, page, limit int) ([]models.PointsTransaction, error) {
	transactions, err := a.client.PointsHistory(ctx, page, limit)
	if err != nil {
		return nil, a.session.HandleAuthError(err)
	}
	return transactions, nil
}

// ChangePassword performs the password change flow.
func (a *App) ChangePassword(ctx context.Context, current, next string) error {
	if err := a.client.ChangePassword(ctx, current, next); err != nil {
		return a.session.HandleAuthError(err)
	}
	return nil
}
