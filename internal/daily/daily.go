// Package daily manages a category's day-scoped content slots: the ordered
// list for today, the free first slot, paid unlocks guarded by the points
// balance, and optimistic vote mutation. One engine instance serves one
// category, matching the single-writer-per-entity model of the UI surfaces.
package daily

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"uplift/internal/api"
	"uplift/internal/cache"
	"uplift/internal/models"
	"uplift/internal/pkg/logger"
	"uplift/internal/points"
)

const cacheKind = "daily_content"

var (
	// ErrUnknownContent indicates the content id is not in today's list.
	ErrUnknownContent = errors.New("daily: unknown content id")
	// ErrLocked indicates a vote was attempted on a slot that is still locked.
	ErrLocked = errors.New("daily: content is locked")
)

// RefreshFunc refreshes the display balance from the server. Failures are
// the refresher's business; the engine calls it best-effort.
type RefreshFunc func(ctx context.Context)

// Engine manages one category's daily slots.
type Engine struct {
	category string
	maxItems int

	client  api.Client
	store   cache.Store
	points  *points.Reconciler
	refresh RefreshFunc
	log     *logger.Logger
	now     func() time.Time

	mu         sync.Mutex
	generation uint64 // latest issued load; stale completions are discarded
	items      []models.DailyContentItem
}

// NewEngine creates an engine for one category. maxItems caps the number of
// slots materialized per day regardless of how many the server returns.
func NewEngine(category string, maxItems int, client api.Client, store cache.Store, rec *points.Reconciler, refresh RefreshFunc, l *logger.Logger) *Engine {
	return &Engine{
		category: category,
		maxItems: maxItems,
		client:   client,
		store:    store,
		points:   rec,
		refresh:  refresh,
		log:      l,
		now:      time.Now,
	}
}

// Category returns the category this engine serves.
func (e *Engine) Category() string {
	return e.category
}

// Items returns a snapshot of today's slots as of the last Load.
func (e *Engine) Items() []models.DailyContentItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(e.items)
}

// Load fetches today's content list, truncates it to the per-day maximum,
// forces slot 0 unlocked (the free slot is free regardless of what the
// server reports), and writes the result through to the day-scoped cache.
// On fetch failure the same-day cache is consulted, with the same slot-0
// rule applied; with no same-day cache the error is surfaced. Cancellation
// of superseded loads is not supported; a load that finishes after a newer
// one has been issued is discarded instead.
func (e *Engine) Load(ctx context.Context) ([]models.DailyContentItem, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	fetched, err := e.client.DailyContent(ctx, e.category)
	if err != nil {
		if api.IsAuth(err) {
			return nil, err
		}
		var cached []models.DailyContentItem
		if !e.store.GetDaily(cacheKind, e.category, e.now(), &cached) {
			return nil, err
		}
		e.log.Sugar().Warnf("Serving cached daily content for %s after fetch failure: %s", e.category, err)
		items := e.materialize(cached)
		e.install(gen, items)
		return snapshot(items), nil
	}

	items := e.materialize(fetched)
	e.store.PutDaily(cacheKind, e.category, e.now(), items)
	e.install(gen, items)
	return snapshot(items), nil
}

// materialize orders slots by position, truncates to the per-day maximum and
// applies the free-slot rule.
func (e *Engine) materialize(list []models.DailyContentItem) []models.DailyContentItem {
	items := snapshot(list)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PositionInDay < items[j].PositionInDay
	})
	if e.maxItems > 0 && len(items) > e.maxItems {
		items = items[:e.maxItems]
	}
	if len(items) > 0 {
		items[0].IsUnlocked = true
	}
	return items
}

// install publishes a load result unless a newer load has been issued since.
func (e *Engine) install(gen uint64, items []models.DailyContentItem) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		e.log.Sugar().Infof("Discarding superseded daily load for %s", e.category)
		return
	}
	e.items = items
}

// Unlock unlocks the slot holding contentID.
//
// Slot 0 is the free slot: it is marked unlocked locally with no server call
// and no point deduction; the balance refresh is still triggered so the UI
// converges. Any other slot refreshes the balance first (the affordability
// hint shown by the UI should use the latest value), then asks the server.
// The server's rejection is final: on failure the slot stays locked and the
// balance is refreshed anyway in case of partial server-side effects.
func (e *Engine) Unlock(ctx context.Context, contentID string) error {
	e.mu.Lock()
	idx := e.indexOf(contentID)
	if idx < 0 {
		e.mu.Unlock()
		return ErrUnknownContent
	}
	if e.items[idx].PositionInDay == 0 {
		e.items[idx].IsUnlocked = true
		items := snapshot(e.items)
		e.mu.Unlock()
		e.store.PutDaily(cacheKind, e.category, e.now(), items)
		e.refresh(ctx)
		return nil
	}
	e.mu.Unlock()

	e.refresh(ctx)

	result, err := e.client.Unlock(ctx, contentID)
	if err != nil {
		e.refresh(ctx)
		return err
	}

	e.mu.Lock()
	if idx := e.indexOf(contentID); idx >= 0 {
		e.items[idx].IsUnlocked = true
	}
	items := snapshot(e.items)
	e.mu.Unlock()

	e.store.PutDaily(cacheKind, e.category, e.now(), items)
	e.points.ApplySpend(result.RemainingBalance)
	e.refresh(ctx)
	return nil
}

// Vote applies the user's vote to the local shadow copy first, then confirms
// with the server. The optimistic mutation is deliberately not rolled back
// on failure: the error is surfaced as a message only, and the next full
// Load reconciles with server truth.
func (e *Engine) Vote(ctx context.Context, contentID string, vote models.VoteType) error {
	e.mu.Lock()
	idx := e.indexOf(contentID)
	if idx < 0 {
		e.mu.Unlock()
		return ErrUnknownContent
	}
	if !e.items[idx].IsUnlocked || e.items[idx].Content == nil {
		e.mu.Unlock()
		return ErrLocked
	}
	optimisticVote(e.items[idx].Content, vote)
	items := snapshot(e.items)
	e.mu.Unlock()

	e.store.PutDaily(cacheKind, e.category, e.now(), items)

	confirmed, err := e.client.Vote(ctx, contentID, vote)
	if err != nil {
		e.log.Sugar().Warnf("Vote on %s not confirmed, keeping optimistic state: %s", contentID, err)
		return err
	}

	e.mu.Lock()
	if idx := e.indexOf(contentID); idx >= 0 {
		e.items[idx].Content = confirmed
	}
	items = snapshot(e.items)
	e.mu.Unlock()
	e.store.PutDaily(cacheKind, e.category, e.now(), items)
	return nil
}

// optimisticVote flips the user's vote on the shadow copy: the previous vote,
// if any, is removed from the counters and the new one added. This is the
// no-rollback strategy point; swapping it out changes the product decision
// in one place.
func optimisticVote(item *models.ContentItem, vote models.VoteType) {
	if item.UserVote != nil {
		switch *item.UserVote {
		case models.VoteUp:
			item.Upvotes--
		case models.VoteDown:
			item.Downvotes--
		}
	}
	switch vote {
	case models.VoteUp:
		item.Upvotes++
	case models.VoteDown:
		item.Downvotes++
	}
	v := vote
	item.UserVote = &v
}

// indexOf must be called with the mutex held.
func (e *Engine) indexOf(contentID string) int {
	for i := range e.items {
		if e.items[i].ContentID == contentID {
			return i
		}
	}
	return -1
}

// snapshot copies the slot list, including the content shadow copies, so
// callers never alias engine-owned state.
func snapshot(items []models.DailyContentItem) []models.DailyContentItem {
	out := make([]models.DailyContentItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].Content != nil {
			content := *out[i].Content
			out[i].Content = &content
		}
	}
	return out
}
