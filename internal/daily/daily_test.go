package daily

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uplift/internal/api"
	"uplift/internal/api/mocks"
	"uplift/internal/cache"
	"uplift/internal/models"
	"uplift/internal/pkg/logger"
	"uplift/internal/points"
)

const maxItems = 2

func newTestEngine(t *testing.T, category string) (*Engine, *mocks.MockClient, *points.Reconciler) {
	t.Helper()
	l, err := logger.CreateLogger("error")
	require.NoError(t, err)

	store, err := cache.NewSQLite(filepath.Join(t.TempDir(), "cache.db"), l)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	rec := points.NewReconciler(l)
	rec.SetProfile(&models.User{ID: "u1", Points: 10, PointsBalance: 10})

	refresh := func(ctx context.Context) {}
	return NewEngine(category, maxItems, client, store, rec, refresh, l), client, rec
}

func slots(category string, locked ...string) []models.DailyContentItem {
	items := make([]models.DailyContentItem, len(locked))
	for i, id := range locked {
		items[i] = models.DailyContentItem{
			ID:            "slot-" + id,
			ContentID:     id,
			Category:      category,
			PositionInDay: i,
			Content:       &models.ContentItem{ID: id, Category: category, ContentType: models.ContentText},
		}
	}
	return items
}

func TestLoad_TruncatesAndFreesFirstSlot(t *testing.T) {
	engine, client, _ := newTestEngine(t, "facts")

	// Server hands back five slots, all locked.
	client.EXPECT().DailyContent(gomock.Any(), "facts").
		Return(slots("facts", "c1", "c2", "c3", "c4", "c5"), nil)

	items, err := engine.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, items, maxItems)
	assert.True(t, items[0].IsUnlocked, "slot 0 is free and must be unlocked on materialization")
	assert.False(t, items[1].IsUnlocked)
}

func TestLoad_ForcesFreeSlotEvenWhenServerSaysLocked(t *testing.T) {
	engine, client, _ := newTestEngine(t, "jokes")

	served := slots("jokes", "c1", "c2")
	served[0].IsUnlocked = false
	client.EXPECT().DailyContent(gomock.Any(), "jokes").Return(served, nil)

	items, err := engine.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, items[0].IsUnlocked)
}

func TestLoad_FallsBackToSameDayCache(t *testing.T) {
	engine, client, _ := newTestEngine(t, "jokes")

	client.EXPECT().DailyContent(gomock.Any(), "jokes").
		Return(slots("jokes", "c1", "c2"), nil)
	_, err := engine.Load(context.Background())
	require.NoError(t, err)

	client.EXPECT().DailyContent(gomock.Any(), "jokes").
		Return(nil, &api.Error{Kind: api.KindNetwork})

	items, err := engine.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].IsUnlocked)
}

func TestLoad_NoCacheSurfacesError(t *testing.T) {
	engine, client, _ := newTestEngine(t, "jokes")

	client.EXPECT().DailyContent(gomock.Any(), "jokes").
		Return(nil, &api.Error{Kind: api.KindNetwork})

	_, err := engine.Load(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsNetwork(err))
}

func TestUnlock_FreeSlotNeverCallsServer(t *testing.T) {
	engine, client, rec := newTestEngine(t, "jokes")

	served := slots("jokes", "c1", "c2")
	served[0].IsUnlocked = false
	client.EXPECT().DailyContent(gomock.Any(), "jokes").Return(served, nil)
	_, err := engine.Load(context.Background())
	require.NoError(t, err)

	before := rec.DisplayBalance()

	// No Unlock expectation on the mock: a server call would fail the test.
	require.NoError(t, engine.Unlock(context.Background(), "c1"))

	items := engine.Items()
	assert.True(t, items[0].IsUnlocked)
	assert.Equal(t, before, rec.DisplayBalance(), "the free slot must not change the balance")
}

func TestUnlock_PaidSlotSuccess(t *testing.T) {
	engine, client, rec := newTestEngine(t, "jokes")

	client.EXPECT().DailyContent(gomock.Any(), "jokes").
		Return(slots("jokes", "c1", "c2"), nil)
	_, err := engine.Load(context.Background())
	require.NoError(t, err)

	client.EXPECT().Unlock(gomock.Any(), "c2").
		Return(&models.UnlockResult{PointsSpent: 5, RemainingBalance: 5}, nil)

	require.NoError(t, engine.Unlock(context.Background(), "c2"))

	items := engine.Items()
	assert.True(t, items[1].IsUnlocked)
	assert.Equal(t, 5, rec.DisplayBalance(), "post-spend balance comes from the server")
}

func TestUnlock_ServerRejectionLeavesSlotLocked(t *testing.T) {
	engine, client, rec := newTestEngine(t, "jokes")

	client.EXPECT().DailyContent(gomock.Any(), "jokes").
		Return(slots("jokes", "c1", "c2"), nil)
	_, err := engine.Load(context.Background())
	require.NoError(t, err)

	client.EXPECT().Unlock(gomock.Any(), "c2").
		Return(nil, &api.Error{Kind: api.KindServer, Status: http.StatusBadRequest, Message: "insufficient points"})

	err = engine.Unlock(context.Background(), "c2")
	require.Error(t, err)

	items := engine.Items()
	assert.False(t, items[1].IsUnlocked)
	assert.Equal(t, 10, rec.DisplayBalance())
}

func TestUnlock_UnknownContent(t *testing.T) {
	engine, client, _ := newTestEngine(t, "jokes")

	client.EXPECT().DailyContent(gomock.Any(), "jokes").
		Return(slots("jokes", "c1"), nil)
	_, err := engine.Load(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, engine.Unlock(context.Background(), "nope"), ErrUnknownContent)
}

func TestVote_OptimisticApplyBeforeConfirmation(t *testing.T) {
	engine, client, _ := newTestEngine(t, "jokes")

	served := slots("jokes", "c1", "c2")
	served[0].Content.Upvotes = 3
	client.EXPECT().DailyContent(gomock.Any(), "jokes").Return(served, nil)
	_, err := engine.Load(context.Background())
	require.NoError(t, err)

	// Confirmation fails; the optimistic mutation must stick anyway.
	client.EXPECT().Vote(gomock.Any(), "c1", models.VoteUp).
		Return(nil, &api.Error{Kind: api.KindNetwork})

	err = engine.Vote(context.Background(), "c1", models.VoteUp)
	require.Error(t, err)

	items := engine.Items()
	content := items[0].Content
	require.NotNil(t, content)
	require.NotNil(t, content.UserVote)
	assert.Equal(t, models.VoteUp, *content.UserVote)
	assert.Equal(t, 4, content.Upvotes)
}

func TestVote_SwitchingDirectionMovesBothCounters(t *testing.T) {
	engine, client, _ := newTestEngine(t, "jokes")

	served := slots("jokes", "c1")
	up := models.VoteUp
	served[0].Content.Upvotes = 3
	served[0].Content.Downvotes = 1
	served[0].Content.UserVote = &up
	client.EXPECT().DailyContent(gomock.Any(), "jokes").Return(served, nil)
	_, err := engine.Load(context.Background())
	require.NoError(t, err)

	confirmed := &models.ContentItem{ID: "c1", Upvotes: 2, Downvotes: 2}
	down := models.VoteDown
	confirmed.UserVote = &down
	client.EXPECT().Vote(gomock.Any(), "c1", models.VoteDown).Return(confirmed, nil)

	require.NoError(t, engine.Vote(context.Background(), "c1", models.VoteDown))

	items := engine.Items()
	assert.Equal(t, 2, items[0].Content.Upvotes)
	assert.Equal(t, 2, items[0].Content.Downvotes)
	assert.Equal(t, models.VoteDown, *items[0].Content.UserVote)
}

func TestVote_LockedSlotRejected(t *testing.T) {
	engine, client, _ := newTestEngine(t, "jokes")

	client.EXPECT().DailyContent(gomock.Any(), "jokes").
		Return(slots("jokes", "c1", "c2"), nil)
	_, err := engine.Load(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, engine.Vote(context.Background(), "c2", models.VoteUp), ErrLocked)
}

func TestOptimisticVote(t *testing.T) {
	up := models.VoteUp

	testCases := []struct {
		name          string
		item          models.ContentItem
		vote          models.VoteType
		wantUpvotes   int
		wantDownvotes int
	}{
		{
			name:        "Fresh upvote",
			item:        models.ContentItem{Upvotes: 3},
			vote:        models.VoteUp,
			wantUpvotes: 4,
		},
		{
			name:          "Switch up to down",
			item:          models.ContentItem{Upvotes: 3, Downvotes: 1, UserVote: &up},
			vote:          models.VoteDown,
			wantUpvotes:   2,
			wantDownvotes: 2,
		},
		{
			name:        "Repeated vote is a net no-op on counters",
			item:        models.ContentItem{Upvotes: 3, UserVote: &up},
			vote:        models.VoteUp,
			wantUpvotes: 3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			item := tc.item
			optimisticVote(&item, tc.vote)
			assert.Equal(t, tc.wantUpvotes, item.Upvotes)
			assert.Equal(t, tc.wantDownvotes, item.Downvotes)
			require.NotNil(t, item.UserVote)
			assert.Equal(t, tc.vote, *item.UserVote)
		})
	}
}

func TestInstall_DiscardsSupersededLoad(t *testing.T) {
	engine, client, _ := newTestEngine(t, "jokes")

	client.EXPECT().DailyContent(gomock.Any(), "jokes").
		Return(slots("jokes", "c1"), nil)
	_, err := engine.Load(context.Background())
	require.NoError(t, err)

	// A newer load was issued while an older one was still in flight; the
	// older completion must not overwrite the newer result.
	stale := engine.materialize(slots("jokes", "old"))
	engine.install(engine.generation-1, stale)

	items := engine.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "c1", items[0].ContentID)
}
