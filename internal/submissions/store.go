// Package submissions guarantees that content a user submitted stays visible
// in their own views even while the server's read path has not indexed it
// yet (pending moderation, feed lag). Records live in the local cache store,
// one list per user id, and are only ever removed by explicit user action.
package submissions

import (
	"sort"
	"sync"

	"uplift/internal/cache"
	"uplift/internal/models"
	"uplift/internal/pkg/logger"
)

const cacheKind = "submissions"

// Store is the per-user durability store for submitted content.
type Store struct {
	mu    sync.Mutex
	cache cache.Store
	log   *logger.Logger
}

// NewStore creates a durability store persisted through the given cache.
func NewStore(store cache.Store, l *logger.Logger) *Store {
	return &Store{cache: store, log: l}
}

// Add upserts item into userID's persisted list, keyed by content id. New
// items go to the head; re-adding an existing id replaces it in place.
func (s *Store) Add(userID string, item models.ContentItem) {
	if userID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.load(userID)
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = item
			s.cache.Put(cacheKind, userID, items)
			return
		}
	}
	items = append([]models.ContentItem{item}, items...)
	s.cache.Put(cacheKind, userID, items)
}

// Items returns userID's persisted submissions sorted by creation time,
// newest first. Unknown users get an empty list.
func (s *Store) Items(userID string) []models.ContentItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.load(userID)
	sortByCreatedAtDesc(items)
	return items
}

// Merge combines the persisted list with server results and persists the
// outcome. Local entries seed the map; server entries with the same id
// overwrite them unconditionally, since the server is authoritative once it
// has indexed an item. The merged list is sorted newest first.
func (s *Store) Merge(userID string, serverItems []models.ContentItem) []models.ContentItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	local := s.load(userID)
	byID := make(map[string]models.ContentItem, len(local)+len(serverItems))
	for _, item := range local {
		byID[item.ID] = item
	}
	for _, item := range serverItems {
		byID[item.ID] = item
	}

	merged := make([]models.ContentItem, 0, len(byID))
	for _, item := range byID {
		merged = append(merged, item)
	}
	sortByCreatedAtDesc(merged)

	if userID != "" {
		s.cache.Put(cacheKind, userID, merged)
	}
	return merged
}

// Remove deletes one entry by content id. This is the only path that drops a
// submission; the store never expires entries on its own.
func (s *Store) Remove(userID, contentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.load(userID)
	kept := items[:0]
	for _, item := range items {
		if item.ID != contentID {
			kept = append(kept, item)
		}
	}
	s.cache.Put(cacheKind, userID, kept)
}

func (s *Store) load(userID string) []models.ContentItem {
	var items []models.ContentItem
	if userID == "" {
		return items
	}
	s.cache.Get(cacheKind, userID, &items)
	return items
}

func sortByCreatedAtDesc(items []models.ContentItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
