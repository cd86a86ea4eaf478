// Package models defines the data structures shared across the client engine.
// It includes the user economy snapshot, daily content slots, check-in state,
// the points ledger, and request/response payloads for the local gateway.
package models

import "time"

// VoteType is the direction of a user's vote on a content item.
type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

// ContentType enumerates the kinds of content the service delivers.
const (
	ContentText = "text"
	ContentQuiz = "quiz"
	ContentQA   = "qa"
)

// NotificationPrefs holds the user's reminder settings.
type NotificationPrefs struct {
	Enabled bool `json:"enabled"`
	Hour    int  `json:"hour"`
}

// User is the session-owned identity and economy snapshot.
//
// Points and PointsBalance should be equal but can drift after partial
// server-side updates; the points package reconciles them. Neither field
// should be read directly for display.
type User struct {
	ID                string            `json:"id"`
	Email             string            `json:"email"`
	Username          string            `json:"username"`
	Points            int               `json:"points"`
	PointsBalance     int               `json:"pointsBalance"`
	CurrentStreak     int               `json:"currentStreak"`
	LastCheckinDate   *time.Time        `json:"lastCheckinDate,omitempty"`
	TotalCheckins     int               `json:"totalCheckins"`
	TotalPointsEarned int               `json:"totalPointsEarned"`
	NotificationPrefs NotificationPrefs `json:"notificationPrefs"`
	CreatedAt         time.Time         `json:"createdAt"`
}

// CheckinInfo is the server-reported check-in snapshot. It is refreshed on
// each screen visit and cached with a same-day validity window.
type CheckinInfo struct {
	CurrentStreak int        `json:"currentStreak"`
	LastCheckin   *time.Time `json:"lastCheckin,omitempty"`
	TotalCheckins int        `json:"totalCheckins"`
	CanCheckin    bool       `json:"canCheckin"`
	NextPoints    int        `json:"nextPoints"`
}

// CheckinResult is the server's response to a successful check-in.
type CheckinResult struct {
	PointsEarned int `json:"pointsEarned"`
	NewStreak    int `json:"newStreak"`
	TotalPoints  int `json:"totalPoints"`
}

// ContentItem is a piece of content. The server owns it; the client holds a
// locally-mutated shadow copy for optimistic vote rendering.
type ContentItem struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	ContentType string    `json:"contentType"`
	Text        string    `json:"text"`
	Upvotes     int       `json:"upvotes"`
	Downvotes   int       `json:"downvotes"`
	UserVote    *VoteType `json:"userVote,omitempty"`
	SubmittedBy string    `json:"submittedBy"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Score is the net vote count.
func (c *ContentItem) Score() int {
	return c.Upvotes - c.Downvotes
}

// DailyContentItem is a content slot in a category's day-scoped list.
// The slot at PositionInDay 0 is free and is forced unlocked client-side
// the moment the list is materialized.
type DailyContentItem struct {
	ID            string       `json:"id"`
	ContentID     string       `json:"contentId"`
	Category      string       `json:"category"`
	PositionInDay int          `json:"positionInDay"`
	Content       *ContentItem `json:"content,omitempty"`
	IsUnlocked    bool         `json:"isUnlocked"`
}

// PointsTransaction is an immutable ledger entry, append-only from the
// client's point of view.
type PointsTransaction struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      int       `json:"amount"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Transaction types.
const (
	TransactionEarned = "earned"
	TransactionSpent  = "spent"
)

// UserStats is the stats endpoint's view of the user's economy. Its balance
// can lag or lead the profile endpoint's.
type UserStats struct {
	PointsBalance     int `json:"pointsBalance"`
	CurrentStreak     int `json:"currentStreak"`
	TotalCheckins     int `json:"totalCheckins"`
	TotalPointsEarned int `json:"totalPointsEarned"`
}

// UnlockResult is the server's response to a paid unlock.
type UnlockResult struct {
	PointsSpent      int `json:"pointsSpent"`
	RemainingBalance int `json:"remainingBalance"`
}

// ContentDraft is a user submission before the server has accepted it.
type ContentDraft struct {
	Category    string `json:"category"`
	ContentType string `json:"contentType"`
	Text        string `json:"text"`
}

// LoginRequest is the gateway payload for establishing a session.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VoteRequest is the gateway payload for voting on a content item.
type VoteRequest struct {
	VoteType VoteType `json:"voteType"`
}

// ChangePasswordRequest is the gateway payload for the password change flow.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// BalanceResponse carries the reconciled display balance.
type BalanceResponse struct {
	Balance int `json:"balance"`
}

// ErrorResponse represents a generic error response payload.
type ErrorResponse struct {
	Errors string `json:"errors"`
}
