// Package points produces the single authoritative point balance shown across
// all screens. The backend exposes the balance through two read paths that can
// disagree or lag each other (the profile endpoint's dual points fields and
// the stats endpoint), so every display read goes through the reconciliation
// rule here instead of trusting any one field.
//
// The min/max heuristic is a compatibility shim around the backend's split
// balance fields. Once the backend serves a single authoritative field this
// package collapses to a plain accessor.
package points

import (
	"sync"

	"uplift/internal/models"
	"uplift/internal/pkg/logger"
)

// Reconciler owns the in-memory user snapshot and the last balance observed
// from the stats endpoint. All operations are local; no network failure can
// reach this type.
type Reconciler struct {
	mu         sync.Mutex
	user       *models.User
	statsFloor int
	log        *logger.Logger
}

// NewReconciler creates an empty reconciler. A user is installed on login via
// SetProfile and removed on logout via Reset.
func NewReconciler(l *logger.Logger) *Reconciler {
	return &Reconciler{log: l}
}

// SetProfile installs a fresh profile snapshot. The stats floor is left
// untouched: a profile fetch that raced a check-in may carry pre-award
// balances, and the floor is what keeps the display from regressing.
func (r *Reconciler) SetProfile(user *models.User) {
	if user == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.user = &copied
}

// User returns a copy of the current profile snapshot, or nil when logged out.
func (r *Reconciler) User() *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.user == nil {
		return nil
	}
	copied := *r.user
	return &copied
}

// DisplayBalance returns the reconciled points value:
// max(min(points, pointsBalance), stats floor). The min guards against a
// stale inflated profile field, the max against a profile read that predates
// an award the stats endpoint has already seen.
func (r *Reconciler) DisplayBalance() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.displayLocked()
}

func (r *Reconciler) displayLocked() int {
	if r.user == nil {
		return r.statsFloor
	}
	profile := r.user.PointsBalance
	if r.user.Points < profile {
		profile = r.user.Points
	}
	if r.statsFloor > profile {
		return r.statsFloor
	}
	return profile
}

// RecordStatsBalance notes a successful stats fetch. The floor only ever
// rises here; an explicit spend is the one event allowed to lower it.
func (r *Reconciler) RecordStatsBalance(value int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if value > r.statsFloor {
		r.statsFloor = value
	}
}

// ApplyCheckinAward sets both balance fields to the server-reported total
// immediately after a successful check-in, without waiting for a profile
// refetch. The refetch may hit a read replica that has not seen the award
// yet, so the floor is raised too.
func (r *Reconciler) ApplyCheckinAward(newTotal int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.user != nil {
		r.user.Points = newTotal
		r.user.PointsBalance = newTotal
	}
	if newTotal > r.statsFloor {
		r.statsFloor = newTotal
	}
}

// ApplySubmissionAward optimistically credits a submission award, assuming
// the server performs the same one. The floor is deliberately not raised:
// if the server disagrees, the next stats fetch corrects the display within
// one reconciliation cycle.
func (r *Reconciler) ApplySubmissionAward(amount int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.user == nil {
		return
	}
	r.user.Points += amount
	r.user.PointsBalance += amount
}

// ApplySpend records an explicit, client-initiated spend. This is the only
// operation permitted to lower the display balance: both fields and the
// floor are reset to the server-reported remainder.
func (r *Reconciler) ApplySpend(remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.user != nil {
		r.user.Points = remaining
		r.user.PointsBalance = remaining
	}
	r.statsFloor = remaining
}

// Reset drops all state. Called on logout.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.user = nil
	r.statsFloor = 0
}
