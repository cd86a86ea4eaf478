// Package session owns the authenticated session lifecycle: the bearer
// token, its sealed persistence across restarts, and the teardown that an
// auth rejection anywhere in the engine must trigger.
package session

import (
	"sync"
	"time"

	"uplift/internal/api"
	"uplift/internal/cache"
	"uplift/internal/models"
	"uplift/internal/pkg/logger"
	"uplift/internal/pkg/security"
	"uplift/internal/points"

	"github.com/golang-jwt/jwt/v4"
)

const (
	cacheKind    = "session"
	tokenScope   = "token"
	profileScope = "profile"
)

// Session holds the current credential. It never validates the token's
// signature (only the server can); it reads the claims unverified, purely to
// learn the user id and expiry.
type Session struct {
	mu     sync.Mutex
	store  cache.Store
	points *points.Reconciler
	key    *[32]byte
	log    *logger.Logger

	token  string
	userID string
}

// New creates an unauthenticated session. key seals the token at rest.
func New(store cache.Store, rec *points.Reconciler, key *[32]byte, l *logger.Logger) *Session {
	return &Session{store: store, points: rec, key: key, log: l}
}

// Token returns the current bearer token, or "" when unauthenticated. It is
// the api.TokenSource for the HTTP client.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// UserID returns the authenticated user's id, or "".
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Authenticated reports whether a session is established.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Establish installs a fresh credential and profile after a successful
// login. The token is sealed and persisted so the session survives a
// restart.
func (s *Session) Establish(token string, user *models.User) {
	s.mu.Lock()
	s.token = token
	s.userID = user.ID
	if id := subjectOf(token); id != "" {
		s.userID = id
	}
	s.mu.Unlock()

	s.points.SetProfile(user)
	s.SaveProfile(user)

	sealed, err := security.Seal(s.key, []byte(token))
	if err != nil {
		s.log.Sugar().Warnf("Failed to seal session credential: %s", err)
		return
	}
	s.store.Put(cacheKind, tokenScope, sealed)
}

// SaveProfile persists the profile snapshot so a restored session can render
// a balance before the first successful refetch.
func (s *Session) SaveProfile(user *models.User) {
	s.store.Put(cacheKind, profileScope, user)
}

// CachedProfile returns the persisted profile snapshot, or nil.
func (s *Session) CachedProfile() *models.User {
	var user models.User
	if !s.store.Get(cacheKind, profileScope, &user) {
		return nil
	}
	return &user
}

// Restore re-establishes the previous session from the sealed credential, if
// one exists and its token has not expired. The profile itself is refetched
// by the caller; Restore only recovers the credential.
func (s *Session) Restore() bool {
	var sealed []byte
	if !s.store.Get(cacheKind, tokenScope, &sealed) {
		return false
	}

	raw, err := security.Open(s.key, sealed)
	if err != nil {
		s.log.Sugar().Warnf("Discarding unreadable session credential: %s", err)
		s.store.Delete(cacheKind, tokenScope)
		return false
	}

	token := string(raw)
	if expired(token) {
		s.store.Delete(cacheKind, tokenScope)
		return false
	}

	s.mu.Lock()
	s.token = token
	s.userID = subjectOf(token)
	s.mu.Unlock()
	return true
}

// Teardown clears the credential and all session-owned state. It runs on
// explicit logout and on any AuthRequired error.
func (s *Session) Teardown() {
	s.mu.Lock()
	s.token = ""
	s.userID = ""
	s.mu.Unlock()

	s.store.Delete(cacheKind, tokenScope)
	s.store.Delete(cacheKind, profileScope)
	s.points.Reset()
}

// HandleAuthError tears the session down when err is an auth rejection and
// passes the error through either way. Call it on every engine error path
// that touched the network.
func (s *Session) HandleAuthError(err error) error {
	if api.IsAuth(err) {
		s.log.Sugar().Warnf("Auth rejected, tearing down session")
		s.Teardown()
	}
	return err
}

// subjectOf reads the subject claim without verifying the signature.
func subjectOf(token string) string {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	return claims.Subject
}

// expired reports whether the token carries an exp claim in the past. Tokens
// without a readable exp are treated as live; the server will reject them if
// not.
func expired(token string) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(time.Now())
}
