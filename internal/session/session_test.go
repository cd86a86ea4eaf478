package session

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uplift/internal/api"
	"uplift/internal/cache"
	"uplift/internal/models"
	"uplift/internal/pkg/logger"
	"uplift/internal/pkg/security"
	"uplift/internal/points"
)

func newTestSession(t *testing.T) (*Session, *points.Reconciler, cache.Store) {
	t.Helper()
	l, err := logger.CreateLogger("error")
	require.NoError(t, err)

	dir := t.TempDir()
	store, err := cache.NewSQLite(filepath.Join(dir, "cache.db"), l)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	key, err := security.LoadOrCreateKey(filepath.Join(dir, "test.key"))
	require.NoError(t, err)

	rec := points.NewReconciler(l)
	return New(store, rec, key, l), rec, store
}

func signedToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-side-secret"))
	require.NoError(t, err)
	return token
}

func TestEstablish(t *testing.T) {
	sess, rec, _ := newTestSession(t)
	token := signedToken(t, "u1", time.Now().Add(time.Hour))

	sess.Establish(token, &models.User{ID: "u1", Points: 5, PointsBalance: 5})

	assert.True(t, sess.Authenticated())
	assert.Equal(t, token, sess.Token())
	assert.Equal(t, "u1", sess.UserID())
	assert.Equal(t, 5, rec.DisplayBalance())
}

func TestRestore_RecoversPersistedCredential(t *testing.T) {
	sess, _, store := newTestSession(t)
	token := signedToken(t, "u1", time.Now().Add(time.Hour))
	sess.Establish(token, &models.User{ID: "u1"})

	// A fresh session over the same store, as after an app restart.
	l, err := logger.CreateLogger("error")
	require.NoError(t, err)
	restored := New(store, points.NewReconciler(l), sess.key, l)

	require.True(t, restored.Restore())
	assert.Equal(t, token, restored.Token())
	assert.Equal(t, "u1", restored.UserID())
}

func TestRestore_ExpiredTokenIsDiscarded(t *testing.T) {
	sess, _, store := newTestSession(t)
	token := signedToken(t, "u1", time.Now().Add(-time.Hour))
	sess.Establish(token, &models.User{ID: "u1"})

	l, err := logger.CreateLogger("error")
	require.NoError(t, err)
	restored := New(store, points.NewReconciler(l), sess.key, l)

	assert.False(t, restored.Restore())

	var sealed []byte
	assert.False(t, store.Get("session", "token", &sealed), "expired credential must be purged")
}

func TestCachedProfile_SurvivesRestart(t *testing.T) {
	sess, _, store := newTestSession(t)
	token := signedToken(t, "u1", time.Now().Add(time.Hour))
	sess.Establish(token, &models.User{ID: "u1", Points: 7, PointsBalance: 7})

	l, err := logger.CreateLogger("error")
	require.NoError(t, err)
	restored := New(store, points.NewReconciler(l), sess.key, l)
	require.True(t, restored.Restore())

	profile := restored.CachedProfile()
	require.NotNil(t, profile)
	assert.Equal(t, "u1", profile.ID)
	assert.Equal(t, 7, profile.Points)
}

func TestRestore_NothingPersisted(t *testing.T) {
	sess, _, _ := newTestSession(t)
	assert.False(t, sess.Restore())
}

func TestTeardown(t *testing.T) {
	sess, rec, store := newTestSession(t)
	sess.Establish(signedToken(t, "u1", time.Now().Add(time.Hour)), &models.User{ID: "u1", Points: 5, PointsBalance: 5})

	sess.Teardown()

	assert.False(t, sess.Authenticated())
	assert.Equal(t, "", sess.UserID())
	assert.Equal(t, 0, rec.DisplayBalance())

	var sealed []byte
	assert.False(t, store.Get("session", "token", &sealed))
	assert.Nil(t, sess.CachedProfile())
}

func TestHandleAuthError(t *testing.T) {
	sess, _, _ := newTestSession(t)
	sess.Establish(signedToken(t, "u1", time.Now().Add(time.Hour)), &models.User{ID: "u1"})

	serverErr := &api.Error{Kind: api.KindServer, Status: http.StatusInternalServerError}
	assert.Equal(t, serverErr, sess.HandleAuthError(serverErr))
	assert.True(t, sess.Authenticated(), "a server error must not end the session")

	authErr := &api.Error{Kind: api.KindAuth, Status: http.StatusUnauthorized}
	assert.Equal(t, authErr, sess.HandleAuthError(authErr))
	assert.False(t, sess.Authenticated())
}
