package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/videotube/internal/apperr"
	"github.com/yourusername/videotube/internal/user"
)

type failingStore struct {
	user.Store
	setErr error
}

func (s *failingStore) SetRefreshToken(ctx context.Context, id, token string) (*user.User, error) {
	return nil, s.setErr
}

func testOptions() Options {
	return Options{
		AccessSecret:  []byte("access-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshSecret: []byte("refresh-secret"),
		RefreshTTL:    24 * time.Hour,
	}
}

func seedUser(t *testing.T, store user.Store) *user.User {
	t.Helper()
	u, err := store.Create(context.Background(), user.NewUser{
		Username: "alice",
		Email:    "a@x.com",
		FullName: "Alice A",
		Password: "p1",
		Avatar:   "http://a",
	})
	require.NoError(t, err)
	return u
}

func TestIssuePersistsRefreshToken(t *testing.T) {
	store := user.NewMemoryStore()
	u := seedUser(t, store)
	issuer := NewIssuer(store, testOptions())

	pair, err := issuer.Issue(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	stored, err := store.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshToken, stored.RefreshToken)

	claims, err := issuer.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID())
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "Alice A", claims.FullName)
}

func TestIssueOverwritesPreviousRefreshToken(t *testing.T) {
	store := user.NewMemoryStore()
	u := seedUser(t, store)
	issuer := NewIssuer(store, testOptions())

	first, err := issuer.Issue(context.Background(), u.ID)
	require.NoError(t, err)
	second, err := issuer.Issue(context.Background(), u.ID)
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	stored, err := store.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, second.RefreshToken, stored.RefreshToken)
}

func TestIssueUnknownUserIsInternal(t *testing.T) {
	issuer := NewIssuer(user.NewMemoryStore(), testOptions())

	_, err := issuer.Issue(context.Background(), "missing")
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindInternal, appErr.Kind)
	assert.Equal(t, GenerationFailedMessage, appErr.Message)
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestIssuePersistFailureIsInternal(t *testing.T) {
	mem := user.NewMemoryStore()
	u := seedUser(t, mem)
	cause := errors.New("write failed")
	issuer := NewIssuer(&failingStore{Store: mem, setErr: cause}, testOptions())

	_, err := issuer.Issue(context.Background(), u.ID)

	assert.True(t, apperr.IsKind(err, apperr.KindInternal))
	assert.ErrorIs(t, err, cause)

	stored, err := mem.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.RefreshToken)
}

func TestParseAccessTokenExpired(t *testing.T) {
	store := user.NewMemoryStore()
	u := seedUser(t, store)
	issuer := NewIssuer(store, testOptions())
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	pair, err := issuer.Issue(context.Background(), u.ID)
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.ParseAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseAccessTokenRejectsForeignTokens(t *testing.T) {
	store := user.NewMemoryStore()
	u := seedUser(t, store)
	issuer := NewIssuer(store, testOptions())

	pair, err := issuer.Issue(context.Background(), u.ID)
	require.NoError(t, err)

	_, err = issuer.ParseAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewIssuer(store, Options{AccessSecret: []byte("other"), AccessTTL: time.Minute})
	_, err = other.ParseAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.ParseAccessToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
