package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	j := NewJWT("secret", time.Hour)

	token, err := j.Sign(42)
	require.NoError(t, err)

	uid, err := j.Verify(token)
	require.NoError(t, err)
	require.EqualValues(t, 42, uid)
}

func TestJWTRejectsBadToken(t *testing.T) {
	j := NewJWT("secret", time.Hour)

	_, err := j.Verify("not-a-token")
	require.Error(t, err)

	// token signed with another secret
	token, err := NewJWT("other", time.Hour).Sign(42)
	require.NoError(t, err)
	_, err = j.Verify(token)
	require.Error(t, err)
}

func TestJWTRejectsExpired(t *testing.T) {
	j := NewJWT("secret", -time.Minute)

	token, err := j.Sign(42)
	require.NoError(t, err)
	_, err = j.Verify(token)
	require.Error(t, err)
}

func TestRequireAuth(t *testing.T) {
	j := NewJWT("secret", time.Hour)
	var gotUID uint64
	h := RequireAuth(j)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		require.True(t, ok)
		gotUID = uid
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := j.Sign(7)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 7, gotUID)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	require.NotEqual(t, "hunter2", hash)

	require.True(t, ComparePassword(hash, "hunter2"))
	require.False(t, ComparePassword(hash, "wrong"))
}
