package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAPIKeyAuth(t *testing.T) {
	a := NewAPIKeyAuth([]string{"k1", ""})

	assert.True(t, a.Enabled())
	assert.True(t, a.IsValidKey("k1"))
	assert.False(t, a.IsValidKey(""))

	a.AddKey("k2")
	a.RemoveKey("k1")
	assert.False(t, a.IsValidKey("k1"))
	assert.True(t, a.IsValidKey("k2"))
}

func TestAPIKeyAuth_Middleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name string
		keys []string
		key  string
		want int
	}{
		{"open without keys", nil, "", http.StatusOK},
		{"valid key", []string{"k1"}, "k1", http.StatusOK},
		{"missing key", []string{"k1"}, "", http.StatusUnauthorized},
		{"wrong key", []string{"k1"}, "k2", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAPIKeyAuth(tt.keys).Middleware(zap.NewNop())(ok)

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.key != "" {
				req.Header.Set("X-Api-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestIdentityResolver_Token(t *testing.T) {
	r := NewIdentityResolver("s3cret", false)
	now := time.Now()

	token, err := r.Issue("alice@example.com", time.Hour, now)
	require.NoError(t, err)

	identity, err := r.Resolve(httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", identity)
}

func TestIdentityResolver_SubjectFallback(t *testing.T) {
	r := NewIdentityResolver("s3cret", false)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "player-7"}).
		SignedString([]byte("s3cret"))
	require.NoError(t, err)

	identity, err := r.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "player-7", identity)
}

func TestIdentityResolver_RejectsBadTokens(t *testing.T) {
	r := NewIdentityResolver("s3cret", true)
	now := time.Now()

	expired, err := r.Issue("alice", time.Minute, now.Add(-time.Hour))
	require.NoError(t, err)

	forged, err := NewIdentityResolver("other", false).Issue("alice", time.Hour, now)
	require.NoError(t, err)

	anonymous, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":     expired,
		"forged":      forged,
		"no identity": anonymous,
		"garbage":     "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := r.Resolve(httptest.NewRequest(http.MethodGet, "/ws?email=alice&token="+token, nil))
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestIdentityResolver_QueryIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws?email=bob@example.com", nil)

	identity, err := NewIdentityResolver("", true).Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", identity)

	identity, err = NewIdentityResolver("", false).Resolve(req)
	require.NoError(t, err)
	assert.Empty(t, identity)
}
