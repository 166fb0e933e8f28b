package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuer(t *testing.T, now time.Time) *Issuer {
	t.Helper()
	i, err := NewIssuer("s3cret", time.Hour)
	require.NoError(t, err)
	i.now = func() time.Time { return now }
	return i
}

func TestIssueAndParse(t *testing.T) {
	now := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	i := issuer(t, now)

	tok, err := i.Issue("u1")
	require.NoError(t, err)
	sub, err := i.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", sub)

	i.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = i.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	now := time.Now()
	i := issuer(t, now)

	other, err := NewIssuer("other", time.Hour)
	require.NoError(t, err)
	tok, err := other.Issue("u1")
	require.NoError(t, err)
	_, err = i.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = i.Parse(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewIssuer("", time.Hour)
	assert.ErrorIs(t, err, ErrNoSecret)
	_, err = i.Issue(" ")
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	i := issuer(t, time.Now())
	tok, err := i.Issue("u42")
	require.NoError(t, err)

	h := i.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserID(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(id))
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/plan", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u42", rec.Body.String())

	for _, header := range []string{"", "Basic abc", "Bearer ", "Bearer garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/plan", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Contains(t, rec.Body.String(), `"error"`)
	}
}
