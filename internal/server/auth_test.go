package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mybooks/internal/routes"
)

const testToken = "123456:test-token"

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func newTestAuth() *InitDataAuth {
	auth := NewInitDataAuth(testToken, []int64{42})
	auth.now = func() time.Time { return testNow }
	return auth
}

// signedInitData builds initData the way Telegram does for a Mini App.
func signedInitData(auth *InitDataAuth, userJSON string, authDate time.Time) string {
	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("query_id", "AAE")
	values.Set("user", userJSON)
	values.Set("hash", auth.sign(values))
	return values.Encode()
}

func TestInitDataAuth_Validate(t *testing.T) {
	auth := newTestAuth()

	userID, err := auth.Validate(signedInitData(auth, `{"id":42,"first_name":"A"}`, testNow.Add(-time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)

	tampered, _ := url.ParseQuery(signedInitData(auth, `{"id":42}`, testNow))
	tampered.Set("user", `{"id":7}`)

	other := NewInitDataAuth("other-token", []int64{42})

	testCases := []struct {
		name     string
		initData string
	}{
		{"empty", ""},
		{"no hash", "auth_date=1&user=%7B%7D"},
		{"tampered", tampered.Encode()},
		{"signed with another token", signedInitData(other, `{"id":42}`, testNow)},
		{"too old", signedInitData(auth, `{"id":42}`, testNow.Add(-25*time.Hour))},
		{"user not allowed", signedInitData(auth, `{"id":7}`, testNow)},
		{"bad user json", signedInitData(auth, `{`, testNow)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := auth.Validate(tc.initData)
			assert.Error(t, err)
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	auth := newTestAuth()
	env := newTestEnv(t, routes.VariantStatus, WithAuth(auth))

	send := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, send(""))
	assert.Equal(t, http.StatusUnauthorized, send("Bearer x"))
	assert.Equal(t, http.StatusUnauthorized, send("tma garbage"))
	assert.Equal(t, http.StatusOK, send("tma "+signedInitData(auth, `{"id":42}`, testNow)))

	// health stays public
	rec := env.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
