package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing"

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()

	issuer, err := NewIssuer(testSecret, 15*time.Minute)
	require.NoError(t, err)

	return issuer
}

var testAccount = Account{ID: "user-123", Email: "test@example.com", TokenVersion: 2}

func TestNewIssuer_RequiresSecretAndTTL(t *testing.T) {
	_, err := NewIssuer("", time.Minute)
	assert.Error(t, err)

	_, err = NewIssuer(testSecret, 0)
	assert.Error(t, err)
}

func TestGenerate_RoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)

	token, err := issuer.Generate(Account{ID: "user-123", Email: "test@example.com", IsAdmin: true, TokenVersion: 4})
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(token, ".")), "JWT should have 3 parts")

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "test@example.com", claims.Email)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, 4, claims.Version)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestValidate_ExpiredToken(t *testing.T) {
	issuer := newTestIssuer(t)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := issuer.Generate(testAccount)
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Validate(token)
	assert.Error(t, err, "expired token should be rejected")
}

func TestValidate_RejectsForgeries(t *testing.T) {
	issuer := newTestIssuer(t)

	token, err := issuer.Generate(testAccount)
	require.NoError(t, err)

	other, err := NewIssuer("different-secret-key", time.Minute)
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.Error(t, err, "token signed with different secret should be rejected")

	_, err = issuer.Validate(token[:len(token)-5] + "XXXXX")
	assert.Error(t, err, "tampered token should be rejected")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: "attacker",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType) //nolint:errcheck // test code

	_, err = issuer.Validate(unsigned)
	assert.Error(t, err, "token with 'none' algorithm should be rejected")
}

func TestValidate_MalformedTokens(t *testing.T) {
	issuer := newTestIssuer(t)

	for _, token := range []string{"", "not.a.jwt", "only.two", "<script>alert('xss')</script>"} {
		_, err := issuer.Validate(token)
		assert.Error(t, err, "malformed token %q should be rejected", token)
	}
}

type accountMap map[string]Account

func (m accountMap) Account(_ context.Context, id string) (Account, error) {
	acct, ok := m[id]
	if !ok {
		return Account{}, ErrUnknownAccount
	}

	return acct, nil
}

func protectedRouter(issuer *Issuer, accounts AccountLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/me", Middleware(issuer, accounts), func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "admin": IsAdmin(c)})
	})
	r.GET("/admin", Middleware(issuer, accounts), AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	return r
}

func serve(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware(t *testing.T) {
	issuer := newTestIssuer(t)
	token, err := issuer.Generate(testAccount)
	require.NoError(t, err)

	tests := []struct {
		name     string
		accounts accountMap
		path     string
		token    string
		status   int
	}{
		{"no header", accountMap{"user-123": testAccount}, "/me", "", http.StatusUnauthorized},
		{"valid", accountMap{"user-123": testAccount}, "/me", token, http.StatusOK},
		{"deleted account", accountMap{}, "/me", token, http.StatusUnauthorized},
		{"revoked by version bump", accountMap{"user-123": {ID: "user-123", TokenVersion: 3}}, "/me", token, http.StatusUnauthorized},
		{"blocked", accountMap{"user-123": {ID: "user-123", TokenVersion: 2, Blocked: true}}, "/me", token, http.StatusForbidden},
		{"admin route as member", accountMap{"user-123": testAccount}, "/admin", token, http.StatusForbidden},
		{"admin route as admin", accountMap{"user-123": {ID: "user-123", TokenVersion: 2, IsAdmin: true}}, "/admin", token, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(protectedRouter(issuer, tt.accounts), tt.path, tt.token)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestMiddleware_RejectsNonBearerScheme(t *testing.T) {
	issuer := newTestIssuer(t)
	r := protectedRouter(issuer, accountMap{})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
}

func TestRefreshStore_IssueReadClear(t *testing.T) {
	store, err := NewRefreshStore("session-secret", false, time.Hour)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, store.Issue(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil), testAccount))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/auth/refresh", nil)
	req.AddCookie(cookies[0])

	userID, version, err := store.Read(req)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
	assert.Equal(t, 2, version)

	_, _, err = store.Read(httptest.NewRequest(http.MethodGet, "/auth/refresh", nil))
	assert.ErrorIs(t, err, ErrNoRefresh)

	cleared := httptest.NewRecorder()
	require.NoError(t, store.Clear(cleared, req))
	require.Len(t, cleared.Result().Cookies(), 1)
	assert.Less(t, cleared.Result().Cookies()[0].MaxAge, 0)
}

func TestRefreshStore_ForeignSecretIsIgnored(t *testing.T) {
	issuing, err := NewRefreshStore("one-secret", false, time.Hour)
	require.NoError(t, err)
	reading, err := NewRefreshStore("another-secret", false, time.Hour)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, issuing.Issue(rec, httptest.NewRequest(http.MethodPost, "/", nil), testAccount))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])

	_, _, err = reading.Read(req)
	assert.ErrorIs(t, err, ErrNoRefresh)
}
