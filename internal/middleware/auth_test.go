package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginCookie(t *testing.T, userID int64, secret string) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	require.NoError(t, SetLoginCookie(rr, userID, secret))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func signed(t *testing.T, method jwt.SigningMethod, claims Claims, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

// echoUser отвечает user_id из контекста или "-" для анонимного запроса.
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	uid, ok := GetUserIDFromContext(r.Context())
	if !ok {
		_, _ = w.Write([]byte("-"))
		return
	}
	_, _ = w.Write([]byte(strconv.FormatInt(uid, 10)))
})

func TestWithAuth(t *testing.T) {
	const secret = "warehouse-secret"
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name   string
		cookie func(t *testing.T) *http.Cookie
		want   string
	}{
		{name: "no cookie", cookie: func(*testing.T) *http.Cookie { return nil }, want: "-"},
		{name: "valid cookie", cookie: func(t *testing.T) *http.Cookie { return loginCookie(t, 77, secret) }, want: "77"},
		{name: "foreign secret", cookie: func(t *testing.T) *http.Cookie { return loginCookie(t, 77, "other") }, want: "-"},
		{name: "empty value", cookie: func(*testing.T) *http.Cookie { return &http.Cookie{Name: CookieName} }, want: "-"},
		{name: "garbage", cookie: func(*testing.T) *http.Cookie { return &http.Cookie{Name: CookieName, Value: "not.a.jwt"} }, want: "-"},
		{
			name: "expired",
			cookie: func(t *testing.T) *http.Cookie {
				tok := signed(t, jwt.SigningMethodHS256, Claims{
					RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(past)},
					UserID:           77,
				}, []byte(secret))
				return &http.Cookie{Name: CookieName, Value: tok}
			},
			want: "-",
		},
		{
			name: "zero user id",
			cookie: func(t *testing.T) *http.Cookie {
				tok := signed(t, jwt.SigningMethodHS256, Claims{}, []byte(secret))
				return &http.Cookie{Name: CookieName, Value: tok}
			},
			want: "-",
		},
		{
			name: "other hmac method rejected",
			cookie: func(t *testing.T) *http.Cookie {
				tok := signed(t, jwt.SigningMethodHS512, Claims{UserID: 77}, []byte(secret))
				return &http.Cookie{Name: CookieName, Value: tok}
			},
			want: "-",
		},
	}

	h := WithAuth(secret)(echoUser)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
			if c := tt.cookie(t); c != nil {
				req.AddCookie(c)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.want, rr.Body.String())
		})
	}
}

func TestSetLoginCookie_Attributes(t *testing.T) {
	c := loginCookie(t, 9, "k")
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, "/", c.Path)
	assert.WithinDuration(t, time.Now().Add(tokenTTL), c.Expires, time.Minute)

	uid, err := ParseJWT(c.Value, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(9), uid)

	_, err = ParseJWT(c.Value, "not-k")
	assert.Error(t, err)
}

func TestRequireAuth(t *testing.T) {
	const secret = "s"
	h := WithAuth(secret)(RequireAuth(echoUser))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/items", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.AddCookie(loginCookie(t, 3, secret))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "3", rr.Body.String())
}
