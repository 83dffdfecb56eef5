package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnit/learnit-api/internal/utils"
)

const testSecret = "test-secret"

func runJWT(t *testing.T, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/machines", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var captured echo.Context
	next := func(c echo.Context) error {
		captured = c
		return c.NoContent(http.StatusOK)
	}
	require.NoError(t, JWTAuth(testSecret)(next)(c))
	return rec, captured
}

func TestJWTAuth_ValidToken(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 42, "MEMBER", 5)
	require.NoError(t, err)

	rec, c := runJWT(t, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, c)
	// Numeric claims decode as float64.
	assert.EqualValues(t, 42, c.Get("user_id"))
	assert.Equal(t, "MEMBER", c.Get("role"))
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	rec, c := runJWT(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, c)
}

func TestJWTAuth_WrongSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("other-secret", 42, "MEMBER", 5)
	require.NoError(t, err)

	rec, c := runJWT(t, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, c)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	handler := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	mw := RequireRole("ADMIN")

	cases := []struct {
		name string
		role interface{}
		want int
	}{
		{"admin passes", "ADMIN", http.StatusOK},
		{"member rejected", "MEMBER", http.StatusForbidden},
		{"missing role rejected", nil, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/admin/users", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tc.role != nil {
				c.Set("role", tc.role)
			}
			require.NoError(t, mw(handler)(c))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestCurrentUserID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	assert.Equal(t, "anon", currentUserID(c))
	c.Set("user_id", float64(7)) // JWT numeric claim shape
	assert.Equal(t, "7", currentUserID(c))
	c.Set("user_id", "abc")
	assert.Equal(t, "abc", currentUserID(c))
}
