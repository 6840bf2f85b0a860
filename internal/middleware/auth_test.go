package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/or-scheduler-api/internal/models"
	"github.com/noah-isme/or-scheduler-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newGuardedRouter(t *testing.T, tokens TokenValidator, enabled bool) *gin.Engine {
	t.Helper()
	r := gin.New()
	handlers := append(Guard(enabled, tokens, models.RoleScheduler, models.RoleAdmin), func(c *gin.Context) {
		user := ""
		if claims, ok := CurrentClaims(c); ok {
			user = claims.Principal()
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	})
	r.POST("/schedule", handlers...)
	return r
}

func doRequest(r http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/schedule", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestGuardAllowsSchedulerRole(t *testing.T) {
	tokens, err := service.NewTokenService("secret", "or-identity")
	require.NoError(t, err)
	token, _, err := tokens.Issue("user-1", models.RoleScheduler, time.Hour)
	require.NoError(t, err)

	rec := doRequest(newGuardedRouter(t, tokens, true), "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":"user-1"}`, rec.Body.String())
}

func TestGuardRejections(t *testing.T) {
	tokens, err := service.NewTokenService("secret", "")
	require.NoError(t, err)
	viewer, _, err := tokens.Issue("user-2", models.RoleViewer, time.Hour)
	require.NoError(t, err)
	other, err := service.NewTokenService("other-secret", "")
	require.NoError(t, err)
	forged, _, err := other.Issue("user-3", models.RoleAdmin, time.Hour)
	require.NoError(t, err)

	r := newGuardedRouter(t, tokens, true)
	cases := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad signature", "Bearer " + forged, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"viewer role", "Bearer " + viewer, http.StatusForbidden, "FORBIDDEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(r, tc.header)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, errorCode(t, rec))
		})
	}
}

func TestGuardDisabled(t *testing.T) {
	rec := doRequest(newGuardedRouter(t, nil, false), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":""}`, rec.Body.String())
}

func TestOptionalJWT(t *testing.T) {
	tokens, err := service.NewTokenService("secret", "")
	require.NoError(t, err)
	token, _, err := tokens.Issue("user-4", models.RoleAdmin, time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/whoami", OptionalJWT(tokens), func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, claims.Principal())
	})

	for header, want := range map[string]string{"": "anonymous", "Bearer junk": "anonymous", "Bearer " + token: "user-4"} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Body.String())
	}
}

type observedRequest struct {
	method, path string
	status       int
}

type requestRecorder struct {
	seen []observedRequest
}

func (r *requestRecorder) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	r.seen = append(r.seen, observedRequest{method, path, status})
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	obs := &requestRecorder{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/schedules/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/schedules/abc", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	require.Len(t, obs.seen, 2)
	assert.Equal(t, observedRequest{"GET", "/schedules/:id", http.StatusNoContent}, obs.seen[0])
	assert.Equal(t, observedRequest{"GET", "unmatched", http.StatusNotFound}, obs.seen[1])
}
