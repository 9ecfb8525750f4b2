package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"churchpay/internal/pkg/logger"
)

func withClaims(role, churchID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if role != "" {
			c.Set(CtxRole, role)
		}
		c.Set(CtxChurchID, churchID)
		c.Next()
	}
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		role string
		want int
	}{
		{RolePlatformAdmin, http.StatusOK},
		{RoleChurchAdmin, http.StatusForbidden},
		{"", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		r := gin.New()
		r.GET("/admin", withClaims(tc.role, ""), PlatformAdminOnly(), func(c *gin.Context) { c.Status(http.StatusOK) })

		assert.Equal(t, tc.want, serve(r, http.MethodGet, "/admin").Code, tc.role)
	}
}

func TestRequireChurchAccess(t *testing.T) {
	cases := []struct {
		role, churchID, path string
		want                 int
	}{
		{RolePlatformAdmin, "", "/churches/church-1", http.StatusOK},
		{RoleChurchAdmin, "church-1", "/churches/church-1", http.StatusOK},
		{RoleChurchAdmin, "church-1", "/churches/church-2", http.StatusForbidden},
		{RoleChurchAdmin, "", "/churches/church-2", http.StatusForbidden},
		{"donor", "church-1", "/churches/church-1", http.StatusForbidden},
	}
	for _, tc := range cases {
		r := gin.New()
		r.GET("/churches/:church_id", withClaims(tc.role, tc.churchID), RequireChurchAccess("church_id"), func(c *gin.Context) { c.Status(http.StatusOK) })

		assert.Equal(t, tc.want, serve(r, http.MethodGet, tc.path).Code, "%s %s %s", tc.role, tc.churchID, tc.path)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://give.example.org"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://give.example.org")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://give.example.org", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.org")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxRequestID)) })

	w := serve(r, http.MethodGet, "/x")
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	assert.Equal(t, w.Header().Get(HeaderRequestID), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestErrorLogger_RecoversPanic(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(RequestID(), ErrorLogger(logger.FromZap(zap.New(core))))
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")

	serve(r, http.MethodGet, "/fail")
	serve(r, http.MethodGet, "/ok")

	entries := logs.FilterMessage("request_error").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "panic", entries[0].ContextMap()["type"])
	assert.Equal(t, "kaboom", entries[0].ContextMap()["error"])
	assert.Equal(t, "/fail", entries[1].ContextMap()["path"])
}
