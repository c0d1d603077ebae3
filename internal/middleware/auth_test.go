package middleware

import (
	"bridge4er_backend/internal/config"
	"bridge4er_backend/internal/model"
	"bridge4er_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret-key-0123456789abcdef"

func newAuthRouter(t *testing.T, roles ...model.UserRole) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret

	router := gin.New()
	group := router.Group("/", AuthMiddleware(cfg))
	if len(roles) > 0 {
		group.Use(RoleMiddleware(roles...))
	}
	group.GET("/ping", func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		c.JSON(http.StatusOK, gin.H{"userId": claims.UserID})
	})
	return router
}

func issueToken(t *testing.T, role model.UserRole, expiration time.Duration) string {
	t.Helper()
	token, err := util.GenerateJWT(7, role, "user@example.com", testSecret, expiration)
	require.NoError(t, err)
	return token
}

func TestAuthMiddlewareBearerHeader(t *testing.T) {
	router := newAuthRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, model.Student, time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":7`)
}

func TestAuthMiddlewareQueryToken(t *testing.T) {
	router := newAuthRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/ping?token="+issueToken(t, model.Student, time.Hour), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddlewareRejectsMissingAndBadTokens(t *testing.T) {
	router := newAuthRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, model.Student, -time.Minute))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "expired tokens are rejected")
}

func TestRoleMiddleware(t *testing.T) {
	router := newAuthRouter(t, model.Admin)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, model.Student, time.Hour))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, model.Admin, time.Hour))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
