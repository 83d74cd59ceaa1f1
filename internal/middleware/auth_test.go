package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz_portal_backend/internal/config"
	"quiz_portal_backend/internal/model"
	"quiz_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret-test-secret-test-secret"
	cfg.JWT.ExpireTime = time.Hour
	return cfg
}

func studentToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	user := &model.User{Name: "Ada", Email: "ada@test.dev", Role: model.Student}
	user.ID = 42
	token, err := util.GenerateJWT(user, cfg.JWT.Secret, cfg.JWT.ExpireTime)
	require.NoError(t, err)
	return token
}

func doRequest(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func claimsEcho(c *gin.Context) {
	if claims := util.GetUserFromContext(c); claims != nil {
		c.JSON(http.StatusOK, gin.H{"userId": claims.UserID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": 0})
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()

	router := gin.New()
	router.GET("/probe", AuthMiddleware(cfg), claimsEcho)

	rec := doRequest(router, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(router, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTryAuthMiddlewareAllowsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()

	router := gin.New()
	router.GET("/probe", TryAuthMiddleware(cfg), claimsEcho)

	rec := doRequest(router, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"userId":0`)

	// A garbage token degrades to anonymous instead of failing the request.
	rec = doRequest(router, "garbage")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"userId":0`)
}

func TestTryAuthMiddlewareAttachesClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()

	router := gin.New()
	router.GET("/probe", TryAuthMiddleware(cfg), claimsEcho)

	rec := doRequest(router, studentToken(t, cfg))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"userId":42`)
}

func TestRoleMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()

	router := gin.New()
	router.GET("/probe", AuthMiddleware(cfg), RoleMiddleware(model.Teacher), claimsEcho)

	rec := doRequest(router, studentToken(t, cfg))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := &model.User{Name: "Root", Email: "root@test.dev", Role: model.Admin}
	admin.ID = 1
	adminToken, err := util.GenerateJWT(admin, cfg.JWT.Secret, cfg.JWT.ExpireTime)
	require.NoError(t, err)

	rec = doRequest(router, adminToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}
