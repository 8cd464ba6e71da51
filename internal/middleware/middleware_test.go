package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-leave-api/internal/models"
	"github.com/noah-isme/sma-leave-api/internal/service"
	appErrors "github.com/noah-isme/sma-leave-api/pkg/errors"
)

type resolverStub map[string]*models.Session

func (r resolverStub) Resolve(ctx context.Context, token string) (*models.Session, error) {
	if s, ok := r[token]; ok {
		return s, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session has ended")
}

func newProtectedRouter(roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	sessions := resolverStub{
		"t-bob":   {ID: "s-bob", Principal: models.Principal{Username: "bob", Role: models.RoleTeacher}, CreatedAt: time.Now()},
		"t-carol": {ID: "s-carol", Principal: models.Principal{Username: "carol", Role: models.RoleAdmin}, CreatedAt: time.Now()},
	}
	r := gin.New()
	r.GET("/x", JWT(sessions), RequireRoles(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, PrincipalFrom(c).Username+":"+SessionIDFrom(c))
	})
	return r
}

func perform(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAndRequireRoles(t *testing.T) {
	r := newProtectedRouter(models.RoleAdmin)

	w := perform(r, "Bearer t-carol")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "carol:s-carol", w.Body.String())

	assert.Equal(t, http.StatusForbidden, perform(r, "Bearer t-bob").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "Token t-carol").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "Bearer t-gone").Code)
}

func TestRequireRolesWithoutJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsMiddlewareObservesRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/leave-requests/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/leave-requests/abc", nil))
	count, err := testutil.GatherAndCount(metrics.Registry(), "http_requests_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}
