package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/intern-tracker-api/internal/models"
	"github.com/noah-isme/intern-tracker-api/internal/service"
	appErrors "github.com/noah-isme/intern-tracker-api/pkg/errors"
	"github.com/noah-isme/intern-tracker-api/pkg/middleware/requestid"
)

type fakeValidator struct {
	claims *models.JWTClaims
	err    error
	seen   string
}

func (f *fakeValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	f.seen = token
	return f.claims, f.err
}

type fakeAuditWriter struct {
	logs []*models.AuditLog
}

func (f *fakeAuditWriter) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	f.logs = append(f.logs, log)
	return nil
}

func withRole(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if role != "" {
			c.Set(ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: role})
		}
		c.Next()
	}
}

func serve(router *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequireCapability(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		role   models.UserRole
		cap    models.Capability
		status int
	}{
		{"anonymous", "", models.CapRead, http.StatusUnauthorized},
		{"leader reads", models.RoleLeader, models.CapRead, http.StatusNoContent},
		{"leader manages students", models.RoleLeader, models.CapManageStudents, http.StatusNoContent},
		{"leader cannot manage schools", models.RoleLeader, models.CapManageSchools, http.StatusForbidden},
		{"hr admin cannot manage users", models.RoleHRAdmin, models.CapManageUsers, http.StatusForbidden},
		{"superuser manages users", models.RoleSuperuser, models.CapManageUsers, http.StatusNoContent},
		{"unknown role", models.UserRole("guest"), models.CapRead, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.Use(withRole(tc.role))
			router.GET("/", RequireCapability(tc.cap), func(c *gin.Context) { c.Status(http.StatusNoContent) })

			rec := serve(router, http.MethodGet, "/", nil)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(withRole(models.RoleSupervisor))
	router.GET("/su", RequireRoles(models.RoleSuperuser), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/any", RequireRoles(models.RoleSuperuser, models.RoleSupervisor), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/su", nil).Code)
	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodGet, "/any", nil).Code)
}

func TestJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("missing header", func(t *testing.T) {
		router := gin.New()
		router.GET("/", JWT(&fakeValidator{}), func(c *gin.Context) { c.Status(http.StatusNoContent) })
		assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/", nil).Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		router := gin.New()
		router.GET("/", JWT(&fakeValidator{}), func(c *gin.Context) { c.Status(http.StatusNoContent) })
		rec := serve(router, http.MethodGet, "/", http.Header{"Authorization": {"Token abc"}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid authorization header")
	})

	t.Run("rejected token", func(t *testing.T) {
		router := gin.New()
		validator := &fakeValidator{err: appErrors.Clone(appErrors.ErrUnauthorized, "token expired")}
		router.GET("/", JWT(validator), func(c *gin.Context) { c.Status(http.StatusNoContent) })
		rec := serve(router, http.MethodGet, "/", http.Header{"Authorization": {"Bearer abc"}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "abc", validator.seen)
	})

	t.Run("valid token stores claims", func(t *testing.T) {
		router := gin.New()
		validator := &fakeValidator{claims: &models.JWTClaims{UserID: "user-9", Role: models.RoleHRAdmin}}
		var seen *models.JWTClaims
		router.GET("/", JWT(validator), func(c *gin.Context) {
			value, _ := c.Get(ContextUserKey)
			seen = value.(*models.JWTClaims)
			c.Status(http.StatusNoContent)
		})
		rec := serve(router, http.MethodGet, "/", http.Header{"Authorization": {"bearer xyz"}})
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "user-9", seen.UserID)
	})
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	writer := &fakeAuditWriter{}
	router := gin.New()
	router.Use(withRole(models.RoleLeader))
	router.GET("/students/export", Audit(writer, models.AuditActionStudentExport, "students"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/students/fail", Audit(writer, models.AuditActionStudentExport, "students"), func(c *gin.Context) {
		c.Status(http.StatusUnprocessableEntity)
	})

	serve(router, http.MethodGet, "/students/export?format=csv", nil)
	serve(router, http.MethodGet, "/students/fail", nil)

	require.Len(t, writer.logs, 1)
	log := writer.logs[0]
	assert.Equal(t, models.AuditActionStudentExport, log.Action)
	assert.Equal(t, "students", log.Resource)
	require.NotNil(t, log.UserID)
	assert.Equal(t, "user-1", *log.UserID)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(log.NewValues, &body))
	assert.Equal(t, "format=csv", body["query"])
	assert.Equal(t, float64(http.StatusOK), body["status"])
}

func TestResponseMetaCarriesCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(requestid.Middleware())
	router.Use(WithResponseMeta())
	var meta map[string]interface{}
	router.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusNoContent)
	})

	rec := serve(router, http.MethodGet, "/", http.Header{"X-Request-Id": {"req-42"}})

	require.NotNil(t, meta)
	assert.Equal(t, true, meta["cache_hit"])
	assert.Equal(t, "req-42", meta["request_id"])
	assert.Contains(t, meta, "processing_time_ms")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
}

func TestExtractMetaWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, ExtractMeta(c))

	SetCacheHit(c, false)
	assert.Equal(t, map[string]interface{}{"cache_hit": false}, ExtractMeta(c))
}

func TestMetricsSkipsProbes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics, "/health"))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/students/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, http.MethodGet, "/health", nil)
	serve(router, http.MethodGet, "/students/1", nil)
	serve(router, http.MethodGet, "/nowhere", nil)

	assert.Equal(t, uint64(2), metrics.Snapshot().RequestsTotal)
}
