package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-leave-api/internal/middleware"
	"github.com/noah-isme/sma-leave-api/internal/models"
	"github.com/noah-isme/sma-leave-api/internal/repository"
	"github.com/noah-isme/sma-leave-api/internal/service"
)

type flowEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type flowView struct {
	ID                    string  `json:"id"`
	Status                string  `json:"status"`
	NumberOfDays          int     `json:"numberOfDays"`
	TeacherApprovalTarget *string `json:"teacherApprovalTarget"`
	TeacherApproved       bool    `json:"teacherApproved"`
	AdminApproved         bool    `json:"adminApproved"`
}

func buildLeaveRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	store := repository.NewMemoryStore()

	directory := service.NewDirectoryService(store, nil, logger, service.WithPasswordCost(bcrypt.MinCost))
	_, err := directory.EnsureUser(context.Background(), "carol", "admin-pw", models.RoleAdmin)
	require.NoError(t, err)
	sessions := service.NewSessionService(directory, store, nil, logger, service.SessionConfig{Secret: "secret", Issuer: "test"})
	engine := service.NewLeaveEngine(directory, store, logger)

	router := gin.New()
	Routes{
		Auth:         NewAuthHandler(directory, sessions),
		Directory:    NewDirectoryHandler(directory),
		Leave:        NewLeaveHandler(engine, service.NewLeaveExportService(engine, logger, nil, nil)),
		Authenticate: middleware.JWT(sessions),
	}.Register(router.Group("/api/v1"))
	return router
}

func call(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, flowEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env flowEnvelope
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func registerAndLogin(t *testing.T, router *gin.Engine, username, role string) string {
	t.Helper()
	if role != "" {
		rec, _ := call(t, router, http.MethodPost, "/auth/register", "", map[string]string{"username": username, "password": "pw-" + username, "role": role})
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	password := "pw-" + username
	if role == "" {
		password = "admin-pw"
	}
	rec, env := call(t, router, http.MethodPost, "/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, rec.Code)
	var login models.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &login))
	return login.AccessToken
}

func decodeView(t *testing.T, env flowEnvelope) flowView {
	t.Helper()
	var view flowView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	return view
}

func TestLeaveFlowIntegration(t *testing.T) {
	router := buildLeaveRouter(t)
	aliceToken := registerAndLogin(t, router, "alice", "student")
	bobToken := registerAndLogin(t, router, "bob", "teacher")
	daveToken := registerAndLogin(t, router, "dave", "teacher")
	carolToken := registerAndLogin(t, router, "carol", "")

	rec, env := call(t, router, http.MethodGet, "/teachers", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `["bob","dave"]`, string(env.Data))

	rec, env = call(t, router, http.MethodPost, "/leave-requests", aliceToken, map[string]string{
		"reason": "sick", "startDate": "2024-03-01", "endDate": "2024-03-03", "teacher": "bob",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeView(t, env)
	require.Equal(t, 3, created.NumberOfDays)
	require.Equal(t, "Pending", created.Status)
	require.NotNil(t, created.TeacherApprovalTarget)
	require.Equal(t, "bob", *created.TeacherApprovalTarget)

	rec, _ = call(t, router, http.MethodPost, "/leave-requests", carolToken, map[string]string{"reason": "sick"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = call(t, router, http.MethodPost, "/leave-requests", aliceToken, map[string]string{
		"reason": "sick", "startDate": "2024-03-03", "endDate": "2024-03-01", "teacher": "bob",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	decision := "/leave-requests/" + created.ID + "/decision"
	rec, _ = call(t, router, http.MethodPost, decision, daveToken, map[string]string{"stage": "teacher", "action": "approve"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = call(t, router, http.MethodPost, decision, aliceToken, map[string]string{"stage": "teacher", "action": "approve"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = call(t, router, http.MethodPost, decision, bobToken, map[string]string{"stage": "teacher", "action": "approve"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Approved by Teacher", decodeView(t, env).Status)

	rec, env = call(t, router, http.MethodGet, "/leave-requests/pending/admin", carolToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(1), env.Meta["count"])

	rec, env = call(t, router, http.MethodPost, decision, carolToken, map[string]string{"stage": "admin", "action": "approve"})
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeView(t, env)
	require.Equal(t, "Approved by Admin", view.Status)
	require.True(t, view.AdminApproved)

	rec, env = call(t, router, http.MethodPost, decision, bobToken, map[string]string{"stage": "teacher", "action": "reject"})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeView(t, env)
	require.Equal(t, "Rejected by Teacher", view.Status)
	require.False(t, view.AdminApproved)

	rec, _ = call(t, router, http.MethodPost, decision, carolToken, map[string]string{"stage": "admin", "action": "approve"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = call(t, router, http.MethodPost, "/leave-requests/missing/decision", carolToken, map[string]string{"stage": "admin", "action": "approve"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = call(t, router, http.MethodPost, decision, carolToken, map[string]string{"stage": "admin", "action": "maybe"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = call(t, router, http.MethodGet, "/leave-requests/mine", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(1), env.Meta["count"])

	rec, _ = call(t, router, http.MethodGet, "/leave-requests/"+created.ID, daveToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = call(t, router, http.MethodGet, "/leave-requests", bobToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = call(t, router, http.MethodGet, "/leave-requests?status=rejected+by+teacher", carolToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(1), env.Meta["count"])

	rec, _ = call(t, router, http.MethodGet, "/leave-requests/export?format=csv", carolToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Rejected by Teacher")

	rec, _ = call(t, router, http.MethodPost, "/auth/logout", aliceToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = call(t, router, http.MethodGet, "/auth/me", aliceToken, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	router := buildLeaveRouter(t)
	rec, env := call(t, router, http.MethodPost, "/auth/register", "", map[string]string{"username": "mallory", "password": "pw", "role": "admin"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "FORBIDDEN", env.Error.Code)

	rec, _ = call(t, router, http.MethodPost, "/auth/login", "", map[string]string{"username": "carol", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
