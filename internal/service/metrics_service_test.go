package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-leave-api/internal/models"
	"github.com/noah-isme/sma-leave-api/internal/repository"
)

func TestMetricsServiceCountsLeaveActivity(t *testing.T) {
	metrics := NewMetricsService()
	engine := NewLeaveEngine(teacherListStub{teachers: []string{"bob"}}, repository.NewMemoryStore(), nil, WithLeaveMetrics(metrics))
	ctx := context.Background()

	req, err := engine.Submit(ctx, alice, studentDraft())
	require.NoError(t, err)
	_, err = engine.Decide(ctx, bob, req.ID, models.ActionApprove, models.StageTeacher)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.submissions.WithLabelValues("STUDENT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.decisions.WithLabelValues("TEACHER", "APPROVE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ledgerSize))

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(w.Body.String(), "leave_decisions_total"))
}

func TestMetricsServiceNilIsSafe(t *testing.T) {
	var metrics *MetricsService
	metrics.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, 0)
	metrics.RecordSubmission(models.RoleTeacher, 1)
	metrics.RecordDecision(models.StageAdmin, models.ActionReject)
	metrics.SetLedgerSize(3)
	assert.Nil(t, metrics.Registry())

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
