package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-leave-api/internal/dto"
	"github.com/noah-isme/sma-leave-api/internal/middleware"
	"github.com/noah-isme/sma-leave-api/internal/models"
	"github.com/noah-isme/sma-leave-api/internal/service"
	appErrors "github.com/noah-isme/sma-leave-api/pkg/errors"
	"github.com/noah-isme/sma-leave-api/pkg/response"
)

type leaveEngine interface {
	Submit(ctx context.Context, principal *models.Principal, req dto.SubmitLeaveRequest) (*models.LeaveRequest, error)
	Decide(ctx context.Context, actor *models.Principal, id string, action models.Action, stage models.Stage) (*models.LeaveRequest, error)
	MyRequests(username string) []models.LeaveRequest
	PendingForTeacher(teacher string) []models.LeaveRequest
	PendingForAdmin() []models.LeaveRequest
	All(actor *models.Principal) ([]models.LeaveRequest, error)
	Get(actor *models.Principal, id string) (*models.LeaveRequest, error)
	Summary(actor *models.Principal) (*dto.LeaveSummary, error)
}

type ledgerExporter interface {
	Export(actor *models.Principal, format dto.ExportFormat) (*service.ExportFile, error)
}

// LeaveHandler wires the leave engine to HTTP endpoints.
type LeaveHandler struct {
	engine   leaveEngine
	exporter ledgerExporter
}

// NewLeaveHandler constructs the handler.
func NewLeaveHandler(engine leaveEngine, exporter ledgerExporter) *LeaveHandler {
	return &LeaveHandler{engine: engine, exporter: exporter}
}

// Submit godoc
// @Summary Submit leave request
// @Description Students must name a registered teacher; teacher requests go straight to admin review
// @Tags Leave Requests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.SubmitLeaveRequest true "Leave draft"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /leave-requests [post]
func (h *LeaveHandler) Submit(c *gin.Context) {
	var req dto.SubmitLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid leave payload"))
		return
	}

	created, err := h.engine.Submit(c.Request.Context(), middleware.PrincipalFrom(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewLeaveRequestView(created))
}

// Decide godoc
// @Summary Decide a stage
// @Description Approve or reject the teacher or admin stage of a request
// @Tags Leave Requests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Leave request ID"
// @Param payload body dto.DecideLeaveRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /leave-requests/{id}/decision [post]
func (h *LeaveHandler) Decide(c *gin.Context) {
	var req dto.DecideLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}
	action, err := models.ParseAction(req.Action)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "action must be approve or reject"))
		return
	}
	stage, err := models.ParseStage(req.Stage)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "stage must be teacher or admin"))
		return
	}

	updated, err := h.engine.Decide(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"), action, stage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewLeaveRequestView(updated))
}

// Mine godoc
// @Summary List my requests
// @Tags Leave Requests
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leave-requests/mine [get]
func (h *LeaveHandler) Mine(c *gin.Context) {
	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	h.list(c, h.engine.MyRequests(principal.Username))
}

// PendingTeacher godoc
// @Summary Requests awaiting my teacher decision
// @Tags Leave Requests
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leave-requests/pending/teacher [get]
func (h *LeaveHandler) PendingTeacher(c *gin.Context) {
	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	h.list(c, h.engine.PendingForTeacher(principal.Username))
}

// PendingAdmin godoc
// @Summary Requests awaiting admin decision
// @Tags Leave Requests
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leave-requests/pending/admin [get]
func (h *LeaveHandler) PendingAdmin(c *gin.Context) {
	h.list(c, h.engine.PendingForAdmin())
}

// All godoc
// @Summary List every request
// @Tags Leave Requests
// @Security BearerAuth
// @Produce json
// @Param status query string false "Filter by status label"
// @Success 200 {object} response.Envelope
// @Router /leave-requests [get]
func (h *LeaveHandler) All(c *gin.Context) {
	requests, err := h.engine.All(middleware.PrincipalFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		filtered := requests[:0]
		for _, r := range requests {
			if strings.EqualFold(string(r.Status), status) {
				filtered = append(filtered, r)
			}
		}
		requests = filtered
	}
	h.list(c, requests)
}

// Get godoc
// @Summary Get leave request
// @Tags Leave Requests
// @Security BearerAuth
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /leave-requests/{id} [get]
func (h *LeaveHandler) Get(c *gin.Context) {
	request, err := h.engine.Get(middleware.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewLeaveRequestView(request))
}

// Summary godoc
// @Summary Dashboard counters
// @Tags Leave Requests
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leave-requests/summary [get]
func (h *LeaveHandler) Summary(c *gin.Context) {
	summary, err := h.engine.Summary(middleware.PrincipalFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// Export godoc
// @Summary Export the ledger
// @Tags Leave Requests
// @Security BearerAuth
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /leave-requests/export [get]
func (h *LeaveHandler) Export(c *gin.Context) {
	file, err := h.exporter.Export(middleware.PrincipalFrom(c), dto.ExportFormat(c.DefaultQuery("format", string(dto.ExportFormatCSV))))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

func (h *LeaveHandler) list(c *gin.Context, requests []models.LeaveRequest) {
	response.List(c, dto.NewLeaveRequestViews(requests), len(requests))
}
