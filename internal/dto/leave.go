package dto

import (
	"time"

	"github.com/noah-isme/sma-leave-api/internal/models"
)

// SubmitLeaveRequest is the draft sent by a student or teacher.
type SubmitLeaveRequest struct {
	Reason      string `json:"reason"`
	OtherReason string `json:"otherReason"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Teacher     string `json:"teacher"`
}

// DecideLeaveRequest carries a stage decision.
type DecideLeaveRequest struct {
	Stage  string `json:"stage"`
	Action string `json:"action"`
}

// LeaveRequestView flattens a ledger entry for API consumers.
type LeaveRequestView struct {
	ID                    string                  `json:"id"`
	Requester             string                  `json:"requester"`
	RequesterRole         models.UserRole         `json:"requesterRole"`
	Reason                string                  `json:"reason"`
	ReasonKind            models.ReasonKind       `json:"reasonKind"`
	StartDate             models.Date             `json:"startDate"`
	EndDate               models.Date             `json:"endDate"`
	NumberOfDays          int                     `json:"numberOfDays"`
	TeacherApprovalTarget *string                 `json:"teacherApprovalTarget"`
	TeacherApproved       bool                    `json:"teacherApproved"`
	AdminApproved         bool                    `json:"adminApproved"`
	Status                models.LeaveStatus      `json:"status"`
	History               []models.DecisionRecord `json:"history,omitempty"`
	CreatedAt             time.Time               `json:"createdAt"`
	UpdatedAt             time.Time               `json:"updatedAt"`
}

// NewLeaveRequestView builds the API representation of a request.
func NewLeaveRequestView(r *models.LeaveRequest) LeaveRequestView {
	view := LeaveRequestView{
		ID:              r.ID,
		Requester:       r.Requester,
		RequesterRole:   r.RequesterRole,
		Reason:          r.Reason.Label(),
		ReasonKind:      r.Reason.Kind,
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		NumberOfDays:    r.NumberOfDays,
		TeacherApproved: r.TeacherApproved(),
		AdminApproved:   r.AdminApproved(),
		Status:          r.Status,
		History:         r.History,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.IsStudentRequest() {
		target := r.TeacherApprovalTarget()
		view.TeacherApprovalTarget = &target
	}
	return view
}

// NewLeaveRequestViews maps a slice of requests.
func NewLeaveRequestViews(requests []models.LeaveRequest) []LeaveRequestView {
	views := make([]LeaveRequestView, 0, len(requests))
	for i := range requests {
		views = append(views, NewLeaveRequestView(&requests[i]))
	}
	return views
}

// LeaveSummary backs the role dashboards.
type LeaveSummary struct {
	Mine            int `json:"mine"`
	MinePending     int `json:"minePending"`
	MineApproved    int `json:"mineApproved"`
	MineRejected    int `json:"mineRejected"`
	AwaitingMyStage int `json:"awaitingMyStage"`
}

// ExportFormat selects the ledger export encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)
