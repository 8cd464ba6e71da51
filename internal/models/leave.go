package models

import (
	"fmt"
	"strings"
	"time"
)

// ReasonKind enumerates the leave reason selector.
type ReasonKind string

const (
	ReasonSick     ReasonKind = "SICK"
	ReasonCasual   ReasonKind = "CASUAL"
	ReasonVacation ReasonKind = "VACATION"
	ReasonOther    ReasonKind = "OTHER"
)

// ParseReasonKind converts the selector sent by clients.
func ParseReasonKind(raw string) (ReasonKind, error) {
	switch kind := ReasonKind(strings.ToUpper(strings.TrimSpace(raw))); kind {
	case ReasonSick, ReasonCasual, ReasonVacation, ReasonOther:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown reason %q", raw)
	}
}

// Reason is either one of the fixed kinds or free text under ReasonOther.
type Reason struct {
	Kind ReasonKind `json:"kind"`
	Text string     `json:"text,omitempty"`
}

// Label renders the reason for display.
func (r Reason) Label() string {
	if r.Kind == ReasonOther {
		return r.Text
	}
	return strings.ToLower(string(r.Kind))
}

// Decision is the outcome of one approval stage.
type Decision string

const (
	DecisionPending  Decision = "PENDING"
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// Stage identifies an approval checkpoint.
type Stage string

const (
	StageTeacher Stage = "TEACHER"
	StageAdmin   Stage = "ADMIN"
)

// ParseStage converts client input into a Stage.
func ParseStage(raw string) (Stage, error) {
	switch stage := Stage(strings.ToUpper(strings.TrimSpace(raw))); stage {
	case StageTeacher, StageAdmin:
		return stage, nil
	default:
		return "", fmt.Errorf("unknown stage %q", raw)
	}
}

// Action is what a decider does at a stage.
type Action string

const (
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
)

// ParseAction converts client input into an Action.
func ParseAction(raw string) (Action, error) {
	switch action := Action(strings.ToUpper(strings.TrimSpace(raw))); action {
	case ActionApprove, ActionReject:
		return action, nil
	default:
		return "", fmt.Errorf("unknown action %q", raw)
	}
}

// Decision maps the action onto a stage outcome.
func (a Action) Decision() Decision {
	if a == ActionApprove {
		return DecisionApproved
	}
	return DecisionRejected
}

// LeaveStatus is the display label derived from the stage decisions.
type LeaveStatus string

const (
	LeaveStatusPending           LeaveStatus = "Pending"
	LeaveStatusApprovedByTeacher LeaveStatus = "Approved by Teacher"
	LeaveStatusRejectedByTeacher LeaveStatus = "Rejected by Teacher"
	LeaveStatusApprovedByAdmin   LeaveStatus = "Approved by Admin"
	LeaveStatusRejectedByAdmin   LeaveStatus = "Rejected by Admin"
)

// TeacherStage is carried only by student requests.
type TeacherStage struct {
	Target   string   `json:"target"`
	Decision Decision `json:"decision"`
}

// DecisionRecord is one entry of a request's decision history.
type DecisionRecord struct {
	Stage     Stage     `json:"stage"`
	Action    Action    `json:"action"`
	Actor     string    `json:"actor"`
	DecidedAt time.Time `json:"decidedAt"`
}

// LeaveRequest is a ledger entry.
type LeaveRequest struct {
	ID            string           `json:"id"`
	Requester     string           `json:"requester"`
	RequesterRole UserRole         `json:"requesterRole"`
	Reason        Reason           `json:"reason"`
	StartDate     Date             `json:"startDate"`
	EndDate       Date             `json:"endDate"`
	NumberOfDays  int              `json:"numberOfDays"`
	TeacherStage  *TeacherStage    `json:"teacherStage,omitempty"`
	AdminDecision Decision         `json:"adminDecision"`
	Status        LeaveStatus      `json:"status"`
	History       []DecisionRecord `json:"history,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// IsStudentRequest reports whether the request passes through the teacher stage.
func (r *LeaveRequest) IsStudentRequest() bool {
	return r.TeacherStage != nil
}

// TeacherApprovalTarget returns the addressed teacher, empty for teacher requests.
func (r *LeaveRequest) TeacherApprovalTarget() string {
	if r.TeacherStage == nil {
		return ""
	}
	return r.TeacherStage.Target
}

// TeacherApproved is always true for teacher requests.
func (r *LeaveRequest) TeacherApproved() bool {
	if r.TeacherStage == nil {
		return true
	}
	return r.TeacherStage.Decision == DecisionApproved
}

// AdminApproved reports the admin stage outcome.
func (r *LeaveRequest) AdminApproved() bool {
	return r.AdminDecision == DecisionApproved
}

// AdminEligible reports whether the admin stage may be decided.
func (r *LeaveRequest) AdminEligible() bool {
	switch r.RequesterRole {
	case RoleTeacher:
		return true
	case RoleStudent:
		return r.TeacherApproved()
	default:
		return false
	}
}

// AdminDecided reports whether the admin stage currently holds a decision.
func (r *LeaveRequest) AdminDecided() bool {
	return r.AdminDecision == DecisionApproved || r.AdminDecision == DecisionRejected
}

// DeriveStatus computes the display label from the stage decisions.
func (r *LeaveRequest) DeriveStatus() LeaveStatus {
	switch r.AdminDecision {
	case DecisionApproved:
		return LeaveStatusApprovedByAdmin
	case DecisionRejected:
		return LeaveStatusRejectedByAdmin
	}
	if r.TeacherStage != nil {
		switch r.TeacherStage.Decision {
		case DecisionApproved:
			return LeaveStatusApprovedByTeacher
		case DecisionRejected:
			return LeaveStatusRejectedByTeacher
		}
	}
	return LeaveStatusPending
}

// Clone returns a deep copy.
func (r *LeaveRequest) Clone() *LeaveRequest {
	if r == nil {
		return nil
	}
	clone := *r
	if r.TeacherStage != nil {
		stage := *r.TeacherStage
		clone.TeacherStage = &stage
	}
	if r.History != nil {
		clone.History = append([]DecisionRecord(nil), r.History...)
	}
	return &clone
}
