package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-leave-api/internal/dto"
	"github.com/noah-isme/sma-leave-api/internal/models"
	"github.com/noah-isme/sma-leave-api/internal/repository"
	appErrors "github.com/noah-isme/sma-leave-api/pkg/errors"
)

type teacherDirectory interface {
	ListUsersByRole(ctx context.Context, role models.UserRole) ([]string, error)
}

// LeaveEngine owns the leave ledger and applies the two-stage approval rules.
// Submit and Decide hold the write lock from validation through persistence,
// so decisions on the same request serialize.
type LeaveEngine struct {
	directory teacherDirectory
	store     Store
	logger    *zap.Logger
	metrics   *MetricsService
	now       func() time.Time
	newID     func() string

	mu     sync.RWMutex
	ledger []*models.LeaveRequest
	index  map[string]int
}

// LeaveEngineOption configures the engine.
type LeaveEngineOption func(*LeaveEngine)

// WithLeaveClock overrides the time source.
func WithLeaveClock(now func() time.Time) LeaveEngineOption {
	return func(e *LeaveEngine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLeaveIDGenerator overrides id allocation.
func WithLeaveIDGenerator(newID func() string) LeaveEngineOption {
	return func(e *LeaveEngine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// WithLeaveMetrics attaches Prometheus counters.
func WithLeaveMetrics(metrics *MetricsService) LeaveEngineOption {
	return func(e *LeaveEngine) {
		e.metrics = metrics
	}
}

// NewLeaveEngine constructs an engine with an empty ledger.
func NewLeaveEngine(directory teacherDirectory, store Store, logger *zap.Logger, opts ...LeaveEngineOption) *LeaveEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := &LeaveEngine{
		directory: directory,
		store:     store,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
		index:     make(map[string]int),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(engine)
		}
	}
	return engine
}

// Restore replaces the in-memory ledger with the persisted one.
func (e *LeaveEngine) Restore(ctx context.Context) error {
	var entries []models.LeaveRequest
	if err := e.store.Load(ctx, repository.KeyLedger, &entries); err != nil {
		if !errors.Is(err, appErrors.ErrStoreMiss) {
			return fmt.Errorf("restore ledger: %w", err)
		}
		entries = nil
	}

	ledger := make([]*models.LeaveRequest, 0, len(entries))
	index := make(map[string]int, len(entries))
	for i := range entries {
		entry := entries[i]
		entry.Status = entry.DeriveStatus()
		index[entry.ID] = len(ledger)
		ledger = append(ledger, &entry)
	}

	e.mu.Lock()
	e.ledger = ledger
	e.index = index
	e.mu.Unlock()

	e.metrics.SetLedgerSize(len(ledger))
	e.logger.Info("leave ledger restored", zap.Int("entries", len(ledger)))
	return nil
}

// Submit validates a draft and appends it to the ledger as Pending.
func (e *LeaveEngine) Submit(ctx context.Context, principal *models.Principal, req dto.SubmitLeaveRequest) (*models.LeaveRequest, error) {
	if principal == nil {
		return nil, appErrors.ErrUnauthorized
	}
	switch principal.Role {
	case models.RoleStudent, models.RoleTeacher:
	case models.RoleAdmin:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admins do not submit leave requests")
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "unknown role")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	draft, err := e.validateDraft(ctx, principal, req)
	if err != nil {
		return nil, err
	}

	now := e.now()
	request := &models.LeaveRequest{
		ID:            e.newID(),
		Requester:     models.NormalizeUsername(principal.Username),
		RequesterRole: principal.Role,
		Reason:        draft.reason,
		StartDate:     draft.start,
		EndDate:       draft.end,
		NumberOfDays:  draft.days,
		AdminDecision: models.DecisionPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if principal.Role == models.RoleStudent {
		request.TeacherStage = &models.TeacherStage{Target: draft.teacher, Decision: models.DecisionPending}
	}
	if _, exists := e.index[request.ID]; exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "leave request id already allocated")
	}
	request.Status = request.DeriveStatus()

	next := append(e.snapshot(), *request)
	if err := e.persist(ctx, next); err != nil {
		return nil, err
	}

	e.index[request.ID] = len(e.ledger)
	e.ledger = append(e.ledger, request)

	e.metrics.RecordSubmission(request.RequesterRole, len(e.ledger))
	e.logger.Info("leave request submitted",
		zap.String("id", request.ID),
		zap.String("requester", request.Requester),
		zap.String("role", string(request.RequesterRole)),
		zap.Int("days", request.NumberOfDays),
	)
	return request.Clone(), nil
}

type leaveDraft struct {
	reason  models.Reason
	start   models.Date
	end     models.Date
	days    int
	teacher string
}

// validateDraft runs the submission checks in order and stops at the first failure.
func (e *LeaveEngine) validateDraft(ctx context.Context, principal *models.Principal, req dto.SubmitLeaveRequest) (*leaveDraft, error) {
	draft := &leaveDraft{}

	selector := strings.TrimSpace(req.Reason)
	if selector != "" {
		kind, err := models.ParseReasonKind(selector)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "reason must be one of sick, casual, vacation, other")
		}
		draft.reason.Kind = kind
		if kind == models.ReasonOther {
			text := strings.TrimSpace(req.OtherReason)
			if text == "" {
				return nil, appErrors.Clone(appErrors.ErrValidation, "please describe the reason when selecting other")
			}
			draft.reason.Text = text
		}
	}

	needsTeacher := principal.Role == models.RoleStudent
	teacher := models.NormalizeUsername(req.Teacher)
	switch {
	case draft.reason.Kind == "":
		return nil, appErrors.Clone(appErrors.ErrValidation, "reason is required")
	case strings.TrimSpace(req.StartDate) == "":
		return nil, appErrors.Clone(appErrors.ErrValidation, "startDate is required")
	case strings.TrimSpace(req.EndDate) == "":
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate is required")
	case needsTeacher && teacher == "":
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher is required for student requests")
	}

	start, err := models.ParseDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startDate must use YYYY-MM-DD")
	}
	end, err := models.ParseDate(req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must use YYYY-MM-DD")
	}
	days := models.DaysBetweenInclusive(start, end)
	if days <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must not be before startDate")
	}
	draft.start, draft.end, draft.days = start, end, days

	if needsTeacher {
		teachers, err := e.directory.ListUsersByRole(ctx, models.RoleTeacher)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
		}
		if !containsString(teachers, teacher) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not a registered teacher", teacher))
		}
		draft.teacher = teacher
	}

	return draft, nil
}

// Decide applies an approve or reject at the given stage.
func (e *LeaveEngine) Decide(ctx context.Context, actor *models.Principal, id string, action models.Action, stage models.Stage) (*models.LeaveRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	switch action {
	case models.ActionApprove, models.ActionReject:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "action must be approve or reject")
	}
	switch stage {
	case models.StageTeacher:
		if actor.Role != models.RoleTeacher {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers decide the teacher stage")
		}
	case models.StageAdmin:
		if actor.Role != models.RoleAdmin {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins decide the admin stage")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "stage must be teacher or admin")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.index[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
	}
	current := e.ledger[pos]
	actorName := models.NormalizeUsername(actor.Username)

	updated := current.Clone()
	switch stage {
	case models.StageTeacher:
		if current.RequesterRole != models.RoleStudent || current.TeacherStage == nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "request has no teacher stage")
		}
		if current.TeacherStage.Target != actorName {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "request is addressed to another teacher")
		}
		updated.TeacherStage.Decision = action.Decision()
		// Any teacher decision re-opens the admin stage; on reject this clears a prior admin approval.
		updated.AdminDecision = models.DecisionPending
	case models.StageAdmin:
		if !current.AdminEligible() {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "request is not awaiting admin review")
		}
		updated.AdminDecision = action.Decision()
	}

	now := e.now()
	updated.History = append(updated.History, models.DecisionRecord{
		Stage:     stage,
		Action:    action,
		Actor:     actorName,
		DecidedAt: now,
	})
	updated.UpdatedAt = now
	updated.Status = updated.DeriveStatus()

	next := e.snapshot()
	next[pos] = *updated
	if err := e.persist(ctx, next); err != nil {
		return nil, err
	}
	e.ledger[pos] = updated

	e.metrics.RecordDecision(stage, action)
	e.logger.Info("leave request decided",
		zap.String("id", updated.ID),
		zap.String("stage", string(stage)),
		zap.String("action", string(action)),
		zap.String("actor", actorName),
		zap.String("status", string(updated.Status)),
	)
	return updated.Clone(), nil
}

// MyRequests returns the requests submitted by username.
func (e *LeaveEngine) MyRequests(username string) []models.LeaveRequest {
	name := models.NormalizeUsername(username)
	return e.filter(func(r *models.LeaveRequest) bool {
		return r.Requester == name
	})
}

// PendingForTeacher returns student requests addressed to teacher that await the teacher stage.
func (e *LeaveEngine) PendingForTeacher(teacher string) []models.LeaveRequest {
	name := models.NormalizeUsername(teacher)
	return e.filter(func(r *models.LeaveRequest) bool {
		return r.RequesterRole == models.RoleStudent &&
			r.Status == models.LeaveStatusPending &&
			r.TeacherApprovalTarget() == name
	})
}

// PendingForAdmin returns eligible requests without an admin decision.
func (e *LeaveEngine) PendingForAdmin() []models.LeaveRequest {
	return e.filter(func(r *models.LeaveRequest) bool {
		return !r.AdminDecided() && r.AdminEligible()
	})
}

// All returns the full ledger to admins.
func (e *LeaveEngine) All(actor *models.Principal) ([]models.LeaveRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can list every request")
	}
	return e.filter(func(*models.LeaveRequest) bool { return true }), nil
}

// Get returns one request to its requester, its addressed teacher or an admin.
func (e *LeaveEngine) Get(actor *models.Principal, id string) (*models.LeaveRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	pos, ok := e.index[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
	}
	request := e.ledger[pos]
	name := models.NormalizeUsername(actor.Username)

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		if request.Requester != name && request.TeacherApprovalTarget() != name {
			return nil, appErrors.ErrForbidden
		}
	case models.RoleStudent:
		if request.Requester != name {
			return nil, appErrors.ErrForbidden
		}
	default:
		return nil, appErrors.ErrForbidden
	}
	return request.Clone(), nil
}

// Summary computes the dashboard counters for actor.
func (e *LeaveEngine) Summary(actor *models.Principal) (*dto.LeaveSummary, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	summary := &dto.LeaveSummary{}
	for _, r := range e.MyRequests(actor.Username) {
		summary.Mine++
		switch r.Status {
		case models.LeaveStatusPending, models.LeaveStatusApprovedByTeacher:
			summary.MinePending++
		case models.LeaveStatusApprovedByAdmin:
			summary.MineApproved++
		case models.LeaveStatusRejectedByAdmin, models.LeaveStatusRejectedByTeacher:
			summary.MineRejected++
		}
	}
	switch actor.Role {
	case models.RoleTeacher:
		summary.AwaitingMyStage = len(e.PendingForTeacher(actor.Username))
	case models.RoleAdmin:
		summary.AwaitingMyStage = len(e.PendingForAdmin())
	case models.RoleStudent:
	}
	return summary, nil
}

func (e *LeaveEngine) filter(keep func(*models.LeaveRequest) bool) []models.LeaveRequest {
	e.mu.RLock()
	defer e.mu.RUnlock()
	result := make([]models.LeaveRequest, 0)
	for _, r := range e.ledger {
		if keep(r) {
			result = append(result, *r.Clone())
		}
	}
	return result
}

// snapshot copies the ledger for persistence. Caller holds the lock.
func (e *LeaveEngine) snapshot() []models.LeaveRequest {
	entries := make([]models.LeaveRequest, 0, len(e.ledger)+1)
	for _, r := range e.ledger {
		entries = append(entries, *r.Clone())
	}
	return entries
}

func (e *LeaveEngine) persist(ctx context.Context, entries []models.LeaveRequest) error {
	if err := e.store.Save(ctx, repository.KeyLedger, entries); err != nil {
		e.logger.Warn("failed to persist leave ledger", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist leave ledger")
	}
	return nil
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
