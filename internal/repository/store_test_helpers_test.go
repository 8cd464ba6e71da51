package repository

import (
	"time"

	"github.com/noah-isme/sma-leave-api/internal/models"
)

func sampleLedger() []models.LeaveRequest {
	created := time.Date(2024, time.February, 20, 9, 30, 0, 0, time.UTC)
	decided := created.Add(2 * time.Hour)
	return []models.LeaveRequest{
		{
			ID:            "5d1f6f9a-0000-4000-8000-000000000001",
			Requester:     "alice",
			RequesterRole: models.RoleStudent,
			Reason:        models.Reason{Kind: models.ReasonSick},
			StartDate:     models.NewDate(2024, time.March, 1),
			EndDate:       models.NewDate(2024, time.March, 3),
			NumberOfDays:  3,
			TeacherStage:  &models.TeacherStage{Target: "bob", Decision: models.DecisionApproved},
			AdminDecision: models.DecisionPending,
			Status:        models.LeaveStatusApprovedByTeacher,
			History: []models.DecisionRecord{
				{Stage: models.StageTeacher, Action: models.ActionApprove, Actor: "bob", DecidedAt: decided},
			},
			CreatedAt: created,
			UpdatedAt: decided,
		},
		{
			ID:            "5d1f6f9a-0000-4000-8000-000000000002",
			Requester:     "bob",
			RequesterRole: models.RoleTeacher,
			Reason:        models.Reason{Kind: models.ReasonOther, Text: "conference"},
			StartDate:     models.NewDate(2024, time.April, 10),
			EndDate:       models.NewDate(2024, time.April, 10),
			NumberOfDays:  1,
			AdminDecision: models.DecisionPending,
			Status:        models.LeaveStatusPending,
			CreatedAt:     created,
			UpdatedAt:     created,
		},
	}
}

func sampleDirectory() map[string]models.User {
	created := time.Date(2024, time.January, 5, 8, 0, 0, 0, time.UTC)
	return map[string]models.User{
		"alice": {Username: "alice", PasswordHash: "$2a$10$hash", Role: models.RoleStudent, CreatedAt: created},
		"bob":   {Username: "bob", PasswordHash: "$2a$10$hash2", Role: models.RoleTeacher, CreatedAt: created},
	}
}

func sampleSession() models.Session {
	return models.Session{
		ID:        "sess-1",
		Principal: models.Principal{Username: "carol", Role: models.RoleAdmin},
		CreatedAt: time.Date(2024, time.March, 4, 7, 0, 0, 0, time.UTC),
	}
}
