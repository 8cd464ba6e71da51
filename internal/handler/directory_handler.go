package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-leave-api/internal/models"
	"github.com/noah-isme/sma-leave-api/pkg/response"
)

type userLister interface {
	ListUsersByRole(ctx context.Context, role models.UserRole) ([]string, error)
}

// DirectoryHandler exposes the user directory.
type DirectoryHandler struct {
	directory userLister
}

// NewDirectoryHandler constructs the handler.
func NewDirectoryHandler(directory userLister) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// Teachers godoc
// @Summary List teachers
// @Description Usernames a student may address a leave request to
// @Tags Directory
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *DirectoryHandler) Teachers(c *gin.Context) {
	teachers, err := h.directory.ListUsersByRole(c.Request.Context(), models.RoleTeacher)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, teachers, len(teachers))
}
