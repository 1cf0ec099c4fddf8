package controller

import (
	"github.com/gin-gonic/gin"

	"rebornoj/internal/judge/repository"
	"rebornoj/pkg/utils/response"
)

// JudgeController handles judge status requests.
type JudgeController struct {
	statuses *repository.StatusRepository
}

// NewJudgeController creates a new controller.
func NewJudgeController(statuses *repository.StatusRepository) *JudgeController {
	return &JudgeController{statuses: statuses}
}

// RegisterRoutes mounts the judge endpoints on a router group.
func (h *JudgeController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/submissions/:id", h.GetStatus)
}

// GetStatus returns the current status snapshot for one submission.
func (h *JudgeController) GetStatus(c *gin.Context) {
	submissionID := c.Param("id")
	if submissionID == "" {
		response.BadRequest(c, "Invalid submission id")
		return
	}
	status, err := h.statuses.Get(c.Request.Context(), submissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, status)
}
