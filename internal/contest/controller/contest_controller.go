package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"rebornoj/internal/contest/rank"
	"rebornoj/pkg/utils/response"
)

// ContestController handles contest scoreboard requests.
type ContestController struct {
	engine *rank.Engine
}

// NewContestController creates a new controller.
func NewContestController(engine *rank.Engine) *ContestController {
	return &ContestController{engine: engine}
}

// RegisterRoutes mounts the contest endpoints on a router group.
func (h *ContestController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/contests/:id/rank", h.GetLeaderboard)
}

// GetLeaderboard returns the competition-ranked scoreboard.
func (h *ContestController) GetLeaderboard(c *gin.Context) {
	contestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || contestID <= 0 {
		response.BadRequest(c, "Invalid contest id")
		return
	}
	board, err := h.engine.Leaderboard(c.Request.Context(), contestID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, board)
}
