package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fitagent/internal/coaching"
	"fitagent/internal/config"
)

// GET /health
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// GET /api/config
func configHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only return non-sensitive config fields
		c.JSON(http.StatusOK, gin.H{
			"server": gin.H{
				"host": cfg.Server.Host,
				"port": cfg.Server.Port,
			},
			"venice": gin.H{
				"base_url":   cfg.Venice.BaseURL,
				"model":      cfg.Venice.Model,
				"configured": cfg.Venice.APIKey != "",
			},
			"coaching": gin.H{
				"autonomy_interval_minutes": cfg.Coaching.AutonomyIntervalMinutes,
				"proactive_after_hours":     cfg.Coaching.ProactiveAfterHours,
			},
		})
	}
}

// CoachRequest is the body for POST /api/coach
type CoachRequest struct {
	UserID         string `json:"user_id" binding:"required"`
	Query          string `json:"query" binding:"required"`
	ConversationID string `json:"conversation_id"`
}

// POST /api/coach
func CoachHandler(engine *coaching.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CoachRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and query are required"})
			return
		}
		resp, err := engine.PersonalizedResponse(c.Request.Context(), req.UserID, req.Query, req.ConversationID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "coaching request failed"})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GoalProgressRequest is the body for POST /api/goals/progress
type GoalProgressRequest struct {
	UserID       string   `json:"user_id" binding:"required"`
	GoalType     string   `json:"goal_type" binding:"required"`
	TargetValue  *float64 `json:"target_value" binding:"required"`
	CurrentValue *float64 `json:"current_value" binding:"required"`
}

// POST /api/goals/progress
func GoalProgressHandler(engine *coaching.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GoalProgressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id, goal_type, target_value and current_value are required"})
			return
		}
		g, err := engine.RecordGoalProgress(c.Request.Context(), req.UserID, req.GoalType, *req.TargetValue, *req.CurrentValue)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record goal progress"})
			return
		}
		c.JSON(http.StatusOK, g)
	}
}

// GET /api/users/:user_id/goals
func ListGoalsHandler(engine *coaching.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		goals, err := engine.GoalsForUser(c.Request.Context(), c.Param("user_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load goals"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"goals": goals})
	}
}

// GET /api/users/:user_id/insights
func InsightsHandler(engine *coaching.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		insights, err := engine.BehavioralInsights(c.Request.Context(), c.Param("user_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build insights"})
			return
		}
		c.JSON(http.StatusOK, insights)
	}
}

// POST /api/autonomy/run
func AutonomyRunHandler(engine *coaching.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		adjusted, err := engine.RunAutonomyPass(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "autonomy pass failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"adjusted_goals": adjusted})
	}
}
