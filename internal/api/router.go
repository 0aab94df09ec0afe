package api

import (
	"github.com/gin-gonic/gin"

	"fitagent/internal/coaching"
	"fitagent/internal/config"
)

// SetupRouter wires all HTTP and WebSocket routes
func SetupRouter(cfg *config.Config, engine *coaching.Engine) *gin.Engine {
	r := gin.Default()

	r.GET("/health", healthHandler)

	api := r.Group("/api")
	{
		api.GET("/config", configHandler(cfg))

		api.POST("/coach", CoachHandler(engine))
		api.POST("/goals/progress", GoalProgressHandler(engine))
		api.GET("/users/:user_id/goals", ListGoalsHandler(engine))
		api.GET("/users/:user_id/insights", InsightsHandler(engine))
		api.POST("/autonomy/run", AutonomyRunHandler(engine))
	}

	r.GET("/ws/coach", WSCoachHandler(engine))

	return r
}
