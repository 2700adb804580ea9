package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nmkrspvl/interviewprep/internal/api/handlers"
	"github.com/nmkrspvl/interviewprep/internal/api/middleware"
)

type Deps struct {
	Interview *handlers.InterviewHandler
	AI        *handlers.AIHandler
	Health    *handlers.HealthHandler

	// JWTSecret enables bearer auth on the API group when non-empty.
	JWTSecret string
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	if d.JWTSecret != "" {
		api.Use(middleware.JWTAuth(d.JWTSecret))
	}

	api.POST("/interview/start", d.Interview.Start)
	api.POST("/interview/next-question", d.Interview.NextQuestion)
	api.POST("/interview/submit-answer", d.Interview.SubmitAnswer)
	api.POST("/interview/final-report", d.Interview.FinalReport)
	api.GET("/interview/transcript/:session_id", d.Interview.GetTranscript)
	api.GET("/interview/user/:user_id", d.Interview.ListUserInterviews)

	api.POST("/ai/interview-questions", d.AI.GenerateQuestions)
	api.POST("/ai/evaluate-answer", d.AI.EvaluateAnswer)

	api.GET("/llm/health", d.Health.LLMStatus)
}
