package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nmkrspvl/interviewprep/internal/services"
	"github.com/nmkrspvl/interviewprep/internal/utils"
)

// AIHandler serves the stateless generation endpoints.
type AIHandler struct {
	svc services.GeneratorService
}

func NewAIHandler(svc services.GeneratorService) *AIHandler {
	return &AIHandler{svc: svc}
}

type GenerateQuestionsRequest struct {
	Role       string `json:"role" binding:"required"`
	Difficulty string `json:"difficulty" binding:"required,oneof=easy medium hard"`
	Count      int    `json:"count"`
}

func (h *AIHandler) GenerateQuestions(c *gin.Context) {
	var req GenerateQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "AIHandler.GenerateQuestions", "invalid request body", err))
		return
	}

	questions, err := h.svc.GenerateQuestions(c.Request.Context(), req.Role, req.Difficulty, req.Count)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(questions), "questions": questions})
}

type EvaluateAnswerRequest struct {
	Question       string   `json:"question" binding:"required"`
	Answer         string   `json:"answer" binding:"required"`
	ExpectedPoints []string `json:"expected_points"`
}

func (h *AIHandler) EvaluateAnswer(c *gin.Context) {
	var req EvaluateAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "AIHandler.EvaluateAnswer", "invalid request body", err))
		return
	}

	ev, err := h.svc.EvaluateAnswer(c.Request.Context(), req.Question, req.Answer, req.ExpectedPoints)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluation": ev, "max_score": 10})
}
