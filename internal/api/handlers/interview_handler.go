package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nmkrspvl/interviewprep/internal/models"
	mongorepo "github.com/nmkrspvl/interviewprep/internal/repositories/mongo"
	"github.com/nmkrspvl/interviewprep/internal/services"
	"github.com/nmkrspvl/interviewprep/internal/utils"
)

type InterviewHandler struct {
	svc services.InterviewService
}

func NewInterviewHandler(svc services.InterviewService) *InterviewHandler {
	return &InterviewHandler{svc: svc}
}

type StartInterviewRequest struct {
	UserID         string `json:"user_id" binding:"required"`
	Role           string `json:"role" binding:"required"`
	Difficulty     string `json:"difficulty" binding:"required,oneof=easy medium hard"`
	Topic          string `json:"topic"`
	TotalQuestions int    `json:"total_questions"`
}

type StartInterviewResponse struct {
	SessionID string          `json:"session_id"`
	Status    string          `json:"status"`
	Config    InterviewConfig `json:"config"`
}

type InterviewConfig struct {
	Role           string `json:"role"`
	Difficulty     string `json:"difficulty"`
	Topic          string `json:"topic"`
	TotalQuestions int    `json:"total_questions"`
}

func (h *InterviewHandler) Start(c *gin.Context) {
	var req StartInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.Start", "invalid request body", err))
		return
	}

	t, err := h.svc.Start(c.Request.Context(), services.StartParams{
		UserID:         req.UserID,
		Role:           req.Role,
		Difficulty:     req.Difficulty,
		Topic:          req.Topic,
		TotalQuestions: req.TotalQuestions,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, StartInterviewResponse{
		SessionID: t.SessionID,
		Status:    t.Status,
		Config: InterviewConfig{
			Role:           t.Role,
			Difficulty:     t.Difficulty,
			Topic:          t.Topic,
			TotalQuestions: t.TotalQuestions,
		},
	})
}

type SessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

func (h *InterviewHandler) NextQuestion(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.NextQuestion", "invalid request body", err))
		return
	}

	res, err := h.svc.NextQuestion(c.Request.Context(), req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type SubmitAnswerRequest struct {
	SessionID      string `json:"session_id" binding:"required"`
	QuestionNumber int    `json:"question_number" binding:"required,min=1"`
	Answer         string `json:"answer" binding:"required"`
	TimeSpent      int    `json:"time_spent"`
}

func (h *InterviewHandler) SubmitAnswer(c *gin.Context) {
	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.SubmitAnswer", "invalid request body", err))
		return
	}

	res, err := h.svc.SubmitAnswer(c.Request.Context(), services.SubmitParams{
		SessionID:      req.SessionID,
		QuestionNumber: req.QuestionNumber,
		Answer:         req.Answer,
		TimeSpent:      req.TimeSpent,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *InterviewHandler) FinalReport(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.FinalReport", "invalid request body", err))
		return
	}

	res, err := h.svc.FinalReport(c.Request.Context(), req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *InterviewHandler) GetTranscript(c *gin.Context) {
	t, err := h.svc.GetTranscript(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// InterviewSummary is the list-view projection: no per-question detail.
type InterviewSummary struct {
	SessionID      string  `json:"session_id"`
	Role           string  `json:"role"`
	Difficulty     string  `json:"difficulty"`
	Topic          string  `json:"topic,omitempty"`
	Status         string  `json:"status"`
	TotalQuestions int     `json:"total_questions"`
	OverallScore   float64 `json:"overall_score,omitempty"`
	StartTime      string  `json:"start_time"`
	Duration       int64   `json:"duration"`
}

func (h *InterviewHandler) ListUserInterviews(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	out, err := h.svc.ListUserInterviews(c.Request.Context(), c.Param("user_id"), mongorepo.ListFilter{
		Status: c.Query("status"),
		Limit:  limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	summaries := make([]InterviewSummary, 0, len(out))
	for _, t := range out {
		summaries = append(summaries, summarize(t))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(summaries), "interviews": summaries})
}

func summarize(t models.InterviewTranscript) InterviewSummary {
	return InterviewSummary{
		SessionID:      t.SessionID,
		Role:           t.Role,
		Difficulty:     t.Difficulty,
		Topic:          t.Topic,
		Status:         t.Status,
		TotalQuestions: t.TotalQuestions,
		OverallScore:   t.OverallScore,
		StartTime:      t.StartTime.Format("2006-01-02T15:04:05Z07:00"),
		Duration:       t.TotalDuration,
	}
}
