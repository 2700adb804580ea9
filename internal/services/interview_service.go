package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nmkrspvl/interviewprep/internal/cache"
	"github.com/nmkrspvl/interviewprep/internal/metrics"
	"github.com/nmkrspvl/interviewprep/internal/models"
	"github.com/nmkrspvl/interviewprep/internal/parse"
	"github.com/nmkrspvl/interviewprep/internal/prompts"
	"github.com/nmkrspvl/interviewprep/internal/providers/llm"
	mongorepo "github.com/nmkrspvl/interviewprep/internal/repositories/mongo"
	"github.com/nmkrspvl/interviewprep/internal/scoring"
	"github.com/nmkrspvl/interviewprep/internal/utils"
)

type StartParams struct {
	UserID         string
	Role           string
	Difficulty     string
	Topic          string
	TotalQuestions int
}

type Progress struct {
	Current    int `json:"current"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

type QuestionView struct {
	Number   int    `json:"number"`
	Total    int    `json:"total"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

// NextQuestionResult either carries a freshly generated question or, once
// every slot is filled, the ready-for-report signal (Completed=true).
type NextQuestionResult struct {
	Completed bool          `json:"completed"`
	Question  *QuestionView `json:"question,omitempty"`
	Progress  *Progress     `json:"progress,omitempty"`
}

type SubmitParams struct {
	SessionID      string
	QuestionNumber int
	Answer         string
	TimeSpent      int
}

type SubmitResult struct {
	Evaluation models.Evaluation `json:"evaluation"`
	Answered   int               `json:"answered"`
	Remaining  int               `json:"remaining"`
}

type Report struct {
	OverallScore        float64            `json:"overall_score"`
	CategoryBreakdown   map[string]float64 `json:"category_breakdown"`
	Strengths           []string           `json:"strengths"`
	AreasForImprovement []string           `json:"areas_for_improvement"`
	Recommendations     []string           `json:"recommendations"`
	DetailedAnalysis    string             `json:"detailed_analysis"`
	Summary             string             `json:"summary"`
}

type ReportResult struct {
	SessionID string `json:"session_id"`
	Report    Report `json:"report"`

	Role           string     `json:"role"`
	Difficulty     string     `json:"difficulty"`
	TotalQuestions int        `json:"total_questions"`
	Duration       int64      `json:"duration"`
	CompletedAt    *time.Time `json:"completed_at"`
}

type InterviewService interface {
	Start(ctx context.Context, p StartParams) (*models.InterviewTranscript, error)
	NextQuestion(ctx context.Context, sessionID string) (*NextQuestionResult, error)
	SubmitAnswer(ctx context.Context, p SubmitParams) (*SubmitResult, error)
	FinalReport(ctx context.Context, sessionID string) (*ReportResult, error)
	GetTranscript(ctx context.Context, sessionID string) (*models.InterviewTranscript, error)
	ListUserInterviews(ctx context.Context, userID string, f mongorepo.ListFilter) ([]models.InterviewTranscript, error)
}

type interviewService struct {
	transcripts mongorepo.TranscriptRepository
	provider    llm.Provider // per-turn path, fails fast
	reporter    llm.Provider // retrying path for final-report generation
	cache       cache.TranscriptCache
	log         *logrus.Logger
	locks       *sessionLocks
	now         func() time.Time
}

func NewInterviewService(transcripts mongorepo.TranscriptRepository, provider llm.Provider, c cache.TranscriptCache, log *logrus.Logger) InterviewService {
	return &interviewService{
		transcripts: transcripts,
		provider:    provider,
		reporter:    llm.WithRetry(provider, llm.DefaultRetryPolicy()),
		cache:       c,
		log:         log,
		locks:       newSessionLocks(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Expected model payload shapes. Anything that does not satisfy the
// required-field checks is rejected rather than trusted.
type questionPayload struct {
	Question       string   `json:"question"`
	Category       string   `json:"category"`
	ExpectedPoints []string `json:"expectedPoints"`
}

type evaluationPayload struct {
	Score        *float64 `json:"score"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Feedback     string   `json:"feedback"`
}

type reportPayload struct {
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areasForImprovement"`
	Recommendations     []string `json:"recommendations"`
	DetailedAnalysis    string   `json:"detailedAnalysis"`
	Summary             string   `json:"summary"`
}

func (s *interviewService) Start(ctx context.Context, p StartParams) (*models.InterviewTranscript, error) {
	const op = "InterviewService.Start"

	if p.UserID == "" || p.Role == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and role are required", nil)
	}
	if !models.ValidDifficulty(p.Difficulty) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "difficulty must be: easy, medium, or hard", nil)
	}
	if p.TotalQuestions <= 0 {
		p.TotalQuestions = 5
	}
	if p.Topic == "" {
		p.Topic = p.Role
	}

	now := s.now()
	t := &models.InterviewTranscript{
		SessionID:           uuid.NewString(),
		UserID:              p.UserID,
		Role:                p.Role,
		Difficulty:          p.Difficulty,
		Topic:               p.Topic,
		TotalQuestions:      p.TotalQuestions,
		Status:              models.StatusInProgress,
		StartTime:           now,
		QuestionsAndAnswers: []models.QuestionAnswer{},
		AISource:            s.provider.Name(),
	}

	if err := s.transcripts.Create(ctx, t); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create interview session", err)
	}

	s.log.WithFields(logrus.Fields{
		"session_id": t.SessionID,
		"role":       t.Role,
		"difficulty": t.Difficulty,
		"questions":  t.TotalQuestions,
	}).Info("interview started")

	return t, nil
}

func (s *interviewService) NextQuestion(ctx context.Context, sessionID string) (*NextQuestionResult, error) {
	const op = "InterviewService.NextQuestion"

	unlock := s.locks.lock(sessionID)
	defer unlock()

	t, err := s.load(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.StatusInProgress {
		return nil, utils.E(utils.CodeFailedPrecondition, op, fmt.Sprintf("interview is %s", t.Status), nil)
	}

	current := len(t.QuestionsAndAnswers) + 1
	if current > t.TotalQuestions {
		// Terminal check, idempotent: no mutation once all slots exist.
		return &NextQuestionResult{Completed: true}, nil
	}

	// Interactive path: no retry, the caller decides whether to re-ask.
	text, err := s.provider.Generate(ctx, prompts.NextQuestion(t, current), llm.Options{Temperature: 0.8, MaxTokens: 1000})
	if err != nil {
		metrics.LLMRequests.WithLabelValues(s.provider.Name(), "error").Inc()
		return nil, utils.E(utils.CodeUpstream, op, "question generation failed", err)
	}
	metrics.LLMRequests.WithLabelValues(s.provider.Name(), "ok").Inc()

	var q questionPayload
	if err := parse.StructuredInto(text, &q); err != nil {
		return nil, utils.E(utils.CodeUnparseable, op, "model returned an unusable question", err)
	}
	if q.Question == "" || q.Category == "" || len(q.ExpectedPoints) == 0 {
		return nil, utils.E(utils.CodeUnparseable, op, "question payload missing required fields", nil)
	}

	t.QuestionsAndAnswers = append(t.QuestionsAndAnswers, models.QuestionAnswer{
		QuestionNumber: current,
		Question: models.Question{
			Text:           q.Question,
			Category:       q.Category,
			ExpectedPoints: q.ExpectedPoints,
		},
	})

	if err := s.transcripts.Replace(ctx, t); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to persist question", err)
	}

	return &NextQuestionResult{
		Question: &QuestionView{
			Number:   current,
			Total:    t.TotalQuestions,
			Text:     q.Question,
			Category: q.Category,
		},
		Progress: &Progress{
			Current:    current,
			Total:      t.TotalQuestions,
			Percentage: current * 100 / t.TotalQuestions,
		},
	}, nil
}

func (s *interviewService) SubmitAnswer(ctx context.Context, p SubmitParams) (*SubmitResult, error) {
	const op = "InterviewService.SubmitAnswer"

	if p.Answer == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "answer is required", nil)
	}

	unlock := s.locks.lock(p.SessionID)
	defer unlock()

	t, err := s.load(ctx, op, p.SessionID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.StatusInProgress {
		return nil, utils.E(utils.CodeFailedPrecondition, op, fmt.Sprintf("interview is %s", t.Status), nil)
	}
	if p.QuestionNumber < 1 || p.QuestionNumber > len(t.QuestionsAndAnswers) {
		return nil, utils.E(utils.CodeNotFound, op, fmt.Sprintf("question %d not found", p.QuestionNumber), nil)
	}

	qa := &t.QuestionsAndAnswers[p.QuestionNumber-1]
	if qa.Answered() {
		// Answers are write-once; re-grading a slot would rewrite history.
		return nil, utils.E(utils.CodeFailedPrecondition, op, fmt.Sprintf("question %d already answered", p.QuestionNumber), nil)
	}
	now := s.now()
	qa.UserAnswer = models.UserAnswer{Text: p.Answer, Timestamp: &now, TimeSpent: p.TimeSpent}

	// Once the answer is recorded, submission must succeed: the evaluation
	// degrades through cheaper parsers down to a fixed neutral default.
	ev := s.evaluate(ctx, qa, p.Answer)
	evaluatedAt := s.now()
	ev.EvaluatedAt = &evaluatedAt
	qa.Evaluation = ev

	if err := s.transcripts.Replace(ctx, t); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to persist answer", err)
	}

	s.log.WithFields(logrus.Fields{
		"session_id": p.SessionID,
		"question":   p.QuestionNumber,
		"score":      ev.Score,
	}).Info("answer evaluated")

	return &SubmitResult{
		Evaluation: ev,
		Answered:   p.QuestionNumber,
		Remaining:  t.TotalQuestions - p.QuestionNumber,
	}, nil
}

func (s *interviewService) evaluate(ctx context.Context, qa *models.QuestionAnswer, answer string) models.Evaluation {
	prompt := prompts.Evaluation(qa, answer)

	// Low temperature for objective scoring, JSON mode requested.
	text, err := s.provider.Generate(ctx, prompt, llm.Options{Temperature: 0.3, MaxTokens: 800, ForceJSON: true})
	if err == nil {
		var p evaluationPayload
		if perr := parse.StructuredInto(text, &p); perr == nil && p.Score != nil && p.Feedback != "" {
			return models.Evaluation{
				Score:        clampScore(*p.Score),
				Strengths:    orEmpty(p.Strengths),
				Improvements: orEmpty(p.Improvements),
				Feedback:     p.Feedback,
			}
		}
		s.log.WithField("question", qa.QuestionNumber).Warn("structured evaluation unparseable, retrying without JSON mode")
	}

	metrics.ParseFallbacks.WithLabelValues("plaintext").Inc()
	text, err = s.provider.Generate(ctx, prompt, llm.Options{Temperature: 0.3, MaxTokens: 500})
	if err == nil {
		pe := parse.PlainText(text, "evaluation")
		return models.Evaluation{
			Score:        clampScore(float64(pe.Score)),
			Strengths:    pe.Strengths,
			Improvements: pe.Improvements,
			Feedback:     pe.Feedback,
		}
	}

	metrics.ParseFallbacks.WithLabelValues("default").Inc()
	s.log.WithField("question", qa.QuestionNumber).WithError(err).Warn("evaluation fell back to neutral default")
	return models.Evaluation{
		Score:        5,
		Strengths:    []string{"Provided a response"},
		Improvements: []string{"Could be more detailed"},
		Feedback:     "Thank you for your answer.",
	}
}

func (s *interviewService) FinalReport(ctx context.Context, sessionID string) (*ReportResult, error) {
	const op = "InterviewService.FinalReport"

	unlock := s.locks.lock(sessionID)
	defer unlock()

	t, err := s.load(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.StatusInProgress {
		// Sealing happens exactly once; re-display goes through GetTranscript.
		return nil, utils.E(utils.CodeFailedPrecondition, op, fmt.Sprintf("interview is %s", t.Status), nil)
	}
	if answered := len(t.QuestionsAndAnswers); answered < t.TotalQuestions {
		return nil, utils.ED(utils.CodeFailedPrecondition, op, "interview not complete, answer all questions first",
			Progress{Current: answered, Total: t.TotalQuestions}, nil)
	}
	for _, qa := range t.QuestionsAndAnswers {
		if !qa.Evaluated() {
			return nil, utils.ED(utils.CodeFailedPrecondition, op,
				fmt.Sprintf("question %d has not been evaluated", qa.QuestionNumber),
				Progress{Current: len(t.QuestionsAndAnswers), Total: t.TotalQuestions}, nil)
		}
	}

	agg, err := scoring.Aggregate(t.QuestionsAndAnswers)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "score aggregation failed", err)
	}

	// Report generation is not latency-sensitive, so it rides the retrying
	// adapter path.
	text, err := s.reporter.Generate(ctx, prompts.FinalReport(t, agg.OverallScore, agg.CategoryBreakdown),
		llm.Options{Temperature: 0.6, MaxTokens: 5000, ForceJSON: true})
	if err != nil {
		metrics.LLMRequests.WithLabelValues(s.provider.Name(), "error").Inc()
		return nil, utils.E(utils.CodeUpstream, op, "report generation failed", err)
	}
	metrics.LLMRequests.WithLabelValues(s.provider.Name(), "ok").Inc()

	var rp reportPayload
	if err := parse.StructuredInto(text, &rp); err != nil {
		return nil, utils.E(utils.CodeUnparseable, op, "model returned an unusable report", err)
	}

	now := s.now()
	t.EndTime = &now
	t.TotalDuration = int64(now.Sub(t.StartTime).Seconds())
	t.OverallScore = agg.OverallScore
	t.CategoryBreakdown = agg.CategoryBreakdown
	t.Strengths = orEmpty(rp.Strengths)
	t.Improvements = orEmpty(rp.AreasForImprovement)
	t.Recommendations = orEmpty(rp.Recommendations)
	t.DetailedAnalysis = rp.DetailedAnalysis
	t.Summary = rp.Summary
	t.Status = models.StatusCompleted

	if err := s.transcripts.Replace(ctx, t); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to seal transcript", err)
	}

	// Completed transcripts are immutable and safe to cache.
	s.cache.Put(ctx, t)

	s.log.WithFields(logrus.Fields{
		"session_id":    sessionID,
		"overall_score": agg.OverallScore,
	}).Info("interview completed")

	return &ReportResult{
		SessionID: sessionID,
		Report: Report{
			OverallScore:        agg.OverallScore,
			CategoryBreakdown:   agg.CategoryBreakdown,
			Strengths:           t.Strengths,
			AreasForImprovement: t.Improvements,
			Recommendations:     t.Recommendations,
			DetailedAnalysis:    t.DetailedAnalysis,
			Summary:             t.Summary,
		},
		Role:           t.Role,
		Difficulty:     t.Difficulty,
		TotalQuestions: t.TotalQuestions,
		Duration:       t.TotalDuration,
		CompletedAt:    t.EndTime,
	}, nil
}

func (s *interviewService) GetTranscript(ctx context.Context, sessionID string) (*models.InterviewTranscript, error) {
	const op = "InterviewService.GetTranscript"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	if cached, ok := s.cache.Get(ctx, sessionID); ok {
		return cached, nil
	}

	t, err := s.load(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	if t.Status == models.StatusCompleted {
		s.cache.Put(ctx, t)
	}
	return t, nil
}

func (s *interviewService) ListUserInterviews(ctx context.Context, userID string, f mongorepo.ListFilter) ([]models.InterviewTranscript, error) {
	const op = "InterviewService.ListUserInterviews"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	out, err := s.transcripts.ListByUser(ctx, userID, f)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list interviews", err)
	}
	return out, nil
}

func (s *interviewService) load(ctx context.Context, op, sessionID string) (*models.InterviewTranscript, error) {
	t, err := s.transcripts.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interview session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load session", err)
	}
	return t, nil
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
