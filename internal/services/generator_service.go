package services

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/nmkrspvl/interviewprep/internal/metrics"
	"github.com/nmkrspvl/interviewprep/internal/models"
	"github.com/nmkrspvl/interviewprep/internal/parse"
	"github.com/nmkrspvl/interviewprep/internal/prompts"
	"github.com/nmkrspvl/interviewprep/internal/providers/llm"
	"github.com/nmkrspvl/interviewprep/internal/utils"
)

// GeneratedQuestion is one entry of a bulk question set.
type GeneratedQuestion struct {
	Question       string   `json:"question"`
	Category       string   `json:"category"`
	ExpectedPoints []string `json:"expectedPoints"`
}

// GeneratorService serves the stateless generation endpoints. These are the
// bulk, non-interactive paths, so every completion rides the retrying
// adapter (429 backoff with Retry-After honoring).
type GeneratorService interface {
	GenerateQuestions(ctx context.Context, role, difficulty string, count int) ([]GeneratedQuestion, error)
	EvaluateAnswer(ctx context.Context, question, answer string, expectedPoints []string) (models.Evaluation, error)
}

type generatorService struct {
	provider llm.Provider
	log      *logrus.Logger
}

func NewGeneratorService(provider llm.Provider, log *logrus.Logger) GeneratorService {
	return &generatorService{
		provider: llm.WithRetry(provider, llm.DefaultRetryPolicy()),
		log:      log,
	}
}

func (s *generatorService) GenerateQuestions(ctx context.Context, role, difficulty string, count int) ([]GeneratedQuestion, error) {
	const op = "GeneratorService.GenerateQuestions"

	if role == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "role is required", nil)
	}
	if !models.ValidDifficulty(difficulty) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "difficulty must be: easy, medium, or hard", nil)
	}
	if count <= 0 {
		count = 10
	}

	text, err := s.provider.Generate(ctx, prompts.BulkQuestions(role, difficulty, count),
		llm.Options{Temperature: 0.7, MaxTokens: 4000})
	if err != nil {
		metrics.LLMRequests.WithLabelValues(s.provider.Name(), "error").Inc()
		return nil, utils.E(utils.CodeUpstream, op, "question generation failed", err)
	}
	metrics.LLMRequests.WithLabelValues(s.provider.Name(), "ok").Inc()

	raw, err := parse.StructuredArray(text)
	if err != nil {
		return nil, utils.E(utils.CodeUnparseable, op, "model returned an unusable question set", err)
	}
	var questions []GeneratedQuestion
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, utils.E(utils.CodeUnparseable, op, "model returned an unusable question set", err)
	}
	if len(questions) == 0 {
		return nil, utils.E(utils.CodeUnparseable, op, "model returned an empty question set", nil)
	}
	return questions, nil
}

func (s *generatorService) EvaluateAnswer(ctx context.Context, question, answer string, expectedPoints []string) (models.Evaluation, error) {
	const op = "GeneratorService.EvaluateAnswer"

	if question == "" || answer == "" {
		return models.Evaluation{}, utils.E(utils.CodeInvalidArgument, op, "question and answer are required", nil)
	}

	text, err := s.provider.Generate(ctx, prompts.StandaloneEvaluation(question, answer, expectedPoints),
		llm.Options{Temperature: 0.3, MaxTokens: 800})
	if err != nil {
		metrics.LLMRequests.WithLabelValues(s.provider.Name(), "error").Inc()
		return models.Evaluation{}, utils.E(utils.CodeUpstream, op, "evaluation failed", err)
	}
	metrics.LLMRequests.WithLabelValues(s.provider.Name(), "ok").Inc()

	var p evaluationPayload
	if err := parse.StructuredInto(text, &p); err != nil {
		return models.Evaluation{}, utils.E(utils.CodeUnparseable, op, "model returned an unusable evaluation", err)
	}
	if p.Score == nil || p.Feedback == "" {
		return models.Evaluation{}, utils.E(utils.CodeUnparseable, op, "evaluation payload missing score or feedback", nil)
	}
	return models.Evaluation{
		Score:        clampScore(*p.Score),
		Strengths:    orEmpty(p.Strengths),
		Improvements: orEmpty(p.Improvements),
		Feedback:     p.Feedback,
	}, nil
}
