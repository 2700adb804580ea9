package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmkrspvl/interviewprep/internal/cache"
	"github.com/nmkrspvl/interviewprep/internal/models"
	"github.com/nmkrspvl/interviewprep/internal/providers/llm"
	mongorepo "github.com/nmkrspvl/interviewprep/internal/repositories/mongo"
	"github.com/nmkrspvl/interviewprep/internal/utils"
)

const (
	questionJSON = `{"question": "Explain goroutines.", "category": "concurrency", "expectedPoints": ["lightweight threads", "scheduler"]}`
	evalJSON     = `{"score": 8, "strengths": ["clear"], "improvements": ["depth"], "feedback": "Good answer."}`
	reportJSON   = `{"strengths": ["consistent"], "areasForImprovement": ["detail"], "recommendations": ["practice"], "detailedAnalysis": "Solid run.", "summary": "Good."}`
)

type fakeRepo struct {
	store map[string]models.InterviewTranscript
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{store: map[string]models.InterviewTranscript{}}
}

func cloneTranscript(t models.InterviewTranscript) models.InterviewTranscript {
	qas := make([]models.QuestionAnswer, len(t.QuestionsAndAnswers))
	copy(qas, t.QuestionsAndAnswers)
	t.QuestionsAndAnswers = qas
	return t
}

func (r *fakeRepo) Create(_ context.Context, t *models.InterviewTranscript) error {
	r.store[t.SessionID] = cloneTranscript(*t)
	return nil
}

func (r *fakeRepo) GetBySessionID(_ context.Context, sessionID string) (*models.InterviewTranscript, error) {
	t, ok := r.store[sessionID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	out := cloneTranscript(t)
	return &out, nil
}

func (r *fakeRepo) Replace(_ context.Context, t *models.InterviewTranscript) error {
	if _, ok := r.store[t.SessionID]; !ok {
		return utils.ErrNotFound
	}
	r.store[t.SessionID] = cloneTranscript(*t)
	return nil
}

func (r *fakeRepo) ListByUser(_ context.Context, userID string, f mongorepo.ListFilter) ([]models.InterviewTranscript, error) {
	var out []models.InterviewTranscript
	for _, t := range r.store {
		if t.UserID != userID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, cloneTranscript(t))
	}
	return out, nil
}

type fakeLLM struct {
	replies []string
	errs    []error
	opts    []llm.Options
}

func (f *fakeLLM) Generate(_ context.Context, _ string, o llm.Options) (string, error) {
	i := len(f.opts)
	f.opts = append(f.opts, o)
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	return f.replies[i], f.errs[i]
}

func (f *fakeLLM) CheckHealth(context.Context) bool        { return true }
func (f *fakeLLM) ListModels(context.Context) []llm.ModelInfo { return nil }
func (f *fakeLLM) Name() string                            { return "fake" }

type fakeCache struct {
	store map[string]*models.InterviewTranscript
	puts  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: map[string]*models.InterviewTranscript{}}
}

func (f *fakeCache) Get(_ context.Context, sessionID string) (*models.InterviewTranscript, bool) {
	t, ok := f.store[sessionID]
	return t, ok
}

func (f *fakeCache) Put(_ context.Context, t *models.InterviewTranscript) {
	f.puts++
	f.store[t.SessionID] = t
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var baseTime = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestService(repo mongorepo.TranscriptRepository, p llm.Provider) *interviewService {
	return &interviewService{
		transcripts: repo,
		provider:    p,
		reporter:    p,
		cache:       cache.Noop{},
		log:         quietLogger(),
		locks:       newSessionLocks(),
		now:         func() time.Time { return baseTime },
	}
}

func startSession(t *testing.T, svc *interviewService, total int) string {
	t.Helper()
	tr, err := svc.Start(context.Background(), StartParams{
		UserID:         "u1",
		Role:           "backend engineer",
		Difficulty:     "medium",
		TotalQuestions: total,
	})
	require.NoError(t, err)
	return tr.SessionID
}

func TestStart_Defaults(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeLLM{replies: []string{""}, errs: []error{nil}})

	tr, err := svc.Start(context.Background(), StartParams{UserID: "u1", Role: "backend engineer", Difficulty: "easy"})
	require.NoError(t, err)

	assert.NotEmpty(t, tr.SessionID)
	assert.Equal(t, models.StatusInProgress, tr.Status)
	assert.Equal(t, 5, tr.TotalQuestions)
	assert.Equal(t, "backend engineer", tr.Topic)
	assert.Equal(t, "fake", tr.AISource)
	assert.Equal(t, baseTime, tr.StartTime)

	stored, err := repo.GetBySessionID(context.Background(), tr.SessionID)
	require.NoError(t, err)
	assert.Empty(t, stored.QuestionsAndAnswers)
}

func TestStart_Validation(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeLLM{replies: []string{""}, errs: []error{nil}})

	cases := []StartParams{
		{Role: "backend engineer", Difficulty: "easy"},
		{UserID: "u1", Difficulty: "easy"},
		{UserID: "u1", Role: "backend engineer", Difficulty: "expert"},
	}
	for _, p := range cases {
		_, err := svc.Start(context.Background(), p)
		assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument), "%+v", p)
	}
}

func TestNextQuestion_SequenceAndCompletion(t *testing.T) {
	repo := newFakeRepo()
	fp := &fakeLLM{replies: []string{questionJSON, questionJSON}, errs: []error{nil, nil}}
	svc := newTestService(repo, fp)
	id := startSession(t, svc, 2)

	first, err := svc.NextQuestion(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, first.Question)
	assert.False(t, first.Completed)
	assert.Equal(t, 1, first.Question.Number)
	assert.Equal(t, "Explain goroutines.", first.Question.Text)
	assert.Equal(t, "concurrency", first.Question.Category)
	assert.Equal(t, 50, first.Progress.Percentage)

	second, err := svc.NextQuestion(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Question.Number)
	assert.Equal(t, 100, second.Progress.Percentage)

	// All slots filled: terminal result, no further generation, no mutation.
	done, err := svc.NextQuestion(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	assert.Nil(t, done.Question)
	assert.Len(t, fp.opts, 2)

	stored, _ := repo.GetBySessionID(context.Background(), id)
	assert.Len(t, stored.QuestionsAndAnswers, 2)
	assert.Equal(t, 1, stored.QuestionsAndAnswers[0].QuestionNumber)
	assert.Equal(t, 2, stored.QuestionsAndAnswers[1].QuestionNumber)
}

func TestNextQuestion_GenerationOptions(t *testing.T) {
	fp := &fakeLLM{replies: []string{questionJSON}, errs: []error{nil}}
	svc := newTestService(newFakeRepo(), fp)
	id := startSession(t, svc, 1)

	_, err := svc.NextQuestion(context.Background(), id)
	require.NoError(t, err)

	require.Len(t, fp.opts, 1)
	assert.Equal(t, 0.8, fp.opts[0].Temperature)
	assert.Equal(t, 1000, fp.opts[0].MaxTokens)
	assert.False(t, fp.opts[0].ForceJSON)
}

func TestNextQuestion_UnknownSession(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeLLM{replies: []string{""}, errs: []error{nil}})

	_, err := svc.NextQuestion(context.Background(), "nope")
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestNextQuestion_UnparseableLeavesTranscriptUntouched(t *testing.T) {
	repo := newFakeRepo()
	fp := &fakeLLM{replies: []string{"I cannot answer in JSON, sorry."}, errs: []error{nil}}
	svc := newTestService(repo, fp)
	id := startSession(t, svc, 2)

	_, err := svc.NextQuestion(context.Background(), id)
	assert.True(t, utils.IsCode(err, utils.CodeUnparseable))

	stored, _ := repo.GetBySessionID(context.Background(), id)
	assert.Empty(t, stored.QuestionsAndAnswers)
}

func TestNextQuestion_MissingFieldsRejected(t *testing.T) {
	fp := &fakeLLM{replies: []string{`{"question": "Explain goroutines."}`}, errs: []error{nil}}
	svc := newTestService(newFakeRepo(), fp)
	id := startSession(t, svc, 1)

	_, err := svc.NextQuestion(context.Background(), id)
	assert.True(t, utils.IsCode(err, utils.CodeUnparseable))
}

func TestNextQuestion_UpstreamError(t *testing.T) {
	fp := &fakeLLM{replies: []string{""}, errs: []error{&llm.UpstreamError{Provider: "fake", Status: 503}}}
	svc := newTestService(newFakeRepo(), fp)
	id := startSession(t, svc, 1)

	_, err := svc.NextQuestion(context.Background(), id)
	assert.True(t, utils.IsCode(err, utils.CodeUpstream))
}

func TestSubmitAnswer_StoresEvaluation(t *testing.T) {
	repo := newFakeRepo()
	fp := &fakeLLM{replies: []string{questionJSON, evalJSON}, errs: []error{nil, nil}}
	svc := newTestService(repo, fp)
	id := startSession(t, svc, 2)

	_, err := svc.NextQuestion(context.Background(), id)
	require.NoError(t, err)

	res, err := svc.SubmitAnswer(context.Background(), SubmitParams{
		SessionID:      id,
		QuestionNumber: 1,
		Answer:         "Goroutines are lightweight threads managed by the runtime.",
		TimeSpent:      42,
	})
	require.NoError(t, err)

	assert.Equal(t, 8.0, res.Evaluation.Score)
	assert.Equal(t, "Good answer.", res.Evaluation.Feedback)
	assert.Equal(t, 1, res.Answered)
	assert.Equal(t, 1, res.Remaining)

	// Evaluation call is forced-JSON, low temperature.
	require.Len(t, fp.opts, 2)
	assert.Equal(t, 0.3, fp.opts[1].Temperature)
	assert.Equal(t, 800, fp.opts[1].MaxTokens)
	assert.True(t, fp.opts[1].ForceJSON)

	stored, _ := repo.GetBySessionID(context.Background(), id)
	qa := stored.QuestionsAndAnswers[0]
	assert.True(t, qa.Answered())
	assert.True(t, qa.Evaluated())
	assert.Equal(t, 42, qa.UserAnswer.TimeSpent)
	assert.Equal(t, 8.0, qa.Evaluation.Score)
}

func TestSubmitAnswer_EmptyAnswer(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeLLM{replies: []string{""}, errs: []error{nil}})

	_, err := svc.SubmitAnswer(context.Background(), SubmitParams{SessionID: "s", QuestionNumber: 1})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestSubmitAnswer_QuestionNotFound(t *testing.T) {
	fp := &fakeLLM{replies: []string{questionJSON}, errs: []error{nil}}
	svc := newTestService(newFakeRepo(), fp)
	id := startSession(t, svc, 2)

	_, err := svc.NextQuestion(context.Background(), id)
	require.NoError(t, err)

	_, err = svc.SubmitAnswer(context.Background(), SubmitParams{SessionID: id, QuestionNumber: 2, Answer: "a"})
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestSubmitAnswer_PlainTextFallback(t *testing.T) {
	fp := &fakeLLM{
		replies: []string{
			questionJSON,
			"The answer shows real effort overall.",
			"Score: 7\nStrengths: decent structure.\nImprovements: add examples.",
		},
		errs: []error{nil, nil, nil},
	}
	svc := newTestService(newFakeRepo(), fp)
	id := startSession(t, svc, 1)

	_, err := svc.NextQuestion(context.Background(), id)
	require.NoError(t, err)

	res, err := svc.SubmitAnswer(context.Background(), SubmitParams{SessionID: id, QuestionNumber: 1, Answer: "my answer"})
	require.NoError(t, err)

	assert.Equal(t, 7.0, res.Evaluation.Score)
	assert.Equal(t, []string{"decent structure"}, res.Evaluation.Strengths)
	assert.Equal(t, []string{"add examples"}, res.Evaluation.Improvements)

	// Fallback call drops JSON mode and tightens the budget.
	require.Len(t, fp.opts, 3)
	assert.False(t, fp.opts[2].ForceJSON)
	assert.Equal(t, 500, fp.opts[2].MaxTokens)
}

func TestSubmitAnswer_NeutralDefaultWhenProviderDown(t *testing.T) {
	down := &llm.UpstreamError{Provider: "fake", Status: 503}
	fp := &fakeLLM{
		replies: []string{questionJSON, "", ""},
		errs:    []error{nil, down, down},
	}
	svc := newTestService(newFakeRepo(), fp)
	id := startSession(t, svc, 1)

	_, err := svc.NextQuestion(context.Background(), id)
	require.NoError(t, err)

	res, err := svc.SubmitAnswer(context.Background(), SubmitParams{SessionID: id, QuestionNumber: 1, Answer: "my answer"})
	require.NoError(t, err)

	assert.Equal(t, 5.0, res.Evaluation.Score)
	assert.Equal(t, []string{"Provided a response"}, res.Evaluation.Strengths)
	assert.Equal(t, []string{"Could be more detailed"}, res.Evaluation.Improvements)
	assert.Equal(t, "Thank you for your answer.", res.Evaluation.Feedback)
}

func TestSubmitAnswer_ResubmissionRejected(t *testing.T) {
	repo := newFakeRepo()
	fp := &fakeLLM{replies: []string{questionJSON, evalJSON}, errs: []error{nil, nil}}
	svc := newTestService(repo, fp)
	id := startSession(t, svc, 2)

	_, err := svc.NextQuestion(context.Background(), id)
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(context.Background(), SubmitParams{SessionID: id, QuestionNumber: 1, Answer: "first answer"})
	require.NoError(t, err)

	_, err = svc.SubmitAnswer(context.Background(), SubmitParams{SessionID: id, QuestionNumber: 1, Answer: "second answer"})
	assert.True(t, utils.IsCode(err, utils.CodeFailedPrecondition))

	// No second model call, and the recorded answer is untouched.
	assert.Len(t, fp.opts, 2)
	stored, _ := repo.GetBySessionID(context.Background(), id)
	assert.Equal(t, "first answer", stored.QuestionsAndAnswers[0].UserAnswer.Text)
	assert.Equal(t, 8.0, stored.QuestionsAndAnswers[0].Evaluation.Score)
}

func TestSubmitAnswer_SealedSessionRejected(t *testing.T) {
	repo := newFakeRepo()
	fp := &fakeLLM{replies: []string{questionJSON, evalJSON, reportJSON}, errs: []error{nil, nil, nil}}
	svc := newTestService(repo, fp)
	id := startSession(t, svc, 1)

	_, err := svc.NextQuestion(context.Background(), id)
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(context.Background(), SubmitParams{SessionID: id, QuestionNumber: 1, Answer: "a"})
	require.NoError(t, err)
	_, err = svc.FinalReport(context.Background(), id)
	require.NoError(t, err)

	_, err = svc.SubmitAnswer(context.Background(), SubmitParams{SessionID: id, QuestionNumber: 1, Answer: "late answer"})
	assert.True(t, utils.IsCode(err, utils.CodeFailedPrecondition))
}

func TestFinalReport_IncompleteSession(t *testing.T) {
	repo := newFakeRepo()
	fp := &fakeLLM{replies: []string{questionJSON, evalJSON}, errs: []error{nil, nil}}
	svc := newTestService(repo, fp)
	id := startSession(t, svc, 2)

	_, err := svc.NextQuestion(context.Background(), id)
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(context.Background(), SubmitParams{SessionID: id, QuestionNumber: 1, Answer: "a"})
	require.NoError(t, err)

	_, err = svc.FinalReport(context.Background(), id)
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeFailedPrecondition))

	var ae *utils.AppError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, Progress{Current: 1, Total: 2}, ae.Details)

	stored, _ := repo.GetBySessionID(context.Background(), id)
	assert.Equal(t, models.StatusInProgress, stored.Status)
	assert.Nil(t, stored.EndTime)
}

func TestFinalReport_UnevaluatedQuestion(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeLLM{replies: []string{""}, errs: []error{nil}})

	now := baseTime
	require.NoError(t, repo.Create(context.Background(), &models.InterviewTranscript{
		SessionID:      "s1",
		UserID:         "u1",
		Role:           "backend engineer",
		Difficulty:     "easy",
		TotalQuestions: 1,
		Status:         models.StatusInProgress,
		StartTime:      baseTime,
		QuestionsAndAnswers: []models.QuestionAnswer{{
			QuestionNumber: 1,
			Question:       models.Question{Text: "q", Category: "general"},
			UserAnswer:     models.UserAnswer{Text: "a", Timestamp: &now},
		}},
	}))

	_, err := svc.FinalReport(context.Background(), "s1")
	assert.True(t, utils.IsCode(err, utils.CodeFailedPrecondition))
}

func TestFinalReport_SealsExactlyOnce(t *testing.T) {
	repo := newFakeRepo()
	fp := &fakeLLM{
		replies: []string{questionJSON, evalJSON, reportJSON},
		errs:    []error{nil, nil, nil},
	}
	svc := newTestService(repo, fp)

	id := startSession(t, svc, 1)
	_, err := svc.NextQuestion(context.Background(), id)
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(context.Background(), SubmitParams{SessionID: id, QuestionNumber: 1, Answer: "a"})
	require.NoError(t, err)

	svc.now = func() time.Time { return baseTime.Add(90 * time.Second) }

	res, err := svc.FinalReport(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, id, res.SessionID)
	assert.Equal(t, 8.0, res.Report.OverallScore)
	assert.Equal(t, map[string]float64{"concurrency": 8.0}, res.Report.CategoryBreakdown)
	assert.Equal(t, []string{"consistent"}, res.Report.Strengths)
	assert.Equal(t, []string{"detail"}, res.Report.AreasForImprovement)
	assert.Equal(t, "Good.", res.Report.Summary)
	assert.Equal(t, int64(90), res.Duration)

	// Report generation runs with JSON mode and the large budget.
	require.Len(t, fp.opts, 3)
	assert.Equal(t, 0.6, fp.opts[2].Temperature)
	assert.Equal(t, 5000, fp.opts[2].MaxTokens)
	assert.True(t, fp.opts[2].ForceJSON)

	stored, _ := repo.GetBySessionID(context.Background(), id)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	require.NotNil(t, stored.EndTime)
	assert.Equal(t, int64(90), stored.TotalDuration)
	assert.Equal(t, 8.0, stored.OverallScore)

	// A sealed transcript cannot be sealed again.
	_, err = svc.FinalReport(context.Background(), id)
	assert.True(t, utils.IsCode(err, utils.CodeFailedPrecondition))

	// Nor can it take more questions.
	_, err = svc.NextQuestion(context.Background(), id)
	assert.True(t, utils.IsCode(err, utils.CodeFailedPrecondition))
}

func TestGetTranscript_CompletedServedFromCache(t *testing.T) {
	repo := newFakeRepo()
	fp := &fakeLLM{replies: []string{questionJSON, evalJSON, reportJSON}, errs: []error{nil, nil, nil}}
	svc := newTestService(repo, fp)
	fc := newFakeCache()
	svc.cache = fc
	id := startSession(t, svc, 1)

	_, err := svc.NextQuestion(context.Background(), id)
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(context.Background(), SubmitParams{SessionID: id, QuestionNumber: 1, Answer: "a"})
	require.NoError(t, err)
	_, err = svc.FinalReport(context.Background(), id)
	require.NoError(t, err)

	// Sealing populated the cache.
	assert.Equal(t, 1, fc.puts)

	// The cached copy answers even when the store is unavailable.
	delete(repo.store, id)
	got, err := svc.GetTranscript(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, id, got.SessionID)
}

func TestGetTranscript_InProgressNotCached(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeLLM{replies: []string{""}, errs: []error{nil}})
	fc := newFakeCache()
	svc.cache = fc
	id := startSession(t, svc, 2)

	got, err := svc.GetTranscript(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)
	assert.Zero(t, fc.puts)
}

func TestGetTranscript_RequiresSessionID(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeLLM{replies: []string{""}, errs: []error{nil}})

	_, err := svc.GetTranscript(context.Background(), "")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestListUserInterviews_RequiresUserID(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeLLM{replies: []string{""}, errs: []error{nil}})

	_, err := svc.ListUserInterviews(context.Background(), "", mongorepo.ListFilter{})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}
