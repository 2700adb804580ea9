package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transcript statuses. The status is monotonic: an in-progress session may
// only move to completed (or be abandoned administratively).
const (
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusAbandoned  = "abandoned"
)

var Difficulties = []string{"easy", "medium", "hard"}

func ValidDifficulty(d string) bool {
	for _, v := range Difficulties {
		if v == d {
			return true
		}
	}
	return false
}

// InterviewTranscript is the persisted record of one interview session,
// keyed by SessionID. QuestionsAndAnswers is append-only while the session
// is in progress; the aggregate fields are written exactly once at sealing.
type InterviewTranscript struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SessionID string             `bson:"session_id" json:"session_id"` // uuid v4
	UserID    string             `bson:"user_id" json:"user_id"`

	Role           string `bson:"role" json:"role"`
	Difficulty     string `bson:"difficulty" json:"difficulty"` // easy|medium|hard
	Topic          string `bson:"topic,omitempty" json:"topic,omitempty"`
	TotalQuestions int    `bson:"total_questions" json:"total_questions"`

	Status string `bson:"status" json:"status"`

	StartTime     time.Time  `bson:"start_time" json:"start_time"`
	EndTime       *time.Time `bson:"end_time,omitempty" json:"end_time,omitempty"`
	TotalDuration int64      `bson:"total_duration" json:"total_duration"` // seconds

	QuestionsAndAnswers []QuestionAnswer `bson:"questions_and_answers" json:"questions_and_answers"`

	OverallScore      float64            `bson:"overall_score,omitempty" json:"overall_score,omitempty"`
	CategoryBreakdown map[string]float64 `bson:"category_breakdown,omitempty" json:"category_breakdown,omitempty"`
	Strengths         []string           `bson:"strengths,omitempty" json:"strengths,omitempty"`
	Improvements      []string           `bson:"improvements,omitempty" json:"improvements,omitempty"`
	Recommendations   []string           `bson:"recommendations,omitempty" json:"recommendations,omitempty"`
	DetailedAnalysis  string             `bson:"detailed_analysis,omitempty" json:"detailed_analysis,omitempty"`
	Summary           string             `bson:"summary,omitempty" json:"summary,omitempty"`

	AIModel   string    `bson:"ai_model,omitempty" json:"ai_model,omitempty"`
	AISource  string    `bson:"ai_source,omitempty" json:"ai_source,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// QuestionAnswer is one question slot in a transcript. QuestionNumber is
// 1-based and equals its position in the sequence at append time.
type QuestionAnswer struct {
	QuestionNumber int        `bson:"question_number" json:"question_number"`
	Question       Question   `bson:"question" json:"question"`
	UserAnswer     UserAnswer `bson:"user_answer" json:"user_answer"`
	Evaluation     Evaluation `bson:"evaluation" json:"evaluation"`
}

type Question struct {
	Text           string   `bson:"text" json:"text"`
	Category       string   `bson:"category" json:"category"`
	ExpectedPoints []string `bson:"expected_points" json:"expected_points"`
}

type UserAnswer struct {
	Text      string     `bson:"text" json:"text"`
	Timestamp *time.Time `bson:"timestamp,omitempty" json:"timestamp,omitempty"`
	TimeSpent int        `bson:"time_spent" json:"time_spent"` // seconds
}

type Evaluation struct {
	Score        float64    `bson:"score" json:"score"` // 0..10
	Strengths    []string   `bson:"strengths,omitempty" json:"strengths,omitempty"`
	Improvements []string   `bson:"improvements,omitempty" json:"improvements,omitempty"`
	Feedback     string     `bson:"feedback,omitempty" json:"feedback,omitempty"`
	EvaluatedAt  *time.Time `bson:"evaluated_at,omitempty" json:"evaluated_at,omitempty"`
}

// Evaluated reports whether the evaluation step has run for this entry.
func (qa QuestionAnswer) Evaluated() bool {
	return qa.Evaluation.EvaluatedAt != nil
}

// Answered reports whether the answer has been submitted for this entry.
func (qa QuestionAnswer) Answered() bool {
	return qa.UserAnswer.Timestamp != nil
}
