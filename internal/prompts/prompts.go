// Package prompts builds the prompt text sent to the completion backend.
package prompts

import (
	"fmt"
	"strings"

	"github.com/nmkrspvl/interviewprep/internal/models"
)

// NextQuestion asks for exactly one interview question as a JSON object,
// embedding prior Q/A pairs so the model does not repeat itself.
func NextQuestion(t *models.InterviewTranscript, current int) string {
	var prior strings.Builder
	for i, qa := range t.QuestionsAndAnswers {
		fmt.Fprintf(&prior, "Q%d (%s): %s\nAnswer: %s\n\n", i+1, qa.Question.Category, qa.Question.Text, qa.UserAnswer.Text)
	}
	contextNote := ""
	if prior.Len() > 0 {
		contextNote = fmt.Sprintf("\nPrevious questions asked:\n%s\nAvoid repeating similar questions.", prior.String())
	}

	focus := ""
	if t.Topic != "" {
		focus = fmt.Sprintf(" focusing on %s", t.Topic)
	}

	return fmt.Sprintf(`You are conducting a %s level interview for a %s position%s.

This is question %d of %d.%s

Generate ONE interview question that:
- Is appropriate for %s level (easy = fundamental concepts, medium = practical application, hard = advanced problem-solving)
- Is relevant to %s role
- Tests different aspects than previous questions
- Is clear and professional
- Has 3-5 expected key points for a good answer

Provide your response ONLY as JSON in this exact format:
{
  "question": "The interview question text",
  "category": "Category name (e.g., Technical, Behavioral, Problem-Solving, System Design, etc.)",
  "expectedPoints": ["key point 1", "key point 2", "key point 3"]
}

Return ONLY the JSON object, no markdown formatting, no extra text.`,
		t.Difficulty, t.Role, focus, current, t.TotalQuestions, contextNote, t.Difficulty, t.Role)
}

// Evaluation asks for a scored evaluation of one answer against the
// question's expected key points.
func Evaluation(qa *models.QuestionAnswer, answer string) string {
	expected := ""
	if len(qa.Question.ExpectedPoints) > 0 {
		var pts strings.Builder
		for i, p := range qa.Question.ExpectedPoints {
			fmt.Fprintf(&pts, "%d. %s\n", i+1, p)
		}
		expected = fmt.Sprintf("\n\nExpected Key Points for a Good Answer:\n%s", strings.TrimRight(pts.String(), "\n"))
	}

	return fmt.Sprintf(`You are an expert interviewer. Evaluate this interview answer and determine if it is correct.

Question: %s
Category: %s%s

Candidate's Answer: %s

Evaluate the answer based on:
1. Correctness - Does it answer the question accurately?
2. Completeness - Does it cover the expected key points?
3. Technical Accuracy - Are the concepts and solutions correct?
4. Clarity - Is the explanation clear and well-structured?

Score 0-10:
- 0-2: Incorrect, off-topic, or no meaningful content
- 3-4: Partially correct but missing major points
- 5-6: Correct but incomplete, covers some key points
- 7-8: Mostly correct, covers most key points with good detail
- 9-10: Excellent, comprehensive, covers all points with depth

Return ONLY this JSON format:
{
  "score": 7,
  "strengths": ["what was good in the answer"],
  "improvements": ["what was missing or could be better"],
  "feedback": "One sentence summary of the evaluation"
}`, qa.Question.Text, qa.Question.Category, expected, answer)
}

// FinalReport asks only for qualitative analysis; the numeric scores are
// computed locally and embedded as context.
func FinalReport(t *models.InterviewTranscript, overall float64, breakdown map[string]float64) string {
	var summary strings.Builder
	for i, qa := range t.QuestionsAndAnswers {
		fmt.Fprintf(&summary, "Q%d (%s): Score %.0f/10 - %s\n", i+1, qa.Question.Category, qa.Evaluation.Score, qa.Evaluation.Feedback)
	}

	var cats []string
	for cat, score := range breakdown {
		cats = append(cats, fmt.Sprintf("%s: %.1f/10", cat, score))
	}

	return fmt.Sprintf(`You are an expert interview evaluator. Based on this %s interview performance at %s level, provide qualitative feedback.

PERFORMANCE SUMMARY:
%s
Overall Average Score: %.1f/10
Category Scores: %s

Based on the scores and feedback above, generate a JSON response with qualitative insights:
{
  "strengths": ["strength 1", "strength 2", "strength 3"],
  "areasForImprovement": ["improvement area 1", "improvement area 2", "improvement area 3"],
  "recommendations": ["recommendation 1", "recommendation 2", "recommendation 3"],
  "detailedAnalysis": "2-3 paragraph assessment of technical competency, communication, problem-solving, and interview readiness",
  "summary": "One sentence overall impression"
}

Return ONLY valid JSON, no markdown, no code blocks.`,
		t.Role, t.Difficulty, summary.String(), overall, strings.Join(cats, ", "))
}

// BulkQuestions asks for a full question set in one call. Unlike the
// per-session flow, the result here is a JSON array.
func BulkQuestions(role, difficulty string, count int) string {
	return fmt.Sprintf(`Generate %d interview questions for a %s position at %s difficulty level.

For each question, provide:
1. The question text
2. Category (e.g., Technical, Behavioral, Problem-Solving, etc.)
3. Expected key points in the answer (3-5 points)

Format as JSON array:
[
  {
    "question": "Question text here",
    "category": "Category name",
    "expectedPoints": ["point1", "point2", "point3"]
  }
]

Make questions:
- Relevant to %s role
- Appropriate for %s level (easy = basic concepts, medium = practical experience, hard = advanced scenarios)
- Mix of technical and behavioral questions
- Progressive difficulty
- Professional and clear

Return ONLY the JSON array, no markdown formatting.`, count, role, difficulty, role, difficulty)
}

// StandaloneEvaluation evaluates a question/answer pair outside a session.
func StandaloneEvaluation(question, answer string, expectedPoints []string) string {
	return fmt.Sprintf(`You are an experienced HR interviewer. Evaluate this interview answer:

Question: %s

Candidate's Answer: %s

Expected Key Points: %s

Provide:
1. Score (0-10)
2. Strengths (what was good)
3. Areas for improvement
4. Brief feedback (2-3 sentences)

Format as JSON:
{
  "score": 7,
  "strengths": ["point1", "point2"],
  "improvements": ["point1", "point2"],
  "feedback": "Brief feedback text"
}

Return ONLY the JSON object, no markdown formatting.`, question, answer, strings.Join(expectedPoints, ", "))
}
