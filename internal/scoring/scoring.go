// Package scoring computes deterministic score aggregates from stored
// per-question evaluations. No LLM involvement: the numeric part of a final
// report is authoritative and reproducible.
package scoring

import (
	"fmt"
	"math"

	"github.com/nmkrspvl/interviewprep/internal/models"
)

type Result struct {
	OverallScore      float64            `json:"overall_score"`
	CategoryBreakdown map[string]float64 `json:"category_breakdown"`
}

// Aggregate computes the overall mean and per-category means, each rounded
// to one decimal. Callers must only invoke it on a fully evaluated
// transcript; an entry without an evaluation is an error, not a zero.
func Aggregate(qas []models.QuestionAnswer) (Result, error) {
	if len(qas) == 0 {
		return Result{}, fmt.Errorf("no answers to aggregate")
	}

	var total float64
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, qa := range qas {
		if !qa.Evaluated() {
			return Result{}, fmt.Errorf("question %d has no evaluation", qa.QuestionNumber)
		}
		total += qa.Evaluation.Score
		sums[qa.Question.Category] += qa.Evaluation.Score
		counts[qa.Question.Category]++
	}

	breakdown := make(map[string]float64, len(sums))
	for cat, sum := range sums {
		breakdown[cat] = round1(sum / float64(counts[cat]))
	}

	return Result{
		OverallScore:      round1(total / float64(len(qas))),
		CategoryBreakdown: breakdown,
	}, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
