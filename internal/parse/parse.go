// Package parse recovers structured JSON values from free-form LLM output.
package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// MalformedError is returned when no JSON value could be recovered from the
// model output. Head and Tail carry truncated excerpts for diagnostics.
type MalformedError struct {
	TextLen int
	Head    string
	Tail    string
	Err     error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("failed to parse LLM response as JSON (len=%d): %v", e.TextLen, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

const excerptLen = 500

func newMalformedError(original string, err error) *MalformedError {
	head := original
	if len(head) > excerptLen {
		head = head[:excerptLen]
	}
	tail := ""
	if len(original) > excerptLen {
		tail = original[len(original)-excerptLen:]
	}
	return &MalformedError{TextLen: len(original), Head: head, Tail: tail, Err: err}
}

// Structured extracts a single JSON value from noisy model output.
//
// Objects always win over arrays: every evaluation, question, and report
// payload is an object, so a balanced {...} span is extracted and returned
// before direct parsing or array extraction is ever attempted. The order of
// the stages below is load-bearing; reordering changes which value wins when
// the text contains both an object and an array.
func Structured(text string) (json.RawMessage, error) {
	cleaned := stripFences(text)

	// Stage 1: first balanced {...} span, by lexical brace counting.
	if span, ok := objectSpan(cleaned); ok {
		if json.Valid([]byte(span)) {
			return json.RawMessage(span), nil
		}
	}

	// Stage 2: the whole cleaned text. An array result is only a fallback;
	// keep looking for an object-bearing span first.
	trimmed := strings.TrimSpace(cleaned)
	if json.Valid([]byte(trimmed)) && !strings.HasPrefix(trimmed, "[") {
		return json.RawMessage(trimmed), nil
	}

	// Stage 3: outermost [...] span.
	if start, end := strings.Index(cleaned, "["), strings.LastIndex(cleaned, "]"); start != -1 && end > start {
		span := cleaned[start : end+1]
		if json.Valid([]byte(span)) {
			return json.RawMessage(span), nil
		}
	}

	// Stage 4: final direct parse, to surface a precise error (and to return
	// a bare array when that is all the text ever contained).
	var v json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return nil, newMalformedError(text, err)
	}
	return v, nil
}

// StructuredInto parses model output and unmarshals the recovered value into
// dst. An extraction that succeeds lexically but does not fit dst is still a
// malformed response.
func StructuredInto(text string, dst any) error {
	raw, err := Structured(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return newMalformedError(text, err)
	}
	return nil
}

// StructuredArray is the array-first variant used by bulk question
// generation, where the payload is a JSON array of objects and object
// extraction would wrongly grab the first element.
func StructuredArray(text string) (json.RawMessage, error) {
	cleaned := strings.TrimSpace(stripFences(text))
	if json.Valid([]byte(cleaned)) {
		return json.RawMessage(cleaned), nil
	}
	if start, end := strings.Index(cleaned, "["), strings.LastIndex(cleaned, "]"); start != -1 && end > start {
		span := cleaned[start : end+1]
		if json.Valid([]byte(span)) {
			return json.RawMessage(span), nil
		}
	}
	var v json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return nil, newMalformedError(text, err)
	}
	return v, nil
}

func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// objectSpan returns the first balanced {...} span. Counting is purely
// lexical: braces inside string literals are not special-cased.
func objectSpan(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// PlainEvaluation is the degraded-mode result of PlainText.
type PlainEvaluation struct {
	Score        int      `json:"score"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Feedback     string   `json:"feedback"`
}

var (
	scoreOutOfRe   = regexp.MustCompile(`(?i)(\d+)\s*(?:/|out of)\s*10`)
	scoreLabelRe   = regexp.MustCompile(`(?i)score[:\s]+(\d+)`)
	strengthsRe    = regexp.MustCompile(`(?is)strengths?[:\s]+(.*?)(?:improvement|weakness|$)`)
	improvementsRe = regexp.MustCompile(`(?is)(?:improvement|weakness)s?[:\s]+(.*?)(?:feedback|$)`)
	sentenceSplit  = regexp.MustCompile(`[.,;]\s*`)
)

// PlainText heuristically coerces a plain-text model reply into an
// evaluation. It is the last fallback before the fixed default and never
// fails: missing pieces are replaced with generic filler.
func PlainText(text, kind string) PlainEvaluation {
	if kind != "evaluation" {
		return PlainEvaluation{}
	}

	score := 5 // middle of the scale when no number is found
	if m := scoreOutOfRe.FindStringSubmatch(text); m != nil {
		score = atoiClamped(m[1])
	} else if m := scoreLabelRe.FindStringSubmatch(text); m != nil {
		score = atoiClamped(m[1])
	}

	strengths := []string{"Shows understanding of the topic"}
	if m := strengthsRe.FindStringSubmatch(text); m != nil {
		if s := firstClause(m[1]); s != "" {
			strengths = []string{s}
		}
	}

	improvements := []string{"Could provide more specific examples"}
	if m := improvementsRe.FindStringSubmatch(text); m != nil {
		if s := firstClause(m[1]); s != "" {
			improvements = []string{s}
		}
	}

	feedback := strings.TrimSpace(text)
	if len(feedback) > 200 {
		feedback = strings.TrimSpace(feedback[:200])
	}

	return PlainEvaluation{
		Score:        score,
		Strengths:    strengths,
		Improvements: improvements,
		Feedback:     feedback,
	}
}

func firstClause(s string) string {
	return strings.TrimSpace(sentenceSplit.Split(strings.TrimSpace(s), 2)[0])
}

func atoiClamped(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
		if n > 10 {
			return 10
		}
	}
	return n
}
