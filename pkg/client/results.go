package client

import (
	"context"
	"fmt"
	"math"
	"strconv"
)

// ScoringMode describes how an attempt's score should be presented.
type ScoringMode int

const (
	// ModeCorrectness counts exact-match answers; the percentage is shown
	// as an integer.
	ModeCorrectness ScoringMode = iota
	// ModeAIGraded sums fractional per-answer scores; the percentage is
	// shown with two decimals.
	ModeAIGraded
)

// Results presents a graded attempt: its scoring summary plus independently
// expandable per-answer panels.
type Results struct {
	Attempt *Attempt

	expanded map[uint]bool
}

// LoadResults fetches an attempt by its string id. An unparseable id fails
// immediately without any network call.
func LoadResults(ctx context.Context, c *Client, attemptID string) (*Results, error) {
	id, err := strconv.ParseUint(attemptID, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid attempt id %q", attemptID)
	}
	attempt, err := c.GetAttempt(ctx, uint(id))
	if err != nil {
		return nil, err
	}
	return &Results{Attempt: attempt, expanded: make(map[uint]bool)}, nil
}

// Mode inspects every answer's score to pick the presentation. Scores that
// are all absent or exactly 0 or 1 mean plain correctness counting; any
// fractional or out-of-range score means the attempt was AI-graded.
func (r *Results) Mode() ScoringMode {
	for _, a := range r.Attempt.Answers {
		if a.Score == nil {
			continue
		}
		if s := *a.Score; s != 0 && s != 1 {
			return ModeAIGraded
		}
	}
	return ModeCorrectness
}

// Numerator is the score total for the detected mode: the count of correct
// answers, or the sum of fractional scores.
func (r *Results) Numerator() float64 {
	if r.Mode() == ModeAIGraded {
		sum := 0.0
		for _, a := range r.Attempt.Answers {
			if a.Score != nil {
				sum += *a.Score
			}
		}
		return sum
	}
	count := 0.0
	for _, a := range r.Attempt.Answers {
		if a.IsCorrect {
			count++
		}
	}
	return count
}

// Percentage is Numerator over the number of answers, as a percentage.
// An attempt with no answers scores zero.
func (r *Results) Percentage() float64 {
	total := len(r.Attempt.Answers)
	if total == 0 {
		return 0
	}
	return r.Numerator() / float64(total) * 100
}

// FormatScore renders the numerator for display: an integer count in
// correctness mode, two decimals when AI-graded.
func (r *Results) FormatScore() string {
	if r.Mode() == ModeAIGraded {
		return fmt.Sprintf("%.2f", r.Numerator())
	}
	return strconv.Itoa(int(r.Numerator()))
}

// FormatPercentage renders the percentage for display, following the same
// integer versus two-decimal rule as FormatScore.
func (r *Results) FormatPercentage() string {
	if r.Mode() == ModeAIGraded {
		return fmt.Sprintf("%.2f%%", r.Percentage())
	}
	return strconv.Itoa(int(math.Round(r.Percentage()))) + "%"
}

// Toggle flips the expansion of one answer's detail panel. Panels expand
// independently; opening one never closes another.
func (r *Results) Toggle(answerID uint) {
	r.expanded[answerID] = !r.expanded[answerID]
}

// Expanded reports whether an answer's detail panel is open.
func (r *Results) Expanded(answerID uint) bool {
	return r.expanded[answerID]
}

// ShowCorrectAnswer reports whether the ground-truth answer should be shown
// for one result. It is suppressed when the user already answered correctly.
func ShowCorrectAnswer(a AnswerResult) bool {
	return !a.IsCorrect && a.CorrectAnswer != ""
}
