// Package scoring is the submission scoring aggregator: score validation, the
// per-judge upsert, the final score, the status machine and badge bookkeeping.
//
// Everything operates on an already-loaded *model.Submission and mutates it in
// memory. Persisting the result (under optimistic concurrency) is the
// caller's job, which keeps this package free of storage and easy to test.
package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/sakif/hackhub/internal/access"
	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/model"
)

const (
	MinCriterion = 0.0
	MaxCriterion = 10.0

	criteriaPerScore = 5
)

// Validate checks that every criterion lies in [0, 10].
func Validate(s model.Score) error {
	criteria := []struct {
		field string
		value float64
	}{
		{"innovation", s.Innovation},
		{"technical", s.Technical},
		{"design", s.Design},
		{"presentation", s.Presentation},
		{"overall", s.Overall},
	}
	for _, c := range criteria {
		if math.IsNaN(c.value) || c.value < MinCriterion || c.value > MaxCriterion {
			return apperror.ValidationFailed(c.field,
				fmt.Sprintf("%s must be between %g and %g", c.field, MinCriterion, MaxCriterion))
		}
	}
	return nil
}

// FinalScore is the mean of every individual criterion value across all
// judges: Σ(score totals) / (judges × 5). No scores yields 0.
func FinalScore(scores []model.Score) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s.Total()
	}
	return sum / float64(len(scores)*criteriaPerScore)
}

// Upsert stores score on sub, replacing the row of the same judge in place
// or appending a new row. It reports whether a row was replaced.
func Upsert(sub *model.Submission, score model.Score) bool {
	for i := range sub.Scores {
		if access.Same(sub.Scores[i].JudgeID, score.JudgeID) {
			sub.Scores[i] = score
			return true
		}
	}
	sub.Scores = append(sub.Scores, score)
	return false
}

// distinctJudges counts judges with a score row. Upsert keeps one row per
// judge, but documents written by other tools may not.
func distinctJudges(scores []model.Score) int {
	seen := make(map[string]struct{}, len(scores))
	for _, s := range scores {
		seen[s.JudgeID] = struct{}{}
	}
	return len(seen)
}

// Advance moves sub forward through submitted → under-review → reviewed.
// It never moves a submission backwards.
func Advance(sub *model.Submission) {
	if len(sub.Scores) == 0 {
		return
	}
	if sub.Status == model.StatusSubmitted || sub.Status == "" {
		sub.Status = model.StatusUnderReview
	}
	if sub.Status == model.StatusUnderReview &&
		sub.RequiredJudges > 0 &&
		distinctJudges(sub.Scores) >= sub.RequiredJudges {
		sub.Status = model.StatusReviewed
	}
}

// ApplyScore validates score and folds it into sub: the upsert, the final
// score and the status transition. activeJudges is only consulted when the
// submission was filed while no judge was active, in which case the
// required-judge threshold is captured now.
func ApplyScore(sub *model.Submission, score model.Score, activeJudges int, now time.Time) error {
	if score.JudgeID == "" {
		return apperror.ValidationFailed("judge", "judge is required")
	}
	if err := Validate(score); err != nil {
		return err
	}

	if sub.RequiredJudges <= 0 {
		sub.RequiredJudges = max(activeJudges, 1)
	}

	score.ScoredAt = now
	Upsert(sub, score)
	sub.FinalScore = FinalScore(sub.Scores)
	Advance(sub)
	sub.UpdatedAt = now
	return nil
}
