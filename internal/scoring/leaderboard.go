package scoring

import (
	"sort"

	"github.com/sakif/hackhub/internal/model"
)

// Entry is one leaderboard row. Rank is assigned at read time and never stored.
type Entry struct {
	model.Submission
	Rank int `json:"rank"`
}

// Leaderboard ranks the scored submissions in subs.
//
// Reviewed submissions are preferred. While judging is still under way and
// nothing is reviewed yet, every scored submission is ranked instead so the
// board is never empty once scoring starts.
//
// Order is finalScore descending, then createdAt ascending (the earlier
// submission wins a tie). A stored finalScore of zero is treated as stale and
// recomputed from the scores.
func Leaderboard(subs []model.Submission) []Entry {
	var reviewed, scored []model.Submission
	for _, s := range subs {
		if len(s.Scores) == 0 {
			continue
		}
		scored = append(scored, s)
		if s.Status == model.StatusReviewed {
			reviewed = append(reviewed, s)
		}
	}

	selected := reviewed
	if len(selected) == 0 {
		selected = scored
	}

	entries := make([]Entry, len(selected))
	for i, s := range selected {
		if s.FinalScore <= 0 {
			s.FinalScore = FinalScore(s.Scores)
		}
		entries[i] = Entry{Submission: s}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.FinalScore != b.FinalScore {
			return a.FinalScore > b.FinalScore
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
