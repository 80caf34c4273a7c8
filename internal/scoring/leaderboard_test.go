package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/hackhub/internal/model"
)

func scored(id string, status model.SubmissionStatus, final float64, created time.Time) model.Submission {
	return model.Submission{
		ID:         id,
		Status:     status,
		FinalScore: final,
		Scores:     []model.Score{score("j1", 5, 5, 5, 5, 5)},
		CreatedAt:  created,
	}
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestLeaderboard_TieBreakByCreatedAt(t *testing.T) {
	subs := []model.Submission{
		scored("a", model.StatusReviewed, 8.5, t0),
		scored("late", model.StatusReviewed, 9.0, t0.Add(2*time.Hour)),
		scored("early", model.StatusReviewed, 9.0, t0.Add(time.Hour)),
	}

	board := Leaderboard(subs)

	require.Len(t, board, 3)
	assert.Equal(t, []string{"early", "late", "a"}, ids(board))
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, 2, board[1].Rank)
	assert.Equal(t, 3, board[2].Rank)
}

func TestLeaderboard_PrefersReviewed(t *testing.T) {
	subs := []model.Submission{
		scored("pending", model.StatusUnderReview, 10, t0),
		scored("done", model.StatusReviewed, 4, t0),
	}

	assert.Equal(t, []string{"done"}, ids(Leaderboard(subs)))
}

func TestLeaderboard_FallsBackToScored(t *testing.T) {
	unscored := model.Submission{ID: "unscored", Status: model.StatusSubmitted, CreatedAt: t0}
	subs := []model.Submission{
		unscored,
		scored("b", model.StatusUnderReview, 6, t0),
		scored("c", model.StatusUnderReview, 7, t0),
	}

	assert.Equal(t, []string{"c", "b"}, ids(Leaderboard(subs)))
}

func TestLeaderboard_RecomputesZeroFinalScore(t *testing.T) {
	stale := scored("stale", model.StatusReviewed, 0, t0)
	stale.Scores = []model.Score{score("j1", 10, 10, 10, 10, 10)}
	subs := []model.Submission{stale, scored("other", model.StatusReviewed, 6, t0)}

	board := Leaderboard(subs)

	require.Len(t, board, 2)
	assert.Equal(t, "stale", board[0].ID)
	assert.InDelta(t, 10.0, board[0].FinalScore, 1e-9)
}

func TestLeaderboard_Empty(t *testing.T) {
	assert.Empty(t, Leaderboard(nil))
}
