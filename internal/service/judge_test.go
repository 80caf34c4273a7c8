package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/auth"
	"github.com/sakif/hackhub/internal/model"
)

// =========================================================================
// REGISTRATION AND LOGIN TESTS
// =========================================================================

func TestJudgeRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.judges.Register(ctx, JudgeRegisterInput{
		Name: "Alice", Email: "Alice@Judges.example.com", Password: "judge-pass", JudgeCode: "JUDGE2024",
	})
	require.NoError(t, err)
	assert.Equal(t, model.SpecGeneral, res.Judge.Specialization)
	assert.Equal(t, "alice@judges.example.com", res.Judge.Email)
	assert.True(t, res.Judge.IsActive)

	subject, err := env.tokens.Validate(res.Token, auth.KindJudge)
	require.NoError(t, err)
	assert.Equal(t, res.Judge.ID, subject)

	_, err = env.tokens.Validate(res.Token, auth.KindUser)
	assert.Error(t, err, "judge tokens are not user sessions")
}

func TestJudgeRegister_Rejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerJudge(t, "alice", 0)

	tests := []struct {
		name    string
		input   JudgeRegisterInput
		wantErr error
	}{
		{"unknown code", JudgeRegisterInput{Name: "Bob", Email: "bob@example.com", Password: "judge-pass", JudgeCode: "LETMEIN"}, apperror.ErrValidation},
		{"bad specialization", JudgeRegisterInput{Name: "Bob", Email: "bob@example.com", Password: "judge-pass", JudgeCode: "HACKJUDGE", Specialization: "cooking"}, apperror.ErrValidation},
		{"duplicate email", JudgeRegisterInput{Name: "Alice", Email: "alice@judges.example.com", Password: "judge-pass", JudgeCode: "HACKJUDGE"}, apperror.ErrConflict},
		{"code already used", JudgeRegisterInput{Name: "Bob", Email: "bob@example.com", Password: "judge-pass", JudgeCode: testJudgeCodes[0]}, apperror.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.judges.Register(ctx, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestJudgeLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	judge := env.registerJudge(t, "alice", 0)

	res, err := env.judges.Login(ctx, "alice@judges.example.com", "judge-pass")
	require.NoError(t, err)
	assert.Equal(t, judge.ID, res.Judge.ID)
	assert.NotNil(t, res.Judge.LastLogin)

	_, err = env.judges.Login(ctx, "alice@judges.example.com", "wrong-pass")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	// Deactivate directly in storage; there is no API for it.
	stored, err := env.store.GetJudgeByID(ctx, judge.ID)
	require.NoError(t, err)
	stored.IsActive = false
	require.NoError(t, env.store.UpdateJudge(ctx, stored))

	_, err = env.judges.Login(ctx, "alice@judges.example.com", "judge-pass")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	active, err := env.judges.IsActive(ctx, judge.ID)
	require.NoError(t, err)
	assert.False(t, active)

	_, err = env.judges.Get(ctx, judge.ID)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

// =========================================================================
// SCORING TESTS
// =========================================================================

func TestScore_UpsertsPerJudgeAndAdvances(t *testing.T) {
	f := newSubmitFixture(t)
	ctx := context.Background()
	alice := f.env.registerJudge(t, "alice", 0)
	bob := f.env.registerJudge(t, "bob", 1)
	sub := f.submit(t, "launcher")
	require.Equal(t, 2, sub.RequiredJudges)

	got, err := f.env.judges.Score(ctx, alice.ID, sub.ID, score(4))
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnderReview, got.Status)
	assert.InDelta(t, 4.0, got.FinalScore, 1e-9)

	got, err = f.env.judges.Score(ctx, alice.ID, sub.ID, score(8))
	require.NoError(t, err)
	assert.Len(t, got.Scores, 1, "second score by the same judge replaces the first")
	assert.InDelta(t, 8.0, got.FinalScore, 1e-9)
	assert.Equal(t, model.StatusUnderReview, got.Status)

	got, err = f.env.judges.Score(ctx, bob.ID, sub.ID, score(6))
	require.NoError(t, err)
	assert.Len(t, got.Scores, 2)
	assert.InDelta(t, 7.0, got.FinalScore, 1e-9)
	assert.Equal(t, model.StatusReviewed, got.Status)
}

func TestScore_ThresholdIsASnapshot(t *testing.T) {
	f := newSubmitFixture(t)
	ctx := context.Background()
	alice := f.env.registerJudge(t, "alice", 0)
	sub := f.submit(t, "launcher")

	// A judge joining after submission does not raise the bar.
	f.env.registerJudge(t, "bob", 1)

	got, err := f.env.judges.Score(ctx, alice.ID, sub.ID, score(5))
	require.NoError(t, err)
	assert.Equal(t, model.StatusReviewed, got.Status)
}

func TestScore_NoJudgesAtSubmissionUsesFirstScore(t *testing.T) {
	f := newSubmitFixture(t)
	ctx := context.Background()
	sub := f.submit(t, "launcher")
	require.Equal(t, 0, sub.RequiredJudges)

	alice := f.env.registerJudge(t, "alice", 0)
	f.env.registerJudge(t, "bob", 1)

	got, err := f.env.judges.Score(ctx, alice.ID, sub.ID, score(5))
	require.NoError(t, err)
	assert.Equal(t, 2, got.RequiredJudges)
	assert.Equal(t, model.StatusUnderReview, got.Status)
}

func TestScore_Rejects(t *testing.T) {
	f := newSubmitFixture(t)
	ctx := context.Background()
	alice := f.env.registerJudge(t, "alice", 0)
	sub := f.submit(t, "launcher")

	bad := score(5)
	bad.Design = 11
	_, err := f.env.judges.Score(ctx, alice.ID, sub.ID, bad)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	wordy := score(5)
	wordy.Feedback = strings.Repeat("f", MaxFeedbackLength+1)
	_, err = f.env.judges.Score(ctx, alice.ID, sub.ID, wordy)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	wordy.Feedback = strings.Repeat("f", MaxFeedbackLength)
	_, err = f.env.judges.Score(ctx, alice.ID, "missing", wordy)
	assert.ErrorIs(t, err, apperror.ErrNotFound, "feedback at the limit passes validation")

	_, err = f.env.judges.Score(ctx, alice.ID, "missing", score(5))
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	stored, err := f.env.store.GetSubmissionByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Scores)
	assert.Equal(t, model.StatusSubmitted, stored.Status)
}

func TestScore_ConcurrentJudgesKeepEveryScore(t *testing.T) {
	// A file database hands every goroutine its own pooled connection, so
	// the writes really contend for SQLite's lock.
	f := newSubmitFixtureOn(t, newFileTestEnv(t))
	ctx := context.Background()
	judges := []*model.Judge{
		f.env.registerJudge(t, "alice", 0),
		f.env.registerJudge(t, "bob", 1),
		f.env.registerJudge(t, "carol", 2),
	}
	sub := f.submit(t, "launcher")

	var wg sync.WaitGroup
	errs := make([]error, len(judges))
	for i, j := range judges {
		wg.Add(1)
		go func(i int, judgeID string) {
			defer wg.Done()
			_, errs[i] = f.env.judges.Score(ctx, judgeID, sub.ID, score(float64(i+5)))
		}(i, j.ID)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "judge %d", i)
	}
	stored, err := f.env.store.GetSubmissionByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Scores, 3)
	assert.InDelta(t, 6.0, stored.FinalScore, 1e-9)
	assert.Equal(t, model.StatusReviewed, stored.Status)
}

// =========================================================================
// BADGE TESTS
// =========================================================================

func TestBadges(t *testing.T) {
	f := newSubmitFixture(t)
	ctx := context.Background()
	alice := f.env.registerJudge(t, "alice", 0)
	sub := f.submit(t, "launcher") // carries first-riser

	got, err := f.env.judges.AwardBadge(ctx, alice.ID, sub.ID, BadgeInput{Type: model.BadgeTechWizard})
	require.NoError(t, err)
	require.Len(t, got.Badges, 2)
	assert.Equal(t, "Tech Wizard", got.Badges[1].Name)
	assert.Equal(t, alice.ID, got.Badges[1].AwardedBy)

	_, err = f.env.judges.AwardBadge(ctx, alice.ID, sub.ID, BadgeInput{Type: model.BadgeTechWizard})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = f.env.judges.AwardBadge(ctx, alice.ID, sub.ID, BadgeInput{Type: "best-hair"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.env.judges.RemoveBadge(ctx, sub.ID, 5)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	got, err = f.env.judges.RemoveBadge(ctx, sub.ID, 0)
	require.NoError(t, err)
	require.Len(t, got.Badges, 1)
	assert.Equal(t, model.BadgeTechWizard, got.Badges[0].Type)
}
