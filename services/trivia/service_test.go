package trivia

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugs-network/trivia_layer/pkg/logger"
)

type harness struct {
	svc      *Service
	platform *fakePlatform
	settler  *fakeSettler
	recorder *fakeRecorder
	store    *MemoryStore
	now      time.Time
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	bank, err := ParseBank([]byte(`
fallback: general
categories:
  general:
    1:
      - q: "What color is the sky?"
        a: "Blue"
  geography:
    1:
      - q: "Capital of France?"
        a: "Paris"
`))
	require.NoError(t, err)

	h := &harness{
		platform: newFakePlatform(),
		settler:  &fakeSettler{},
		recorder: newFakeRecorder(),
		store:    NewMemoryStore(),
		now:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	h.svc = New(cfg, bank, h.store, h.platform, h.settler, h.recorder, logger.Discard())
	h.svc.now = func() time.Time { return h.now }
	return h
}

func TestPostRound(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	r, err := h.svc.PostRound(ctx, "", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "general", r.Category)
	assert.Equal(t, 1, r.Level)
	assert.Equal(t, "blue", r.NormalizedAnswer)
	assert.Equal(t, "post-1", r.PostID)

	require.Len(t, h.platform.posts, 1)
	assert.Equal(t, "🎯 Level 1 · General Trivia\nWhat color is the sky?\n\nReply with your answer!", h.platform.posts[0])
	assert.Equal(t, []string{r.ID}, h.recorder.rounds)

	active, err := h.svc.ActiveRounds(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestPostRoundPlatformFailure(t *testing.T) {
	h := newHarness(t, Config{})
	h.platform.postErr = errBoom

	_, err := h.svc.PostRound(context.Background(), "general", 1)
	assert.ErrorIs(t, err, errBoom)

	active, _ := h.svc.ActiveRounds(context.Background())
	assert.Empty(t, active)
}

func TestGradeRound_FirstNormalizedMatchWins(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	r, err := h.svc.PostRound(ctx, "general", 1)
	require.NoError(t, err)
	h.platform.addReplies(r.PostID, "sky", "BLUE.", "blue")

	out, err := h.svc.GradeRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusGraded, out.Status)
	assert.Equal(t, 3, out.Replies)
	require.NotNil(t, out.Winner)
	assert.Equal(t, "@player2", out.Winner.Handle)
	assert.Equal(t, r.PostID+"-r2", out.Winner.ReplyID)

	require.Len(t, h.settler.winners, 1)
	assert.Equal(t, "@player2", h.settler.winners[0].Handle)
	require.NotNil(t, out.Settlement)
	assert.True(t, out.Settlement.OK)

	assert.True(t, out.Announced)
	assert.Equal(t, []string{r.PostID + ": 🏆 @player2 got it! Answer: blue"}, h.platform.announced)

	assert.False(t, h.recorder.responses[r.ID+"/@player1"])
	assert.True(t, h.recorder.responses[r.ID+"/@player2"])
	assert.False(t, h.recorder.responses[r.ID+"/@player3"], "later matches are not winners")
	assert.Equal(t, StatusGraded, h.recorder.closed[r.ID])
	assert.Equal(t, "@player2", h.recorder.winners[r.ID])

	_, err = h.store.Get(ctx, r.ID)
	assert.ErrorIs(t, err, ErrRoundNotFound)
}

func TestGradeRound_SettlesOnlyOnce(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	r, err := h.svc.PostRound(ctx, "general", 1)
	require.NoError(t, err)
	h.platform.addReplies(r.PostID, "blue")

	_, err = h.svc.GradeRound(ctx, r.ID)
	require.NoError(t, err)
	_, err = h.svc.GradeRound(ctx, r.ID)
	assert.ErrorIs(t, err, ErrRoundNotFound)
	assert.Len(t, h.settler.winners, 1)
}

func TestGradeRound_SettlementFailureStillCloses(t *testing.T) {
	h := newHarness(t, Config{})
	h.settler.fail = true
	ctx := context.Background()

	r, err := h.svc.PostRound(ctx, "general", 1)
	require.NoError(t, err)
	h.platform.addReplies(r.PostID, "Blue")

	out, err := h.svc.GradeRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusGraded, out.Status)
	require.NotNil(t, out.Settlement)
	assert.False(t, out.Settlement.OK)
	assert.Equal(t, "payout-1", out.Settlement.PayoutID)
	assert.True(t, out.Announced)

	active, _ := h.svc.ActiveRounds(ctx)
	assert.Empty(t, active)
}

func TestGradeRound_AnnouncementFailureKeepsReward(t *testing.T) {
	h := newHarness(t, Config{})
	h.platform.replyErr = errBoom
	ctx := context.Background()

	r, err := h.svc.PostRound(ctx, "general", 1)
	require.NoError(t, err)
	h.platform.addReplies(r.PostID, "blue")

	out, err := h.svc.GradeRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusGraded, out.Status)
	assert.False(t, out.Announced)
	assert.Len(t, h.settler.winners, 1)
}

func TestGradeRound_NoWinnerStaysPosted(t *testing.T) {
	h := newHarness(t, Config{AbandonAfter: 10 * time.Minute})
	ctx := context.Background()

	r, err := h.svc.PostRound(ctx, "general", 1)
	require.NoError(t, err)
	h.platform.addReplies(r.PostID, "green", "red")

	out, err := h.svc.GradeRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, out.Status)
	assert.Nil(t, out.Winner)
	assert.Empty(t, h.settler.winners)

	h.now = h.now.Add(11 * time.Minute)
	out, err = h.svc.GradeRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAbandoned, out.Status)
	assert.Equal(t, StatusAbandoned, h.recorder.closed[r.ID])
}

func TestGradeRound_FetchFailureCountsAsNoReplies(t *testing.T) {
	h := newHarness(t, Config{})
	h.platform.fetchErr = errBoom
	ctx := context.Background()

	r, err := h.svc.PostRound(ctx, "general", 1)
	require.NoError(t, err)

	out, err := h.svc.GradeRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, out.Status)
	assert.Zero(t, out.Replies)
}

func TestAbandonRound(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	r, err := h.svc.PostRound(ctx, "geography", 1)
	require.NoError(t, err)

	_, err = h.svc.AbandonRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAbandoned, h.recorder.closed[r.ID])

	_, err = h.svc.AbandonRound(ctx, r.ID)
	assert.ErrorIs(t, err, ErrRoundNotFound)

	_, err = h.svc.GradeRound(ctx, "unknown")
	assert.ErrorIs(t, err, ErrRoundNotFound)
}

func TestNoPlatform(t *testing.T) {
	bank, err := DefaultBank()
	require.NoError(t, err)
	svc := New(Config{}, bank, nil, nil, nil, nil, logger.Discard())

	_, err = svc.PostRound(context.Background(), "general", 1)
	assert.ErrorIs(t, err, ErrNoPlatform)

	category, level, q := svc.Question("", 9)
	assert.Equal(t, "general", category)
	assert.Equal(t, MaxLevel, level)
	assert.NotEmpty(t, q.Text)
}
