package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/pulsepoll/pulsepoll/internal/entity"
	"github.com/pulsepoll/pulsepoll/internal/repo"
	"github.com/pulsepoll/pulsepoll/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBallots(t *testing.T) (*Ballots, *Lifecycle, *repo.Records, *testClock) {
	t.Helper()

	records := repo.New(memory.New())
	clock := newTestClock()

	lc := NewLifecycle(testLogger(), records, records, 50)
	lc.now = clock.Now

	b := NewBallots(testLogger(), records, records)
	b.now = clock.Now

	return b, lc, records, clock
}

func launchTestPoll(t *testing.T, lc *Lifecycle, durationMinutes int) entity.Poll {
	t.Helper()

	poll, err := lc.Launch(context.Background(), LaunchInput{
		Question:        gofakeit.Question(),
		Options:         []string{"A", "B", "C"},
		DurationMinutes: durationMinutes,
		OwnerID:         "admin-1",
	})
	require.NoError(t, err)
	return poll
}

func TestBallots_JoinByCode_CaseInsensitive(t *testing.T) {
	b, lc, _, _ := newTestBallots(t)
	ctx := context.Background()

	poll := launchTestPoll(t, lc, 0)

	for _, code := range []string{poll.SessionCode, strings.ToLower(poll.SessionCode), " " + poll.SessionCode + " "} {
		joined, err := b.JoinByCode(ctx, code, "guest-1")
		require.NoError(t, err, "code %q must match", code)
		assert.Equal(t, poll.ID, joined.Poll.ID)
		assert.False(t, joined.HasVoted)
	}
}

func TestBallots_JoinByCode_WrongCode(t *testing.T) {
	b, lc, _, _ := newTestBallots(t)
	ctx := context.Background()

	launchTestPoll(t, lc, 0)

	_, err := b.JoinByCode(ctx, "NOSUCH", "guest-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestBallots_JoinByCode_NoActivePoll(t *testing.T) {
	b, _, _, _ := newTestBallots(t)

	_, err := b.JoinByCode(context.Background(), "AB12CD", "guest-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestBallots_CastVote_TallyCounts(t *testing.T) {
	b, lc, _, _ := newTestBallots(t)
	ctx := context.Background()

	poll := launchTestPoll(t, lc, 0)

	require.NoError(t, b.CastVote(ctx, poll.ID, "guest-1", "A"))
	require.NoError(t, b.CastVote(ctx, poll.ID, "guest-2", "A"))
	require.NoError(t, b.CastVote(ctx, poll.ID, "guest-3", "B"))

	active, err := lc.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, active.Results["A"])
	assert.Equal(t, 1, active.Results["B"])
	assert.Equal(t, 0, active.Results["C"])
	assert.Equal(t, 3, totalVotes(active))
}

func TestBallots_CastVote_AlreadyVoted(t *testing.T) {
	b, lc, _, _ := newTestBallots(t)
	ctx := context.Background()

	poll := launchTestPoll(t, lc, 0)

	require.NoError(t, b.CastVote(ctx, poll.ID, "guest-1", "A"))

	err := b.CastVote(ctx, poll.ID, "guest-1", "B")
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	active, err := lc.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, active.Results["A"])
	assert.Equal(t, 0, active.Results["B"])

	voted, err := b.HasVoted(ctx, poll.ID, "guest-1")
	require.NoError(t, err)
	assert.True(t, voted)
}

func TestBallots_CastVote_InvalidOption(t *testing.T) {
	b, lc, _, _ := newTestBallots(t)
	ctx := context.Background()

	poll := launchTestPoll(t, lc, 0)

	err := b.CastVote(ctx, poll.ID, "guest-1", "Z")
	assert.ErrorIs(t, err, ErrInvalidOption)

	active, err := lc.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, totalVotes(active))

	voted, err := b.HasVoted(ctx, poll.ID, "guest-1")
	require.NoError(t, err)
	assert.False(t, voted, "a rejected vote must not burn the identity's ballot")
}

func TestBallots_CastVote_PollClosed(t *testing.T) {
	b, lc, _, _ := newTestBallots(t)
	ctx := context.Background()

	poll := launchTestPoll(t, lc, 0)
	require.NoError(t, lc.End(ctx, false))

	err := b.CastVote(ctx, poll.ID, "guest-1", "A")
	assert.ErrorIs(t, err, ErrPollClosed)
}

func TestBallots_CastVote_TimeExpired(t *testing.T) {
	b, lc, _, clock := newTestBallots(t)
	ctx := context.Background()

	poll := launchTestPoll(t, lc, 1)
	clock.Advance(61 * time.Second)

	err := b.CastVote(ctx, poll.ID, "guest-1", "A")
	assert.ErrorIs(t, err, ErrTimeExpired)

	active, err := lc.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, totalVotes(active), "an expired vote must not move the tally")
}

func TestBallots_Join_RestoresPriorVote(t *testing.T) {
	b, lc, _, _ := newTestBallots(t)
	ctx := context.Background()

	poll := launchTestPoll(t, lc, 0)
	require.NoError(t, b.CastVote(ctx, poll.ID, "guest-1", "B"))

	joined, err := b.JoinByCode(ctx, poll.SessionCode, "guest-1")
	require.NoError(t, err)
	assert.True(t, joined.HasVoted)
	assert.Equal(t, "B", joined.ChosenOption)
}

func TestBallots_CastVote_Concurrent(t *testing.T) {
	b, lc, _, _ := newTestBallots(t)
	ctx := context.Background()

	poll := launchTestPoll(t, lc, 0)

	const voters = 25
	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			identity := "guest-" + strings.Repeat("x", n+1)
			errs <- b.CastVote(ctx, poll.ID, identity, "A")
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	active, err := lc.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, voters, active.Results["A"], "every concurrent vote must survive the read-modify-write")
}
