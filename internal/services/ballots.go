package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pulsepoll/pulsepoll/internal/entity"
	"github.com/pulsepoll/pulsepoll/internal/repo"
	"github.com/samber/lo"
)

var (
	ErrSessionNotFound = errors.New("no active poll with this session code")
	ErrAlreadyVoted    = errors.New("identity has already voted in this poll")
	ErrPollClosed      = errors.New("poll is no longer active")
	ErrTimeExpired     = errors.New("poll time has expired")
	ErrInvalidOption   = errors.New("option is not part of this poll")
)

type VoteStorage interface {
	Votes(identity string) (entity.VoteSet, error)
	SaveVote(identity string, pollID int64, option string) error
}

// Ballots is the participant side: join a session by code, cast exactly one
// vote, watch the tally move.
type Ballots struct {
	log   *slog.Logger
	slot  PollSlot
	votes VoteStorage
	now   func() time.Time
}

func NewBallots(log *slog.Logger, slot PollSlot, votes VoteStorage) *Ballots {
	return &Ballots{
		log:   log,
		slot:  slot,
		votes: votes,
		now:   time.Now,
	}
}

// JoinResult carries the poll plus the identity's own standing in it, so a
// returning voter sees their prior choice instead of the ballot form.
type JoinResult struct {
	Poll         entity.Poll
	HasVoted     bool
	ChosenOption string
}

// JoinByCode looks the active poll up by session code, case-insensitively.
// Read-only: joining records nothing.
func (b *Ballots) JoinByCode(ctx context.Context, code, identity string) (JoinResult, error) {
	const op = "ballots.JoinByCode"

	normalized := NormalizeSessionCode(code)

	poll, err := b.slot.ActivePoll()
	if err != nil {
		if errors.Is(err, repo.ErrActivePollNotFound) {
			return JoinResult{}, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
		}
		return JoinResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if poll.SessionCode != normalized {
		return JoinResult{}, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
	}

	votes, err := b.votes.Votes(identity)
	if err != nil {
		return JoinResult{}, fmt.Errorf("%s: %w", op, err)
	}

	chosen, voted := votes[poll.ID]

	b.log.Info("participant joined session",
		slog.String("op", op),
		slog.Int64("pollID", poll.ID),
		slog.Bool("hasVoted", voted))

	return JoinResult{Poll: poll, HasVoted: voted, ChosenOption: chosen}, nil
}

// HasVoted reports whether the identity holds a vote record for the poll.
func (b *Ballots) HasVoted(ctx context.Context, pollID int64, identity string) (bool, error) {
	const op = "ballots.HasVoted"

	votes, err := b.votes.Votes(identity)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	_, ok := votes[pollID]
	return ok, nil
}

// CastVote applies one vote against the latest persisted poll state. The
// vote record check runs before any mutation, so a given identity can move
// the tally at most once per poll; the increment itself happens inside the
// slot's serialized update.
func (b *Ballots) CastVote(ctx context.Context, pollID int64, identity, option string) error {
	const op = "ballots.CastVote"

	log := b.log.With(slog.String("op", op), slog.Int64("pollID", pollID))

	votes, err := b.votes.Votes(identity)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, ok := votes[pollID]; ok {
		return fmt.Errorf("%s: %w", op, ErrAlreadyVoted)
	}

	err = b.slot.UpdateActivePoll(func(poll entity.Poll) (entity.Poll, error) {
		if poll.ID != pollID || !poll.IsActive {
			return poll, ErrPollClosed
		}
		if poll.EndsAt != nil && !b.now().Before(*poll.EndsAt) {
			return poll, ErrTimeExpired
		}
		if !lo.Contains(poll.Options, option) {
			return poll, ErrInvalidOption
		}
		if poll.Results == nil {
			poll.Results = make(map[string]int)
		}
		poll.Results[option]++
		return poll, nil
	})
	if err != nil {
		if errors.Is(err, repo.ErrActivePollNotFound) {
			return fmt.Errorf("%s: %w", op, ErrPollClosed)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	// Logically paired with the tally update above. If this write fails the
	// vote counted but the identity could vote again; surfaced as an error
	// rather than rolled back, matching the two-record storage model.
	if err := b.votes.SaveVote(identity, pollID, option); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("vote recorded", slog.String("option", option))
	return nil
}
