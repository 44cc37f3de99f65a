package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pulsepoll/pulsepoll/internal/entity"
	"github.com/pulsepoll/pulsepoll/internal/repo"
	"github.com/pulsepoll/pulsepoll/utils"
	"github.com/samber/lo"
)

var ErrValidation = errors.New("validation error")

// PollSlot is the single shared active-poll record. Any number of views read
// and write it; UpdateActivePoll is the only mutation that is serialized.
type PollSlot interface {
	ActivePoll() (entity.Poll, error)
	SaveActivePoll(poll entity.Poll) error
	ClearActivePoll() error
	UpdateActivePoll(fn func(poll entity.Poll) (entity.Poll, error)) error
}

type HistoryStorage interface {
	History(ownerID string) ([]entity.Poll, error)
	AppendHistory(ownerID string, poll entity.Poll, limit int) error
}

// Lifecycle drives the poll state machine: no active poll -> active -> ended.
type Lifecycle struct {
	log          *slog.Logger
	slot         PollSlot
	history      HistoryStorage
	validate     *validator.Validate
	historyLimit int
	now          func() time.Time
}

func NewLifecycle(log *slog.Logger, slot PollSlot, history HistoryStorage, historyLimit int) *Lifecycle {
	return &Lifecycle{
		log:          log,
		slot:         slot,
		history:      history,
		validate:     validator.New(),
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

type LaunchInput struct {
	Question        string   `validate:"required"`
	Options         []string `validate:"required,min=2,max=6,unique,dive,required"`
	DurationMinutes int      `validate:"min=0"`
	OwnerID         string   `validate:"required"`
}

// Launch publishes a new poll into the active slot, replacing whatever is
// there. Last writer wins; callers that want to protect a running poll must
// check Active first.
func (s *Lifecycle) Launch(ctx context.Context, in LaunchInput) (entity.Poll, error) {
	const op = "lifecycle.Launch"

	log := s.log.With(slog.String("op", op), slog.String("ownerID", in.OwnerID))

	in.Question = strings.TrimSpace(in.Question)
	in.Options = lo.Map(in.Options, func(opt string, _ int) string {
		return strings.TrimSpace(opt)
	})

	if err := s.validate.Struct(in); err != nil {
		return entity.Poll{}, fmt.Errorf("%s: %w: %v", op, ErrValidation, err)
	}

	code, err := s.newUniqueCode()
	if err != nil {
		return entity.Poll{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	var endsAt *time.Time
	if in.DurationMinutes > 0 {
		t := now.Add(time.Duration(in.DurationMinutes) * time.Minute)
		endsAt = &t
	}

	poll := entity.Poll{
		ID:          now.UnixMilli(),
		Question:    in.Question,
		Options:     in.Options,
		CreatedBy:   in.OwnerID,
		SessionCode: code,
		IsActive:    true,
		Results: lo.SliceToMap(in.Options, func(opt string) (string, int) {
			return opt, 0
		}),
		CreatedAt: now,
		EndsAt:    endsAt,
	}

	if err := s.slot.SaveActivePoll(poll); err != nil {
		return entity.Poll{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("poll launched",
		slog.Int64("pollID", poll.ID),
		slog.String("sessionCode", code),
		slog.Int("durationMinutes", in.DurationMinutes))

	return poll, nil
}

// newUniqueCode regenerates until the code differs from the one currently in
// the slot. With a single active slot collisions are near-impossible, but a
// future multi-poll index relies on this check.
func (s *Lifecycle) newUniqueCode() (string, error) {
	active, err := s.slot.ActivePoll()
	if err != nil && !errors.Is(err, repo.ErrActivePollNotFound) {
		return "", err
	}

	for {
		code, err := NewSessionCode()
		if err != nil {
			return "", err
		}
		if code != active.SessionCode {
			return code, nil
		}
	}
}

// End closes the active poll and archives it. Ending an already-ended or
// absent poll is a no-op: expiry is detected independently on every observer
// and they all race to call this.
func (s *Lifecycle) End(ctx context.Context, external bool) error {
	const op = "lifecycle.End"

	log := s.log.With(slog.String("op", op), slog.Bool("external", external))

	var ended entity.Poll
	claimed := false
	err := s.slot.UpdateActivePoll(func(poll entity.Poll) (entity.Poll, error) {
		if !poll.IsActive {
			return poll, nil
		}
		now := s.now()
		poll.IsActive = false
		poll.EndedAt = &now
		ended = poll
		claimed = true
		return poll, nil
	})
	if errors.Is(err, repo.ErrActivePollNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !claimed {
		return nil
	}

	if err := s.slot.ClearActivePoll(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.history.AppendHistory(ended.CreatedBy, ended, s.historyLimit); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("poll ended",
		slog.Int64("pollID", ended.ID),
		slog.Int("totalVotes", totalVotes(ended)))

	return nil
}

// Tick ends the active poll once its deadline has passed. Safe to call from
// any observer at any cadence.
func (s *Lifecycle) Tick(ctx context.Context) error {
	const op = "lifecycle.Tick"

	poll, err := s.slot.ActivePoll()
	if err != nil {
		if errors.Is(err, repo.ErrActivePollNotFound) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if poll.IsActive && poll.EndsAt != nil && !s.now().Before(*poll.EndsAt) {
		if err := s.End(ctx, true); err != nil {
			s.log.Error("failed to end expired poll", slog.String("op", op), utils.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

// Active returns the poll currently in the shared slot.
func (s *Lifecycle) Active(ctx context.Context) (entity.Poll, error) {
	const op = "lifecycle.Active"

	poll, err := s.slot.ActivePoll()
	if err != nil {
		return entity.Poll{}, fmt.Errorf("%s: %w", op, err)
	}
	return poll, nil
}

// History returns the owner's ended polls, newest first.
func (s *Lifecycle) History(ctx context.Context, ownerID string) ([]entity.Poll, error) {
	const op = "lifecycle.History"

	polls, err := s.history.History(ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return polls, nil
}

// Remaining reports how much voting time the poll has left. Zero means the
// deadline has passed or the poll has no deadline at all.
func (s *Lifecycle) Remaining(poll entity.Poll) time.Duration {
	return remaining(poll, s.now())
}

func remaining(poll entity.Poll, now time.Time) time.Duration {
	if poll.EndsAt == nil {
		return 0
	}
	left := poll.EndsAt.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

func totalVotes(poll entity.Poll) int {
	total := 0
	for _, n := range poll.Results {
		total += n
	}
	return total
}
