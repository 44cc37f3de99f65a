package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/pulsepoll/pulsepoll/internal/entity"
	"github.com/pulsepoll/pulsepoll/internal/storage"
)

// Storage keys. These names are the persisted contract shared by every view
// on the device; renaming one orphans existing records.
const (
	keyActivePoll  = "active_poll_session"
	keyCurrentUser = "gamified_user"
)

func historyKey(ownerID string) string {
	return "admin_polls_" + ownerID
}

func votesKey(identity string) string {
	return "user_votes_" + identity
}

func gameKey(userID string) string {
	return "game_data_" + userID
}

// Records gives the services typed access to the shared key-value store.
type Records struct {
	store storage.Store
}

func New(store storage.Store) *Records {
	return &Records{store: store}
}

// ActivePoll reads the single shared active-poll slot.
func (r *Records) ActivePoll() (entity.Poll, error) {
	const op = "repo.ActivePoll"

	var poll entity.Poll
	if err := r.store.Get(keyActivePoll, &poll); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return entity.Poll{}, fmt.Errorf("%s: %w", op, ErrActivePollNotFound)
		}
		return entity.Poll{}, fmt.Errorf("%s: %w", op, err)
	}
	return poll, nil
}

// SaveActivePoll replaces whatever the slot currently holds.
func (r *Records) SaveActivePoll(poll entity.Poll) error {
	const op = "repo.SaveActivePoll"

	if err := r.store.Set(keyActivePoll, poll); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Records) ClearActivePoll() error {
	const op = "repo.ClearActivePoll"

	if err := r.store.Delete(keyActivePoll); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateActivePoll applies fn to the latest persisted poll under the store's
// write lock. fn sees ErrActivePollNotFound via the returned error when the
// slot is empty.
func (r *Records) UpdateActivePoll(fn func(poll entity.Poll) (entity.Poll, error)) error {
	const op = "repo.UpdateActivePoll"

	err := r.store.Update(keyActivePoll, func(raw []byte) ([]byte, error) {
		if raw == nil {
			return nil, ErrActivePollNotFound
		}

		var poll entity.Poll
		if err := json.Unmarshal(raw, &poll); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		updated, err := fn(poll)
		if err != nil {
			return nil, err
		}
		return json.Marshal(updated)
	})
	return err
}

// History returns the owner's ended polls, newest first.
func (r *Records) History(ownerID string) ([]entity.Poll, error) {
	const op = "repo.History"

	var polls []entity.Poll
	if err := r.store.Get(historyKey(ownerID), &polls); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sort.Slice(polls, func(i, j int) bool {
		return polls[i].CreatedAt.After(polls[j].CreatedAt)
	})
	return polls, nil
}

// AppendHistory adds an ended poll to the owner's archive. A limit > 0 drops
// the oldest entries beyond it.
func (r *Records) AppendHistory(ownerID string, poll entity.Poll, limit int) error {
	const op = "repo.AppendHistory"

	err := r.store.Update(historyKey(ownerID), func(raw []byte) ([]byte, error) {
		var polls []entity.Poll
		if raw != nil {
			if err := json.Unmarshal(raw, &polls); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}

		polls = append(polls, poll)
		sort.Slice(polls, func(i, j int) bool {
			return polls[i].CreatedAt.After(polls[j].CreatedAt)
		})
		if limit > 0 && len(polls) > limit {
			polls = polls[:limit]
		}
		return json.Marshal(polls)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Votes returns the identity's vote record. Absence is an empty set, not an
// error.
func (r *Records) Votes(identity string) (entity.VoteSet, error) {
	const op = "repo.Votes"

	var votes entity.VoteSet
	if err := r.store.Get(votesKey(identity), &votes); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return entity.VoteSet{}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return votes, nil
}

func (r *Records) SaveVote(identity string, pollID int64, option string) error {
	const op = "repo.SaveVote"

	err := r.store.Update(votesKey(identity), func(raw []byte) ([]byte, error) {
		votes := entity.VoteSet{}
		if raw != nil {
			if err := json.Unmarshal(raw, &votes); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
		votes[pollID] = option
		return json.Marshal(votes)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Records) GameProfile(userID string) (entity.GameProfile, error) {
	const op = "repo.GameProfile"

	var profile entity.GameProfile
	if err := r.store.Get(gameKey(userID), &profile); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return entity.NewGameProfile(), nil
		}
		return entity.GameProfile{}, fmt.Errorf("%s: %w", op, err)
	}
	return profile, nil
}

func (r *Records) SaveGameProfile(userID string, profile entity.GameProfile) error {
	const op = "repo.SaveGameProfile"

	if err := r.store.Set(gameKey(userID), profile); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Records) CurrentUser() (entity.User, error) {
	const op = "repo.CurrentUser"

	var user entity.User
	if err := r.store.Get(keyCurrentUser, &user); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return entity.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return entity.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (r *Records) SaveCurrentUser(user entity.User) error {
	const op = "repo.SaveCurrentUser"

	if err := r.store.Set(keyCurrentUser, user); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Records) DeleteCurrentUser() error {
	const op = "repo.DeleteCurrentUser"

	if err := r.store.Delete(keyCurrentUser); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
