package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pulsepoll/pulsepoll/internal/entity"
)

// XP awards for the dashboard's quick actions.
const (
	XPCompleteTask = 25
	XPStudySession = 30
	XPExercise     = 35
	XPReadBook     = 20
	XPMoodCheckIn  = 10
)

// xpPerLevel is flat: level = xp/100 + 1.
const xpPerLevel = 100

type ProfileStorage interface {
	GameProfile(userID string) (entity.GameProfile, error)
	SaveGameProfile(userID string, profile entity.GameProfile) error
}

// Progress is the gamified dashboard core: XP, levels, daily streaks and the
// mood journal. It shares the storage layer with polling and nothing else.
type Progress struct {
	log          *slog.Logger
	profiles     ProfileStorage
	journalLimit int
	now          func() time.Time
}

func NewProgress(log *slog.Logger, profiles ProfileStorage, journalLimit int) *Progress {
	return &Progress{
		log:          log,
		profiles:     profiles,
		journalLimit: journalLimit,
		now:          time.Now,
	}
}

// AddXP credits the user for an action and reports whether they leveled up.
// The streak grows only across consecutive days: a second action today
// leaves it alone, a gap resets it to 1.
func (p *Progress) AddXP(ctx context.Context, userID string, amount int, action string) (entity.GameProfile, bool, error) {
	const op = "progress.AddXP"

	log := p.log.With(slog.String("op", op), slog.String("userID", userID))

	profile, err := p.profiles.GameProfile(userID)
	if err != nil {
		return entity.GameProfile{}, false, fmt.Errorf("%s: %w", op, err)
	}

	now := p.now()
	today := now.Format(time.DateOnly)
	lastDay := ""
	if profile.LastAction != nil {
		lastDay = profile.LastAction.Timestamp.Format(time.DateOnly)
	}
	if lastDay != today {
		yesterday := now.AddDate(0, 0, -1).Format(time.DateOnly)
		if lastDay == yesterday {
			profile.Streak++
		} else {
			profile.Streak = 1
		}
	}

	profile.XP += amount
	level := profile.XP/xpPerLevel + 1
	leveledUp := level > profile.Level
	profile.Level = level
	profile.LastAction = &entity.GameAction{Type: action, Timestamp: now, XPGained: amount}
	profile.TotalActions++

	if err := p.profiles.SaveGameProfile(userID, profile); err != nil {
		return entity.GameProfile{}, false, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("xp added",
		slog.Int("amount", amount),
		slog.String("action", action),
		slog.Int("level", profile.Level),
		slog.Bool("leveledUp", leveledUp))

	return profile, leveledUp, nil
}

// CheckIn records a mood journal entry (newest first, capped) and awards the
// check-in XP.
func (p *Progress) CheckIn(ctx context.Context, userID, mood, note string) (entity.GameProfile, bool, error) {
	const op = "progress.CheckIn"

	profile, err := p.profiles.GameProfile(userID)
	if err != nil {
		return entity.GameProfile{}, false, fmt.Errorf("%s: %w", op, err)
	}

	now := p.now()
	entry := entity.MoodEntry{
		ID:        now.UnixMilli(),
		Mood:      mood,
		Note:      note,
		Timestamp: now,
	}

	profile.MoodEntries = append([]entity.MoodEntry{entry}, profile.MoodEntries...)
	if p.journalLimit > 0 && len(profile.MoodEntries) > p.journalLimit {
		profile.MoodEntries = profile.MoodEntries[:p.journalLimit]
	}

	if err := p.profiles.SaveGameProfile(userID, profile); err != nil {
		return entity.GameProfile{}, false, fmt.Errorf("%s: %w", op, err)
	}

	return p.AddXP(ctx, userID, XPMoodCheckIn, "mood check-in")
}

// Profile returns the user's current game data, zero-valued when they have
// none yet.
func (p *Progress) Profile(ctx context.Context, userID string) (entity.GameProfile, error) {
	const op = "progress.Profile"

	profile, err := p.profiles.GameProfile(userID)
	if err != nil {
		return entity.GameProfile{}, fmt.Errorf("%s: %w", op, err)
	}
	return profile, nil
}

// XPForNextLevel returns the total XP at which the next level starts.
func XPForNextLevel(profile entity.GameProfile) int {
	return profile.Level * xpPerLevel
}

// XPProgress reports how far into the current level the user is, in percent.
func XPProgress(profile entity.GameProfile) float64 {
	currentLevelXP := (profile.Level - 1) * xpPerLevel
	progressXP := profile.XP - currentLevelXP
	return float64(progressXP) / float64(xpPerLevel) * 100
}
