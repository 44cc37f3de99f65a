package entity

import "time"

// GameProfile is the per-user gamification record: experience points,
// derived level, daily streak and the mood journal. It shares the storage
// layer with the polling feature but nothing else.
type GameProfile struct {
	XP           int         `json:"xp"`
	Level        int         `json:"level"`
	Streak       int         `json:"streak"`
	LastAction   *GameAction `json:"lastAction"`
	TotalActions int         `json:"totalActions"`
	Achievements []string    `json:"achievements"`
	MoodEntries  []MoodEntry `json:"moodEntries"`
}

type GameAction struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	XPGained  int       `json:"xpGained"`
}

type MoodEntry struct {
	ID        int64     `json:"id"`
	Mood      string    `json:"mood"`
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
}

// NewGameProfile returns the zero-progress profile a user starts with.
func NewGameProfile() GameProfile {
	return GameProfile{
		Level:        1,
		Achievements: []string{},
		MoodEntries:  []MoodEntry{},
	}
}
