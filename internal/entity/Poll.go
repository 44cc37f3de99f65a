package entity

import "time"

// Poll is the single shared session record. The json field names are the
// persisted contract; every open view reads and writes this exact shape
// under the active slot key.
type Poll struct {
	ID          int64          `json:"id"`
	Question    string         `json:"question"`
	Options     []string       `json:"options"`
	CreatedBy   string         `json:"createdBy"`
	SessionCode string         `json:"sessionCode"`
	IsActive    bool           `json:"isActive"`
	Results     map[string]int `json:"results"`
	CreatedAt   time.Time      `json:"createdAt"`
	EndsAt      *time.Time     `json:"endsAt"`
	EndedAt     *time.Time     `json:"endedAt"`
}

// VoteSet maps poll id to the option an identity voted for. One entry per
// poll, ever: re-voting is rejected, not overwritten.
type VoteSet map[int64]string
