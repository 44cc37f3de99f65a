package entity

import (
	"strconv"
	"time"
)

// User is the mock identity produced by the local login flow. This is not an
// account in any security sense, just a stable identity for vote records and
// game data.
type User struct {
	ID       int64     `json:"id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar"`
	JoinDate time.Time `json:"joinDate"`
}

// Identity returns the opaque token used to key vote records and game data.
func (u User) Identity() string {
	return strconv.FormatInt(u.ID, 10)
}
