package chat

import "time"

// Participant is a registered chat user identified by its unique name.
type Participant struct {
	Name       string `json:"name"`
	LastStatus int64  `json:"lastStatus"`
}

// Timestamp converts t to the millisecond representation kept in LastStatus.
func Timestamp(t time.Time) int64 {
	return t.UnixMilli()
}

// Cutoff returns the oldest LastStatus still considered present at now.
func Cutoff(now time.Time, threshold time.Duration) int64 {
	return Timestamp(now) - threshold.Milliseconds()
}

// SilentSince reports whether the last heartbeat happened before cutoff.
func (p Participant) SilentSince(cutoff int64) bool {
	return p.LastStatus < cutoff
}
