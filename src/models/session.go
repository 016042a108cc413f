package models

import (
	"time"

	"github.com/google/uuid"
)

// A Session is a bearer credential. The ID is presented on every request;
// the Token must also be presented on writes.
type Session struct {
	ID    string    `json:"id"`
	Value uuid.UUID `json:"value"`
	Token string    `json:"token"`

	Created time.Time  `json:"created"`
	Expires *time.Time `json:"expires,omitempty"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return s.Expires != nil && !now.Before(*s.Expires)
}
