package models

import (
	"time"

	"git.flipper.school/flipper/flipper/src/schema"
	"github.com/google/uuid"
)

type User struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Username string    `json:"username"`

	// argon2id hash with the salt embedded. Never leaves the server.
	Password string `json:"-"`

	Timestamps UserTimestamps `json:"timestamps"`

	projected
}

type UserTimestamps struct {
	Created    time.Time  `json:"created"`
	LastSigned *time.Time `json:"last_signed"`
	Signed     *time.Time `json:"signed"`
	Active     *time.Time `json:"active"`
}

var UserProjectable = []string{"timestamps"}

func (u *User) BestName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// Public returns a copy of u without its password hash.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	res := *u
	res.Password = ""
	return &res
}

func (u *User) Project(p schema.Projection) {
	u.projection = p
	if p.Excludes("timestamps") {
		u.Timestamps = UserTimestamps{}
	}
}

func (u *User) MarshalJSON() ([]byte, error) {
	type user User
	return marshalProjected((*user)(u), u.projection)
}
