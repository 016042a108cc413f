package models

import (
	"git.flipper.school/flipper/flipper/src/schema"
	"github.com/google/uuid"
)

type Submission struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
	McqID  uuid.UUID `json:"mcq_id"`
	Answer string    `json:"answer"`

	// 1 if Answer was correct, else 0.
	Score int `json:"score"`

	Timestamps Timestamps `json:"timestamps"`

	User *User `json:"user,omitempty"`

	projected
}

var SubmissionProjectable = []string{"timestamps"}

func Score(mcq *Mcq, answer string) int {
	if answer == mcq.Answer {
		return 1
	}
	return 0
}

func (s *Submission) Project(p schema.Projection) {
	s.projection = p
	if p.Excludes("timestamps") {
		s.Timestamps = Timestamps{}
	}
}

func (s *Submission) MarshalJSON() ([]byte, error) {
	type submission Submission
	return marshalProjected((*submission)(s), s.projection)
}

// A Grade is one student's result on an mcq.
type Grade struct {
	User  *User `json:"user"`
	Score int   `json:"score"`
}
