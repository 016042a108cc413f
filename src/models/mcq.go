package models

import (
	"git.flipper.school/flipper/flipper/src/schema"
	"github.com/google/uuid"
)

type Mcq struct {
	ID       uuid.UUID `json:"id"`
	PageID   uuid.UUID `json:"page_id"`
	Question string    `json:"question"`
	Answers  []string  `json:"answers"`

	// Hidden from students until they have submitted.
	Answer string `json:"answer,omitempty"`

	Timestamps Timestamps `json:"timestamps"`

	// Only set for students.
	Submitted       *bool   `json:"submitted,omitempty"`
	SubmittedAnswer *string `json:"submitted_answer,omitempty"`

	projected
}

var McqProjectable = []string{"timestamps"}

func (m *Mcq) IsAnswerChoice(answer string) bool {
	for _, choice := range m.Answers {
		if choice == answer {
			return true
		}
	}
	return false
}

func (m *Mcq) Project(p schema.Projection) {
	m.projection = p
	if p.Excludes("timestamps") {
		m.Timestamps = Timestamps{}
	}
}

func (m *Mcq) MarshalJSON() ([]byte, error) {
	type mcq Mcq
	return marshalProjected((*mcq)(m), m.projection)
}
