package models

import (
	"time"

	"git.flipper.school/flipper/flipper/src/schema"
	"github.com/google/uuid"
)

type Minilesson struct {
	ID       uuid.UUID `json:"id"`
	CourseID uuid.UUID `json:"course_id"`
	Title    string    `json:"title"`

	States     MinilessonStates     `json:"states"`
	Timestamps MinilessonTimestamps `json:"timestamps"`

	DueDatePassed bool `json:"due_date_passed"`

	projected
}

type MinilessonStates struct {
	Published bool `json:"published"`
}

type MinilessonTimestamps struct {
	Created time.Time  `json:"created"`
	DueDate *time.Time `json:"due_date"`
}

var MinilessonProjectable = []string{"states", "timestamps"}

// IsPastDue is true once the due date, if any, has gone by.
func (m *Minilesson) IsPastDue(now time.Time) bool {
	return m.Timestamps.DueDate != nil && m.Timestamps.DueDate.Before(now)
}

func (m *Minilesson) Project(p schema.Projection) {
	m.projection = p
	if p.Excludes("states") {
		m.States = MinilessonStates{}
	}
	if p.Excludes("timestamps") {
		m.Timestamps = MinilessonTimestamps{}
	}
}

func (m *Minilesson) MarshalJSON() ([]byte, error) {
	type minilesson Minilesson
	return marshalProjected((*minilesson)(m), m.projection)
}
