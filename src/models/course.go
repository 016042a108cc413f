package models

import (
	"git.flipper.school/flipper/flipper/src/schema"
	"github.com/google/uuid"
)

type Course struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`

	TeacherIDs        []uuid.UUID `json:"-"`
	StudentIDs        []uuid.UUID `json:"-"`
	PendingStudentIDs []uuid.UUID `json:"-"`

	States     CourseStates `json:"states"`
	Timestamps Timestamps   `json:"timestamps"`

	// Expanded from the id sets. Entries are nil for users that could not be
	// loaded.
	Teachers        []*User `json:"teachers"`
	Students        []*User `json:"students"`
	PendingStudents []*User `json:"pending_students"`

	// Filled in when the course is read on behalf of a user.
	Relationship Relationship `json:"relationship,omitempty"`

	projected
}

type CourseStates struct {
	Active bool `json:"active"`
}

var CourseProjectable = []string{"teachers", "students", "pending_students", "states", "timestamps"}

// RelationshipOf reports how userID relates to the course. Teacher
// membership wins over the other sets.
func (c *Course) RelationshipOf(userID uuid.UUID) Relationship {
	switch {
	case containsID(c.TeacherIDs, userID):
		return RelationshipTeacher
	case containsID(c.StudentIDs, userID):
		return RelationshipStudent
	case containsID(c.PendingStudentIDs, userID):
		return RelationshipPending
	default:
		return RelationshipNone
	}
}

// HideRoster strips the member lists. Pending students see the course but
// not who is in it.
func (c *Course) HideRoster() {
	c.StudentIDs = nil
	c.PendingStudentIDs = nil
	c.Students = nil
	c.PendingStudents = nil
	if c.projection == nil {
		c.projection = schema.Projection{}
	}
	c.projection["students"] = false
	c.projection["pending_students"] = false
}

func (c *Course) Project(p schema.Projection) {
	c.projection = schema.Projection{}
	for key := range p {
		c.projection[key] = false
	}
	if p.Excludes("states") {
		c.States = CourseStates{}
	}
	if p.Excludes("timestamps") {
		c.Timestamps = Timestamps{}
	}
}

func (c *Course) MarshalJSON() ([]byte, error) {
	type course Course
	return marshalProjected((*course)(c), c.projection)
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
