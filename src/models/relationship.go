package models

// Relationship is a user's standing in a course.
type Relationship string

const (
	RelationshipNone    Relationship = "none"
	RelationshipPending Relationship = "pending"
	RelationshipStudent Relationship = "student"
	RelationshipTeacher Relationship = "teacher"
)

func (r Relationship) IsMember() bool {
	return r == RelationshipStudent || r == RelationshipTeacher
}
