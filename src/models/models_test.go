package models

import (
	"encoding/json"
	"testing"
	"time"

	"git.flipper.school/flipper/flipper/src/schema"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationshipOf(t *testing.T) {
	teacher, student, pending, stranger := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	c := &Course{
		TeacherIDs:        []uuid.UUID{teacher},
		StudentIDs:        []uuid.UUID{student, teacher},
		PendingStudentIDs: []uuid.UUID{pending},
	}

	assert.Equal(t, RelationshipTeacher, c.RelationshipOf(teacher))
	assert.Equal(t, RelationshipStudent, c.RelationshipOf(student))
	assert.Equal(t, RelationshipPending, c.RelationshipOf(pending))
	assert.Equal(t, RelationshipNone, c.RelationshipOf(stranger))

	assert.True(t, RelationshipTeacher.IsMember())
	assert.False(t, RelationshipPending.IsMember())
}

func decode(t *testing.T, v any) map[string]any {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	var res map[string]any
	require.NoError(t, json.Unmarshal(b, &res))
	return res
}

func TestUserJSON(t *testing.T) {
	u := &User{ID: uuid.New(), Name: "Ada", Username: "ada", Password: "argon2id$secret"}

	fields := decode(t, u)
	assert.Equal(t, "ada", fields["username"])
	assert.Contains(t, fields, "timestamps")
	assert.NotContains(t, fields, "password")

	u.Project(schema.Projection{"timestamps": false})
	fields = decode(t, u)
	assert.NotContains(t, fields, "timestamps")
	assert.Equal(t, "Ada", fields["name"])

	assert.Empty(t, u.Public().Password)
	assert.Equal(t, "argon2id$secret", u.Password)
}

func TestCourseJSON(t *testing.T) {
	c := &Course{
		ID:       uuid.New(),
		Name:     "Biology",
		Teachers: []*User{{Username: "teach"}, nil},
		Students: []*User{},
	}

	fields := decode(t, c)
	assert.Len(t, fields["teachers"], 2)
	assert.Nil(t, fields["teachers"].([]any)[1])
	assert.NotContains(t, fields, "relationship")

	c.Relationship = RelationshipPending
	c.HideRoster()
	fields = decode(t, c)
	assert.Equal(t, "pending", fields["relationship"])
	assert.Contains(t, fields, "teachers")
	assert.NotContains(t, fields, "students")
	assert.NotContains(t, fields, "pending_students")

	c2 := &Course{Name: "Chemistry", States: CourseStates{Active: true}}
	c2.Project(schema.Projection{"states": false})
	fields = decode(t, c2)
	assert.NotContains(t, fields, "states")
	assert.False(t, c2.States.Active)
}

func TestMcqJSON(t *testing.T) {
	m := &Mcq{Question: "2+2?", Answers: []string{"3", "4"}, Answer: "4"}
	fields := decode(t, m)
	assert.Equal(t, "4", fields["answer"])
	assert.NotContains(t, fields, "submitted")

	submitted := false
	m.Answer = ""
	m.Submitted = &submitted
	fields = decode(t, m)
	assert.NotContains(t, fields, "answer")
	assert.Equal(t, false, fields["submitted"])

	assert.True(t, m.IsAnswerChoice("3"))
	assert.False(t, m.IsAnswerChoice("5"))
}

func TestMinilessonIsPastDue(t *testing.T) {
	now := time.Now()
	past, future := now.Add(-time.Minute), now.Add(time.Minute)

	assert.False(t, (&Minilesson{}).IsPastDue(now))
	assert.True(t, (&Minilesson{Timestamps: MinilessonTimestamps{DueDate: &past}}).IsPastDue(now))
	assert.False(t, (&Minilesson{Timestamps: MinilessonTimestamps{DueDate: &future}}).IsPastDue(now))
}

func TestSessionIsExpired(t *testing.T) {
	now := time.Now()
	expires := now.Add(time.Hour)

	assert.False(t, (&Session{}).IsExpired(now))
	assert.False(t, (&Session{Expires: &expires}).IsExpired(now))
	assert.True(t, (&Session{Expires: &expires}).IsExpired(expires))
}

func TestScore(t *testing.T) {
	m := &Mcq{Answer: "4"}
	assert.Equal(t, 1, Score(m, "4"))
	assert.Equal(t, 0, Score(m, "3"))
}
