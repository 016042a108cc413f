package flipdata

import (
	"testing"
	"time"

	"git.flipper.school/flipper/flipper/src/fail"
	"git.flipper.school/flipper/flipper/src/schema"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinilessonRoundTrip(t *testing.T) {
	f := newFixture(t)
	cls := f.classroom()

	due := time.Date(2024, 9, 10, 12, 0, 0, 0, time.UTC)
	added, err := f.repos.Minilessons.Add(f.ctx, schema.Data{
		"course_id": cls.course.ID.String(),
		"user_id":   cls.teacher.ID.String(),
		"title":     " Respiration ",
		"due_date":  "2024-09-10T12:00:00Z",
	})
	require.NoError(t, err)
	assert.False(t, added.States.Published)
	assert.False(t, added.DueDatePassed)

	got, err := f.repos.Minilessons.Get(f.ctx, schema.Data{"id": added.ID, "user_id": cls.teacher.ID})
	require.NoError(t, err)
	assert.Equal(t, "Respiration", got.Title)
	require.NotNil(t, got.Timestamps.DueDate)
	assert.True(t, due.Equal(*got.Timestamps.DueDate))
	assert.Equal(t, cls.course.ID, got.CourseID)

	f.advance(time.Hour)
	newDue := due.Add(48 * time.Hour)
	edited, err := f.repos.Minilessons.Edit(f.ctx, schema.Data{
		"id":       added.ID,
		"user_id":  cls.teacher.ID,
		"title":    "Cellular respiration",
		"due_date": newDue.UnixMilli(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Cellular respiration", edited.Title)
	assert.True(t, newDue.Equal(*edited.Timestamps.DueDate))
	assert.Equal(t, got.Timestamps.Created, edited.Timestamps.Created)
	assert.Equal(t, got.States, edited.States)
	assert.Equal(t, got.CourseID, edited.CourseID)

	cleared, err := f.repos.Minilessons.Edit(f.ctx, schema.Data{"id": added.ID, "user_id": cls.teacher.ID, "title": "Cellular respiration"})
	require.NoError(t, err)
	assert.Nil(t, cleared.Timestamps.DueDate)

	_, err = f.repos.Minilessons.Add(f.ctx, schema.Data{"course_id": cls.course.ID, "user_id": cls.teacher.ID, "title": "Bad", "due_date": "someday"})
	requireFail(t, err, fail.Invalid, "Invalid date.")
}

func TestMinilessonPermissions(t *testing.T) {
	f := newFixture(t)
	cls := f.classroom()
	f.advance(time.Minute)
	draft := f.minilesson(cls.course, cls.teacher, "Draft", false)

	_, err := f.repos.Minilessons.Add(f.ctx, schema.Data{"course_id": cls.course.ID, "user_id": cls.student.ID, "title": "Mine"})
	requireFail(t, err, fail.Forbidden, "Only a teacher may add a minilesson to a course.")
	_, err = f.repos.Minilessons.Add(f.ctx, schema.Data{"course_id": cls.course.ID, "user_id": cls.outsider.ID, "title": "Mine"})
	requireFail(t, err, fail.NotFound, "Course not found.")

	_, err = f.repos.Minilessons.Get(f.ctx, schema.Data{"id": draft.ID, "user_id": cls.student.ID})
	requireFail(t, err, fail.NotFound, "Minilesson not found.")
	_, err = f.repos.Minilessons.Get(f.ctx, schema.Data{"id": draft.ID, "user_id": cls.teacher.ID})
	assert.NoError(t, err)
	_, err = f.repos.Minilessons.Get(f.ctx, schema.Data{"id": cls.minilesson.ID, "user_id": cls.pending.ID})
	requireFail(t, err, fail.Forbidden, "Your admission to the course is still pending.")
	_, err = f.repos.Minilessons.Get(f.ctx, schema.Data{"id": cls.minilesson.ID, "user_id": cls.outsider.ID})
	requireFail(t, err, fail.NotFound, "Course not found.")
	_, err = f.repos.Minilessons.Get(f.ctx, schema.Data{"id": uuid.New()})
	requireFail(t, err, fail.NotFound, "Minilesson not found.")

	asStudent, total, err := f.repos.Minilessons.List(f.ctx, schema.Data{"course_id": cls.course.ID, "user_id": cls.student.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, asStudent, 1)
	assert.Equal(t, cls.minilesson.ID, asStudent[0].ID)

	asTeacher, total, err := f.repos.Minilessons.List(f.ctx, schema.Data{"course_id": cls.course.ID, "user_id": cls.teacher.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, asTeacher, 2)
	assert.Equal(t, cls.minilesson.ID, asTeacher[0].ID, "oldest first")

	_, _, err = f.repos.Minilessons.List(f.ctx, schema.Data{"course_id": cls.course.ID, "user_id": cls.pending.ID})
	requireFail(t, err, fail.Forbidden, "Your admission to the course is still pending.")

	_, err = f.repos.Minilessons.Publish(f.ctx, schema.Data{"id": cls.minilesson.ID, "user_id": cls.student.ID})
	requireFail(t, err, fail.Forbidden, "Only a teacher may publish a minilesson.")
	_, err = f.repos.Minilessons.Edit(f.ctx, schema.Data{"id": cls.minilesson.ID, "user_id": cls.student.ID, "title": "Hacked"})
	requireFail(t, err, fail.Forbidden, "Only a teacher may edit a minilesson.")
	_, err = f.repos.Minilessons.Remove(f.ctx, schema.Data{"id": cls.minilesson.ID, "user_id": cls.student.ID})
	requireFail(t, err, fail.Forbidden, "Only a teacher of the course may remove its minilessons.")
}

func TestMinilessonPublish(t *testing.T) {
	f := newFixture(t)
	cls := f.classroom()
	draft := f.minilesson(cls.course, cls.teacher, "Draft", false)

	for i := 0; i < 2; i++ {
		published, err := f.repos.Minilessons.Publish(f.ctx, schema.Data{"id": draft.ID, "user_id": cls.teacher.ID})
		require.NoError(t, err)
		assert.True(t, published.States.Published)
	}

	got, err := f.repos.Minilessons.Get(f.ctx, schema.Data{"id": draft.ID, "user_id": cls.student.ID})
	require.NoError(t, err)
	assert.True(t, got.States.Published)
}

func TestMinilessonDueDatePassed(t *testing.T) {
	f := newFixture(t)
	cls := f.classroom()
	f.advance(time.Minute)

	m, err := f.repos.Minilessons.Add(f.ctx, schema.Data{
		"course_id": cls.course.ID,
		"user_id":   cls.teacher.ID,
		"title":     "Quiz",
		"due_date":  f.now.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, m.DueDatePassed)

	f.advance(2 * time.Hour)
	got, err := f.repos.Minilessons.Get(f.ctx, schema.Data{"id": m.ID, "user_id": cls.teacher.ID})
	require.NoError(t, err)
	assert.True(t, got.DueDatePassed)

	list, _, err := f.repos.Minilessons.List(f.ctx, schema.Data{
		"course_id":  cls.course.ID,
		"user_id":    cls.teacher.ID,
		"sort":       "-created",
		"projection": map[string]any{"timestamps": false},
	})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, m.ID, list[0].ID)
	assert.True(t, list[0].DueDatePassed, "computed before the projection drops the due date")
	assert.Nil(t, list[0].Timestamps.DueDate)
}

func TestMinilessonRemove(t *testing.T) {
	f := newFixture(t)
	cls := f.classroom()

	removed, err := f.repos.Minilessons.Remove(f.ctx, schema.Data{"id": cls.minilesson.ID, "user_id": cls.teacher.ID})
	require.NoError(t, err)
	assert.Equal(t, cls.minilesson.ID, removed.ID)

	_, err = f.repos.Minilessons.Get(f.ctx, schema.Data{"id": cls.minilesson.ID})
	requireFail(t, err, fail.NotFound, "Minilesson not found.")
	_, err = f.repos.Pages.Get(f.ctx, schema.Data{"id": cls.page.ID})
	requireFail(t, err, fail.NotFound, "Page not found.")
	_, err = f.repos.Mcqs.Get(f.ctx, schema.Data{"id": cls.mcq.ID})
	requireFail(t, err, fail.NotFound, "Mcq not found.")
}
