package flipdata

import (
	"testing"
	"time"

	"git.flipper.school/flipper/flipper/src/fail"
	"git.flipper.school/flipper/flipper/src/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionAdd(t *testing.T) {
	f := newFixture(t)
	cls := f.classroom()
	other := f.user("other")
	f.enroll(cls.course, cls.teacher, other)

	submit := func(userID any, answer string) error {
		_, err := f.repos.Submissions.Add(f.ctx, schema.Data{"mcq_id": cls.mcq.ID, "user_id": userID, "answer": answer})
		return err
	}

	requireFail(t, submit(cls.student.ID, "gold"), fail.Conflict, "Provided answer is not a valid answer choice.")
	requireFail(t, submit(cls.teacher.ID, "glucose"), fail.Forbidden, "Only students can answer an mcq.")
	requireFail(t, submit(cls.outsider.ID, "glucose"), fail.NotFound, "Course not found.")
	requireFail(t, submit(cls.pending.ID, "glucose"), fail.Forbidden, "Your admission to the course is still pending.")

	right, err := f.repos.Submissions.Add(f.ctx, schema.Data{"mcq_id": cls.mcq.ID, "user_id": cls.student.ID, "answer": "glucose"})
	require.NoError(t, err)
	assert.Equal(t, 1, right.Score)
	assert.Equal(t, cls.student.ID, right.UserID)
	require.NotNil(t, right.User)
	assert.Equal(t, "student", right.User.Username)

	f.advance(time.Minute)
	wrong, err := f.repos.Submissions.Add(f.ctx, schema.Data{"mcq_id": cls.mcq.ID, "user_id": other.ID, "answer": "iron"})
	require.NoError(t, err)
	assert.Equal(t, 0, wrong.Score)

	requireFail(t, submit(cls.student.ID, "salt"), fail.Conflict, "You can only submit once.")
	// Checked before anything else.
	requireFail(t, submit(cls.student.ID, "gold"), fail.Conflict, "You can only submit once.")
}

func TestSubmissionTooLate(t *testing.T) {
	f := newFixture(t)
	cls := f.classroom()

	due := f.now.Add(time.Hour)
	_, err := f.repos.Minilessons.Edit(f.ctx, schema.Data{
		"id":       cls.minilesson.ID,
		"user_id":  cls.teacher.ID,
		"title":    cls.minilesson.Title,
		"due_date": due.Format(time.RFC3339),
	})
	require.NoError(t, err)

	f.advance(2 * time.Hour)
	_, err = f.repos.Submissions.Add(f.ctx, schema.Data{"mcq_id": cls.mcq.ID, "user_id": cls.student.ID, "answer": "glucose"})
	requireFail(t, err, fail.Conflict, "It is too late to submit an answer.")
}

func TestSubmissionVisibility(t *testing.T) {
	f := newFixture(t)
	cls := f.classroom()
	other := f.user("other")
	f.enroll(cls.course, cls.teacher, other)

	mine, err := f.repos.Submissions.Add(f.ctx, schema.Data{"mcq_id": cls.mcq.ID, "user_id": cls.student.ID, "answer": "glucose"})
	require.NoError(t, err)
	f.advance(time.Minute)
	theirs, err := f.repos.Submissions.Add(f.ctx, schema.Data{"mcq_id": cls.mcq.ID, "user_id": other.ID, "answer": "salt"})
	require.NoError(t, err)

	t.Run("teacher sees everything", func(t *testing.T) {
		subs, total, err := f.repos.Submissions.List(f.ctx, schema.Data{"mcq_id": cls.mcq.ID, "user_id": cls.teacher.ID})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, subs, 2)
		assert.Equal(t, mine.ID, subs[0].ID)
		assert.Equal(t, theirs.ID, subs[1].ID)
		require.NotNil(t, subs[1].User)
		assert.Equal(t, "other", subs[1].User.Username)
		assert.Empty(t, subs[1].User.Password)
	})

	t.Run("student sees their own", func(t *testing.T) {
		subs, total, err := f.repos.Submissions.List(f.ctx, schema.Data{"mcq_id": cls.mcq.ID, "user_id": cls.student.ID})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, subs, 1)
		assert.Equal(t, mine.ID, subs[0].ID)
	})

	t.Run("get", func(t *testing.T) {
		got, err := f.repos.Submissions.Get(f.ctx, schema.Data{"id": theirs.ID, "user_id": cls.teacher.ID})
		require.NoError(t, err)
		assert.Equal(t, "salt", got.Answer)

		_, err = f.repos.Submissions.Get(f.ctx, schema.Data{"id": theirs.ID, "user_id": cls.student.ID})
		requireFail(t, err, fail.NotFound, "Submission not found.")
		_, err = f.repos.Submissions.Get(f.ctx, schema.Data{"id": theirs.ID, "user_id": cls.outsider.ID})
		requireFail(t, err, fail.NotFound, "Course not found.")
	})

	t.Run("grades", func(t *testing.T) {
		grades, err := f.repos.Submissions.Grades(f.ctx, schema.Data{"mcq_id": cls.mcq.ID, "user_id": cls.teacher.ID})
		require.NoError(t, err)
		require.Len(t, grades, 2)
		assert.Equal(t, "student", grades[0].User.Username)
		assert.Equal(t, 1, grades[0].Score)
		assert.Equal(t, "other", grades[1].User.Username)
		assert.Equal(t, 0, grades[1].Score)

		_, err = f.repos.Submissions.Grades(f.ctx, schema.Data{"mcq_id": cls.mcq.ID, "user_id": cls.student.ID})
		requireFail(t, err, fail.Forbidden, "Only a teacher of the course can view grades.")
	})
}
