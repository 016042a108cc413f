package flipdata

import (
	"encoding/json"
	"testing"

	"git.flipper.school/flipper/flipper/src/fail"
	"git.flipper.school/flipper/flipper/src/schema"
	"git.flipper.school/flipper/flipper/src/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMcqAddValidation(t *testing.T) {
	f := newFixture(t)
	cls := f.classroom()

	add := func(question string, answers any, answer string) error {
		_, err := f.repos.Mcqs.Add(f.ctx, schema.Data{
			"page_id":  cls.page.ID,
			"user_id":  cls.teacher.ID,
			"question": question,
			"answers":  answers,
			"answer":   answer,
		})
		return err
	}

	cases := []struct {
		name     string
		question string
		answers  any
		answer   string
		expected string
	}{
		{"duplicate choices", "Pick one", []any{"a", "a"}, "a", "Answer choices must be unique."},
		{"no choices", "Pick one", []any{}, "a", "Expected more than 1 answer choices."},
		{"empty question", "  ", []any{"a", "b"}, "a", "Expected non-zero length question."},
		{"blank choice", "Pick one", []any{"a", " "}, " ", "Expected non-zero length answer choices."},
		{"answer not a choice", "Pick one", []any{"a", "b"}, "c", "Provided answer is not a valid answer choice."},
		{"choices not an array", "Pick one", "a,b", "a", "Expected array for property: answers."},
		{"choices not strings", "Pick one", []any{"a", 2}, "a", "Expected array of strings for property: answers."},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			requireFail(t, add(c.question, c.answers, c.answer), fail.Invalid, c.expected)
		})
	}

	_, err := f.repos.Mcqs.Add(f.ctx, schema.Data{
		"page_id":  cls.page.ID,
		"user_id":  cls.student.ID,
		"question": "Pick one",
		"answers":  []string{"a", "b"},
		"answer":   "a",
	})
	requireFail(t, err, fail.Forbidden, "Only teachers can add mcqs to pages.")

	mcqs, total, err := f.repos.Mcqs.List(f.ctx, schema.Data{"page_id": cls.page.ID, "user_id": cls.teacher.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, mcqs, 1)
}

func TestMcqStudentView(t *testing.T) {
	f := newFixture(t)
	cls := f.classroom()

	asTeacher, err := f.repos.Mcqs.Get(f.ctx, schema.Data{"id": cls.mcq.ID, "user_id": cls.teacher.ID})
	require.NoError(t, err)
	assert.Equal(t, "glucose", asTeacher.Answer)
	assert.Nil(t, asTeacher.Submitted)

	asStudent, err := f.repos.Mcqs.Get(f.ctx, schema.Data{"id": cls.mcq.ID, "user_id": cls.student.ID})
	require.NoError(t, err)
	assert.Empty(t, asStudent.Answer)
	require.NotNil(t, asStudent.Submitted)
	assert.False(t, *asStudent.Submitted)
	b, err := json.Marshal(asStudent)
	require.NoError(t, err)
	assert.NotContains(t, string(b), `"answer"`)

	_, err = f.repos.Submissions.Add(f.ctx, schema.Data{"mcq_id": cls.mcq.ID, "user_id": cls.student.ID, "answer": "salt"})
	require.NoError(t, err)

	list, _, err := f.repos.Mcqs.List(f.ctx, schema.Data{"page_id": cls.page.ID, "user_id": cls.student.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Submitted)
	assert.True(t, *list[0].Submitted)
	require.NotNil(t, list[0].SubmittedAnswer)
	assert.Equal(t, "salt", *list[0].SubmittedAnswer)
	assert.Equal(t, "glucose", list[0].Answer)

	_, err = f.repos.Mcqs.Get(f.ctx, schema.Data{"id": cls.mcq.ID, "user_id": cls.pending.ID})
	requireFail(t, err, fail.Forbidden, "Your admission to the course is still pending.")
}

func TestMcqRemove(t *testing.T) {
	f := newFixture(t)
	cls := f.classroom()

	_, err := f.repos.Mcqs.Remove(f.ctx, schema.Data{"id": cls.mcq.ID, "user_id": cls.student.ID})
	requireFail(t, err, fail.Forbidden, "Only a teacher of the course may remove its mcqs.")

	sub, err := f.repos.Submissions.Add(f.ctx, schema.Data{"mcq_id": cls.mcq.ID, "user_id": cls.student.ID, "answer": "glucose"})
	require.NoError(t, err)

	removed, err := f.repos.Mcqs.Remove(f.ctx, schema.Data{"id": cls.mcq.ID, "user_id": cls.teacher.ID})
	require.NoError(t, err)
	assert.Equal(t, cls.mcq.ID, removed.ID)

	_, err = f.repos.Submissions.Get(f.ctx, schema.Data{"id": sub.ID})
	requireFail(t, err, fail.NotFound, "Submission not found.")
}

func TestMcqsUnderDraft(t *testing.T) {
	f := newFixture(t)
	cls := f.classroom()
	draft := f.minilesson(cls.course, cls.teacher, "Draft", false)
	m := f.mcq(f.page(draft, cls.teacher, "Hidden"), cls.teacher)

	_, err := f.repos.Mcqs.Get(f.ctx, schema.Data{"id": m.ID, "user_id": cls.student.ID})
	requireFail(t, err, fail.NotFound, "Minilesson not found.")
	_, _, err = f.repos.Mcqs.List(f.ctx, schema.Data{"page_id": m.PageID, "user_id": cls.student.ID})
	requireFail(t, err, fail.NotFound, "Minilesson not found.")
	_, err = f.repos.Submissions.Add(f.ctx, schema.Data{"mcq_id": m.ID, "user_id": cls.student.ID, "answer": "glucose"})
	requireFail(t, err, fail.NotFound, "Minilesson not found.")

	count, err := f.store.CountSubmissions(f.ctx, store.SubmissionQuery{McqIDs: []uuid.UUID{m.ID}})
	require.NoError(t, err)
	assert.Zero(t, count)

	got, err := f.repos.Mcqs.Get(f.ctx, schema.Data{"id": m.ID, "user_id": cls.teacher.ID})
	require.NoError(t, err)
	assert.Equal(t, "glucose", got.Answer)
	list, total, err := f.repos.Mcqs.List(f.ctx, schema.Data{"page_id": m.PageID, "user_id": cls.teacher.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)
}
