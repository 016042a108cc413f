package flipdata

import (
	"context"
	"errors"

	"git.flipper.school/flipper/flipper/src/fail"
	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/oops"
	"git.flipper.school/flipper/flipper/src/schema"
	"git.flipper.school/flipper/flipper/src/store"
	"github.com/google/uuid"
)

type Submissions struct {
	*deps
}

var (
	submissionListSchema = schema.Schema{
		{Key: "mcq_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "user_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
	}.With(schema.Paging(store.SubmissionSortKeys, models.SubmissionProjectable...)...)

	submissionGetSchema = schema.Schema{
		{Key: "id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "user_id", Type: schema.Any, Filter: schema.IDReference},
		{Key: "projection", Type: schema.Object, Filter: schema.ProjectionMask, Fields: schema.Exclude(models.SubmissionProjectable...)},
	}

	submissionAddSchema = schema.Schema{
		{Key: "mcq_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "user_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "answer", Type: schema.String, Required: true},
	}

	gradesSchema = schema.Schema{
		{Key: "mcq_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "user_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
	}
)

var (
	errSubmissionNotFound = fail.NotFoundf("Submission not found.")
	errSubmitOnce         = fail.Conflictf("You can only submit once.")
)

// List returns the answers to an mcq: all of them for a teacher, only their
// own for a student.
func (r *Submissions) List(ctx context.Context, data schema.Data) (subs []*models.Submission, total int, err error) {
	defer observe("submission", "list", &err)

	in, err := schema.Validate(data, submissionListSchema)
	if err != nil {
		return nil, 0, err
	}
	mcqID, userID := in.ID("mcq_id"), in.ID("user_id")

	_, acc, err := r.repos.Mcqs.scope(ctx, mcqID, userID)
	if err != nil {
		return nil, 0, err
	}

	q := store.SubmissionQuery{
		McqIDs: []uuid.UUID{mcqID},
		Sort:   in.Sort("sort", schema.Asc("created")),
		Page:   store.Page{Offset: in.Int("offset"), Limit: in.Int("limit")},
	}
	if !acc.IsTeacher() {
		q.UserID = &userID
	}
	total, err = r.store.CountSubmissions(ctx, q)
	if err != nil {
		return nil, 0, oops.New(err, "failed to count submissions")
	}
	subs, err = r.store.FindSubmissions(ctx, q)
	if err != nil {
		return nil, 0, oops.New(err, "failed to fetch submissions")
	}

	r.expandSubmissions(ctx, subs)
	p := in.Projection("projection")
	for _, s := range subs {
		s.Project(p)
	}
	return subs, total, nil
}

// Get returns a submission to a teacher of the course or to its author.
func (r *Submissions) Get(ctx context.Context, data schema.Data) (sub *models.Submission, err error) {
	defer observe("submission", "get", &err)

	in, err := schema.Validate(data, submissionGetSchema)
	if err != nil {
		return nil, err
	}

	sub, err = r.find(ctx, in.ID("id"))
	if err != nil {
		return nil, err
	}
	if userID := in.OptID("user_id"); userID != nil {
		_, acc, err := r.repos.Mcqs.scope(ctx, sub.McqID, *userID)
		if err != nil {
			return nil, err
		}
		if !acc.IsTeacher() && sub.UserID != *userID {
			return nil, errSubmissionNotFound
		}
	}

	r.expandSubmissions(ctx, []*models.Submission{sub})
	sub.Project(in.Projection("projection"))
	return sub, nil
}

func (r *Submissions) find(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	s, err := store.FindOne(r.store.FindSubmissions(ctx, store.SubmissionQuery{IDs: []uuid.UUID{id}}))
	if isNotFound(err) {
		return nil, errSubmissionNotFound
	} else if err != nil {
		return nil, oops.New(err, "failed to fetch submission")
	}
	return s, nil
}

/*
Add records a student's answer to an mcq and scores it. Each student
answers once, and not after the minilesson's due date. Teachers of the
course cannot answer.
*/
func (r *Submissions) Add(ctx context.Context, data schema.Data) (sub *models.Submission, err error) {
	defer observe("submission", "add", &err)

	in, err := schema.Validate(data, submissionAddSchema)
	if err != nil {
		return nil, err
	}
	mcqID, userID, answer := in.ID("mcq_id"), in.ID("user_id"), in.String("answer")

	existing, err := r.store.CountSubmissions(ctx, store.SubmissionQuery{McqIDs: []uuid.UUID{mcqID}, UserID: &userID})
	if err != nil {
		return nil, oops.New(err, "failed to count submissions")
	}
	if existing > 0 {
		return nil, errSubmitOnce
	}

	mcq, acc, err := r.repos.Mcqs.scope(ctx, mcqID, userID)
	if err != nil {
		return nil, err
	}
	now := r.now()
	switch {
	case !mcq.IsAnswerChoice(answer):
		return nil, fail.Conflictf("Provided answer is not a valid answer choice.")
	case acc.IsTeacher():
		return nil, fail.Forbiddenf("Only students can answer an mcq.")
	case acc.Minilesson.IsPastDue(now):
		return nil, fail.Conflictf("It is too late to submit an answer.")
	}

	s := &models.Submission{
		ID:         uuid.New(),
		UserID:     userID,
		McqID:      mcqID,
		Answer:     answer,
		Score:      models.Score(mcq, answer),
		Timestamps: models.Timestamps{Created: now},
	}
	if err := r.store.InsertSubmission(ctx, s); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errSubmitOnce
		}
		return nil, oops.New(err, "failed to insert submission")
	}

	return r.Get(ctx, schema.Data{"id": s.ID, "user_id": userID})
}

// Grades lists every submission's score on an mcq, for its teachers.
func (r *Submissions) Grades(ctx context.Context, data schema.Data) (grades []models.Grade, err error) {
	defer observe("submission", "grades", &err)

	in, err := schema.Validate(data, gradesSchema)
	if err != nil {
		return nil, err
	}
	mcqID, userID := in.ID("mcq_id"), in.ID("user_id")

	_, acc, err := r.repos.Mcqs.scope(ctx, mcqID, userID)
	if err != nil {
		return nil, err
	}
	if !acc.IsTeacher() {
		return nil, fail.Forbiddenf("Only a teacher of the course can view grades.")
	}

	subs, err := r.store.FindSubmissions(ctx, store.SubmissionQuery{
		McqIDs: []uuid.UUID{mcqID},
		Sort:   []schema.SortKey{schema.Asc("created")},
	})
	if err != nil {
		return nil, oops.New(err, "failed to fetch submissions")
	}
	r.expandSubmissions(ctx, subs)

	grades = make([]models.Grade, len(subs))
	for i, s := range subs {
		grades[i] = models.Grade{User: s.User, Score: s.Score}
	}
	return grades, nil
}
