package flipdata

import (
	"context"
	"strings"

	"git.flipper.school/flipper/flipper/src/fail"
	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/oops"
	"git.flipper.school/flipper/flipper/src/schema"
	"git.flipper.school/flipper/flipper/src/store"
	"github.com/google/uuid"
)

type Mcqs struct {
	*deps
}

var (
	mcqListSchema = schema.Schema{
		{Key: "page_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "user_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
	}.With(schema.Paging(store.McqSortKeys, models.McqProjectable...)...)

	mcqGetSchema = schema.Schema{
		{Key: "id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "user_id", Type: schema.Any, Filter: schema.IDReference},
		{Key: "projection", Type: schema.Object, Filter: schema.ProjectionMask, Fields: schema.Exclude(models.McqProjectable...)},
	}

	mcqAddSchema = schema.Schema{
		{Key: "page_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "user_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "question", Type: schema.String, Required: true},
		{Key: "answers", Type: schema.Any, Filter: schema.StringList, Required: true},
		{Key: "answer", Type: schema.String, Required: true},
	}
)

var errMcqNotFound = fail.NotFoundf("Mcq not found.")

/*
List returns the mcqs on a page. Students also learn whether they have
answered each one; the correct answer stays hidden from them until they
have.
*/
func (r *Mcqs) List(ctx context.Context, data schema.Data) (mcqs []*models.Mcq, total int, err error) {
	defer observe("mcq", "list", &err)

	in, err := schema.Validate(data, mcqListSchema)
	if err != nil {
		return nil, 0, err
	}
	pageID, userID := in.ID("page_id"), in.ID("user_id")

	_, acc, err := r.repos.Pages.scope(ctx, pageID, userID)
	if err != nil {
		return nil, 0, err
	}

	q := store.McqQuery{
		PageID: &pageID,
		Sort:   in.Sort("sort", schema.Asc("created")),
		Page:   store.Page{Offset: in.Int("offset"), Limit: in.Int("limit")},
	}
	total, err = r.store.CountMcqs(ctx, q)
	if err != nil {
		return nil, 0, oops.New(err, "failed to count mcqs")
	}
	mcqs, err = r.store.FindMcqs(ctx, q)
	if err != nil {
		return nil, 0, oops.New(err, "failed to fetch mcqs")
	}

	if !acc.IsTeacher() {
		if err := r.annotate(ctx, mcqs, userID); err != nil {
			return nil, 0, err
		}
	}

	p := in.Projection("projection")
	for _, m := range mcqs {
		m.Project(p)
	}
	return mcqs, total, nil
}

// annotate marks which mcqs the student has answered, and with what.
func (r *Mcqs) annotate(ctx context.Context, mcqs []*models.Mcq, userID uuid.UUID) error {
	if len(mcqs) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(mcqs))
	for i, m := range mcqs {
		ids[i] = m.ID
	}
	subs, err := r.store.FindSubmissions(ctx, store.SubmissionQuery{McqIDs: ids, UserID: &userID})
	if err != nil {
		return oops.New(err, "failed to fetch submissions")
	}
	answered := make(map[uuid.UUID]string, len(subs))
	for _, s := range subs {
		answered[s.McqID] = s.Answer
	}

	for _, m := range mcqs {
		answer, submitted := answered[m.ID]
		m.Submitted = &submitted
		if submitted {
			m.SubmittedAnswer = &answer
		} else {
			m.Answer = ""
		}
	}
	return nil
}

func (r *Mcqs) Get(ctx context.Context, data schema.Data) (mcq *models.Mcq, err error) {
	defer observe("mcq", "get", &err)

	in, err := schema.Validate(data, mcqGetSchema)
	if err != nil {
		return nil, err
	}

	if userID := in.OptID("user_id"); userID != nil {
		var acc access
		mcq, acc, err = r.scope(ctx, in.ID("id"), *userID)
		if err != nil {
			return nil, err
		}
		if !acc.IsTeacher() {
			if err := r.annotate(ctx, []*models.Mcq{mcq}, *userID); err != nil {
				return nil, err
			}
		}
	} else {
		mcq, err = r.find(ctx, in.ID("id"))
		if err != nil {
			return nil, err
		}
	}

	mcq.Project(in.Projection("projection"))
	return mcq, nil
}

func (r *Mcqs) find(ctx context.Context, id uuid.UUID) (*models.Mcq, error) {
	m, err := store.FindOne(r.store.FindMcqs(ctx, store.McqQuery{IDs: []uuid.UUID{id}}))
	if isNotFound(err) {
		return nil, errMcqNotFound
	} else if err != nil {
		return nil, oops.New(err, "failed to fetch mcq")
	}
	return m, nil
}

func (r *Mcqs) scope(ctx context.Context, id, userID uuid.UUID) (*models.Mcq, access, error) {
	m, err := r.find(ctx, id)
	if err != nil {
		return nil, access{}, err
	}
	_, acc, err := r.repos.Pages.scope(ctx, m.PageID, userID)
	if err != nil {
		return nil, access{}, err
	}
	return m, acc, nil
}

// checkChoices enforces the shape of a question before anyone's rights are
// looked at.
func checkChoices(question string, answers []string, answer string) error {
	seen := make(map[string]bool, len(answers))
	for _, a := range answers {
		if seen[a] {
			return fail.Invalidf("Answer choices must be unique.")
		}
		seen[a] = true
	}
	if len(answers) == 0 {
		return fail.Invalidf("Expected more than 1 answer choices.")
	}
	for _, a := range answers {
		if strings.TrimSpace(a) == "" {
			return fail.Invalidf("Expected non-zero length answer choices.")
		}
	}
	if strings.TrimSpace(question) == "" {
		return fail.Invalidf("Expected non-zero length question.")
	}
	if !seen[answer] {
		return fail.Invalidf("Provided answer is not a valid answer choice.")
	}
	return nil
}

// Add creates a multiple choice question on a page. answer must be one of
// answers.
func (r *Mcqs) Add(ctx context.Context, data schema.Data) (mcq *models.Mcq, err error) {
	defer observe("mcq", "add", &err)

	in, err := schema.Validate(data, mcqAddSchema)
	if err != nil {
		return nil, err
	}
	pageID, userID := in.ID("page_id"), in.ID("user_id")
	question, answers, answer := in.String("question"), in.Strings("answers"), in.String("answer")

	if err := checkChoices(question, answers, answer); err != nil {
		return nil, err
	}

	_, acc, err := r.repos.Pages.scope(ctx, pageID, userID)
	if err != nil {
		return nil, err
	}
	if !acc.IsTeacher() {
		return nil, fail.Forbiddenf("Only teachers can add mcqs to pages.")
	}

	m := &models.Mcq{
		ID:         uuid.New(),
		PageID:     pageID,
		Question:   question,
		Answers:    answers,
		Answer:     answer,
		Timestamps: models.Timestamps{Created: r.now()},
	}
	if err := r.store.InsertMcq(ctx, m); err != nil {
		return nil, oops.New(err, "failed to insert mcq")
	}

	return r.Get(ctx, schema.Data{"id": m.ID, "user_id": userID})
}

// Remove deletes an mcq with its submissions.
func (r *Mcqs) Remove(ctx context.Context, data schema.Data) (mcq *models.Mcq, err error) {
	defer observe("mcq", "remove", &err)

	in, err := schema.Validate(data, scopedSchema)
	if err != nil {
		return nil, err
	}

	mcq, acc, err := r.scope(ctx, in.ID("id"), in.ID("user_id"))
	if err != nil {
		return nil, err
	}
	if !acc.IsTeacher() {
		return nil, fail.Forbiddenf("Only a teacher of the course may remove its mcqs.")
	}

	if _, err := r.store.DeleteMcq(ctx, mcq.ID); err != nil {
		return nil, oops.New(err, "failed to delete mcq")
	}
	return mcq, nil
}
