package flipdata

import (
	"context"

	"git.flipper.school/flipper/flipper/src/fail"
	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/oops"
	"git.flipper.school/flipper/flipper/src/schema"
	"git.flipper.school/flipper/flipper/src/store"
	"github.com/google/uuid"
)

type Minilessons struct {
	*deps
}

var (
	minilessonProjectionField = schema.Field{
		Key:    "projection",
		Type:   schema.Object,
		Filter: schema.ProjectionMask,
		Fields: schema.Exclude(models.MinilessonProjectable...),
	}

	minilessonListSchema = schema.Schema{
		{Key: "course_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "user_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
	}.With(schema.Paging(store.MinilessonSortKeys, models.MinilessonProjectable...)...)

	minilessonGetSchema = schema.Schema{
		{Key: "id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "user_id", Type: schema.Any, Filter: schema.IDReference},
		minilessonProjectionField,
	}

	minilessonAddSchema = schema.Schema{
		{Key: "course_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "user_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "title", Type: schema.String, Filter: schema.Trim, Required: true},
		{Key: "due_date", Type: schema.Any, Filter: schema.DateParse},
	}

	minilessonEditSchema = schema.Schema{
		{Key: "id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "user_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "title", Type: schema.String, Filter: schema.Trim, Required: true},
		{Key: "due_date", Type: schema.Any, Filter: schema.DateParse},
	}

	scopedSchema = schema.Schema{
		{Key: "id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "user_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
	}
)

var errMinilessonNotFound = fail.NotFoundf("Minilesson not found.")

// List returns the minilessons of a course. Only teachers see unpublished
// ones.
func (r *Minilessons) List(ctx context.Context, data schema.Data) (minilessons []*models.Minilesson, total int, err error) {
	defer observe("minilesson", "list", &err)

	in, err := schema.Validate(data, minilessonListSchema)
	if err != nil {
		return nil, 0, err
	}
	courseID := in.ID("course_id")

	_, rel, err := r.repos.Courses.scope(ctx, courseID, in.ID("user_id"))
	if err != nil {
		return nil, 0, err
	}

	q := store.MinilessonQuery{
		CourseID:      &courseID,
		PublishedOnly: rel != models.RelationshipTeacher,
		Sort:          in.Sort("sort", schema.Asc("created")),
		Page:          store.Page{Offset: in.Int("offset"), Limit: in.Int("limit")},
	}
	total, err = r.store.CountMinilessons(ctx, q)
	if err != nil {
		return nil, 0, oops.New(err, "failed to count minilessons")
	}
	minilessons, err = r.store.FindMinilessons(ctx, q)
	if err != nil {
		return nil, 0, oops.New(err, "failed to fetch minilessons")
	}

	now := r.now()
	p := in.Projection("projection")
	for _, m := range minilessons {
		m.DueDatePassed = m.IsPastDue(now)
		m.Project(p)
	}
	return minilessons, total, nil
}

// Get returns a minilesson. Read on behalf of user_id, it is only found if
// the user is a teacher of the course or it is published.
func (r *Minilessons) Get(ctx context.Context, data schema.Data) (minilesson *models.Minilesson, err error) {
	defer observe("minilesson", "get", &err)

	in, err := schema.Validate(data, minilessonGetSchema)
	if err != nil {
		return nil, err
	}

	if userID := in.OptID("user_id"); userID != nil {
		minilesson, _, err = r.scope(ctx, in.ID("id"), *userID)
	} else {
		minilesson, err = r.find(ctx, in.ID("id"))
	}
	if err != nil {
		return nil, err
	}

	minilesson.Project(in.Projection("projection"))
	return minilesson, nil
}

func (r *Minilessons) find(ctx context.Context, id uuid.UUID) (*models.Minilesson, error) {
	m, err := store.FindOne(r.store.FindMinilessons(ctx, store.MinilessonQuery{IDs: []uuid.UUID{id}}))
	if isNotFound(err) {
		return nil, errMinilessonNotFound
	} else if err != nil {
		return nil, oops.New(err, "failed to fetch minilesson")
	}
	m.DueDatePassed = m.IsPastDue(r.now())
	return m, nil
}

// access is what a scoped read learns on its way up to the course.
type access struct {
	Course       *models.Course
	Minilesson   *models.Minilesson
	Relationship models.Relationship
}

func (a access) IsTeacher() bool {
	return a.Relationship == models.RelationshipTeacher
}

func (r *Minilessons) scope(ctx context.Context, id, userID uuid.UUID) (*models.Minilesson, access, error) {
	m, err := r.find(ctx, id)
	if err != nil {
		return nil, access{}, err
	}

	c, rel, err := r.repos.Courses.scope(ctx, m.CourseID, userID)
	if err != nil {
		return nil, access{}, err
	}
	if rel != models.RelationshipTeacher && !m.States.Published {
		return nil, access{}, errMinilessonNotFound
	}
	return m, access{Course: c, Minilesson: m, Relationship: rel}, nil
}

// Add creates an unpublished minilesson in a course the user teaches.
func (r *Minilessons) Add(ctx context.Context, data schema.Data) (minilesson *models.Minilesson, err error) {
	defer observe("minilesson", "add", &err)

	in, err := schema.Validate(data, minilessonAddSchema)
	if err != nil {
		return nil, err
	}
	courseID, userID := in.ID("course_id"), in.ID("user_id")

	_, rel, err := r.repos.Courses.scope(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}
	if rel != models.RelationshipTeacher {
		return nil, fail.Forbiddenf("Only a teacher may add a minilesson to a course.")
	}

	m := &models.Minilesson{
		ID:       uuid.New(),
		CourseID: courseID,
		Title:    in.String("title"),
		Timestamps: models.MinilessonTimestamps{
			Created: r.now(),
			DueDate: in.OptTime("due_date"),
		},
	}
	if err := r.store.InsertMinilesson(ctx, m); err != nil {
		return nil, oops.New(err, "failed to insert minilesson")
	}

	return r.Get(ctx, schema.Data{"id": m.ID, "user_id": userID})
}

// Publish makes a minilesson visible to students. Publishing twice is fine.
func (r *Minilessons) Publish(ctx context.Context, data schema.Data) (minilesson *models.Minilesson, err error) {
	defer observe("minilesson", "publish", &err)

	in, err := schema.Validate(data, scopedSchema)
	if err != nil {
		return nil, err
	}
	id, userID := in.ID("id"), in.ID("user_id")

	_, acc, err := r.scope(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !acc.IsTeacher() {
		return nil, fail.Forbiddenf("Only a teacher may publish a minilesson.")
	}

	if _, err := r.store.SetMinilessonPublished(ctx, id); err != nil {
		return nil, oops.New(err, "failed to publish minilesson")
	}

	return r.Get(ctx, schema.Data{"id": id, "user_id": userID})
}

// Edit replaces the title and due date. Leaving out due_date clears it.
func (r *Minilessons) Edit(ctx context.Context, data schema.Data) (minilesson *models.Minilesson, err error) {
	defer observe("minilesson", "edit", &err)

	in, err := schema.Validate(data, minilessonEditSchema)
	if err != nil {
		return nil, err
	}
	id, userID := in.ID("id"), in.ID("user_id")

	_, acc, err := r.scope(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !acc.IsTeacher() {
		return nil, fail.Forbiddenf("Only a teacher may edit a minilesson.")
	}

	updated, err := r.store.UpdateMinilesson(ctx, id, in.String("title"), in.OptTime("due_date"))
	if err != nil {
		return nil, oops.New(err, "failed to update minilesson")
	}
	if !updated {
		return nil, errMinilessonNotFound
	}

	return r.Get(ctx, schema.Data{"id": id, "user_id": userID})
}

// Remove deletes a minilesson and everything under it, returning it as it
// was.
func (r *Minilessons) Remove(ctx context.Context, data schema.Data) (minilesson *models.Minilesson, err error) {
	defer observe("minilesson", "remove", &err)

	in, err := schema.Validate(data, scopedSchema)
	if err != nil {
		return nil, err
	}

	minilesson, acc, err := r.scope(ctx, in.ID("id"), in.ID("user_id"))
	if err != nil {
		return nil, err
	}
	if !acc.IsTeacher() {
		return nil, fail.Forbiddenf("Only a teacher of the course may remove its minilessons.")
	}

	if _, err := r.store.DeleteMinilesson(ctx, minilesson.ID); err != nil {
		return nil, oops.New(err, "failed to delete minilesson")
	}
	return minilesson, nil
}
