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
	"golang.org/x/sync/errgroup"
)

type Courses struct {
	*deps
}

var (
	courseProjectionField = schema.Field{
		Key:    "projection",
		Type:   schema.Object,
		Filter: schema.ProjectionMask,
		Fields: schema.Exclude(models.CourseProjectable...),
	}

	courseOverviewSchema = schema.Schema{
		{Key: "user_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		courseProjectionField,
	}

	courseListSchema = schema.Schema{
		{Key: "user_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "search", Type: schema.String, Filter: schema.CaseInsensitiveRegex},
	}.With(schema.Paging(store.CourseSortKeys, models.CourseProjectable...)...)

	courseExistsSchema = schema.Schema{
		{Key: "id", Type: schema.Any, Filter: schema.IDReference},
		{Key: "name", Type: schema.String, Filter: schema.Trim},
		{Key: "teacher_id", Type: schema.Any, Filter: schema.IDReference},
	}

	courseGetSchema = schema.Schema{
		{Key: "id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "user_id", Type: schema.Any, Filter: schema.IDReference},
		courseProjectionField,
	}

	courseAddSchema = schema.Schema{
		{Key: "name", Type: schema.String, Filter: schema.Trim, Required: true},
		{Key: "teacher_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
	}

	courseJoinSchema = schema.Schema{
		{Key: "id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "student_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
	}

	courseAdmissionSchema = schema.Schema{
		{Key: "id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "teacher_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
		{Key: "student_id", Type: schema.Any, Filter: schema.IDReference, Required: true},
	}
)

// CourseLists groups every course by the user's relationship to it.
type CourseLists struct {
	Teaching []*models.Course `json:"teaching"`
	Taking   []*models.Course `json:"taking"`
	Pending  []*models.Course `json:"pending"`
	Open     []*models.Course `json:"open"`
}

// List returns the courses a user teaches, takes, waits on, and could join.
func (r *Courses) List(ctx context.Context, data schema.Data) (lists *CourseLists, err error) {
	defer observe("course", "list", &err)

	if _, err := schema.Validate(data, courseOverviewSchema); err != nil {
		return nil, err
	}
	sub := schema.Data{"user_id": data["user_id"]}
	if p, ok := data["projection"]; ok {
		sub["projection"] = p
	}

	lists = &CourseLists{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		lists.Teaching, _, err = r.ListForTeacher(gctx, sub)
		return err
	})
	g.Go(func() (err error) {
		lists.Taking, _, err = r.ListForStudent(gctx, sub)
		return err
	})
	g.Go(func() (err error) {
		lists.Pending, _, err = r.ListForPendingStudent(gctx, sub)
		return err
	})
	g.Go(func() (err error) {
		lists.Open, _, err = r.ListOpen(gctx, sub)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lists, nil
}

func (r *Courses) ListForTeacher(ctx context.Context, data schema.Data) (courses []*models.Course, total int, err error) {
	defer observe("course", "list_for_teacher", &err)
	return r.list(ctx, data, models.RelationshipTeacher, func(q *store.CourseQuery, userID uuid.UUID) {
		q.TeacherID = &userID
	})
}

func (r *Courses) ListForStudent(ctx context.Context, data schema.Data) (courses []*models.Course, total int, err error) {
	defer observe("course", "list_for_student", &err)
	return r.list(ctx, data, models.RelationshipStudent, func(q *store.CourseQuery, userID uuid.UUID) {
		q.StudentID = &userID
	})
}

func (r *Courses) ListForPendingStudent(ctx context.Context, data schema.Data) (courses []*models.Course, total int, err error) {
	defer observe("course", "list_for_pending_student", &err)
	return r.list(ctx, data, models.RelationshipPending, func(q *store.CourseQuery, userID uuid.UUID) {
		q.PendingStudentID = &userID
	})
}

// ListOpen returns the courses the user has no part in yet.
func (r *Courses) ListOpen(ctx context.Context, data schema.Data) (courses []*models.Course, total int, err error) {
	defer observe("course", "list_open", &err)
	return r.list(ctx, data, models.RelationshipNone, func(q *store.CourseQuery, userID uuid.UUID) {
		q.ExcludeMemberID = &userID
	})
}

func (r *Courses) list(
	ctx context.Context,
	data schema.Data,
	rel models.Relationship,
	scope func(q *store.CourseQuery, userID uuid.UUID),
) ([]*models.Course, int, error) {
	in, err := schema.Validate(data, courseListSchema)
	if err != nil {
		return nil, 0, err
	}
	userID := in.ID("user_id")

	if rel == models.RelationshipNone {
		if _, err := r.repos.Users.getByID(ctx, userID); err != nil {
			return nil, 0, err
		}
	}

	q := store.CourseQuery{
		NameMatch: in.Regexp("search"),
		Sort:      in.Sort("sort", schema.Asc("name")),
		Page:      store.Page{Offset: in.Int("offset"), Limit: in.Int("limit")},
	}
	scope(&q, userID)

	total, err := r.store.CountCourses(ctx, q)
	if err != nil {
		return nil, 0, oops.New(err, "failed to count courses")
	}
	courses, err := r.store.FindCourses(ctx, q)
	if err != nil {
		return nil, 0, oops.New(err, "failed to fetch courses")
	}

	p := in.Projection("projection")
	for _, c := range courses {
		c.Project(p)
		c.Relationship = rel
		if !rel.IsMember() {
			c.HideRoster()
		}
	}
	r.expandCourses(ctx, courses)

	return courses, total, nil
}

// Exists reports whether a course matches every given criterion. At least
// one of id, name and teacher_id is needed.
func (r *Courses) Exists(ctx context.Context, data schema.Data) (exists bool, err error) {
	defer observe("course", "exists", &err)

	in, err := schema.Validate(data, courseExistsSchema)
	if err != nil {
		return false, err
	}

	var q store.CourseQuery
	if id := in.OptID("id"); id != nil {
		q.IDs = []uuid.UUID{*id}
	}
	q.Name = in.OptString("name")
	q.TeacherID = in.OptID("teacher_id")
	if q.IDs == nil && q.Name == nil && q.TeacherID == nil {
		return false, fail.Invalidf("Invalid parameters.")
	}

	n, err := r.store.CountCourses(ctx, q)
	if err != nil {
		return false, oops.New(err, "failed to count courses")
	}
	return n > 0, nil
}

/*
Get returns a course with its members expanded. Read on behalf of user_id,
the course also reports the user's relationship; users with none get
NotFound, and pending students do not see the roster.
*/
func (r *Courses) Get(ctx context.Context, data schema.Data) (course *models.Course, err error) {
	defer observe("course", "get", &err)

	in, err := schema.Validate(data, courseGetSchema)
	if err != nil {
		return nil, err
	}

	course, err = r.find(ctx, in.ID("id"))
	if err != nil {
		return nil, err
	}
	course.Project(in.Projection("projection"))

	if userID := in.OptID("user_id"); userID != nil {
		rel := course.RelationshipOf(*userID)
		if rel == models.RelationshipNone {
			return nil, errCourseNotFound
		}
		course.Relationship = rel
		if rel == models.RelationshipPending {
			course.HideRoster()
		}
	}

	r.expandCourse(ctx, course)
	return course, nil
}

var errCourseNotFound = fail.NotFoundf("Course not found.")

func (r *Courses) find(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	c, err := store.FindOne(r.store.FindCourses(ctx, store.CourseQuery{IDs: []uuid.UUID{id}}))
	if isNotFound(err) {
		return nil, errCourseNotFound
	} else if err != nil {
		return nil, oops.New(err, "failed to fetch course")
	}
	return c, nil
}

/*
scope resolves how userID relates to a course, for operations on the
entities the course owns. Outsiders get NotFound. Pending students are
known but have no rights yet.
*/
func (r *Courses) scope(ctx context.Context, courseID, userID uuid.UUID) (*models.Course, models.Relationship, error) {
	c, err := r.find(ctx, courseID)
	if err != nil {
		return nil, models.RelationshipNone, err
	}

	rel := c.RelationshipOf(userID)
	switch rel {
	case models.RelationshipNone:
		return nil, rel, errCourseNotFound
	case models.RelationshipPending:
		return nil, rel, fail.Forbiddenf("Your admission to the course is still pending.")
	}
	return c, rel, nil
}

// Add creates a course taught by teacher_id. A teacher cannot have two
// courses of the same name.
func (r *Courses) Add(ctx context.Context, data schema.Data) (course *models.Course, err error) {
	defer observe("course", "add", &err)

	in, err := schema.Validate(data, courseAddSchema)
	if err != nil {
		return nil, err
	}
	name, teacherID := in.String("name"), in.ID("teacher_id")

	teacher, err := r.repos.Users.getByID(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	errExists := fail.Conflictf("A course you teach with the specified name already exists.")
	exists, err := r.Exists(ctx, schema.Data{"name": name, "teacher_id": teacher.ID})
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errExists
	}

	c := &models.Course{
		ID:                uuid.New(),
		Name:              name,
		TeacherIDs:        []uuid.UUID{teacher.ID},
		StudentIDs:        []uuid.UUID{},
		PendingStudentIDs: []uuid.UUID{},
		States:            models.CourseStates{Active: true},
		Timestamps:        models.Timestamps{Created: r.now()},
	}
	if err := r.store.InsertCourse(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errExists
		}
		return nil, oops.New(err, "failed to insert course")
	}

	return r.Get(ctx, schema.Data{"id": c.ID, "user_id": teacher.ID})
}

func joinConflict(rel models.Relationship) error {
	switch rel {
	case models.RelationshipTeacher:
		return fail.Conflictf("User is already a teacher of the course.")
	case models.RelationshipStudent:
		return fail.Conflictf("User is already a student of the course.")
	case models.RelationshipPending:
		return fail.Conflictf("User is already pending admission to the course.")
	}
	return nil
}

// Join puts student_id on the course's waiting list.
func (r *Courses) Join(ctx context.Context, data schema.Data) (course *models.Course, err error) {
	defer observe("course", "join", &err)

	in, err := schema.Validate(data, courseJoinSchema)
	if err != nil {
		return nil, err
	}
	courseID, studentID := in.ID("id"), in.ID("student_id")

	c, err := r.find(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := joinConflict(c.RelationshipOf(studentID)); err != nil {
		return nil, err
	}
	if _, err := r.repos.Users.getByID(ctx, studentID); err != nil {
		return nil, err
	}

	added, err := r.store.AddPendingStudent(ctx, courseID, studentID)
	if err != nil {
		return nil, oops.New(err, "failed to add pending student")
	}
	if !added {
		// Someone else changed the course in between; report what they did.
		c, err := r.find(ctx, courseID)
		if err != nil {
			return nil, err
		}
		if err := joinConflict(c.RelationshipOf(studentID)); err != nil {
			return nil, err
		}
		return nil, errCourseNotFound
	}

	return r.Get(ctx, schema.Data{"id": courseID, "user_id": studentID})
}

// AcceptStudent moves student_id from the waiting list to the students.
func (r *Courses) AcceptStudent(ctx context.Context, data schema.Data) (course *models.Course, err error) {
	defer observe("course", "accept_student", &err)
	return r.admit(ctx, data, "add", r.store.AcceptPendingStudent)
}

// DeclineStudent drops student_id from the waiting list.
func (r *Courses) DeclineStudent(ctx context.Context, data schema.Data) (course *models.Course, err error) {
	defer observe("course", "decline_student", &err)
	return r.admit(ctx, data, "decline", r.store.RemovePendingStudent)
}

func (r *Courses) admit(
	ctx context.Context,
	data schema.Data,
	verb string,
	update func(ctx context.Context, courseID, userID uuid.UUID) (bool, error),
) (*models.Course, error) {
	in, err := schema.Validate(data, courseAdmissionSchema)
	if err != nil {
		return nil, err
	}
	courseID, teacherID, studentID := in.ID("id"), in.ID("teacher_id"), in.ID("student_id")

	c, err := r.find(ctx, courseID)
	if err != nil {
		return nil, err
	}
	switch c.RelationshipOf(teacherID) {
	case models.RelationshipTeacher:
	case models.RelationshipNone:
		return nil, errCourseNotFound
	default:
		return nil, fail.Forbiddenf("Only a teacher of the course can %s a student.", verb)
	}

	errNotPending := fail.NotFoundf("Student is not pending admission to the course.")
	if c.RelationshipOf(studentID) != models.RelationshipPending {
		return nil, errNotPending
	}
	updated, err := update(ctx, courseID, studentID)
	if err != nil {
		return nil, oops.New(err, "failed to update course members")
	}
	if !updated {
		return nil, errNotPending
	}

	return r.Get(ctx, schema.Data{"id": courseID, "user_id": teacherID})
}
