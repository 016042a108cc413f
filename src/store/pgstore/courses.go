package pgstore

import (
	"context"
	"time"

	"git.flipper.school/flipper/flipper/src/db"
	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/oops"
	"git.flipper.school/flipper/flipper/src/store"
	"github.com/google/uuid"
)

type courseRow struct {
	ID              uuid.UUID   `db:"id"`
	Name            string      `db:"name"`
	Teachers        []uuid.UUID `db:"teachers"`
	Students        []uuid.UUID `db:"students"`
	PendingStudents []uuid.UUID `db:"pending_students"`
	Active          bool        `db:"active"`
	Created         time.Time   `db:"created"`
}

func (r *courseRow) model() *models.Course {
	return &models.Course{
		ID:                r.ID,
		Name:              r.Name,
		TeacherIDs:        r.Teachers,
		StudentIDs:        r.Students,
		PendingStudentIDs: r.PendingStudents,
		States:            models.CourseStates{Active: r.Active},
		Timestamps:        models.Timestamps{Created: r.Created},
	}
}

var courseSortColumns = map[string]string{
	"name":    "name",
	"created": "created",
}

func courseWhere(qb *db.QueryBuilder, q store.CourseQuery) {
	qb.Add("WHERE TRUE")
	if q.IDs != nil {
		qb.Add("AND id = ANY($?)", q.IDs)
	}
	if q.TeacherID != nil {
		qb.Add("AND $? = ANY(teachers)", *q.TeacherID)
	}
	if q.StudentID != nil {
		qb.Add("AND $? = ANY(students)", *q.StudentID)
	}
	if q.PendingStudentID != nil {
		qb.Add("AND $? = ANY(pending_students)", *q.PendingStudentID)
	}
	if q.ExcludeMemberID != nil {
		id := *q.ExcludeMemberID
		qb.Add("AND NOT ($? = ANY(teachers) OR $? = ANY(students) OR $? = ANY(pending_students))", id, id, id)
	}
	if q.Name != nil {
		qb.Add("AND name = $?", *q.Name)
	}
	if q.NameMatch != nil {
		qb.Add("AND name ~ $?", q.NameMatch.String())
	}
}

func (s *Store) CountCourses(ctx context.Context, q store.CourseQuery) (int, error) {
	var qb db.QueryBuilder
	qb.Add("---- Count courses\nSELECT COUNT(*) FROM course")
	courseWhere(&qb, q)

	n, err := db.QueryOneScalar[int](ctx, s.conn, qb.String(), qb.Args()...)
	if err != nil {
		return 0, oops.New(err, "failed to count courses")
	}
	return n, nil
}

func (s *Store) FindCourses(ctx context.Context, q store.CourseQuery) ([]*models.Course, error) {
	var qb db.QueryBuilder
	qb.Add("---- Find courses\nSELECT $columns FROM course")
	courseWhere(&qb, q)
	addOrder(&qb, q.Sort, courseSortColumns)
	addPage(&qb, q.Page)

	rows, err := db.Query[courseRow](ctx, s.conn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to fetch courses")
	}
	res := make([]*models.Course, len(rows))
	for i, row := range rows {
		res[i] = row.model()
	}
	return res, nil
}

func (s *Store) InsertCourse(ctx context.Context, c *models.Course) error {
	_, err := s.conn.Exec(ctx,
		`
		---- Insert course
		INSERT INTO course (id, name, teachers, students, pending_students, active, created)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
		c.ID, c.Name,
		nonNil(c.TeacherIDs), nonNil(c.StudentIDs), nonNil(c.PendingStudentIDs),
		c.States.Active, c.Timestamps.Created,
	)
	if err != nil {
		return insertErr(err, "course")
	}
	return nil
}

func (s *Store) AddPendingStudent(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	n, err := db.Exec(ctx, s.conn,
		`
		---- Add pending student
		UPDATE course
		SET pending_students = array_append(pending_students, $2)
		WHERE
			id = $1
			AND NOT ($2 = ANY(teachers) OR $2 = ANY(students) OR $2 = ANY(pending_students))
		`,
		courseID, userID,
	)
	if err != nil {
		return false, oops.New(err, "failed to add pending student")
	}
	return n > 0, nil
}

func (s *Store) AcceptPendingStudent(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	n, err := db.Exec(ctx, s.conn,
		`
		---- Accept pending student
		UPDATE course
		SET
			pending_students = array_remove(pending_students, $2),
			students = array_append(students, $2)
		WHERE
			id = $1
			AND $2 = ANY(pending_students)
		`,
		courseID, userID,
	)
	if err != nil {
		return false, oops.New(err, "failed to accept pending student")
	}
	return n > 0, nil
}

func (s *Store) RemovePendingStudent(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	n, err := db.Exec(ctx, s.conn,
		`
		---- Remove pending student
		UPDATE course
		SET pending_students = array_remove(pending_students, $2)
		WHERE
			id = $1
			AND $2 = ANY(pending_students)
		`,
		courseID, userID,
	)
	if err != nil {
		return false, oops.New(err, "failed to remove pending student")
	}
	return n > 0, nil
}

func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
