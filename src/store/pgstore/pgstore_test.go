package pgstore

import (
	"errors"
	"testing"

	"git.flipper.school/flipper/flipper/src/db"
	"git.flipper.school/flipper/flipper/src/schema"
	"git.flipper.school/flipper/flipper/src/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestAddOrder(t *testing.T) {
	var qb db.QueryBuilder
	addOrder(&qb, []schema.SortKey{schema.Desc("due_date"), schema.Asc("title")}, minilessonSortColumns)
	assert.Equal(t, "ORDER BY\ndue_date DESC NULLS LAST,\ntitle ASC NULLS FIRST,\nid ASC\n", qb.String())

	assert.Panics(t, func() {
		addOrder(&qb, []schema.SortKey{schema.Asc("password")}, userSortColumns)
	})
}

func TestAddPage(t *testing.T) {
	var qb db.QueryBuilder
	addPage(&qb, store.Page{})
	assert.Empty(t, qb.String())

	addPage(&qb, store.Page{Offset: 20, Limit: 10})
	assert.Equal(t, "LIMIT $1\nOFFSET $2\n", qb.String())
	assert.Equal(t, []any{10, 20}, qb.Args())
}

func TestCourseWhere(t *testing.T) {
	id := uuid.New()
	var qb db.QueryBuilder
	courseWhere(&qb, store.CourseQuery{ExcludeMemberID: &id})
	assert.Contains(t, qb.String(), "NOT ($1 = ANY(teachers) OR $2 = ANY(students) OR $3 = ANY(pending_students))")
	assert.Len(t, qb.Args(), 3)
}

func TestSortColumnsCoverSortKeys(t *testing.T) {
	for _, tc := range []struct {
		keys    []string
		columns map[string]string
	}{
		{store.UserSortKeys, userSortColumns},
		{store.CourseSortKeys, courseSortColumns},
		{store.MinilessonSortKeys, minilessonSortColumns},
		{store.PageSortKeys, pageSortColumns},
		{store.McqSortKeys, mcqSortColumns},
		{store.SubmissionSortKeys, submissionSortColumns},
	} {
		for _, key := range tc.keys {
			assert.Contains(t, tc.columns, key)
		}
	}
}

func TestInsertErr(t *testing.T) {
	assert.ErrorIs(t, insertErr(&pgconn.PgError{Code: "23505"}, "user"), store.ErrDuplicate)

	err := insertErr(errors.New("connection refused"), "user")
	assert.NotErrorIs(t, err, store.ErrDuplicate)
	assert.Contains(t, err.Error(), "failed to insert user")
}
