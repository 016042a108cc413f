package flipdata

import (
	"context"

	"git.flipper.school/flipper/flipper/src/logging"
	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/schema"
	"git.flipper.school/flipper/flipper/src/store"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Expanded users carry no timestamps.
var expandedUserProjection = schema.Projection{"timestamps": false}

/*
expandUsers loads the users behind ids, in order. A lookup that fails or
finds nothing leaves a nil entry; the surrounding operation still succeeds.
*/
func (d *deps) expandUsers(ctx context.Context, ids []uuid.UUID) []*models.User {
	res := make([]*models.User, len(ids))

	var g errgroup.Group
	g.SetLimit(d.expandLimit)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			u, err := store.FindOne(d.store.FindUsers(ctx, store.UserQuery{IDs: []uuid.UUID{id}}))
			if err != nil {
				logging.ExtractLogger(ctx).Debug().
					Err(err).
					Stringer("user_id", id).
					Msg("could not expand user reference")
				return nil
			}
			u = u.Public()
			u.Project(expandedUserProjection)
			res[i] = u
			return nil
		})
	}
	_ = g.Wait()

	return res
}

// expandCourse fills in the member lists the course's projection keeps.
func (d *deps) expandCourse(ctx context.Context, c *models.Course) {
	if !c.Excludes("teachers") {
		c.Teachers = d.expandUsers(ctx, c.TeacherIDs)
	}
	if !c.Excludes("students") {
		c.Students = d.expandUsers(ctx, c.StudentIDs)
	}
	if !c.Excludes("pending_students") {
		c.PendingStudents = d.expandUsers(ctx, c.PendingStudentIDs)
	}
}

// expandCourses expands every course independently.
func (d *deps) expandCourses(ctx context.Context, courses []*models.Course) {
	var g errgroup.Group
	for _, c := range courses {
		c := c
		g.Go(func() error {
			d.expandCourse(ctx, c)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *deps) expandSubmissions(ctx context.Context, subs []*models.Submission) {
	ids := make([]uuid.UUID, len(subs))
	for i, s := range subs {
		ids[i] = s.UserID
	}
	users := d.expandUsers(ctx, ids)
	for i, s := range subs {
		s.User = users[i]
	}
}
