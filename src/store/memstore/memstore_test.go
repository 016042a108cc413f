package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/schema"
	"git.flipper.school/flipper/flipper/src/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := New()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, username := range []string{"carol", "alice", "bob"} {
		require.NoError(t, s.InsertUser(ctx, &models.User{
			ID:         uuid.New(),
			Username:   username,
			Timestamps: models.UserTimestamps{Created: base.Add(time.Duration(i) * time.Hour)},
		}))
	}

	err := s.InsertUser(ctx, &models.User{ID: uuid.New(), Username: "alice"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	users, err := s.FindUsers(ctx, store.UserQuery{Sort: []schema.SortKey{schema.Asc("username")}})
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "carol", users[2].Username)

	users, err = s.FindUsers(ctx, store.UserQuery{
		Sort: []schema.SortKey{schema.Desc("created")},
		Page: store.Page{Offset: 1, Limit: 1},
	})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)

	n, err := s.CountUsers(ctx, store.UserQuery{Usernames: []string{"bob", "nobody"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	t.Run("sign", func(t *testing.T) {
		bob, err := store.FindOne(s.FindUsers(ctx, store.UserQuery{Usernames: []string{"bob"}}))
		require.NoError(t, err)

		first, second := base.Add(24*time.Hour), base.Add(48*time.Hour)
		ok, err := s.SetUserSigned(ctx, bob.ID, first)
		require.NoError(t, err)
		assert.True(t, ok)
		_, err = s.SetUserSigned(ctx, bob.ID, second)
		require.NoError(t, err)

		bob, err = store.FindOne(s.FindUsers(ctx, store.UserQuery{IDs: []uuid.UUID{bob.ID}}))
		require.NoError(t, err)
		assert.Equal(t, first, *bob.Timestamps.LastSigned)
		assert.Equal(t, second, *bob.Timestamps.Signed)
		assert.Equal(t, second, *bob.Timestamps.Active)

		ok, err = s.TouchUser(ctx, uuid.New(), second)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("results are copies", func(t *testing.T) {
		users, err := s.FindUsers(ctx, store.UserQuery{})
		require.NoError(t, err)
		users[0].Username = "mallory"

		n, err := s.CountUsers(ctx, store.UserQuery{Usernames: []string{"mallory"}})
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	past := now.Add(-time.Minute)

	require.NoError(t, s.InsertSession(ctx, &models.Session{ID: "a", Value: uuid.New()}))
	require.NoError(t, s.InsertSession(ctx, &models.Session{ID: "b", Expires: &past}))

	_, err := s.FindSession(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	n, err := s.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	ok, err := s.DeleteSession(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.DeleteSession(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCourseMembership(t *testing.T) {
	ctx := context.Background()
	s := New()
	teacher, student := uuid.New(), uuid.New()
	c := &models.Course{ID: uuid.New(), Name: "Biology", TeacherIDs: []uuid.UUID{teacher}}
	require.NoError(t, s.InsertCourse(ctx, c))

	err := s.InsertCourse(ctx, &models.Course{ID: uuid.New(), Name: "Biology", TeacherIDs: []uuid.UUID{teacher}})
	assert.ErrorIs(t, err, store.ErrDuplicate)
	require.NoError(t, s.InsertCourse(ctx, &models.Course{ID: uuid.New(), Name: "Biology", TeacherIDs: []uuid.UUID{uuid.New()}}))

	ok, err := s.AddPendingStudent(ctx, c.ID, teacher)
	require.NoError(t, err)
	assert.False(t, ok, "teachers cannot join their own course")

	ok, err = s.AcceptPendingStudent(ctx, c.ID, student)
	require.NoError(t, err)
	assert.False(t, ok, "only pending students can be accepted")

	ok, err = s.AddPendingStudent(ctx, c.ID, student)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AddPendingStudent(ctx, c.ID, student)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.CountCourses(ctx, store.CourseQuery{ExcludeMemberID: &student})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err = s.AcceptPendingStudent(ctx, c.ID, student)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.FindOne(s.FindCourses(ctx, store.CourseQuery{StudentID: &student}))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{student}, got.StudentIDs)
	assert.Empty(t, got.PendingStudentIDs)
}

func TestConcurrentJoins(t *testing.T) {
	ctx := context.Background()
	s := New()
	c := &models.Course{ID: uuid.New(), Name: "Physics", TeacherIDs: []uuid.UUID{uuid.New()}}
	require.NoError(t, s.InsertCourse(ctx, c))
	student := uuid.New()

	var wg sync.WaitGroup
	var mutex sync.Mutex
	added := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.AddPendingStudent(ctx, c.ID, student)
			assert.NoError(t, err)
			if ok {
				mutex.Lock()
				added++
				mutex.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, added)
	got, err := store.FindOne(s.FindCourses(ctx, store.CourseQuery{IDs: []uuid.UUID{c.ID}}))
	require.NoError(t, err)
	assert.Len(t, got.PendingStudentIDs, 1)
}

func TestPagePositionsAndCascade(t *testing.T) {
	ctx := context.Background()
	s := New()
	m := &models.Minilesson{ID: uuid.New(), CourseID: uuid.New(), Title: "Cells"}
	other := &models.Minilesson{ID: uuid.New(), CourseID: m.CourseID, Title: "Organs"}
	require.NoError(t, s.InsertMinilesson(ctx, m))
	require.NoError(t, s.InsertMinilesson(ctx, other))

	var pages []*models.Page
	for i := 0; i < 3; i++ {
		p := &models.Page{ID: uuid.New(), MinilessonID: m.ID, Title: "Page"}
		require.NoError(t, s.InsertPage(ctx, p))
		assert.Equal(t, i+1, p.Position)
		pages = append(pages, p)
	}
	otherPage := &models.Page{ID: uuid.New(), MinilessonID: other.ID}
	require.NoError(t, s.InsertPage(ctx, otherPage))
	assert.Equal(t, 1, otherPage.Position)

	ok, err := s.DeletePage(ctx, pages[2].ID)
	require.NoError(t, err)
	assert.True(t, ok)
	p := &models.Page{ID: uuid.New(), MinilessonID: m.ID}
	require.NoError(t, s.InsertPage(ctx, p))
	assert.Equal(t, 3, p.Position)

	mcq := &models.Mcq{ID: uuid.New(), PageID: pages[0].ID, Question: "?", Answers: []string{"a"}, Answer: "a"}
	require.NoError(t, s.InsertMcq(ctx, mcq))
	student := uuid.New()
	require.NoError(t, s.InsertSubmission(ctx, &models.Submission{ID: uuid.New(), UserID: student, McqID: mcq.ID, Answer: "a", Score: 1}))
	err = s.InsertSubmission(ctx, &models.Submission{ID: uuid.New(), UserID: student, McqID: mcq.ID, Answer: "a"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	ok, err = s.DeleteMinilesson(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := s.CountPages(ctx, store.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the other minilesson's page survives")
	n, err = s.CountMcqs(ctx, store.McqQuery{})
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = s.CountSubmissions(ctx, store.SubmissionQuery{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMinilessonQueries(t *testing.T) {
	ctx := context.Background()
	s := New()
	courseID := uuid.New()
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	a := &models.Minilesson{ID: uuid.New(), CourseID: courseID, Title: "A"}
	b := &models.Minilesson{ID: uuid.New(), CourseID: courseID, Title: "B", Timestamps: models.MinilessonTimestamps{DueDate: &due}}
	require.NoError(t, s.InsertMinilesson(ctx, a))
	require.NoError(t, s.InsertMinilesson(ctx, b))

	ok, err := s.SetMinilessonPublished(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	published, err := s.FindMinilessons(ctx, store.MinilessonQuery{CourseID: &courseID, PublishedOnly: true})
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, b.ID, published[0].ID)

	all, err := s.FindMinilessons(ctx, store.MinilessonQuery{CourseID: &courseID, Sort: []schema.SortKey{schema.Desc("due_date")}})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID)

	ok, err = s.UpdateMinilesson(ctx, b.ID, "B2", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	got, err := store.FindOne(s.FindMinilessons(ctx, store.MinilessonQuery{IDs: []uuid.UUID{b.ID}}))
	require.NoError(t, err)
	assert.Equal(t, "B2", got.Title)
	assert.Nil(t, got.Timestamps.DueDate)
	assert.True(t, got.States.Published)
}
