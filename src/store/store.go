/*
Package store defines the persistence boundary for Flipper. Repositories in
flipdata talk only to the Store interface; pgstore implements it on
PostgreSQL and memstore in memory.

Finders never fail for a missing entity: they return an empty slice, or
ErrNotFound for single lookups by key. Writes that would break a uniqueness
rule return ErrDuplicate.
*/
package store

import (
	"context"
	"regexp"
	"time"

	"git.flipper.school/flipper/flipper/src/fail"
	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/schema"
	"github.com/google/uuid"
)

var (
	ErrNotFound = fail.NotFoundf("not found")
	// Returned by inserts that would break a uniqueness rule.
	ErrDuplicate = fail.Conflictf("already exists")
)

type Store interface {
	Users
	Sessions
	Courses
	Minilessons
	Pages
	Mcqs
	Submissions

	Close()
}

// Page limits a result list. A zero Limit means no limit.
type Page struct {
	Offset int
	Limit  int
}

type UserQuery struct {
	IDs       []uuid.UUID
	Usernames []string
	NameMatch *regexp.Regexp

	Sort []schema.SortKey
	Page
}

type Users interface {
	CountUsers(ctx context.Context, q UserQuery) (int, error)
	FindUsers(ctx context.Context, q UserQuery) ([]*models.User, error)
	InsertUser(ctx context.Context, u *models.User) error
	// SetUserSigned moves signed to last_signed and stamps signed and active
	// with now.
	SetUserSigned(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	TouchUser(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}

type Sessions interface {
	FindSession(ctx context.Context, id string) (*models.Session, error)
	InsertSession(ctx context.Context, s *models.Session) error
	DeleteSession(ctx context.Context, id string) (bool, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type CourseQuery struct {
	IDs              []uuid.UUID
	TeacherID        *uuid.UUID
	StudentID        *uuid.UUID
	PendingStudentID *uuid.UUID
	// Courses where this user is in none of the three sets.
	ExcludeMemberID *uuid.UUID
	Name            *string
	NameMatch       *regexp.Regexp

	Sort []schema.SortKey
	Page
}

type Courses interface {
	CountCourses(ctx context.Context, q CourseQuery) (int, error)
	FindCourses(ctx context.Context, q CourseQuery) ([]*models.Course, error)
	InsertCourse(ctx context.Context, c *models.Course) error

	// The membership updates are atomic. They report false without changing
	// anything when the user is already in one of the sets (add) or not
	// pending (accept, remove).
	AddPendingStudent(ctx context.Context, courseID, userID uuid.UUID) (bool, error)
	AcceptPendingStudent(ctx context.Context, courseID, userID uuid.UUID) (bool, error)
	RemovePendingStudent(ctx context.Context, courseID, userID uuid.UUID) (bool, error)
}

type MinilessonQuery struct {
	IDs           []uuid.UUID
	CourseID      *uuid.UUID
	PublishedOnly bool

	Sort []schema.SortKey
	Page
}

type Minilessons interface {
	CountMinilessons(ctx context.Context, q MinilessonQuery) (int, error)
	FindMinilessons(ctx context.Context, q MinilessonQuery) ([]*models.Minilesson, error)
	InsertMinilesson(ctx context.Context, m *models.Minilesson) error
	SetMinilessonPublished(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateMinilesson(ctx context.Context, id uuid.UUID, title string, dueDate *time.Time) (bool, error)
	// Deletes the minilesson with its pages, mcqs and submissions.
	DeleteMinilesson(ctx context.Context, id uuid.UUID) (bool, error)
}

type PageQuery struct {
	IDs          []uuid.UUID
	MinilessonID *uuid.UUID

	Sort []schema.SortKey
	Page
}

type Pages interface {
	CountPages(ctx context.Context, q PageQuery) (int, error)
	FindPages(ctx context.Context, q PageQuery) ([]*models.Page, error)
	// InsertPage assigns p.Position as one past the highest position in the
	// minilesson.
	InsertPage(ctx context.Context, p *models.Page) error
	DeletePage(ctx context.Context, id uuid.UUID) (bool, error)
}

type McqQuery struct {
	IDs    []uuid.UUID
	PageID *uuid.UUID

	Sort []schema.SortKey
	Page
}

type Mcqs interface {
	CountMcqs(ctx context.Context, q McqQuery) (int, error)
	FindMcqs(ctx context.Context, q McqQuery) ([]*models.Mcq, error)
	InsertMcq(ctx context.Context, m *models.Mcq) error
	DeleteMcq(ctx context.Context, id uuid.UUID) (bool, error)
}

type SubmissionQuery struct {
	IDs    []uuid.UUID
	McqIDs []uuid.UUID
	UserID *uuid.UUID

	Sort []schema.SortKey
	Page
}

type Submissions interface {
	CountSubmissions(ctx context.Context, q SubmissionQuery) (int, error)
	FindSubmissions(ctx context.Context, q SubmissionQuery) ([]*models.Submission, error)
	// Fails with ErrDuplicate if the user already answered the mcq.
	InsertSubmission(ctx context.Context, s *models.Submission) error
}

// Sortable keys per entity, as accepted in list requests.
var (
	UserSortKeys       = []string{"username", "name", "created"}
	CourseSortKeys     = []string{"name", "created"}
	MinilessonSortKeys = []string{"created", "due_date", "title"}
	PageSortKeys       = []string{"position", "created", "title"}
	McqSortKeys        = []string{"created"}
	SubmissionSortKeys = []string{"created", "score"}
)

// FindOne returns the first result of a finder, or ErrNotFound.
func FindOne[T any](items []*T, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items[0], nil
}
