package memstore

import (
	"context"

	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/store"
	"github.com/google/uuid"
)

func cloneCourse(c *models.Course) *models.Course {
	return &models.Course{
		ID:                c.ID,
		Name:              c.Name,
		TeacherIDs:        cloneIDs(c.TeacherIDs),
		StudentIDs:        cloneIDs(c.StudentIDs),
		PendingStudentIDs: cloneIDs(c.PendingStudentIDs),
		States:            c.States,
		Timestamps:        c.Timestamps,
	}
}

func (s *Store) matchCourses(q store.CourseQuery) []*models.Course {
	return filter(s.courses, func(c *models.Course) bool {
		switch {
		case !inIDs(q.IDs, c.ID):
			return false
		case q.TeacherID != nil && !containsID(c.TeacherIDs, *q.TeacherID):
			return false
		case q.StudentID != nil && !containsID(c.StudentIDs, *q.StudentID):
			return false
		case q.PendingStudentID != nil && !containsID(c.PendingStudentIDs, *q.PendingStudentID):
			return false
		case q.ExcludeMemberID != nil && c.RelationshipOf(*q.ExcludeMemberID) != models.RelationshipNone:
			return false
		case q.Name != nil && c.Name != *q.Name:
			return false
		case q.NameMatch != nil && !q.NameMatch.MatchString(c.Name):
			return false
		}
		return true
	})
}

func (s *Store) CountCourses(ctx context.Context, q store.CourseQuery) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.matchCourses(q)), nil
}

func (s *Store) FindCourses(ctx context.Context, q store.CourseQuery) ([]*models.Course, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	courses := s.matchCourses(q)
	sortBy(courses, q.Sort, func(c *models.Course, key string) any {
		if key == "created" {
			return c.Timestamps.Created
		}
		return c.Name
	})

	res := []*models.Course{}
	for _, c := range paginate(courses, q.Page) {
		res = append(res, cloneCourse(c))
	}
	return res, nil
}

func (s *Store) InsertCourse(ctx context.Context, c *models.Course) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, existing := range s.courses {
		if existing.ID == c.ID {
			return store.ErrDuplicate
		}
		if existing.Name == c.Name && len(existing.TeacherIDs) > 0 && len(c.TeacherIDs) > 0 && existing.TeacherIDs[0] == c.TeacherIDs[0] {
			return store.ErrDuplicate
		}
	}
	s.courses = append(s.courses, cloneCourse(c))
	return nil
}

func (s *Store) updateCourse(id uuid.UUID, update func(c *models.Course) bool) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, c := range s.courses {
		if c.ID == id {
			return update(c)
		}
	}
	return false
}

func (s *Store) AddPendingStudent(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	return s.updateCourse(courseID, func(c *models.Course) bool {
		if c.RelationshipOf(userID) != models.RelationshipNone {
			return false
		}
		c.PendingStudentIDs = append(c.PendingStudentIDs, userID)
		return true
	}), nil
}

func (s *Store) AcceptPendingStudent(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	return s.updateCourse(courseID, func(c *models.Course) bool {
		if !containsID(c.PendingStudentIDs, userID) {
			return false
		}
		c.PendingStudentIDs = removeID(c.PendingStudentIDs, userID)
		c.StudentIDs = append(c.StudentIDs, userID)
		return true
	}), nil
}

func (s *Store) RemovePendingStudent(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	return s.updateCourse(courseID, func(c *models.Course) bool {
		if !containsID(c.PendingStudentIDs, userID) {
			return false
		}
		c.PendingStudentIDs = removeID(c.PendingStudentIDs, userID)
		return true
	}), nil
}
