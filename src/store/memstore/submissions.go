package memstore

import (
	"context"

	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/store"
)

func (s *Store) matchSubmissions(q store.SubmissionQuery) []*models.Submission {
	return filter(s.submissions, func(sub *models.Submission) bool {
		switch {
		case !inIDs(q.IDs, sub.ID):
			return false
		case !inIDs(q.McqIDs, sub.McqID):
			return false
		case q.UserID != nil && sub.UserID != *q.UserID:
			return false
		}
		return true
	})
}

func (s *Store) CountSubmissions(ctx context.Context, q store.SubmissionQuery) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.matchSubmissions(q)), nil
}

func (s *Store) FindSubmissions(ctx context.Context, q store.SubmissionQuery) ([]*models.Submission, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	submissions := s.matchSubmissions(q)
	sortBy(submissions, q.Sort, func(sub *models.Submission, key string) any {
		if key == "score" {
			return sub.Score
		}
		return sub.Timestamps.Created
	})

	res := []*models.Submission{}
	for _, sub := range paginate(submissions, q.Page) {
		c := *sub
		c.User = nil
		res = append(res, &c)
	}
	return res, nil
}

func (s *Store) InsertSubmission(ctx context.Context, sub *models.Submission) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, existing := range s.submissions {
		if existing.ID == sub.ID || (existing.UserID == sub.UserID && existing.McqID == sub.McqID) {
			return store.ErrDuplicate
		}
	}
	c := *sub
	c.User = nil
	s.submissions = append(s.submissions, &c)
	return nil
}
