package memstore

import (
	"context"

	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/store"
	"github.com/google/uuid"
)

func cloneMcq(m *models.Mcq) *models.Mcq {
	res := *m
	res.Answers = append([]string{}, m.Answers...)
	return &res
}

func (s *Store) matchMcqs(q store.McqQuery) []*models.Mcq {
	return filter(s.mcqs, func(m *models.Mcq) bool {
		return inIDs(q.IDs, m.ID) && (q.PageID == nil || m.PageID == *q.PageID)
	})
}

func (s *Store) CountMcqs(ctx context.Context, q store.McqQuery) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.matchMcqs(q)), nil
}

func (s *Store) FindMcqs(ctx context.Context, q store.McqQuery) ([]*models.Mcq, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	mcqs := s.matchMcqs(q)
	sortBy(mcqs, q.Sort, func(m *models.Mcq, key string) any {
		return m.Timestamps.Created
	})

	res := []*models.Mcq{}
	for _, m := range paginate(mcqs, q.Page) {
		res = append(res, cloneMcq(m))
	}
	return res, nil
}

func (s *Store) InsertMcq(ctx context.Context, m *models.Mcq) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, existing := range s.mcqs {
		if existing.ID == m.ID {
			return store.ErrDuplicate
		}
	}
	s.mcqs = append(s.mcqs, cloneMcq(m))
	return nil
}

func (s *Store) DeleteMcq(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.deleteMcqLocked(id), nil
}

func (s *Store) deleteMcqLocked(id uuid.UUID) bool {
	var removed int
	s.mcqs, removed = remove(s.mcqs, func(m *models.Mcq) bool { return m.ID == id })
	if removed == 0 {
		return false
	}
	s.submissions, _ = remove(s.submissions, func(sub *models.Submission) bool { return sub.McqID == id })
	return true
}
