package memstore

import (
	"context"
	"time"

	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/store"
	"github.com/google/uuid"
)

func cloneMinilesson(m *models.Minilesson) *models.Minilesson {
	res := *m
	res.Timestamps.DueDate = cloneTime(m.Timestamps.DueDate)
	return &res
}

func (s *Store) matchMinilessons(q store.MinilessonQuery) []*models.Minilesson {
	return filter(s.minilessons, func(m *models.Minilesson) bool {
		switch {
		case !inIDs(q.IDs, m.ID):
			return false
		case q.CourseID != nil && m.CourseID != *q.CourseID:
			return false
		case q.PublishedOnly && !m.States.Published:
			return false
		}
		return true
	})
}

func (s *Store) CountMinilessons(ctx context.Context, q store.MinilessonQuery) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.matchMinilessons(q)), nil
}

func (s *Store) FindMinilessons(ctx context.Context, q store.MinilessonQuery) ([]*models.Minilesson, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	minilessons := s.matchMinilessons(q)
	sortBy(minilessons, q.Sort, func(m *models.Minilesson, key string) any {
		switch key {
		case "title":
			return m.Title
		case "due_date":
			return m.Timestamps.DueDate
		default:
			return m.Timestamps.Created
		}
	})

	res := []*models.Minilesson{}
	for _, m := range paginate(minilessons, q.Page) {
		res = append(res, cloneMinilesson(m))
	}
	return res, nil
}

func (s *Store) InsertMinilesson(ctx context.Context, m *models.Minilesson) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, existing := range s.minilessons {
		if existing.ID == m.ID {
			return store.ErrDuplicate
		}
	}
	s.minilessons = append(s.minilessons, cloneMinilesson(m))
	return nil
}

func (s *Store) updateMinilesson(id uuid.UUID, update func(m *models.Minilesson)) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, m := range s.minilessons {
		if m.ID == id {
			update(m)
			return true
		}
	}
	return false
}

func (s *Store) SetMinilessonPublished(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.updateMinilesson(id, func(m *models.Minilesson) {
		m.States.Published = true
	}), nil
}

func (s *Store) UpdateMinilesson(ctx context.Context, id uuid.UUID, title string, dueDate *time.Time) (bool, error) {
	return s.updateMinilesson(id, func(m *models.Minilesson) {
		m.Title = title
		m.Timestamps.DueDate = cloneTime(dueDate)
	}), nil
}

func (s *Store) DeleteMinilesson(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var removed int
	s.minilessons, removed = remove(s.minilessons, func(m *models.Minilesson) bool { return m.ID == id })
	if removed == 0 {
		return false, nil
	}

	var pageIDs []uuid.UUID
	for _, p := range s.pages {
		if p.MinilessonID == id {
			pageIDs = append(pageIDs, p.ID)
		}
	}
	for _, pageID := range pageIDs {
		s.deletePageLocked(pageID)
	}
	return true, nil
}
