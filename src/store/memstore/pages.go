package memstore

import (
	"context"

	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/store"
	"github.com/google/uuid"
)

func clonePage(p *models.Page) *models.Page {
	res := *p
	if p.Resource != nil {
		resource := *p.Resource
		res.Resource = &resource
	}
	return &res
}

func (s *Store) matchPages(q store.PageQuery) []*models.Page {
	return filter(s.pages, func(p *models.Page) bool {
		return inIDs(q.IDs, p.ID) && (q.MinilessonID == nil || p.MinilessonID == *q.MinilessonID)
	})
}

func (s *Store) CountPages(ctx context.Context, q store.PageQuery) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.matchPages(q)), nil
}

func (s *Store) FindPages(ctx context.Context, q store.PageQuery) ([]*models.Page, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	pages := s.matchPages(q)
	sortBy(pages, q.Sort, func(p *models.Page, key string) any {
		switch key {
		case "title":
			return p.Title
		case "created":
			return p.Timestamps.Created
		default:
			return p.Position
		}
	})

	res := []*models.Page{}
	for _, p := range paginate(pages, q.Page) {
		res = append(res, clonePage(p))
	}
	return res, nil
}

func (s *Store) InsertPage(ctx context.Context, p *models.Page) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	position := 0
	for _, existing := range s.pages {
		if existing.ID == p.ID {
			return store.ErrDuplicate
		}
		if existing.MinilessonID == p.MinilessonID && existing.Position > position {
			position = existing.Position
		}
	}
	p.Position = position + 1
	s.pages = append(s.pages, clonePage(p))
	return nil
}

func (s *Store) DeletePage(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.deletePageLocked(id), nil
}

func (s *Store) deletePageLocked(id uuid.UUID) bool {
	var removed int
	s.pages, removed = remove(s.pages, func(p *models.Page) bool { return p.ID == id })
	if removed == 0 {
		return false
	}

	var mcqIDs []uuid.UUID
	for _, m := range s.mcqs {
		if m.PageID == id {
			mcqIDs = append(mcqIDs, m.ID)
		}
	}
	for _, mcqID := range mcqIDs {
		s.deleteMcqLocked(mcqID)
	}
	return true
}
