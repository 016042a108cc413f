package memstore

import (
	"context"
	"time"

	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/store"
)

func (s *Store) FindSession(ctx context.Context, id string) (*models.Session, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	res := *sess
	res.Expires = cloneTime(sess.Expires)
	return &res, nil
}

func (s *Store) InsertSession(ctx context.Context, sess *models.Session) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.sessions[sess.ID]; exists {
		return store.ErrDuplicate
	}
	res := *sess
	res.Expires = cloneTime(sess.Expires)
	s.sessions[sess.ID] = &res
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok, nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var n int64
	for id, sess := range s.sessions {
		if sess.IsExpired(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}
