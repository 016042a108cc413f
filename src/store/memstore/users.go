package memstore

import (
	"context"
	"time"

	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/store"
	"github.com/google/uuid"
)

func cloneUser(u *models.User) *models.User {
	res := *u
	res.Timestamps.LastSigned = cloneTime(u.Timestamps.LastSigned)
	res.Timestamps.Signed = cloneTime(u.Timestamps.Signed)
	res.Timestamps.Active = cloneTime(u.Timestamps.Active)
	return &res
}

func (s *Store) matchUsers(q store.UserQuery) []*models.User {
	return filter(s.users, func(u *models.User) bool {
		if !inIDs(q.IDs, u.ID) {
			return false
		}
		if q.Usernames != nil {
			found := false
			for _, username := range q.Usernames {
				found = found || username == u.Username
			}
			if !found {
				return false
			}
		}
		if q.NameMatch != nil && !q.NameMatch.MatchString(u.Name) && !q.NameMatch.MatchString(u.Username) {
			return false
		}
		return true
	})
}

func (s *Store) CountUsers(ctx context.Context, q store.UserQuery) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.matchUsers(q)), nil
}

func (s *Store) FindUsers(ctx context.Context, q store.UserQuery) ([]*models.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	users := s.matchUsers(q)
	sortBy(users, q.Sort, func(u *models.User, key string) any {
		switch key {
		case "name":
			return u.Name
		case "created":
			return u.Timestamps.Created
		default:
			return u.Username
		}
	})

	res := []*models.User{}
	for _, u := range paginate(users, q.Page) {
		res = append(res, cloneUser(u))
	}
	return res, nil
}

func (s *Store) InsertUser(ctx context.Context, u *models.User) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, existing := range s.users {
		if existing.ID == u.ID || existing.Username == u.Username {
			return store.ErrDuplicate
		}
	}
	s.users = append(s.users, cloneUser(u))
	return nil
}

func (s *Store) updateUser(id uuid.UUID, update func(u *models.User)) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, u := range s.users {
		if u.ID == id {
			update(u)
			return true
		}
	}
	return false
}

func (s *Store) SetUserSigned(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	return s.updateUser(id, func(u *models.User) {
		u.Timestamps.LastSigned = u.Timestamps.Signed
		u.Timestamps.Signed = cloneTime(&now)
		u.Timestamps.Active = cloneTime(&now)
	}), nil
}

func (s *Store) TouchUser(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	return s.updateUser(id, func(u *models.User) {
		u.Timestamps.Active = cloneTime(&now)
	}), nil
}
