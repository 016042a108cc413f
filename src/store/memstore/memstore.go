/*
Package memstore keeps a whole Flipper deployment in memory. It backs the
repository tests and `flipper --store=memory`. Every method takes the one
lock, so the membership updates are atomic the same way the conditional
UPDATEs in pgstore are.
*/
package memstore

import (
	"sort"
	"strings"
	"sync"
	"time"

	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/schema"
	"git.flipper.school/flipper/flipper/src/store"
	"github.com/google/uuid"
)

type Store struct {
	mutex sync.RWMutex

	users       []*models.User
	sessions    map[string]*models.Session
	courses     []*models.Course
	minilessons []*models.Minilesson
	pages       []*models.Page
	mcqs        []*models.Mcq
	submissions []*models.Submission
}

var _ store.Store = &Store{}

func New() *Store {
	return &Store{
		sessions: make(map[string]*models.Session),
	}
}

func (s *Store) Close() {}

func paginate[T any](items []T, p store.Page) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	items = items[p.Offset:]
	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}

func filter[T any](items []*T, keep func(*T) bool) []*T {
	res := make([]*T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			res = append(res, item)
		}
	}
	return res
}

func remove[T any](items []*T, drop func(*T) bool) ([]*T, int) {
	kept := items[:0]
	removed := 0
	for _, item := range items {
		if drop(item) {
			removed++
		} else {
			kept = append(kept, item)
		}
	}
	for i := len(kept); i < len(items); i++ {
		items[i] = nil
	}
	return kept, removed
}

// sortBy orders items by keys. field returns a string, int, time.Time or
// *time.Time for a sort key; nil times sort first.
func sortBy[T any](items []*T, keys []schema.SortKey, field func(item *T, key string) any) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		for _, key := range keys {
			c := compare(field(items[i], key.Field), field(items[j], key.Field))
			if c == 0 {
				continue
			}
			if key.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compare(a, b any) int {
	switch a := a.(type) {
	case string:
		return strings.Compare(a, b.(string))
	case int:
		b := b.(int)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	case time.Time:
		return a.Compare(b.(time.Time))
	case *time.Time:
		b := b.(*time.Time)
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		case b == nil:
			return 1
		}
		return a.Compare(*b)
	}
	return 0
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	res := make([]uuid.UUID, 0, len(ids))
	for _, candidate := range ids {
		if candidate != id {
			res = append(res, candidate)
		}
	}
	return res
}

func inIDs(ids []uuid.UUID, id uuid.UUID) bool {
	return ids == nil || containsID(ids, id)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	res := *t
	return &res
}

func cloneIDs(ids []uuid.UUID) []uuid.UUID {
	return append([]uuid.UUID{}, ids...)
}
