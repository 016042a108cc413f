package schema

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Result holds validated fields under their output names. The accessors
// return zero values for absent fields or fields of another type.
type Result map[string]any

func (r Result) Has(key string) bool {
	_, ok := r[key]
	return ok
}

func (r Result) String(key string) string {
	s, _ := r[key].(string)
	return s
}

func (r Result) OptString(key string) *string {
	if s, ok := r[key].(string); ok {
		return &s
	}
	return nil
}

func (r Result) ID(key string) uuid.UUID {
	id, _ := r[key].(uuid.UUID)
	return id
}

func (r Result) OptID(key string) *uuid.UUID {
	if id, ok := r[key].(uuid.UUID); ok {
		return &id
	}
	return nil
}

func (r Result) Time(key string) time.Time {
	t, _ := r[key].(time.Time)
	return t
}

func (r Result) OptTime(key string) *time.Time {
	if t, ok := r[key].(time.Time); ok {
		return &t
	}
	return nil
}

func (r Result) Regexp(key string) *regexp.Regexp {
	re, _ := r[key].(*regexp.Regexp)
	return re
}

func (r Result) Int(key string) int {
	n, _ := r[key].(int)
	return n
}

func (r Result) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

func (r Result) Strings(key string) []string {
	s, _ := r[key].([]string)
	return s
}

// Sort returns the parsed sort order, or defaults if none was given.
func (r Result) Sort(key string, defaults ...SortKey) []SortKey {
	if keys, ok := r[key].([]SortKey); ok && len(keys) > 0 {
		return keys
	}
	return defaults
}

func (r Result) Projection(key string) Projection {
	p, _ := r[key].(Projection)
	return p
}

func (r Result) Nested(key string) Result {
	n, _ := r[key].(Result)
	return n
}

type SortKey struct {
	Field string
	Desc  bool
}

func Asc(field string) SortKey  { return SortKey{Field: field} }
func Desc(field string) SortKey { return SortKey{Field: field, Desc: true} }

// Projection names the top-level result keys to leave out. A nil Projection
// excludes nothing.
type Projection map[string]bool

func (p Projection) Excludes(key string) bool {
	_, ok := p[key]
	return ok
}
