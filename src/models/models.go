/*
Package models holds the entities of a Flipper deployment. They are plain
structs: the store fills them in, the repositories in flipdata decide who
may see them, and their JSON form is what API callers receive.
*/
package models

import (
	"encoding/json"
	"time"

	"git.flipper.school/flipper/flipper/src/schema"
)

type Timestamps struct {
	Created time.Time `json:"created"`
}

// projected remembers which top-level keys a caller asked to leave out.
type projected struct {
	projection schema.Projection
}

func (p *projected) Excludes(key string) bool {
	return p.projection.Excludes(key)
}

// marshalProjected encodes v, then drops the excluded keys. The alias types
// passed in here have no MarshalJSON of their own.
func marshalProjected(v any, p schema.Projection) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil || len(p) == 0 {
		return b, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	for key := range p {
		delete(fields, key)
	}
	return json.Marshal(fields)
}
