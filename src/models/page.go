package models

import (
	"git.flipper.school/flipper/flipper/src/schema"
	"github.com/google/uuid"
)

type Page struct {
	ID           uuid.UUID `json:"id"`
	MinilessonID uuid.UUID `json:"minilesson_id"`
	Title        string    `json:"title"`
	Resource     *string   `json:"resource,omitempty"`

	// 1-based order within the minilesson.
	Position int `json:"position"`

	Timestamps Timestamps `json:"timestamps"`

	projected
}

var PageProjectable = []string{"timestamps"}

func (p *Page) Project(proj schema.Projection) {
	p.projection = proj
	if proj.Excludes("timestamps") {
		p.Timestamps = Timestamps{}
	}
}

func (p *Page) MarshalJSON() ([]byte, error) {
	type page Page
	return marshalProjected((*page)(p), p.projection)
}
