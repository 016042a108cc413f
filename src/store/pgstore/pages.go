package pgstore

import (
	"context"
	"errors"
	"time"

	"git.flipper.school/flipper/flipper/src/db"
	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/oops"
	"git.flipper.school/flipper/flipper/src/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type pageRow struct {
	ID           uuid.UUID `db:"id"`
	MinilessonID uuid.UUID `db:"minilesson_id"`
	Title        string    `db:"title"`
	Resource     *string   `db:"resource"`
	Position     int       `db:"position"`
	Created      time.Time `db:"created"`
}

var pageSortColumns = map[string]string{
	"position": "position",
	"created":  "created",
	"title":    "title",
}

func pageWhere(qb *db.QueryBuilder, q store.PageQuery) {
	qb.Add("WHERE TRUE")
	if q.IDs != nil {
		qb.Add("AND id = ANY($?)", q.IDs)
	}
	if q.MinilessonID != nil {
		qb.Add("AND minilesson_id = $?", *q.MinilessonID)
	}
}

func (s *Store) CountPages(ctx context.Context, q store.PageQuery) (int, error) {
	var qb db.QueryBuilder
	qb.Add("---- Count pages\nSELECT COUNT(*) FROM page")
	pageWhere(&qb, q)

	n, err := db.QueryOneScalar[int](ctx, s.conn, qb.String(), qb.Args()...)
	if err != nil {
		return 0, oops.New(err, "failed to count pages")
	}
	return n, nil
}

func (s *Store) FindPages(ctx context.Context, q store.PageQuery) ([]*models.Page, error) {
	var qb db.QueryBuilder
	qb.Add("---- Find pages\nSELECT $columns FROM page")
	pageWhere(&qb, q)
	addOrder(&qb, q.Sort, pageSortColumns)
	addPage(&qb, q.Page)

	rows, err := db.Query[pageRow](ctx, s.conn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to fetch pages")
	}
	res := make([]*models.Page, len(rows))
	for i, row := range rows {
		res[i] = &models.Page{
			ID:           row.ID,
			MinilessonID: row.MinilessonID,
			Title:        row.Title,
			Resource:     row.Resource,
			Position:     row.Position,
			Timestamps:   models.Timestamps{Created: row.Created},
		}
	}
	return res, nil
}

/*
InsertPage locks the owning minilesson row so that concurrent inserts into
the same minilesson get distinct positions.
*/
func (s *Store) InsertPage(ctx context.Context, p *models.Page) error {
	return db.WithTx(ctx, s.conn, func(tx pgx.Tx) error {
		_, err := db.QueryOneScalar[uuid.UUID](ctx, tx,
			"---- Lock minilesson\nSELECT id FROM minilesson WHERE id = $1 FOR UPDATE",
			p.MinilessonID,
		)
		if errors.Is(err, db.NotFound) {
			return store.ErrNotFound
		} else if err != nil {
			return oops.New(err, "failed to lock minilesson")
		}

		position, err := db.QueryOneScalar[int](ctx, tx,
			"---- Next page position\nSELECT COALESCE(MAX(position), 0) + 1 FROM page WHERE minilesson_id = $1",
			p.MinilessonID,
		)
		if err != nil {
			return oops.New(err, "failed to compute page position")
		}

		_, err = tx.Exec(ctx,
			`
			---- Insert page
			INSERT INTO page (id, minilesson_id, title, resource, position, created)
			VALUES ($1, $2, $3, $4, $5, $6)
			`,
			p.ID, p.MinilessonID, p.Title, p.Resource, position, p.Timestamps.Created,
		)
		if err != nil {
			return insertErr(err, "page")
		}
		p.Position = position
		return nil
	})
}

func (s *Store) DeletePage(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := db.Exec(ctx, s.conn, "---- Delete page\nDELETE FROM page WHERE id = $1", id)
	if err != nil {
		return false, oops.New(err, "failed to delete page")
	}
	return n > 0, nil
}
