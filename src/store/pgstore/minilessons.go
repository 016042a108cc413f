package pgstore

import (
	"context"
	"time"

	"git.flipper.school/flipper/flipper/src/db"
	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/oops"
	"git.flipper.school/flipper/flipper/src/store"
	"github.com/google/uuid"
)

type minilessonRow struct {
	ID        uuid.UUID  `db:"id"`
	CourseID  uuid.UUID  `db:"course_id"`
	Title     string     `db:"title"`
	Published bool       `db:"published"`
	Created   time.Time  `db:"created"`
	DueDate   *time.Time `db:"due_date"`
}

func (r *minilessonRow) model() *models.Minilesson {
	return &models.Minilesson{
		ID:       r.ID,
		CourseID: r.CourseID,
		Title:    r.Title,
		States:   models.MinilessonStates{Published: r.Published},
		Timestamps: models.MinilessonTimestamps{
			Created: r.Created,
			DueDate: r.DueDate,
		},
	}
}

var minilessonSortColumns = map[string]string{
	"created":  "created",
	"due_date": "due_date",
	"title":    "title",
}

func minilessonWhere(qb *db.QueryBuilder, q store.MinilessonQuery) {
	qb.Add("WHERE TRUE")
	if q.IDs != nil {
		qb.Add("AND id = ANY($?)", q.IDs)
	}
	if q.CourseID != nil {
		qb.Add("AND course_id = $?", *q.CourseID)
	}
	if q.PublishedOnly {
		qb.Add("AND published")
	}
}

func (s *Store) CountMinilessons(ctx context.Context, q store.MinilessonQuery) (int, error) {
	var qb db.QueryBuilder
	qb.Add("---- Count minilessons\nSELECT COUNT(*) FROM minilesson")
	minilessonWhere(&qb, q)

	n, err := db.QueryOneScalar[int](ctx, s.conn, qb.String(), qb.Args()...)
	if err != nil {
		return 0, oops.New(err, "failed to count minilessons")
	}
	return n, nil
}

func (s *Store) FindMinilessons(ctx context.Context, q store.MinilessonQuery) ([]*models.Minilesson, error) {
	var qb db.QueryBuilder
	qb.Add("---- Find minilessons\nSELECT $columns FROM minilesson")
	minilessonWhere(&qb, q)
	addOrder(&qb, q.Sort, minilessonSortColumns)
	addPage(&qb, q.Page)

	rows, err := db.Query[minilessonRow](ctx, s.conn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to fetch minilessons")
	}
	res := make([]*models.Minilesson, len(rows))
	for i, row := range rows {
		res[i] = row.model()
	}
	return res, nil
}

func (s *Store) InsertMinilesson(ctx context.Context, m *models.Minilesson) error {
	_, err := s.conn.Exec(ctx,
		`
		---- Insert minilesson
		INSERT INTO minilesson (id, course_id, title, published, created, due_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		`,
		m.ID, m.CourseID, m.Title, m.States.Published, m.Timestamps.Created, m.Timestamps.DueDate,
	)
	if err != nil {
		return insertErr(err, "minilesson")
	}
	return nil
}

func (s *Store) SetMinilessonPublished(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := db.Exec(ctx, s.conn, "---- Publish minilesson\nUPDATE minilesson SET published = TRUE WHERE id = $1", id)
	if err != nil {
		return false, oops.New(err, "failed to publish minilesson")
	}
	return n > 0, nil
}

func (s *Store) UpdateMinilesson(ctx context.Context, id uuid.UUID, title string, dueDate *time.Time) (bool, error) {
	n, err := db.Exec(ctx, s.conn,
		`
		---- Update minilesson
		UPDATE minilesson SET title = $2, due_date = $3 WHERE id = $1
		`,
		id, title, dueDate,
	)
	if err != nil {
		return false, oops.New(err, "failed to update minilesson")
	}
	return n > 0, nil
}

// Pages, mcqs and submissions go with it through ON DELETE CASCADE.
func (s *Store) DeleteMinilesson(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := db.Exec(ctx, s.conn, "---- Delete minilesson\nDELETE FROM minilesson WHERE id = $1", id)
	if err != nil {
		return false, oops.New(err, "failed to delete minilesson")
	}
	return n > 0, nil
}
