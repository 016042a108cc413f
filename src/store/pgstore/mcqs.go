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

type mcqRow struct {
	ID       uuid.UUID `db:"id"`
	PageID   uuid.UUID `db:"page_id"`
	Question string    `db:"question"`
	Answers  []string  `db:"answers"`
	Answer   string    `db:"answer"`
	Created  time.Time `db:"created"`
}

var mcqSortColumns = map[string]string{
	"created": "created",
}

func mcqWhere(qb *db.QueryBuilder, q store.McqQuery) {
	qb.Add("WHERE TRUE")
	if q.IDs != nil {
		qb.Add("AND id = ANY($?)", q.IDs)
	}
	if q.PageID != nil {
		qb.Add("AND page_id = $?", *q.PageID)
	}
}

func (s *Store) CountMcqs(ctx context.Context, q store.McqQuery) (int, error) {
	var qb db.QueryBuilder
	qb.Add("---- Count mcqs\nSELECT COUNT(*) FROM mcq")
	mcqWhere(&qb, q)

	n, err := db.QueryOneScalar[int](ctx, s.conn, qb.String(), qb.Args()...)
	if err != nil {
		return 0, oops.New(err, "failed to count mcqs")
	}
	return n, nil
}

func (s *Store) FindMcqs(ctx context.Context, q store.McqQuery) ([]*models.Mcq, error) {
	var qb db.QueryBuilder
	qb.Add("---- Find mcqs\nSELECT $columns FROM mcq")
	mcqWhere(&qb, q)
	addOrder(&qb, q.Sort, mcqSortColumns)
	addPage(&qb, q.Page)

	rows, err := db.Query[mcqRow](ctx, s.conn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to fetch mcqs")
	}
	res := make([]*models.Mcq, len(rows))
	for i, row := range rows {
		res[i] = &models.Mcq{
			ID:         row.ID,
			PageID:     row.PageID,
			Question:   row.Question,
			Answers:    row.Answers,
			Answer:     row.Answer,
			Timestamps: models.Timestamps{Created: row.Created},
		}
	}
	return res, nil
}

func (s *Store) InsertMcq(ctx context.Context, m *models.Mcq) error {
	_, err := s.conn.Exec(ctx,
		`
		---- Insert mcq
		INSERT INTO mcq (id, page_id, question, answers, answer, created)
		VALUES ($1, $2, $3, $4, $5, $6)
		`,
		m.ID, m.PageID, m.Question, m.Answers, m.Answer, m.Timestamps.Created,
	)
	if err != nil {
		return insertErr(err, "mcq")
	}
	return nil
}

func (s *Store) DeleteMcq(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := db.Exec(ctx, s.conn, "---- Delete mcq\nDELETE FROM mcq WHERE id = $1", id)
	if err != nil {
		return false, oops.New(err, "failed to delete mcq")
	}
	return n > 0, nil
}
