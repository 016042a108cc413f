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

type submissionRow struct {
	ID      uuid.UUID `db:"id"`
	UserID  uuid.UUID `db:"user_id"`
	McqID   uuid.UUID `db:"mcq_id"`
	Answer  string    `db:"answer"`
	Score   int       `db:"score"`
	Created time.Time `db:"created"`
}

var submissionSortColumns = map[string]string{
	"created": "created",
	"score":   "score",
}

func submissionWhere(qb *db.QueryBuilder, q store.SubmissionQuery) {
	qb.Add("WHERE TRUE")
	if q.IDs != nil {
		qb.Add("AND id = ANY($?)", q.IDs)
	}
	if q.McqIDs != nil {
		qb.Add("AND mcq_id = ANY($?)", q.McqIDs)
	}
	if q.UserID != nil {
		qb.Add("AND user_id = $?", *q.UserID)
	}
}

func (s *Store) CountSubmissions(ctx context.Context, q store.SubmissionQuery) (int, error) {
	var qb db.QueryBuilder
	qb.Add("---- Count submissions\nSELECT COUNT(*) FROM submission")
	submissionWhere(&qb, q)

	n, err := db.QueryOneScalar[int](ctx, s.conn, qb.String(), qb.Args()...)
	if err != nil {
		return 0, oops.New(err, "failed to count submissions")
	}
	return n, nil
}

func (s *Store) FindSubmissions(ctx context.Context, q store.SubmissionQuery) ([]*models.Submission, error) {
	var qb db.QueryBuilder
	qb.Add("---- Find submissions\nSELECT $columns FROM submission")
	submissionWhere(&qb, q)
	addOrder(&qb, q.Sort, submissionSortColumns)
	addPage(&qb, q.Page)

	rows, err := db.Query[submissionRow](ctx, s.conn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to fetch submissions")
	}
	res := make([]*models.Submission, len(rows))
	for i, row := range rows {
		res[i] = &models.Submission{
			ID:         row.ID,
			UserID:     row.UserID,
			McqID:      row.McqID,
			Answer:     row.Answer,
			Score:      row.Score,
			Timestamps: models.Timestamps{Created: row.Created},
		}
	}
	return res, nil
}

// The unique (user_id, mcq_id) index turns a second answer into ErrDuplicate.
func (s *Store) InsertSubmission(ctx context.Context, sub *models.Submission) error {
	_, err := s.conn.Exec(ctx,
		`
		---- Insert submission
		INSERT INTO submission (id, user_id, mcq_id, answer, score, created)
		VALUES ($1, $2, $3, $4, $5, $6)
		`,
		sub.ID, sub.UserID, sub.McqID, sub.Answer, sub.Score, sub.Timestamps.Created,
	)
	if err != nil {
		return insertErr(err, "submission")
	}
	return nil
}
