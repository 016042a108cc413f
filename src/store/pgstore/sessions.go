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
)

type sessionRow struct {
	ID      string     `db:"id"`
	UserID  uuid.UUID  `db:"user_id"`
	Token   string     `db:"token"`
	Created time.Time  `db:"created"`
	Expires *time.Time `db:"expires"`
}

func (s *Store) FindSession(ctx context.Context, id string) (*models.Session, error) {
	row, err := db.QueryOne[sessionRow](ctx, s.conn,
		`
		---- Find session
		SELECT $columns FROM session WHERE id = $1
		`,
		id,
	)
	if errors.Is(err, db.NotFound) {
		return nil, store.ErrNotFound
	} else if err != nil {
		return nil, oops.New(err, "failed to fetch session")
	}
	return &models.Session{
		ID:      row.ID,
		Value:   row.UserID,
		Token:   row.Token,
		Created: row.Created,
		Expires: row.Expires,
	}, nil
}

func (s *Store) InsertSession(ctx context.Context, sess *models.Session) error {
	_, err := s.conn.Exec(ctx,
		`
		---- Insert session
		INSERT INTO session (id, user_id, token, created, expires)
		VALUES ($1, $2, $3, $4, $5)
		`,
		sess.ID, sess.Value, sess.Token, sess.Created, sess.Expires,
	)
	if err != nil {
		return insertErr(err, "session")
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) (bool, error) {
	n, err := db.Exec(ctx, s.conn, "---- Delete session\nDELETE FROM session WHERE id = $1", id)
	if err != nil {
		return false, oops.New(err, "failed to delete session")
	}
	return n > 0, nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	n, err := db.Exec(ctx, s.conn,
		"---- Delete expired sessions\nDELETE FROM session WHERE expires <= $1",
		now,
	)
	if err != nil {
		return 0, oops.New(err, "failed to delete expired sessions")
	}
	return n, nil
}
