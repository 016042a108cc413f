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

type userRow struct {
	ID         uuid.UUID  `db:"id"`
	Name       string     `db:"name"`
	Username   string     `db:"username"`
	Password   string     `db:"password"`
	Created    time.Time  `db:"created"`
	LastSigned *time.Time `db:"last_signed"`
	Signed     *time.Time `db:"signed"`
	Active     *time.Time `db:"active"`
}

func (r *userRow) model() *models.User {
	return &models.User{
		ID:       r.ID,
		Name:     r.Name,
		Username: r.Username,
		Password: r.Password,
		Timestamps: models.UserTimestamps{
			Created:    r.Created,
			LastSigned: r.LastSigned,
			Signed:     r.Signed,
			Active:     r.Active,
		},
	}
}

var userSortColumns = map[string]string{
	"username": "username",
	"name":     "name",
	"created":  "created",
}

func userWhere(qb *db.QueryBuilder, q store.UserQuery) {
	qb.Add("WHERE TRUE")
	if q.IDs != nil {
		qb.Add("AND id = ANY($?)", q.IDs)
	}
	if q.Usernames != nil {
		qb.Add("AND username = ANY($?)", q.Usernames)
	}
	if q.NameMatch != nil {
		qb.Add("AND (name ~ $? OR username ~ $?)", q.NameMatch.String(), q.NameMatch.String())
	}
}

func (s *Store) CountUsers(ctx context.Context, q store.UserQuery) (int, error) {
	var qb db.QueryBuilder
	qb.Add("---- Count users\nSELECT COUNT(*) FROM flipper_user")
	userWhere(&qb, q)

	n, err := db.QueryOneScalar[int](ctx, s.conn, qb.String(), qb.Args()...)
	if err != nil {
		return 0, oops.New(err, "failed to count users")
	}
	return n, nil
}

func (s *Store) FindUsers(ctx context.Context, q store.UserQuery) ([]*models.User, error) {
	var qb db.QueryBuilder
	qb.Add("---- Find users\nSELECT $columns FROM flipper_user")
	userWhere(&qb, q)
	addOrder(&qb, q.Sort, userSortColumns)
	addPage(&qb, q.Page)

	rows, err := db.Query[userRow](ctx, s.conn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to fetch users")
	}
	res := make([]*models.User, len(rows))
	for i, row := range rows {
		res[i] = row.model()
	}
	return res, nil
}

func (s *Store) InsertUser(ctx context.Context, u *models.User) error {
	_, err := s.conn.Exec(ctx,
		`
		---- Insert user
		INSERT INTO flipper_user (id, name, username, password, created)
		VALUES ($1, $2, $3, $4, $5)
		`,
		u.ID, u.Name, u.Username, u.Password, u.Timestamps.Created,
	)
	if err != nil {
		return insertErr(err, "user")
	}
	return nil
}

func (s *Store) SetUserSigned(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	n, err := db.Exec(ctx, s.conn,
		`
		---- Sign user
		UPDATE flipper_user
		SET last_signed = signed, signed = $2, active = $2
		WHERE id = $1
		`,
		id, now,
	)
	if err != nil {
		return false, oops.New(err, "failed to sign user")
	}
	return n > 0, nil
}

func (s *Store) TouchUser(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	n, err := db.Exec(ctx, s.conn,
		`
		---- Touch user
		UPDATE flipper_user SET active = $2 WHERE id = $1
		`,
		id, now,
	)
	if err != nil {
		return false, oops.New(err, "failed to update user activity")
	}
	return n > 0, nil
}
