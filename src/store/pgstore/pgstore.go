/*
Package pgstore implements store.Store on PostgreSQL. The tables are created
by the migrations in src/migration. Membership changes are single
conditional UPDATE statements, so concurrent joins and approvals cannot
lose updates.
*/
package pgstore

import (
	"fmt"

	"git.flipper.school/flipper/flipper/src/db"
	"git.flipper.school/flipper/flipper/src/oops"
	"git.flipper.school/flipper/flipper/src/schema"
	"git.flipper.school/flipper/flipper/src/store"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	conn *pgxpool.Pool
}

var _ store.Store = &Store{}

func New(conn *pgxpool.Pool) *Store {
	return &Store{conn: conn}
}

func (s *Store) Close() {
	s.conn.Close()
}

// addOrder appends ORDER BY for keys, mapping each key to a column with
// columns. id breaks ties so that paging is stable.
func addOrder(qb *db.QueryBuilder, keys []schema.SortKey, columns map[string]string) {
	qb.Add("ORDER BY")
	for _, key := range keys {
		column, ok := columns[key.Field]
		if !ok {
			panic(fmt.Errorf("no column for sort key %q", key.Field))
		}
		dir := "ASC NULLS FIRST"
		if key.Desc {
			dir = "DESC NULLS LAST"
		}
		qb.Add(fmt.Sprintf("%s %s,", column, dir))
	}
	qb.Add("id ASC")
}

func addPage(qb *db.QueryBuilder, p store.Page) {
	if p.Limit > 0 {
		qb.Add("LIMIT $?", p.Limit)
	}
	if p.Offset > 0 {
		qb.Add("OFFSET $?", p.Offset)
	}
}

func insertErr(err error, what string) error {
	if db.IsUniqueViolation(err) {
		return store.ErrDuplicate
	}
	return oops.New(err, "failed to insert %s", what)
}
