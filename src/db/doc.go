/*
This package contains lowish-level APIs for making queries to the Flipper
Postgres database. It maps query results to Go types while still letting you
write arbitrary SQL.

Arguments use placeholders like $1, $2, which are passed straight to pgx. If
you want to use a slice in your query, use Postgres arrays instead of IN:

	ids, err := db.QueryScalar[uuid.UUID](ctx, conn,
		`
		SELECT id
		FROM course
		WHERE name = ANY($1)
		`,
		[]string{"Biology", "Chemistry"},
	)

To query multiple columns at once, use a struct type with `db:"column_name"`
tags and the special $columns placeholder:

	type courseRow struct {
		ID   uuid.UUID `db:"id"`
		Name string    `db:"name"`
	}
	courses, err := db.Query[courseRow](ctx, conn, `SELECT $columns FROM course`)
	// Resulting query:
	// SELECT id, name FROM course

A table prefix can be given as $columns{prefix}, which expands to
prefix.id, prefix.name.

Queries may carry a name in a comment line starting with "---- ". The name
labels the query's duration in the flipper_db_query_duration_seconds metric.

When a query is assembled from optional parts, use QueryBuilder, whose $?
placeholders are numbered as chunks are added.
*/
package db
