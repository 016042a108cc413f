package db

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"git.flipper.school/flipper/flipper/src/oops"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

/*
A general error to be used when no results are found. This is the error
returned by QueryOne, and can generally be used by other database helpers
that fetch a single result but find nothing.
*/
var NotFound = errors.New("not found")

/*
Performs a SQL query and returns a slice of all the result rows. The query is
just plain SQL, but make sure to read the package documentation for details.
You must explicitly provide the type argument: this is how it knows what Go
type to map the results to, and it cannot be inferred.

Struct types are mapped by `db` tags. Any other type is scanned from a single
column.
*/
func Query[T any](
	ctx context.Context,
	conn ConnOrTx,
	query string,
	args ...any,
) ([]*T, error) {
	rows, err := conn.Query(ctx, compileQuery[T](query), args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, rowToAddrOf[T]())
}

/*
Identical to Query, but returns only the first result row. If there are no
rows in the result set, returns NotFound.
*/
func QueryOne[T any](
	ctx context.Context,
	conn ConnOrTx,
	query string,
	args ...any,
) (*T, error) {
	rows, err := conn.Query(ctx, compileQuery[T](query), args...)
	if err != nil {
		return nil, err
	}
	result, err := pgx.CollectOneRow(rows, rowToAddrOf[T]())
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFound
	}
	return result, err
}

/*
Identical to Query, but returns concrete values instead of pointers. More
convenient for primitive types.
*/
func QueryScalar[T any](
	ctx context.Context,
	conn ConnOrTx,
	query string,
	args ...any,
) ([]T, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[T])
}

/*
Identical to QueryScalar, but returns only the first result value. If there
are no rows in the result set, returns NotFound.
*/
func QueryOneScalar[T any](
	ctx context.Context,
	conn ConnOrTx,
	query string,
	args ...any,
) (T, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		var zero T
		return zero, err
	}
	result, err := pgx.CollectOneRow(rows, pgx.RowTo[T])
	if errors.Is(err, pgx.ErrNoRows) {
		return result, NotFound
	}
	return result, err
}

// Exec runs a statement and reports how many rows it touched.
func Exec(ctx context.Context, conn ConnOrTx, query string, args ...any) (int64, error) {
	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// IsUniqueViolation reports whether err is a Postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

/*
WithTx runs f in a transaction, committing if f returns nil and rolling back
otherwise.
*/
func WithTx(ctx context.Context, conn ConnOrTx, f func(tx pgx.Tx) error) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	if err := f(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return oops.New(err, "failed to commit transaction")
	}
	return nil
}

func rowToAddrOf[T any]() pgx.RowToFunc[*T] {
	var dest T
	if reflect.TypeOf(dest).Kind() == reflect.Struct {
		return pgx.RowToAddrOfStructByName[T]
	}
	return pgx.RowToAddrOf[T]
}

var reColumnsPlaceholder = regexp.MustCompile(`\$columns({(.*?)})?`)

// compileQuery expands the $columns placeholder from the db tags of T.
func compileQuery[T any](query string) string {
	m := reColumnsPlaceholder.FindStringSubmatch(query)
	if m == nil {
		return query
	}

	var dest T
	names, err := getColumnNames(reflect.TypeOf(dest), m[2])
	if err != nil {
		panic(oops.New(err, "failed to compile query"))
	}
	return strings.Replace(query, m[0], strings.Join(names, ", "), 1)
}

func getColumnNames(t reflect.Type, prefix string) ([]string, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("$columns can only be used with struct types, not %v", t)
	}

	var names []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, ok := field.Tag.Lookup("db")
		if !ok || name == "-" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%v has no db-tagged fields", t)
	}
	return names, nil
}
