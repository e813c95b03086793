// Package sqlxrepos implements the repositories on PostgreSQL with sqlx and squirrel.
package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// column qualifies a (validated) query field with the table alias.
func column(alias, field string) string {
	if alias == "" {
		return field
	}
	return alias + "." + field
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func condition(alias string, c core.Condition) (sq.Sqlizer, error) {
	col := column(alias, c.Field)
	switch c.Op {
	case core.OpEquals:
		return sq.Eq{col: c.Value}, nil
	case core.OpNot:
		return sq.NotEq{col: c.Value}, nil
	case core.OpIn:
		return sq.Eq{col: c.Value}, nil
	case core.OpContains:
		return sq.ILike{col: "%" + likeEscaper.Replace(fmt.Sprint(c.Value)) + "%"}, nil
	case core.OpGt:
		return sq.Gt{col: c.Value}, nil
	case core.OpGte:
		return sq.GtOrEq{col: c.Value}, nil
	case core.OpLt:
		return sq.Lt{col: c.Value}, nil
	case core.OpLte:
		return sq.LtOrEq{col: c.Value}, nil
	case core.OpHas:
		return sq.Expr("? = ANY("+col+")", c.Value), nil
	}
	return nil, errors.Errorf("unsupported operator %q", c.Op)
}

// applyListQuery adds the filters, ordering and pagination of `q` to the select statement.
func applyListQuery(b sq.SelectBuilder, alias string, q core.ListQuery) (sq.SelectBuilder, error) {
	for _, c := range q.Where {
		cond, err := condition(alias, c)
		if err != nil {
			return b, err
		}
		b = b.Where(cond)
	}
	for _, ord := range q.OrderBy {
		b = b.OrderBy(core.DBOrdering{Field: column(alias, ord.Field), Ascending: ord.Ascending}.String())
	}
	if q.Skip > 0 {
		b = b.Offset(uint64(q.Skip))
	}
	if q.Take > 0 {
		b = b.Limit(uint64(q.Take))
	}
	return b, nil
}

func get(ctx context.Context, db sqlx.QueryerContext, dest interface{}, stmt sq.Sqlizer) error {
	query, args, err := stmt.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, db, dest, query, args...)
}

func selectAll(ctx context.Context, db sqlx.QueryerContext, dest interface{}, stmt sq.Sqlizer) error {
	query, args, err := stmt.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, db, dest, query, args...)
}

func exec(ctx context.Context, db sqlx.ExecerContext, stmt sq.Sqlizer) (int64, error) {
	query, args, err := stmt.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// deleteByID deletes a single row, returning `notFound` if there is none.
func deleteByID(ctx context.Context, db sqlx.ExecerContext, table string, id int64, notFound error) error {
	n, err := exec(ctx, db, psql.Delete(table).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrapf(err, "deleting from %s", table)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// notFoundOr maps sql.ErrNoRows to `notFound` and wraps any other error.
func notFoundOr(err error, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}
