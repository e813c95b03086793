package sqlxrepos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
)

func TestApplyListQuery(t *testing.T) {
	tests := []struct {
		name     string
		q        core.ListQuery
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:    "empty",
			wantSQL: "SELECT id FROM users",
		},
		{
			name: "operators",
			q: core.ListQuery{Where: []core.Condition{
				core.Eq("group_id", nil),
				{Field: "name", Op: core.OpContains, Value: "50%_off"},
				{Field: "roles", Op: core.OpHas, Value: "student"},
				{Field: "id", Op: core.OpIn, Value: []interface{}{float64(1), float64(2)}},
				{Field: "created_at", Op: core.OpGte, Value: "2021-01-01T00:00:00Z"},
				{Field: "banned", Op: core.OpNot, Value: true},
			}},
			wantSQL: "SELECT id FROM users WHERE group_id IS NULL AND name ILIKE $1 AND $2 = ANY(roles) " +
				"AND id IN ($3,$4) AND created_at >= $5 AND banned <> $6",
			wantArgs: []interface{}{`%50\%\_off%`, "student", float64(1), float64(2), "2021-01-01T00:00:00Z", true},
		},
		{
			name: "ordering & pagination",
			q: core.ListQuery{
				OrderBy: []core.DBOrdering{{Field: "name", Ascending: true}, {Field: "id"}},
				Skip:    20,
				Take:    10,
			},
			wantSQL: "SELECT id FROM users ORDER BY name ASC, id DESC LIMIT 10 OFFSET 20",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := applyListQuery(psql.Select("id").From("users"), "", tt.q)
			require.NoError(t, err)
			query, args, err := stmt.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestApplyListQuery_alias(t *testing.T) {
	q := core.ListQuery{
		Where:   []core.Condition{{Field: "score", Op: core.OpLt, Value: 50}},
		OrderBy: []core.DBOrdering{{Field: "score", Ascending: true}},
	}
	stmt, err := applyListQuery(psql.Select("g.id").From("task_grades g"), "g", q)
	require.NoError(t, err)
	query, args, err := stmt.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT g.id FROM task_grades g WHERE g.score < $1 ORDER BY g.score ASC", query)
	assert.Equal(t, []interface{}{50}, args)
}

func TestApplyListQuery_unknownOperator(t *testing.T) {
	_, err := applyListQuery(psql.Select("id").From("users"), "", core.ListQuery{
		Where: []core.Condition{{Field: "id", Op: "like", Value: "x"}},
	})
	assert.Error(t, err)
}
