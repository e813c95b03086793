package inmemdb

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

// record is the JSON view of a row, keyed by the field names used in list queries.
type record map[string]interface{}

func toRecord(v interface{}) (record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// normalize converts a condition value to its JSON representation.
func normalize(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var norm interface{}
	return norm, json.Unmarshal(data, &norm)
}

// applyQuery filters, sorts and paginates `rows` (expected sorted by id) the way the SQL repositories do.
func applyQuery[T any](rows []T, q core.ListQuery) ([]T, error) {
	conds := make([]core.Condition, len(q.Where))
	for i, c := range q.Where {
		val, err := normalize(c.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "normalizing %s condition", c.Field)
		}
		conds[i] = core.Condition{Field: c.Field, Op: c.Op, Value: val}
	}

	type entry struct {
		row T
		rec record
	}
	entries := make([]entry, 0, len(rows))
	for _, row := range rows {
		rec, err := toRecord(row)
		if err != nil {
			return nil, errors.Wrap(err, "encoding row")
		}
		if matchAll(rec, conds) {
			entries = append(entries, entry{row: row, rec: rec})
		}
	}

	if len(q.OrderBy) > 0 {
		sort.SliceStable(entries, func(i, j int) bool {
			for _, ord := range q.OrderBy {
				c := compareOrder(entries[i].rec[ord.Field], entries[j].rec[ord.Field])
				if c == 0 {
					continue
				}
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
			return false
		})
	}

	if q.Skip >= len(entries) {
		entries = nil
	} else {
		entries = entries[q.Skip:]
	}
	if q.Take > 0 && q.Take < len(entries) {
		entries = entries[:q.Take]
	}

	res := make([]T, 0, len(entries))
	for _, e := range entries {
		res = append(res, e.row)
	}
	return res, nil
}

func matchAll(rec record, conds []core.Condition) bool {
	for _, c := range conds {
		if !match(rec[c.Field], c.Op, c.Value) {
			return false
		}
	}
	return true
}

func match(val interface{}, op string, arg interface{}) bool {
	switch op {
	case core.OpEquals:
		return equal(val, arg)
	case core.OpNot:
		return !equal(val, arg)
	case core.OpIn:
		list, _ := arg.([]interface{})
		for _, item := range list {
			if equal(val, item) {
				return true
			}
		}
		return false
	case core.OpContains:
		s, ok := val.(string)
		sub, _ := arg.(string)
		return ok && strings.Contains(strings.ToLower(s), strings.ToLower(sub))
	case core.OpGt, core.OpGte, core.OpLt, core.OpLte:
		c, ok := compare(val, arg)
		if !ok {
			return false
		}
		switch op {
		case core.OpGt:
			return c > 0
		case core.OpGte:
			return c >= 0
		case core.OpLt:
			return c < 0
		default:
			return c <= 0
		}
	case core.OpHas:
		list, _ := val.([]interface{})
		for _, item := range list {
			if equal(item, arg) {
				return true
			}
		}
		return false
	}
	return false
}

func equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

// compare orders two JSON values of the same kind; timestamps are compared as times.
func compare(a, b interface{}) (int, bool) {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		if tx, err := time.Parse(time.RFC3339Nano, x); err == nil {
			if ty, err := time.Parse(time.RFC3339Nano, y); err == nil {
				return tx.Compare(ty), true
			}
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

// compareOrder sorts NULLs after any value, as PostgreSQL does in ascending order.
func compareOrder(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	c, _ := compare(a, b)
	return c
}
