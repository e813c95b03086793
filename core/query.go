package core

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Query operators
const (
	OpEquals   = "equals"
	OpNot      = "not"
	OpIn       = "in"
	OpContains = "contains" // case-insensitive substring
	OpGt       = "gt"
	OpGte      = "gte"
	OpLt       = "lt"
	OpLte      = "lte"
	OpHas      = "has" // array field contains value
)

// MaxTake caps the page size of list queries.
const MaxTake = 100

var operators = map[string]bool{
	OpEquals: true, OpNot: true, OpIn: true, OpContains: true,
	OpGt: true, OpGte: true, OpLt: true, OpLte: true, OpHas: true,
}

// FieldKind is the column type of a queryable field. It decides which operators and values a condition may use.
type FieldKind int

const (
	TextField FieldKind = iota
	IDField
	NumberField
	BoolField
	TimeField
	TextArrayField
)

var kindOperators = map[FieldKind]map[string]bool{
	TextField:      {OpEquals: true, OpNot: true, OpIn: true, OpContains: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true},
	IDField:        {OpEquals: true, OpNot: true, OpIn: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true},
	NumberField:    {OpEquals: true, OpNot: true, OpIn: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true},
	BoolField:      {OpEquals: true, OpNot: true, OpIn: true},
	TimeField:      {OpEquals: true, OpNot: true, OpIn: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true},
	TextArrayField: {OpHas: true},
}

// QueryFields maps the fields that may be used in list queries to their kind.
type QueryFields map[string]FieldKind

// Condition is a single filter on a field.
type Condition struct {
	Field string
	Op    string
	Value interface{}
}

func Eq(field string, val interface{}) Condition {
	return Condition{Field: field, Op: OpEquals, Value: val}
}

// ListQuery is the declarative filter/sort/pagination of list operations.
// Conditions are AND'ed.
type ListQuery struct {
	Where   []Condition
	OrderBy []DBOrdering
	Skip    int
	Take    int // 0: no limit
}

// ParseListQuery decodes the query string encoded JSON `where` and `orderBy` params and the `skip` & `take` params.
//  where:   {"name": "A1", "created_at": {"gte": "2021-01-01T00:00:00Z"}, "roles": {"has": "student"}}
//  orderBy: {"name": "asc"} | [{"name": "asc"}, {"id": "desc"}]
func ParseListQuery(where, orderBy, skip, take string) (ListQuery, error) {
	var q ListQuery
	var err error

	if q.Where, err = parseWhere(where); err != nil {
		return q, err
	}
	if q.OrderBy, err = parseOrderBy(orderBy); err != nil {
		return q, err
	}
	if q.Skip, err = parseUint("skip", skip); err != nil {
		return q, err
	}
	if q.Take, err = parseUint("take", take); err != nil {
		return q, err
	}
	if q.Take > MaxTake {
		q.Take = MaxTake
	}
	return q, nil
}

func parseWhere(where string) ([]Condition, error) {
	where = strings.TrimSpace(where)
	if where == "" {
		return nil, nil
	}
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(where), &raw); err != nil {
		return nil, NewValidationError(errors.Wrap(err, "where"), FieldError{Field: "where", Error: "must be a JSON object"})
	}

	conds := make([]Condition, 0, len(raw))
	for _, field := range sortedKeys(raw) {
		val := raw[field]
		ops, ok := val.(map[string]interface{})
		if !ok {
			if !isJSONScalar(val) {
				return nil, invalidValue(OpEquals)
			}
			conds = append(conds, Eq(field, val))
			continue
		}
		for _, op := range sortedKeys(ops) {
			if !operators[op] {
				return nil, NewValidationError(nil, FieldError{Field: "where", Error: fmt.Sprintf("unknown operator %q", op)})
			}
			opVal := ops[op]
			if op == OpIn {
				list, isList := opVal.([]interface{})
				if !isList {
					return nil, invalidValue(op)
				}
				for _, item := range list {
					if item == nil || !isJSONScalar(item) {
						return nil, invalidValue(op)
					}
				}
			} else if !isJSONScalar(opVal) {
				return nil, invalidValue(op)
			}
			if _, isStr := opVal.(string); (op == OpContains || op == OpHas) && !isStr {
				return nil, invalidValue(op)
			}
			conds = append(conds, Condition{Field: field, Op: op, Value: opVal})
		}
	}
	return conds, nil
}

func parseOrderBy(orderBy string) ([]DBOrdering, error) {
	orderBy = strings.TrimSpace(orderBy)
	if orderBy == "" {
		return nil, nil
	}
	invalid := NewValidationError(nil, FieldError{Field: "orderBy", Error: `must be {"field": "asc|desc"} or a list of those`})

	var list []map[string]string
	if strings.HasPrefix(orderBy, "[") {
		if err := json.Unmarshal([]byte(orderBy), &list); err != nil {
			return nil, invalid
		}
	} else {
		var obj map[string]string
		if err := json.Unmarshal([]byte(orderBy), &obj); err != nil {
			return nil, invalid
		}
		list = append(list, obj)
	}

	orderings := make([]DBOrdering, 0, len(list))
	for _, obj := range list {
		if len(obj) != 1 {
			return nil, invalid
		}
		for field, dir := range obj {
			switch strings.ToLower(dir) {
			case "asc":
				orderings = append(orderings, DBOrdering{Field: field, Ascending: true})
			case "desc":
				orderings = append(orderings, DBOrdering{Field: field})
			default:
				return nil, invalid
			}
		}
	}
	return orderings, nil
}

func parseUint(name, val string) (int, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0, NewValidationError(nil, FieldError{Field: name, Error: "must be a non-negative integer"})
	}
	return n, nil
}

func invalidValue(op string) error {
	return NewValidationError(nil, FieldError{Field: "where", Error: fmt.Sprintf("invalid value for %q", op)})
}

func isJSONScalar(v interface{}) bool {
	switch v.(type) {
	case nil, string, float64, bool:
		return true
	}
	return false
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks that all filtered and ordered fields are in `fields`
// and that every condition's operator and value suit the field's kind.
func (q ListQuery) Validate(fields QueryFields) error {
	for _, c := range q.Where {
		kind, ok := fields[c.Field]
		if !ok {
			return NewValidationError(nil, FieldError{Field: "where", Error: fmt.Sprintf("unknown field %q", c.Field)})
		}
		if !validCondition(kind, c) {
			return NewValidationError(nil, FieldError{Field: "where", Error: fmt.Sprintf("invalid %q condition on %q", c.Op, c.Field)})
		}
	}
	for _, o := range q.OrderBy {
		if _, ok := fields[o.Field]; !ok {
			return NewValidationError(nil, FieldError{Field: "orderBy", Error: fmt.Sprintf("unknown field %q", o.Field)})
		}
	}
	return nil
}

func validCondition(kind FieldKind, c Condition) bool {
	if !kindOperators[kind][c.Op] {
		return false
	}
	switch c.Op {
	case OpIn:
		list := reflect.ValueOf(c.Value)
		if list.Kind() != reflect.Slice {
			return false
		}
		for i := 0; i < list.Len(); i++ {
			item := list.Index(i).Interface()
			if item == nil || !validValue(kind, item) {
				return false
			}
		}
		return true
	case OpEquals, OpNot:
		return c.Value == nil || validValue(kind, c.Value)
	}
	return c.Value != nil && validValue(kind, c.Value)
}

// validValue reports whether v is a value of the field kind: JSON decoded or set by the services.
func validValue(kind FieldKind, v interface{}) bool {
	switch kind {
	case TextField, TextArrayField:
		_, ok := v.(string)
		return ok
	case IDField:
		switch n := v.(type) {
		case int, int64:
			return true
		case float64:
			return n == math.Trunc(n) && math.Abs(n) <= math.MaxInt64
		}
		return false
	case NumberField:
		switch n := v.(type) {
		case int, int64:
			return true
		case float64:
			return !math.IsNaN(n) && !math.IsInf(n, 0)
		}
		return false
	case BoolField:
		_, ok := v.(bool)
		return ok
	case TimeField:
		switch t := v.(type) {
		case time.Time:
			return true
		case string:
			_, err := time.Parse(time.RFC3339Nano, t)
			return err == nil
		}
		return false
	}
	return false
}

// With returns a copy of q with the given conditions added.
func (q ListQuery) With(conds ...Condition) ListQuery {
	where := make([]Condition, 0, len(q.Where)+len(conds))
	where = append(where, q.Where...)
	q.Where = append(where, conds...)
	return q
}

// OrderedBy returns a copy of q ordered by `orderings` if no ordering was requested.
func (q ListQuery) OrderedBy(orderings ...DBOrdering) ListQuery {
	if len(q.OrderBy) == 0 {
		q.OrderBy = orderings
	}
	return q
}
