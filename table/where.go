package table

import (
	"reflect"
	"sort"
	"strings"

	"github.com/syssam/modelq"
	"github.com/syssam/modelq/dialect"
	"github.com/syssam/modelq/dialect/sql"
	"github.com/syssam/modelq/schema/edge"
)

// wherePredicate transforms a semantic filter into a predicate against
// the given base alias. Map keys are visited in sorted order so the
// rendered statement is deterministic. Dotted paths resolve through the
// join graph when the association is already fetched, else through a
// correlated EXISTS subquery that avoids row multiplication.
func (t *Table) wherePredicate(where Where, base string, joined map[string]*joinSpec) (*sql.Predicate, error) {
	if len(where) == 0 {
		return nil, nil
	}
	var preds []*sql.Predicate
	for _, key := range sortedKeys(where) {
		value := where[key]
		switch {
		case key == "$or":
			p, err := t.orPredicate(value, base, joined)
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		case strings.Contains(key, "."):
			p, err := t.pathPredicate(t.model, base, strings.Split(key, "."), key, value, joined)
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		default:
			prop, ok := t.model.Property(key)
			if !ok {
				return nil, modelq.NewUnknownPropertyError(t.model.TableName(), key)
			}
			p, err := t.propPredicate(prop, base, value)
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		}
	}
	return sql.And(preds...), nil
}

// orPredicate combines the branches of a "$or" value disjunctively. Each
// branch is a sub-filter whose own keys combine conjunctively.
func (t *Table) orPredicate(value any, base string, joined map[string]*joinSpec) (*sql.Predicate, error) {
	branches, ok := toBranches(value)
	if !ok {
		return nil, modelq.NewInvalidShapeError("$or", "expected a list of filter branches")
	}
	if len(branches) == 0 {
		return nil, modelq.NewInvalidShapeError("$or", "empty branch list")
	}
	preds := make([]*sql.Predicate, 0, len(branches))
	for _, branch := range branches {
		p, err := t.wherePredicate(branch, base, joined)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return sql.Or(preds...), nil
}

// pathPredicate resolves a dotted filter key. When the full association
// prefix is part of the join graph the condition lands directly on the
// joined alias; otherwise it correlates an EXISTS subquery step by step.
func (t *Table) pathPredicate(m *modelq.Model, alias string, parts []string,
	fullPath string, value any, joined map[string]*joinSpec) (*sql.Predicate, error) {
	prefix := fullPath[:strings.LastIndex(fullPath, ".")]
	if j, ok := joined[prefix]; ok {
		name := parts[len(parts)-1]
		prop, ok := j.assoc.Target().Property(name)
		if !ok {
			return nil, modelq.NewUnknownPropertyError(j.assoc.Target().TableName(), name)
		}
		return t.propPredicate(prop, j.alias, value)
	}
	return t.existsPredicate(m, alias, parts, value)
}

// existsPredicate builds the correlated EXISTS chain for a dotted path.
func (t *Table) existsPredicate(m *modelq.Model, alias string, parts []string, value any) (*sql.Predicate, error) {
	name := parts[0]
	a, ok := m.Association(name)
	if !ok {
		return nil, modelq.NewUnknownAssociationError(m.TableName(), name)
	}
	target := a.Target()
	subAlias := target.TableName() + "_" + name
	var inner *sql.Predicate
	var err error
	if len(parts) == 2 {
		prop, ok := target.Property(parts[1])
		if !ok {
			return nil, modelq.NewUnknownPropertyError(target.TableName(), parts[1])
		}
		inner, err = t.propPredicate(prop, subAlias, value)
	} else {
		inner, err = t.existsPredicate(target, subAlias, parts[1:], value)
	}
	if err != nil {
		return nil, err
	}
	sub := sql.Dialect(dialect.Postgres).Select().From(t.sqlTable(target.TableName(), subAlias))
	switch a.Rel() {
	case edge.BelongsToRel:
		sub.Where(sql.ColumnsEQ(subAlias+".id", alias+"."+a.ForeignKeyColumn()))
	case edge.HasOneRel, edge.HasManyRel:
		sub.Where(sql.ColumnsEQ(subAlias+"."+a.ForeignKeyColumn(), alias+".id"))
	case edge.ManyToManyRel:
		thr := a.Through().TableName() + "_" + name
		sub.From(t.sqlTable(a.Through().TableName(), thr)).
			Join(t.sqlTable(target.TableName(), subAlias)).
			On(subAlias+".id", thr+"."+a.ThroughTo().ForeignKeyColumn()).
			Where(sql.ColumnsEQ(thr+"."+a.ThroughFrom().ForeignKeyColumn(), alias+".id"))
	}
	sub.Where(inner)
	return sql.Exists(sub), nil
}

// propPredicate dispatches on the value shape for one resolved property:
// raw-where templates take the value verbatim, nulls compare with IS
// NULL, lists become IN, operator objects map to their SQL operators, and
// everything else is an equality.
func (t *Table) propPredicate(p *modelq.Property, alias string, value any) (*sql.Predicate, error) {
	if raw := p.RawWhere(); raw != "" {
		return sql.ExprP(raw, queryValue(value)), nil
	}
	col := t.colRef(p, alias)
	switch {
	case value == nil:
		return sql.IsNull(col), nil
	case isFilterMap(value):
		return t.operatorPredicate(col, toFilterMap(value))
	default:
		if vs, ok := toList(value); ok {
			return sql.In(col, vs...), nil
		}
		return sql.EQ(col, queryValue(value)), nil
	}
}

// operatorPredicate applies each recognized operator key of an operator
// object, combined conjunctively in sorted key order.
func (t *Table) operatorPredicate(col string, ops map[string]any) (*sql.Predicate, error) {
	preds := make([]*sql.Predicate, 0, len(ops))
	for _, op := range sortedKeys(ops) {
		p, err := t.operator(col, op, ops[op])
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return sql.And(preds...), nil
}

func (t *Table) operator(col, op string, v any) (*sql.Predicate, error) {
	switch op {
	case "$is":
		if v == nil {
			return sql.IsNull(col), nil
		}
		return sql.EQ(col, queryValue(v)), nil
	case "$not":
		if v == nil {
			return sql.NotNull(col), nil
		}
		if vs, ok := toList(v); ok {
			return sql.NotIn(col, vs...), nil
		}
		return sql.NEQ(col, queryValue(v)), nil
	case "$gte":
		return t.comparison(col, op, v, sql.GTE)
	case "$gt":
		return t.comparison(col, op, v, sql.GT)
	case "$lt":
		return t.comparison(col, op, v, sql.LT)
	case "$lte":
		return t.comparison(col, op, v, sql.LTE)
	case "$like":
		return t.comparison(col, op, v, sql.Like)
	case "$ilike":
		return t.comparison(col, op, v, sql.ILike)
	case "$regex":
		return t.comparison(col, op, v, sql.Regexp)
	case "$in":
		vs, ok := toList(v)
		if !ok {
			return nil, modelq.NewInvalidShapeError(op, "expected a list of values")
		}
		return sql.In(col, vs...), nil
	case "$or":
		return t.operatorOr(col, v)
	default:
		return nil, modelq.NewUnknownOperatorError(op)
	}
}

// comparison guards binary operators against null, which has no ordered
// or pattern form in SQL.
func (t *Table) comparison(col, op string, v any, f func(string, any) *sql.Predicate) (*sql.Predicate, error) {
	if v == nil {
		return nil, modelq.NewInvalidShapeError(op, "cannot compare against null")
	}
	return f(col, queryValue(v)), nil
}

// operatorOr disjoins alternatives against the same column: each element
// is a scalar (equality) or a nested operator object.
func (t *Table) operatorOr(col string, v any) (*sql.Predicate, error) {
	vs, ok := toList(v)
	if !ok {
		return nil, modelq.NewInvalidShapeError("$or", "expected a list of alternatives")
	}
	if len(vs) == 0 {
		return nil, modelq.NewInvalidShapeError("$or", "empty alternative list")
	}
	preds := make([]*sql.Predicate, 0, len(vs))
	for _, alt := range vs {
		var p *sql.Predicate
		var err error
		switch {
		case alt == nil:
			p = sql.IsNull(col)
		case isFilterMap(alt):
			p, err = t.operatorPredicate(col, toFilterMap(alt))
		default:
			p = sql.EQ(col, queryValue(alt))
		}
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return sql.Or(preds...), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isFilterMap(v any) bool {
	switch v.(type) {
	case Where, Set, map[string]any:
		return true
	}
	return false
}

func toFilterMap(v any) map[string]any {
	switch v := v.(type) {
	case Where:
		return v
	case Set:
		return v
	case map[string]any:
		return v
	}
	return nil
}

// toBranches normalizes a "$or" value to a list of sub-filters.
func toBranches(v any) ([]Where, bool) {
	switch v := v.(type) {
	case []Where:
		return v, true
	case []map[string]any:
		branches := make([]Where, len(v))
		for i, b := range v {
			branches[i] = b
		}
		return branches, true
	case []any:
		branches := make([]Where, len(v))
		for i, b := range v {
			m, ok := toBranch(b)
			if !ok {
				return nil, false
			}
			branches[i] = m
		}
		return branches, true
	}
	return nil, false
}

func toBranch(v any) (Where, bool) {
	switch v := v.(type) {
	case Where:
		return v, true
	case map[string]any:
		return v, true
	}
	return nil, false
}

// toList normalizes any slice value (except byte slices, which bind as a
// single argument) into a list of converted statement arguments.
func toList(v any) ([]any, bool) {
	if _, ok := v.([]byte); ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	vs := make([]any, rv.Len())
	for i := range vs {
		vs[i] = queryValue(rv.Index(i).Interface())
	}
	return vs, true
}
