// Package table is the statement factory of the query engine. A Table
// binds one linked model to an execution capability and synthesizes full
// SELECT/SEARCH/COUNT/INSERT/UPDATE/DELETE statements from semantic
// filter, assignment and sort inputs.
//
// A Table is created once per model; every Build call allocates a fresh
// builder and the only mutable state is a concurrency-safe render cache,
// so concurrent use against the same Table is safe.
package table

import (
	"context"
	"sync"

	"github.com/syssam/modelq"
	"github.com/syssam/modelq/dialect"
	"github.com/syssam/modelq/dialect/sql"
)

// DefaultFetchDepth bounds recursive auto-fetch traversal unless the
// caller overrides it per query.
const DefaultFetchDepth = 5

// pageCTE names the common table expression bounding paginated
// statements.
const pageCTE = "page"

// Where is a semantic filter: property name (or dotted association path,
// or the reserved key "$or") to scalar, list, operator object or nested
// branch list. Caller-owned and never retained.
type Where map[string]any

// Set is a semantic assignment: property name to scalar or an
// increment/decrement directive. Caller-owned and never retained.
type Set map[string]any

// Order is one sort term.
type Order struct {
	Property   string
	Descending bool
}

// Asc returns an ascending sort term for the given property.
func Asc(property string) Order { return Order{Property: property} }

// Desc returns a descending sort term for the given property.
func Desc(property string) Order { return Order{Property: property, Descending: true} }

// Sort is an ordered list of sort terms. Order matters, which is why the
// sort input is a slice and not a map.
type Sort []Order

// Valuer is implemented by application values that convert themselves to
// a storage representation before being bound as a statement argument.
type Valuer interface {
	QueryValue() any
}

func queryValue(v any) any {
	if qv, ok := v.(Valuer); ok {
		return qv.QueryValue()
	}
	return v
}

// SelectOptions shape a SELECT beyond its filter. The zero value selects
// every visible column with auto-fetch joins at the default depth.
type SelectOptions struct {
	// Select narrows the column list to the given property names or
	// dotted association paths. "*" and "assoc.*" are wildcards.
	Select []string
	// Fetch joins the given association paths even when they are not
	// flagged auto-fetch.
	Fetch []string
	Sort  Sort
	// GroupBy is a property name or a list of property names.
	GroupBy any
	Limit   int
	Offset  int
	// Depth overrides the auto-fetch recursion bound for this query.
	Depth int
}

// MutateOptions paginate an UPDATE or DELETE. When any of them is set and
// the model has an id column, the mutation is bounded by a CTE over the
// target id set.
type MutateOptions struct {
	Sort   Sort
	Limit  int
	Offset int
}

// Table is the query-generation context bound to one model.
type Table struct {
	model  *modelq.Model
	drv    dialect.Driver
	schema string
	sep    string
	depth  int

	// memo caches the rendered text of computed properties at the base
	// alias. The text embeds the table's schema qualification, so the
	// cache must not outlive the table.
	memo sync.Map
}

// Option configures a Table.
type Option func(*Table)

// WithSchema qualifies every table reference with the given schema name.
func WithSchema(name string) Option {
	return func(t *Table) { t.schema = name }
}

// WithPathSeparator sets the token separating an association path from a
// column name in generated column aliases. Defaults to "$".
func WithPathSeparator(sep string) Option {
	return func(t *Table) { t.sep = sep }
}

// WithFetchDepth sets the default auto-fetch recursion bound.
func WithFetchDepth(n int) Option {
	return func(t *Table) { t.depth = n }
}

// New returns a table bound to the given model and driver. The model's
// registry must be linked. The driver may be nil when the table is used
// for statement construction only.
func New(m *modelq.Model, drv dialect.Driver, opts ...Option) *Table {
	t := &Table{model: m, drv: drv, sep: "$", depth: DefaultFetchDepth}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Model returns the bound model.
func (t *Table) Model() *modelq.Model { return t.model }

// Name returns the SQL identifier of the bound model's table.
func (t *Table) Name() string { return t.model.TableName() }

// sqlTable returns a table reference with the configured schema and the
// given alias. An empty alias leaves the table unaliased.
func (t *Table) sqlTable(name, alias string) *sql.SelectTable {
	tbl := sql.Table(name)
	if t.schema != "" {
		tbl.Schema(t.schema)
	}
	if alias != "" && alias != name {
		tbl.As(alias)
	}
	return tbl
}

// qcol returns the fully quoted alias-qualified column reference.
func qcol(alias, column string) string {
	return `"` + alias + `"."` + column + `"`
}

// colRef returns the WHERE/ORDER reference for a property: the qualified
// column for plain properties, the rendered expression for computed ones.
func (t *Table) colRef(p *modelq.Property, alias string) string {
	if p.Computed() {
		return t.renderComputed(p, alias)
	}
	return alias + "." + p.Column()
}

// orderTerm renders one ORDER BY term for a property at the given alias.
func (t *Table) orderTerm(p *modelq.Property, alias string, desc bool) string {
	ref := t.colRef(p, alias)
	if !p.Computed() {
		ref = qcol(alias, p.Column())
	}
	if desc {
		return ref + " DESC"
	}
	return ref + " ASC"
}

// sortTerms resolves the sort input to rendered ORDER BY terms. Dotted
// properties resolve against joined association aliases only.
func (t *Table) sortTerms(sort Sort, alias string, joined map[string]*joinSpec) ([]string, error) {
	terms := make([]string, 0, len(sort))
	for _, o := range sort {
		prop, at, err := t.resolvePath(o.Property, alias, joined)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t.orderTerm(prop, at, o.Descending))
	}
	return terms, nil
}

// baseSortTerms keeps only the sort terms that resolve on the base table,
// for use inside a pagination CTE where no association is joined.
func (t *Table) baseSortTerms(sort Sort, alias string) []string {
	var terms []string
	for _, o := range sort {
		p, ok := t.model.Property(o.Property)
		if !ok {
			continue
		}
		terms = append(terms, t.orderTerm(p, alias, o.Descending))
	}
	return terms
}

// groupTerms validates and resolves the group-by input, a property name
// or a list of property names.
func (t *Table) groupTerms(groupBy any, alias string) ([]string, error) {
	var names []string
	switch g := groupBy.(type) {
	case nil:
		return nil, nil
	case string:
		names = []string{g}
	case []string:
		names = g
	case []any:
		for _, v := range g {
			s, ok := v.(string)
			if !ok {
				return nil, modelq.NewInvalidShapeError("groupBy", "expected property names")
			}
			names = append(names, s)
		}
	default:
		return nil, modelq.NewInvalidShapeError("groupBy", "expected a property name or a list of property names")
	}
	if len(names) == 0 {
		return nil, modelq.NewInvalidShapeError("groupBy", "empty group list")
	}
	terms := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			return nil, modelq.NewInvalidShapeError("groupBy", "empty property name")
		}
		p, ok := t.model.Property(name)
		if !ok {
			return nil, modelq.NewUnknownPropertyError(t.model.TableName(), name)
		}
		terms = append(terms, t.colRef(p, alias))
	}
	return terms, nil
}

// BuildSelect renders a SELECT statement for the given filter and
// options. When a limit or offset is combined with joined associations,
// the statement is restructured as a CTE computing the bounded id set
// against the base table first, so pagination is applied before join
// fan-out.
func (t *Table) BuildSelect(where Where, opts *SelectOptions) (string, []any, error) {
	return t.buildSelect(where, opts, nil)
}

func (t *Table) buildSelect(where Where, opts *SelectOptions, extra *sql.Predicate) (string, []any, error) {
	if opts == nil {
		opts = &SelectOptions{}
	}
	base := t.model.TableName()
	joins, err := t.fetchGraph(opts)
	if err != nil {
		return "", nil, err
	}
	joined := make(map[string]*joinSpec, len(joins))
	for _, j := range joins {
		joined[j.path] = j
	}
	columns, err := t.selectColumns(base, joins, opts.Select)
	if err != nil {
		return "", nil, err
	}
	groupBy, err := t.groupTerms(opts.GroupBy, base)
	if err != nil {
		return "", nil, err
	}
	orderBy, err := t.sortTerms(opts.Sort, base, joined)
	if err != nil {
		return "", nil, err
	}
	// Joined one-to-many rows repeat the root entity; without an explicit
	// order the page boundary would be nondeterministic.
	if len(orderBy) == 0 && len(groupBy) == 0 && len(joins) > 0 && t.model.ID() != nil {
		orderBy = []string{t.orderTerm(t.model.ID(), base, false)}
	}
	paginated := (opts.Limit > 0 || opts.Offset > 0) && len(joins) > 0
	if paginated && t.model.ID() != nil {
		return t.buildPagedSelect(where, opts, extra, columns, joins, orderBy, groupBy)
	}
	s := sql.Dialect(dialect.Postgres).Select(columns...).From(t.sqlTable(base, ""))
	for _, j := range joins {
		t.applyJoin(s, j)
	}
	pred, err := t.wherePredicate(where, base, joined)
	if err != nil {
		return "", nil, err
	}
	s.Where(pred).Where(extra)
	if len(groupBy) > 0 {
		s.GroupBy(groupBy...)
	}
	s.OrderBy(orderBy...)
	if opts.Limit > 0 {
		s.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		s.Offset(opts.Offset)
	}
	query, args := s.Query()
	return query, args, nil
}

// buildPagedSelect renders the CTE form: the inner query bounds the id
// set against the base table only (association filters degrade to EXISTS
// there), and the outer query re-joins associations against it.
func (t *Table) buildPagedSelect(where Where, opts *SelectOptions, extra *sql.Predicate,
	columns []string, joins []*joinSpec, orderBy, groupBy []string) (string, []any, error) {
	base := t.model.TableName()
	id := t.model.ID()
	inner := sql.Dialect(dialect.Postgres).
		Select(base + "." + id.Column()).
		From(t.sqlTable(base, ""))
	pred, err := t.wherePredicate(where, base, nil)
	if err != nil {
		return "", nil, err
	}
	inner.Where(pred).Where(extra)
	innerOrder := t.baseSortTerms(opts.Sort, base)
	if len(innerOrder) == 0 {
		innerOrder = []string{t.orderTerm(id, base, false)}
	}
	inner.OrderBy(innerOrder...)
	if opts.Limit > 0 {
		inner.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		inner.Offset(opts.Offset)
	}
	outer := sql.Dialect(dialect.Postgres).
		Select(columns...).
		From(t.sqlTable(base, "")).
		With(sql.With(pageCTE).As(inner))
	for _, j := range joins {
		t.applyJoin(outer, j)
	}
	outer.Where(sql.InSelect(base+"."+id.Column(),
		sql.Select(id.Column()).From(sql.Table(pageCTE))))
	if len(groupBy) > 0 {
		outer.GroupBy(groupBy...)
	}
	outer.OrderBy(orderBy...)
	query, args := outer.Query()
	return query, args, nil
}

// BuildSearch renders a SELECT restricted to rows whose full-text vector
// matches the given query text. The model must declare a full-text
// property.
func (t *Table) BuildSearch(text string, where Where, opts *SelectOptions) (string, []any, error) {
	ft := t.model.FullTextProperty()
	if ft == nil {
		return "", nil, modelq.NewInvalidShapeError("search",
			"model "+t.model.Name()+" has no full-text property")
	}
	base := t.model.TableName()
	id := t.model.ID()
	match := sql.ExprP(qcol(base, ft.Column())+" @@ to_tsquery(?)", text)
	if id == nil {
		return t.buildSelect(where, opts, match)
	}
	// Match ids first so the text predicate is evaluated once against the
	// base table, regardless of joins and pagination.
	matched := sql.Dialect(dialect.Postgres).
		Select(base + "." + id.Column()).
		From(t.sqlTable(base, "")).
		Where(match)
	return t.buildSelect(where, opts, sql.InSelect(base+"."+id.Column(), matched))
}

// BuildCount renders a COUNT statement with the same filter semantics as
// SELECT but no joins. An empty column counts rows.
func (t *Table) BuildCount(where Where, column string) (string, []any, error) {
	base := t.model.TableName()
	expr := "COUNT(*)"
	if column != "" {
		p, ok := t.model.Property(column)
		if !ok {
			return "", nil, modelq.NewUnknownPropertyError(base, column)
		}
		expr = "COUNT(" + qcol(base, p.Column()) + ")"
	}
	s := sql.Dialect(dialect.Postgres).Select(expr).From(t.sqlTable(base, ""))
	pred, err := t.wherePredicate(where, base, nil)
	if err != nil {
		return "", nil, err
	}
	s.Where(pred)
	query, args := s.Query()
	return query, args, nil
}

// BuildInsert renders an INSERT for the given assignments. Only storable
// properties participate; unset properties with a declared default get
// the generated default value. The statement returns the created row
// including computed columns.
func (t *Table) BuildInsert(set Set) (string, []any, error) {
	columns, values, err := t.insertValues(set)
	if err != nil {
		return "", nil, err
	}
	ins := sql.Dialect(dialect.Postgres).Insert(t.tableIdent())
	if len(columns) == 0 {
		ins.Default()
	} else {
		ins.Columns(columns...).Values(values...)
	}
	ins.Returning(t.returningColumns()...)
	query, args := ins.Query()
	return query, args, nil
}

// BuildUpdate renders an UPDATE for the given filter and assignments.
// When paginated and the model has an id column, the target id set is
// bounded by a CTE first, then mutated by id membership.
func (t *Table) BuildUpdate(where Where, set Set, opts *MutateOptions) (string, []any, error) {
	upd := sql.Dialect(dialect.Postgres).Update(t.tableIdent())
	if err := t.applySet(upd, set); err != nil {
		return "", nil, err
	}
	if upd.Empty() {
		return "", nil, modelq.NewInvalidShapeError("set", "no storable assignments")
	}
	base := t.model.TableName()
	if inner, ok, err := t.pageBounds(where, opts); err != nil {
		return "", nil, err
	} else if ok {
		upd.With(sql.With(pageCTE).As(inner)).
			Where(sql.InSelect(base+"."+t.model.ID().Column(),
				sql.Select(t.model.ID().Column()).From(sql.Table(pageCTE))))
	} else {
		pred, err := t.wherePredicate(where, base, nil)
		if err != nil {
			return "", nil, err
		}
		upd.Where(pred)
	}
	upd.Returning(t.returningColumns()...)
	query, args := upd.Query()
	return query, args, nil
}

// BuildDelete renders a DELETE for the given filter, CTE-bounded when
// paginated, returning the removed rows.
func (t *Table) BuildDelete(where Where, opts *MutateOptions) (string, []any, error) {
	del := sql.Dialect(dialect.Postgres).Delete(t.tableIdent())
	base := t.model.TableName()
	if inner, ok, err := t.pageBounds(where, opts); err != nil {
		return "", nil, err
	} else if ok {
		del.With(sql.With(pageCTE).As(inner)).
			Where(sql.InSelect(base+"."+t.model.ID().Column(),
				sql.Select(t.model.ID().Column()).From(sql.Table(pageCTE))))
	} else {
		pred, err := t.wherePredicate(where, base, nil)
		if err != nil {
			return "", nil, err
		}
		del.Where(pred)
	}
	del.Returning(t.returningColumns()...)
	query, args := del.Query()
	return query, args, nil
}

// pageBounds returns the CTE inner query for a paginated mutation, or
// ok=false when the mutation is not paginated or the model has no id
// column to bound it by.
func (t *Table) pageBounds(where Where, opts *MutateOptions) (*sql.Selector, bool, error) {
	if opts == nil {
		return nil, false, nil
	}
	if opts.Limit <= 0 && opts.Offset <= 0 && len(opts.Sort) == 0 {
		return nil, false, nil
	}
	id := t.model.ID()
	if id == nil {
		return nil, false, nil
	}
	base := t.model.TableName()
	inner := sql.Dialect(dialect.Postgres).
		Select(base + "." + id.Column()).
		From(t.sqlTable(base, ""))
	pred, err := t.wherePredicate(where, base, nil)
	if err != nil {
		return nil, false, err
	}
	inner.Where(pred)
	order := t.baseSortTerms(opts.Sort, base)
	if len(order) == 0 {
		order = []string{t.orderTerm(id, base, false)}
	}
	inner.OrderBy(order...)
	if opts.Limit > 0 {
		inner.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		inner.Offset(opts.Offset)
	}
	return inner, true, nil
}

// tableIdent returns the schema-qualified table identifier for DML
// statements, which take a plain identifier rather than a table
// reference.
func (t *Table) tableIdent() string {
	if t.schema != "" {
		return t.schema + "." + t.model.TableName()
	}
	return t.model.TableName()
}

// returningColumns lists "*" plus every computed non-aggregate column,
// so mutations hand back complete rows.
func (t *Table) returningColumns() []string {
	columns := []string{"*"}
	base := t.model.TableName()
	for _, p := range t.model.Properties() {
		if p.Computed() && !p.Aggregate() {
			columns = append(columns, t.computedColumn(p, base, p.Name()))
		}
	}
	return columns
}

// Select builds and executes a SELECT, returning the deferred row set.
func (t *Table) Select(ctx context.Context, where Where, opts *SelectOptions) (*sql.Rows, error) {
	query, args, err := t.BuildSelect(where, opts)
	if err != nil {
		return nil, err
	}
	return t.query(ctx, query, args)
}

// Search builds and executes a full-text SELECT.
func (t *Table) Search(ctx context.Context, text string, where Where, opts *SelectOptions) (*sql.Rows, error) {
	query, args, err := t.BuildSearch(text, where, opts)
	if err != nil {
		return nil, err
	}
	return t.query(ctx, query, args)
}

// Count builds and executes a COUNT, returning the single-row result.
func (t *Table) Count(ctx context.Context, where Where, column string) (*sql.Rows, error) {
	query, args, err := t.BuildCount(where, column)
	if err != nil {
		return nil, err
	}
	return t.query(ctx, query, args)
}

// Insert builds and executes an INSERT, returning the created row.
func (t *Table) Insert(ctx context.Context, set Set) (*sql.Rows, error) {
	query, args, err := t.BuildInsert(set)
	if err != nil {
		return nil, err
	}
	return t.query(ctx, query, args)
}

// Update builds and executes an UPDATE, returning the mutated rows.
func (t *Table) Update(ctx context.Context, where Where, set Set, opts *MutateOptions) (*sql.Rows, error) {
	query, args, err := t.BuildUpdate(where, set, opts)
	if err != nil {
		return nil, err
	}
	return t.query(ctx, query, args)
}

// Delete builds and executes a DELETE, returning the removed rows.
func (t *Table) Delete(ctx context.Context, where Where, opts *MutateOptions) (*sql.Rows, error) {
	query, args, err := t.BuildDelete(where, opts)
	if err != nil {
		return nil, err
	}
	return t.query(ctx, query, args)
}

func (t *Table) query(ctx context.Context, query string, args []any) (*sql.Rows, error) {
	var rows sql.Rows
	if err := t.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	return &rows, nil
}
