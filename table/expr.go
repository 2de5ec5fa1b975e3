package table

import (
	"strings"

	"github.com/syssam/modelq"
	"github.com/syssam/modelq/schema/edge"
	"github.com/syssam/modelq/schema/field"
)

// computedColumn renders a computed property as a select-list column:
// the parenthesized expression aliased by the given output name.
func (t *Table) computedColumn(p *modelq.Property, alias, as string) string {
	return t.renderComputed(p, alias) + ` AS "` + as + `"`
}

// renderComputed returns the parenthesized SQL text of a computed
// property correlated on the given table alias. The base-table rendering
// is memoized per table, since the text embeds the table's schema
// qualification; other aliases render fresh text, since the correlation
// column differs.
func (t *Table) renderComputed(p *modelq.Property, alias string) string {
	if alias != p.Model().TableName() {
		return t.renderComputedText(p, alias)
	}
	if cached, ok := t.memo.Load(p); ok {
		return cached.(string)
	}
	text := t.renderComputedText(p, alias)
	t.memo.Store(p, text)
	return text
}

func (t *Table) renderComputedText(p *modelq.Property, alias string) string {
	if p.CountOf() != "" {
		a, _ := p.Model().Association(p.CountOf())
		return "(" + t.countSubquery(a, alias) + ")"
	}
	return "(" + t.renderExpr(p.Model(), p.Expr(), alias) + ")"
}

// countSubquery renders the correlated COUNT(*) for an association. For
// many-to-many the count runs against the through table, one row per
// relation.
func (t *Table) countSubquery(a *modelq.Association, alias string) string {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM ")
	switch a.Rel() {
	case edge.ManyToManyRel:
		thr := a.Through().TableName()
		t.writeTableRef(&sb, thr)
		sb.WriteString(" WHERE ")
		sb.WriteString(qcol(thr, a.ThroughFrom().ForeignKeyColumn()))
		sb.WriteString(" = ")
		sb.WriteString(qcol(alias, "id"))
	case edge.BelongsToRel:
		target := a.Target().TableName()
		t.writeTableRef(&sb, target)
		sb.WriteString(" WHERE ")
		sb.WriteString(qcol(target, "id"))
		sb.WriteString(" = ")
		sb.WriteString(qcol(alias, a.ForeignKeyColumn()))
	default:
		target := a.Target().TableName()
		t.writeTableRef(&sb, target)
		sb.WriteString(" WHERE ")
		sb.WriteString(qcol(target, a.ForeignKeyColumn()))
		sb.WriteString(" = ")
		sb.WriteString(qcol(alias, "id"))
	}
	return sb.String()
}

func (t *Table) writeTableRef(sb *strings.Builder, name string) {
	if t.schema != "" {
		sb.WriteString(`"` + t.schema + `".`)
	}
	sb.WriteString(`"` + name + `"`)
}

// renderExpr evaluates an expression tree against the owning model.
// References were validated at link time, so resolution cannot fail here.
func (t *Table) renderExpr(m *modelq.Model, e field.Expr, alias string) string {
	switch e := e.(type) {
	case field.ColumnExpr:
		p, _ := m.Property(e.Name)
		return qcol(alias, p.Column())
	case field.CountExpr:
		a, _ := m.Association(e.Edge)
		return "(" + t.countSubquery(a, alias) + ")"
	case field.LiteralExpr:
		return field.Literal(e.Value)
	case field.RawExpr:
		return e.Fragment
	case field.ListExpr:
		parts := make([]string, len(e))
		for i, part := range e {
			parts[i] = t.renderExpr(m, part, alias)
		}
		return strings.Join(parts, " ")
	}
	return ""
}
