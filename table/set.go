package table

import (
	"github.com/syssam/modelq"
	"github.com/syssam/modelq/dialect/sql"
)

// applySet transforms a semantic assignment map into UPDATE assignments.
// Non-storable properties are skipped silently; "$inc" and "$decr"
// directives become atomic column arithmetic instead of an assignment;
// any other object-shaped value is rejected as an unknown directive.
func (t *Table) applySet(upd *sql.UpdateBuilder, set Set) error {
	for _, key := range sortedKeys(set) {
		prop, ok := t.model.Property(key)
		if !ok {
			return modelq.NewUnknownPropertyError(t.model.TableName(), key)
		}
		if !prop.Storable() {
			continue
		}
		value := set[key]
		if !isFilterMap(value) {
			upd.Set(prop.Column(), queryValue(value))
			continue
		}
		directives := toFilterMap(value)
		if len(directives) == 0 {
			return modelq.NewInvalidShapeError("set", "empty directive object for "+key)
		}
		for _, d := range sortedKeys(directives) {
			switch d {
			case "$inc":
				upd.Add(prop.Column(), queryValue(directives[d]))
			case "$decr":
				upd.Sub(prop.Column(), queryValue(directives[d]))
			default:
				return modelq.NewUnknownDirectiveError(d)
			}
		}
	}
	return nil
}

// insertValues transforms a semantic assignment map into INSERT columns
// and values. Increment directives have no meaning on insert and are
// rejected; properties with a declared default that are absent from the
// input get the generated default value.
func (t *Table) insertValues(set Set) ([]string, []any, error) {
	var (
		columns []string
		values  []any
	)
	for _, key := range sortedKeys(set) {
		prop, ok := t.model.Property(key)
		if !ok {
			return nil, nil, modelq.NewUnknownPropertyError(t.model.TableName(), key)
		}
		if !prop.Storable() {
			continue
		}
		value := set[key]
		if isFilterMap(value) {
			directives := toFilterMap(value)
			if len(directives) == 0 {
				return nil, nil, modelq.NewInvalidShapeError("set", "empty directive object for "+key)
			}
			return nil, nil, modelq.NewUnknownDirectiveError(sortedKeys(directives)[0])
		}
		columns = append(columns, prop.Column())
		values = append(values, queryValue(value))
	}
	for _, prop := range t.model.Properties() {
		gen := prop.Default()
		if gen == nil || !prop.Storable() {
			continue
		}
		if _, ok := set[prop.Name()]; ok {
			continue
		}
		columns = append(columns, prop.Column())
		values = append(values, queryValue(gen()))
	}
	return columns, values, nil
}
