// Package schema generates and executes DDL for registered models:
// CREATE/ALTER/DROP TABLE statements derived from each model's storable
// property set, plus a raw-migration escape hatch for statements the
// builders cannot express.
package schema

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/syssam/modelq"
	"github.com/syssam/modelq/dialect"
	"github.com/syssam/modelq/dialect/sql"
)

// Changes groups the three disjoint property sets of an ALTER TABLE:
// properties to add, to drop, and whose column type changed.
// Non-storable properties in any set are skipped.
type Changes struct {
	Added   []*modelq.Property
	Removed []*modelq.Property
	Changed []*modelq.Property
}

// Migrate generates and runs DDL statements for models. All statement
// generation is synchronous; only the Exec calls touch the driver.
type Migrate struct {
	drv        dialect.Driver
	schemaName string
	raw        []rawMigration
	rawSeen    map[string]struct{}
}

type rawMigration struct {
	hash string
	up   string
	down string
}

// MigrateOption configures a Migrate.
type MigrateOption func(*Migrate)

// WithSchemaName qualifies all generated tables with the given schema,
// created first, idempotently, on Create.
func WithSchemaName(name string) MigrateOption {
	return func(m *Migrate) { m.schemaName = name }
}

// NewMigrate returns a migration engine bound to the given driver.
func NewMigrate(drv dialect.Driver, opts ...MigrateOption) *Migrate {
	m := &Migrate{drv: drv, rawSeen: make(map[string]struct{})}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateQuery returns the CREATE TABLE statement for the given model.
// One quoted column is emitted per storable property, using that
// property's DDL clause tokens.
func (m *Migrate) CreateQuery(model *modelq.Model) (string, []any) {
	t := sql.CreateTable(model.TableName()).IfNotExists()
	if m.schemaName != "" {
		t.Schema(m.schemaName)
	}
	for _, p := range model.Properties() {
		if !p.Storable() {
			continue
		}
		t.Columns(sql.Column(p.Column()).Type(p.Clauses()...))
	}
	return t.Query()
}

// Create creates the tables of the given models, preceded by the
// configured schema when one is set.
func (m *Migrate) Create(ctx context.Context, models ...*modelq.Model) error {
	if m.schemaName != "" {
		query, args := sql.CreateSchema(m.schemaName).IfNotExists().Query()
		if err := m.drv.Exec(ctx, query, args, nil); err != nil {
			return fmt.Errorf("schema: create schema %q: %w", m.schemaName, err)
		}
	}
	for _, model := range models {
		query, args := m.CreateQuery(model)
		if err := m.drv.Exec(ctx, query, args, nil); err != nil {
			return fmt.Errorf("schema: create table %q: %w", model.TableName(), err)
		}
	}
	return nil
}

// AlterQuery returns the ALTER TABLE statement applying the given
// changes, or ok=false when every change set is empty or non-storable.
func (m *Migrate) AlterQuery(model *modelq.Model, changes Changes) (query string, args []any, ok bool) {
	a := sql.AlterTable(model.TableName())
	if m.schemaName != "" {
		a.Schema(m.schemaName)
	}
	for _, p := range changes.Added {
		if !p.Storable() {
			continue
		}
		a.AddColumn(sql.Column(p.Column()).Type(p.Clauses()...))
	}
	for _, p := range changes.Removed {
		if !p.Storable() {
			continue
		}
		a.DropColumn(p.Column())
	}
	for _, p := range changes.Changed {
		if !p.Storable() {
			continue
		}
		a.ModifyType(p.Column(), p.Clauses()...)
	}
	if a.Empty() {
		return "", nil, false
	}
	query, args = a.Query()
	return query, args, true
}

// Alter applies the given changes to the model's table.
func (m *Migrate) Alter(ctx context.Context, model *modelq.Model, changes Changes) error {
	query, args, ok := m.AlterQuery(model, changes)
	if !ok {
		return nil
	}
	if err := m.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("schema: alter table %q: %w", model.TableName(), err)
	}
	return nil
}

// DropQuery returns the DROP TABLE statement for the given model.
func (m *Migrate) DropQuery(model *modelq.Model, cascade bool) (string, []any) {
	d := sql.DropTable(model.TableName()).IfExists()
	if m.schemaName != "" {
		d.Schema(m.schemaName)
	}
	if cascade {
		d.Cascade()
	}
	return d.Query()
}

// Drop drops the model's table.
func (m *Migrate) Drop(ctx context.Context, model *modelq.Model, cascade bool) error {
	query, args := m.DropQuery(model, cascade)
	if err := m.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("schema: drop table %q: %w", model.TableName(), err)
	}
	return nil
}

// Raw registers a free-form migration statement and its inverse. This is
// the only place raw SQL bypasses the builders. Registration is
// deduplicated by a content hash of the up statement: registering the
// same statement twice is a no-op and reports false.
func (m *Migrate) Raw(up, down string) bool {
	h := sha256.Sum256([]byte(up))
	hash := hex.EncodeToString(h[:])
	if _, ok := m.rawSeen[hash]; ok {
		return false
	}
	m.rawSeen[hash] = struct{}{}
	m.raw = append(m.raw, rawMigration{hash: hash, up: up, down: down})
	return true
}

// RawCount returns the number of registered raw migrations.
func (m *Migrate) RawCount() int { return len(m.raw) }

// ApplyRaw executes all registered raw migrations in registration order.
func (m *Migrate) ApplyRaw(ctx context.Context) error {
	for _, r := range m.raw {
		if err := m.drv.Exec(ctx, r.up, []any{}, nil); err != nil {
			return fmt.Errorf("schema: raw migration %s: %w", r.hash[:12], err)
		}
	}
	return nil
}

// RollbackRaw executes the inverse statements in reverse registration
// order, skipping migrations registered without one.
func (m *Migrate) RollbackRaw(ctx context.Context) error {
	for i := len(m.raw) - 1; i >= 0; i-- {
		r := m.raw[i]
		if r.down == "" {
			continue
		}
		if err := m.drv.Exec(ctx, r.down, []any{}, nil); err != nil {
			return fmt.Errorf("schema: raw rollback %s: %w", r.hash[:12], err)
		}
	}
	return nil
}
