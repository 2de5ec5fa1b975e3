package schema

import (
	"fmt"
	"strings"

	"github.com/syssam/modelq"
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Table   string
	Column  string
	Message string
	// Breaking indicates if this is a breaking change.
	Breaking bool
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the results of schema validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// HasBreakingChanges returns true if there are any breaking changes.
func (r *ValidationResult) HasBreakingChanges() bool {
	for _, e := range r.Errors {
		if e.Breaking {
			return true
		}
	}
	for _, w := range r.Warnings {
		if w.Breaking {
			return true
		}
	}
	return false
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			if e.Breaking {
				sb.WriteString(" [BREAKING]")
			}
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			if w.Breaking {
				sb.WriteString(" [BREAKING]")
			}
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

// ValidateOption configures schema validation.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	allowDropColumn bool
}

// AllowDropColumn downgrades column drops from errors to warnings.
func AllowDropColumn() ValidateOption {
	return func(c *validateConfig) {
		c.allowDropColumn = true
	}
}

// ValidateChanges validates an alter-change set against the model before
// it is applied. Dropping a column and changing a column's type are
// classified as breaking; additions with NOT NULL constraints produce a
// warning since they may fail on populated tables.
func ValidateChanges(model *modelq.Model, changes Changes, opts ...ValidateOption) *ValidationResult {
	cfg := &validateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	result := &ValidationResult{}
	table := model.TableName()

	for _, p := range changes.Removed {
		if !p.Storable() {
			continue
		}
		err := &ValidationError{
			Table:    table,
			Column:   p.Column(),
			Message:  "column will be dropped",
			Breaking: true,
		}
		if cfg.allowDropColumn {
			result.Warnings = append(result.Warnings, err)
		} else {
			result.Errors = append(result.Errors, err)
		}
	}
	for _, p := range changes.Changed {
		if !p.Storable() {
			continue
		}
		result.Warnings = append(result.Warnings, &ValidationError{
			Table:    table,
			Column:   p.Column(),
			Message:  fmt.Sprintf("column type changing to %s", strings.Join(p.Clauses(), " ")),
			Breaking: true,
		})
	}
	for _, p := range changes.Added {
		if !p.Storable() {
			continue
		}
		if _, ok := model.Property(p.Name()); ok {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   table,
				Column:  p.Column(),
				Message: "duplicate column name",
			})
		}
		for _, clause := range p.Clauses() {
			if clause == "NOT NULL" {
				result.Warnings = append(result.Warnings, &ValidationError{
					Table:   table,
					Column:  p.Column(),
					Message: "new NOT NULL column without default value may fail if table has data",
				})
			}
		}
	}
	return result
}
