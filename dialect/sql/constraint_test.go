package sql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestConstraintErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		unique     bool
		foreignKey bool
		check      bool
		notNull    bool
	}{
		{
			name:   "pq_unique",
			err:    &pq.Error{Code: "23505", Constraint: "users_email_key"},
			unique: true,
		},
		{
			name:       "pq_foreign_key",
			err:        &pq.Error{Code: "23503", Constraint: "posts_user_id_fkey"},
			foreignKey: true,
		},
		{
			name:  "pq_check",
			err:   &pq.Error{Code: "23514"},
			check: true,
		},
		{
			name:    "pq_not_null",
			err:     &pq.Error{Code: "23502"},
			notNull: true,
		},
		{
			name:   "wrapped_pq_error",
			err:    fmt.Errorf("modelq: insert: %w", &pq.Error{Code: "23505"}),
			unique: true,
		},
		{
			name:   "string_fallback",
			err:    errors.New(`duplicate key value violates unique constraint "users_email_key"`),
			unique: true,
		},
		{
			name: "unrelated_error",
			err:  errors.New("connection refused"),
		},
		{
			name: "nil_error",
			err:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, IsUniqueConstraintError(tt.err))
			assert.Equal(t, tt.foreignKey, IsForeignKeyConstraintError(tt.err))
			assert.Equal(t, tt.check, IsCheckConstraintError(tt.err))
			assert.Equal(t, tt.notNull, IsNotNullConstraintError(tt.err))
			violated := tt.unique || tt.foreignKey || tt.check || tt.notNull
			assert.Equal(t, violated, IsConstraintError(tt.err))
		})
	}
}

func TestConstraintName(t *testing.T) {
	err := fmt.Errorf("modelq: insert: %w", &pq.Error{Code: "23505", Constraint: "users_email_key"})
	assert.Equal(t, "users_email_key", ConstraintName(err))
	assert.Equal(t, "", ConstraintName(errors.New("boom")))
}
