package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/modelq"
	"github.com/syssam/modelq/schema/field"
)

func TestValidateChanges(t *testing.T) {
	article, _ := articleModels(t)

	t.Run("drop_column_is_breaking_error", func(t *testing.T) {
		summary, ok := article.Property("summary")
		require.True(t, ok)

		result := ValidateChanges(article, Changes{Removed: []*modelq.Property{summary}})
		require.True(t, result.HasErrors())
		assert.True(t, result.HasBreakingChanges())
		assert.Equal(t, "articles.summary: column will be dropped", result.Errors[0].Error())
	})

	t.Run("allow_drop_column_downgrades_to_warning", func(t *testing.T) {
		summary, ok := article.Property("summary")
		require.True(t, ok)

		result := ValidateChanges(article, Changes{Removed: []*modelq.Property{summary}}, AllowDropColumn())
		assert.False(t, result.HasErrors())
		require.True(t, result.HasWarnings())
		assert.True(t, result.Warnings[0].Breaking)
	})

	t.Run("type_change_is_breaking_warning", func(t *testing.T) {
		title := revisionProperty(t, field.String("title", 200))

		result := ValidateChanges(article, Changes{Changed: []*modelq.Property{title}})
		assert.False(t, result.HasErrors())
		require.True(t, result.HasWarnings())
		assert.True(t, result.Warnings[0].Breaking)
		assert.Contains(t, result.Warnings[0].Message, "varchar(200)")
	})

	t.Run("not_null_addition_warns", func(t *testing.T) {
		views := revisionProperty(t, field.Int("views").NotNull())

		result := ValidateChanges(article, Changes{Added: []*modelq.Property{views}})
		assert.False(t, result.HasErrors())
		require.True(t, result.HasWarnings())
		assert.False(t, result.Warnings[0].Breaking)
		assert.Contains(t, result.Warnings[0].Message, "NOT NULL")
	})

	t.Run("nullable_addition_is_clean", func(t *testing.T) {
		views := revisionProperty(t, field.Int("views"))

		result := ValidateChanges(article, Changes{Added: []*modelq.Property{views}})
		assert.False(t, result.HasErrors())
		assert.False(t, result.HasWarnings())
		assert.Equal(t, "No issues found", result.String())
	})

	t.Run("duplicate_column_is_error", func(t *testing.T) {
		title := revisionProperty(t, field.Text("title"))

		result := ValidateChanges(article, Changes{Added: []*modelq.Property{title}})
		require.True(t, result.HasErrors())
		assert.Equal(t, "articles.title: duplicate column name", result.Errors[0].Error())
	})

	t.Run("virtual_properties_ignored", func(t *testing.T) {
		cached := revisionProperty(t, field.Int("cached").Virtual())

		result := ValidateChanges(article, Changes{
			Added:   []*modelq.Property{cached},
			Removed: []*modelq.Property{cached},
			Changed: []*modelq.Property{cached},
		})
		assert.False(t, result.HasErrors())
		assert.False(t, result.HasWarnings())
	})
}

func TestValidationResultString(t *testing.T) {
	result := &ValidationResult{
		Errors: []*ValidationError{
			{Table: "articles", Column: "summary", Message: "column will be dropped", Breaking: true},
		},
		Warnings: []*ValidationError{
			{Table: "articles", Message: "table comment"},
		},
	}
	s := result.String()
	assert.Contains(t, s, "Errors:")
	assert.Contains(t, s, "articles.summary: column will be dropped [BREAKING]")
	assert.Contains(t, s, "Warnings:")
	assert.Contains(t, s, "articles: table comment")
}
