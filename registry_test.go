package modelq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/modelq/schema/edge"
	"github.com/syssam/modelq/schema/field"
)

func blogDefinitions() []Definition {
	return []Definition{
		{
			Name: "User",
			Fields: []field.Field{
				field.Serial("id"),
				field.Text("name"),
				field.Count("post_count", "posts"),
			},
			Edges: []edge.Edge{
				edge.HasMany("posts", "Post").AutoFetch(),
			},
		},
		{
			Name: "Post",
			Fields: []field.Field{
				field.Serial("id"),
				field.Text("title"),
			},
			Edges: []edge.Edge{
				edge.BelongsTo("author", "User"),
				edge.ManyToMany("tags", "Tag").Through("PostTag", "post", "tag"),
			},
		},
		{
			Name: "Tag",
			Fields: []field.Field{
				field.Serial("id"),
				field.Text("name"),
			},
		},
		{
			Name:   "PostTag",
			Fields: []field.Field{field.Serial("id")},
			Edges: []edge.Edge{
				edge.BelongsTo("post", "Post"),
				edge.BelongsTo("tag", "Tag"),
			},
		},
	}
}

func TestRegistryLink(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(blogDefinitions()...))
	require.False(t, r.Linked())
	require.NoError(t, r.Link())
	require.True(t, r.Linked())

	user := r.MustModel("User")
	assert.Equal(t, "users", user.TableName())

	posts, ok := user.Association("posts")
	require.True(t, ok)
	assert.Equal(t, edge.HasManyRel, posts.Rel())
	assert.Equal(t, "Post", posts.Target().Name())
	assert.Equal(t, "user_id", posts.ForeignKeyColumn())
	assert.True(t, posts.AutoFetch())

	post := r.MustModel("Post")
	tags, ok := post.Association("tags")
	require.True(t, ok)
	assert.Equal(t, "PostTag", tags.Through().Name())
	assert.Equal(t, "post_id", tags.ThroughFrom().ForeignKeyColumn())
	assert.Equal(t, "tag_id", tags.ThroughTo().ForeignKeyColumn())
}

// TestForeignKeySynthesis checks a belongsTo association without a
// declared column gets a conventional foreign-key property referencing
// the target's primary key.
func TestForeignKeySynthesis(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(blogDefinitions()...))
	require.NoError(t, r.Link())

	post := r.MustModel("Post")
	fk, ok := post.Property("author_id")
	require.True(t, ok)
	assert.Equal(t, "author_id", fk.Column())
	assert.Equal(t, []string{"integer", `REFERENCES "users"("id")`}, fk.Clauses())
	assert.True(t, fk.Storable())
}

func TestRegistryErrors(t *testing.T) {
	t.Run("duplicate_model", func(t *testing.T) {
		r := NewRegistry()
		def := Definition{Name: "User", Fields: []field.Field{field.Serial("id")}}
		require.NoError(t, r.Register(def))
		require.Error(t, r.Register(def))
	})

	t.Run("register_after_link", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(Definition{Name: "User", Fields: []field.Field{field.Serial("id")}}))
		require.NoError(t, r.Link())
		err := r.Register(Definition{Name: "Post"})
		assert.ErrorIs(t, err, ErrRegistryLinked)
	})

	t.Run("unknown_target", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(Definition{
			Name:   "User",
			Fields: []field.Field{field.Serial("id")},
			Edges:  []edge.Edge{edge.HasMany("posts", "Post")},
		}))
		err := r.Link()
		require.Error(t, err)
		assert.True(t, IsUnknownModel(err))
	})

	t.Run("many_to_many_without_through", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(
			Definition{
				Name:   "Post",
				Fields: []field.Field{field.Serial("id")},
				Edges:  []edge.Edge{edge.ManyToMany("tags", "Tag")},
			},
			Definition{Name: "Tag", Fields: []field.Field{field.Serial("id")}},
		))
		require.Error(t, r.Link())
	})

	t.Run("count_of_unknown_association", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(Definition{
			Name: "User",
			Fields: []field.Field{
				field.Serial("id"),
				field.Count("post_count", "posts"),
			},
		}))
		err := r.Link()
		require.Error(t, err)
		assert.True(t, IsUnknownAssociation(err))
	})

	t.Run("expression_references_unknown_property", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(Definition{
			Name: "User",
			Fields: []field.Field{
				field.Serial("id"),
				field.Computed("display", field.Col("name")),
			},
		}))
		err := r.Link()
		require.Error(t, err)
		assert.True(t, IsUnknownProperty(err))
	})
}

func TestReferencesClauseResolution(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(
		Definition{Name: "Team", Fields: []field.Field{field.Serial("id")}},
		Definition{
			Name: "Player",
			Fields: []field.Field{
				field.Serial("id"),
				field.References("team_id", "Team"),
			},
		},
	))
	require.NoError(t, r.Link())

	p, ok := r.MustModel("Player").Property("team_id")
	require.True(t, ok)
	assert.Equal(t, []string{"integer", `REFERENCES "teams"("id")`}, p.Clauses())
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   func(error) bool
		base error
	}{
		{"unknown_property", NewUnknownPropertyError("users", "likes"), IsUnknownProperty, ErrUnknownIdentifier},
		{"unknown_association", NewUnknownAssociationError("users", "likes"), IsUnknownAssociation, ErrUnknownIdentifier},
		{"unknown_model", NewUnknownModelError("Like"), IsUnknownModel, ErrUnknownIdentifier},
		{"unknown_operator", NewUnknownOperatorError("$fuzzy"), IsUnknownOperator, ErrUnknownIdentifier},
		{"unknown_directive", NewUnknownDirectiveError("$mul"), IsUnknownDirective, ErrUnknownIdentifier},
		{"invalid_shape", NewInvalidShapeError("groupBy", "empty group list"), IsInvalidShape, ErrInvalidShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.is(tt.err))
			assert.ErrorIs(t, tt.err, tt.base)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}
