package field

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeClauses(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
		clauses []string
	}{
		{"text", Text("bio"), []string{"text"}},
		{"string", String("name", 100), []string{"varchar(100)"}},
		{"int", Int("age"), []string{"integer"}},
		{"bigint", Int64("views"), []string{"bigint"}},
		{"serial", Serial("id"), []string{"serial", "PRIMARY KEY"}},
		{"bigserial", BigSerial("id"), []string{"bigserial", "PRIMARY KEY"}},
		{"decimal_bare", Decimal("price"), []string{"numeric"}},
		{"decimal_precision", Decimal("price", 10), []string{"numeric(10)"}},
		{"decimal_scale", Decimal("price", 10, 2), []string{"numeric(10,2)"}},
		{"float", Float("ratio"), []string{"double precision"}},
		{"bool", Bool("active"), []string{"boolean"}},
		{"date", Date("born"), []string{"date"}},
		{"timestamp", Timestamp("created_at"), []string{"timestamp"}},
		{"time", TimeOfDay("opens_at"), []string{"time"}},
		{"interval", Interval("duration"), []string{"interval"}},
		{"json", JSON("meta"), []string{"jsonb"}},
		{"bytes", Bytes("blob"), []string{"bytea"}},
		{"fulltext", FullText("search"), []string{"tsvector"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.clauses, tt.builder.Descriptor().Clauses)
		})
	}
}

func TestColumnNaming(t *testing.T) {
	assert.Equal(t, "created_at", Timestamp("createdAt").Descriptor().Column)
	assert.Equal(t, "custom", Text("name").Column("custom").Descriptor().Column)
}

func TestModifiers(t *testing.T) {
	d := Text("email").NotNull().Unique().Descriptor()
	assert.Equal(t, []string{"text", "NOT NULL", "UNIQUE"}, d.Clauses)

	d = Text("password").Hidden().Descriptor()
	assert.True(t, d.Hidden)

	d = Int("rank").Virtual().Descriptor()
	assert.True(t, d.Virtual)
}

func TestUUIDDefault(t *testing.T) {
	d := UUID("id").Descriptor()
	assert.Equal(t, []string{"uuid", "PRIMARY KEY"}, d.Clauses)
	require.NotNil(t, d.Default)
	v, ok := d.Default().(uuid.UUID)
	require.True(t, ok)
	assert.NotEqual(t, uuid.Nil, v)
}

func TestCountAndComputed(t *testing.T) {
	d := Count("post_count", "posts").Descriptor()
	assert.True(t, d.Virtual)
	assert.Equal(t, "posts", d.CountOf)
	assert.Empty(t, d.Clauses)

	d = Computed("summary", Col("title"), Raw("||"), Lit(" …")).Descriptor()
	assert.True(t, d.Virtual)
	require.IsType(t, ListExpr{}, d.Expr)
	assert.Len(t, d.Expr.(ListExpr), 3)
}

func TestLiteral(t *testing.T) {
	assert.Equal(t, "'it''s'", Literal("it's"))
	assert.Equal(t, "NULL", Literal(nil))
	assert.Equal(t, "42", Literal(42))
}
