// Package load reads model definitions from YAML documents, one model per
// document, and converts them to the descriptor form the registry
// consumes. It is one of the two metadata sources: schemas declared in Go
// use schema/field and schema/edge directly.
package load

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/syssam/modelq"
	"github.com/syssam/modelq/schema/edge"
	"github.com/syssam/modelq/schema/field"
)

// Schema is the YAML representation of a single model.
type Schema struct {
	Name   string   `yaml:"name"`
	Fields []*Field `yaml:"fields,omitempty"`
	Edges  []*Edge  `yaml:"edges,omitempty"`
}

// Field is the YAML representation of a property declaration.
type Field struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Size       int    `yaml:"size,omitempty"`
	Args       []int  `yaml:"args,omitempty"`
	Of         string `yaml:"of,omitempty"`  // counted association for type: count
	Ref        string `yaml:"ref,omitempty"` // referenced model for type: references
	Column     string `yaml:"column,omitempty"`
	NotNull    bool   `yaml:"not_null,omitempty"`
	Unique     bool   `yaml:"unique,omitempty"`
	PrimaryKey bool   `yaml:"primary_key,omitempty"`
	Hidden     bool   `yaml:"hidden,omitempty"`
	Virtual    bool   `yaml:"virtual,omitempty"`
	Aggregate  bool   `yaml:"aggregate,omitempty"`
	RawWhere   string `yaml:"raw_where,omitempty"`
}

// Edge is the YAML representation of an association declaration.
type Edge struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`
	Target     string   `yaml:"target"`
	Required   bool     `yaml:"required,omitempty"`
	AutoFetch  bool     `yaml:"auto_fetch,omitempty"`
	ForeignKey string   `yaml:"foreign_key,omitempty"`
	Through    *Through `yaml:"through,omitempty"`
}

// Through names the join model of a many-to-many edge and its two sides.
type Through struct {
	Model string `yaml:"model"`
	From  string `yaml:"from"`
	To    string `yaml:"to"`
}

// Definitions decodes a stream of YAML documents into model definitions.
func Definitions(r io.Reader) ([]modelq.Definition, error) {
	dec := yaml.NewDecoder(r)
	var defs []modelq.Definition
	for {
		var s Schema
		if err := dec.Decode(&s); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("load: decode schema: %w", err)
		}
		def, err := s.Definition()
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// File decodes the YAML documents in the given file.
func File(path string) ([]modelq.Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	defer f.Close()
	return Definitions(f)
}

// Definition converts the YAML schema to a model definition.
func (s *Schema) Definition() (modelq.Definition, error) {
	if s.Name == "" {
		return modelq.Definition{}, errors.New("load: schema with empty name")
	}
	def := modelq.Definition{Name: s.Name}
	for _, f := range s.Fields {
		b, err := f.builder(s.Name)
		if err != nil {
			return modelq.Definition{}, err
		}
		def.Fields = append(def.Fields, b)
	}
	for _, e := range s.Edges {
		b, err := e.builder(s.Name)
		if err != nil {
			return modelq.Definition{}, err
		}
		def.Edges = append(def.Edges, b)
	}
	return def, nil
}

func (f *Field) builder(model string) (*field.Builder, error) {
	var b *field.Builder
	switch f.Type {
	case "text":
		b = field.Text(f.Name)
	case "string":
		size := f.Size
		if size == 0 {
			size = 255
		}
		b = field.String(f.Name, size)
	case "int", "integer":
		b = field.Int(f.Name)
	case "int64", "bigint":
		b = field.Int64(f.Name)
	case "serial":
		b = field.Serial(f.Name)
	case "bigserial":
		b = field.BigSerial(f.Name)
	case "decimal":
		b = field.Decimal(f.Name, f.Args...)
	case "float":
		b = field.Float(f.Name)
	case "bool", "boolean":
		b = field.Bool(f.Name)
	case "date":
		b = field.Date(f.Name)
	case "timestamp":
		b = field.Timestamp(f.Name)
	case "time":
		b = field.TimeOfDay(f.Name)
	case "interval":
		b = field.Interval(f.Name)
	case "json":
		b = field.JSON(f.Name)
	case "bytes":
		b = field.Bytes(f.Name)
	case "uuid":
		b = field.UUID(f.Name)
	case "references":
		if f.Ref == "" {
			return nil, fmt.Errorf("load: %s.%s: references requires ref", model, f.Name)
		}
		b = field.References(f.Name, f.Ref)
	case "fulltext":
		b = field.FullText(f.Name)
	case "count":
		if f.Of == "" {
			return nil, fmt.Errorf("load: %s.%s: count requires of", model, f.Name)
		}
		b = field.Count(f.Name, f.Of)
	default:
		return nil, fmt.Errorf("load: %s.%s: unknown field type %q", model, f.Name, f.Type)
	}
	if f.Column != "" {
		b.Column(f.Column)
	}
	if f.NotNull {
		b.NotNull()
	}
	if f.Unique {
		b.Unique()
	}
	if f.PrimaryKey {
		b.PrimaryKey()
	}
	if f.Hidden {
		b.Hidden()
	}
	if f.Virtual {
		b.Virtual()
	}
	if f.Aggregate {
		b.Aggregate()
	}
	if f.RawWhere != "" {
		b.RawWhere(f.RawWhere)
	}
	return b, nil
}

func (e *Edge) builder(model string) (*edge.Builder, error) {
	if e.Target == "" {
		return nil, fmt.Errorf("load: %s.%s: edge requires target", model, e.Name)
	}
	var b *edge.Builder
	switch e.Type {
	case "belongsTo":
		b = edge.BelongsTo(e.Name, e.Target)
	case "hasOne":
		b = edge.HasOne(e.Name, e.Target)
	case "hasMany":
		b = edge.HasMany(e.Name, e.Target)
	case "manyToMany":
		if e.Through == nil {
			return nil, fmt.Errorf("load: %s.%s: manyToMany requires through", model, e.Name)
		}
		b = edge.ManyToMany(e.Name, e.Target).
			Through(e.Through.Model, e.Through.From, e.Through.To)
	default:
		return nil, fmt.Errorf("load: %s.%s: unknown edge type %q", model, e.Name, e.Type)
	}
	if e.Required {
		b.Required()
	}
	if e.AutoFetch {
		b.AutoFetch()
	}
	if e.ForeignKey != "" {
		b.ForeignKey(e.ForeignKey)
	}
	return b, nil
}
