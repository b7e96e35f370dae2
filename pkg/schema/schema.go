// Package schema provides an explicit registry built at model-definition
// time. Each declared field path maps to a Field value whose comparator
// methods produce query terms and whose update methods produce instructions,
// with no runtime attribute interception involved.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/detaorm/base_sdk_go/pkg/query"
	"github.com/detaorm/base_sdk_go/pkg/record"
	"github.com/detaorm/base_sdk_go/pkg/update"
)

// KeyField is the store-assigned primary key present on every record.
const KeyField = "key"

// ErrFieldRedeclared reports two fields registered under the same path.
var ErrFieldRedeclared = errors.New("schema: field redeclared")

// Field is a typed accessor for one declared field path.
type Field struct {
	path string
	def  record.Optional[any]
}

// NewField declares a field at the given dotted path.
func NewField(path string) Field {
	return Field{path: path}
}

// WithDefault declares the value a fresh record receives for this field.
// Declaring WithDefault(nil) is distinct from not declaring a default.
func (f Field) WithDefault(v any) Field {
	f.def = record.Some(v)
	return f
}

// Path returns the dotted path this field was declared at.
func (f Field) Path() string { return f.path }

// Default returns the declared default, if any.
func (f Field) Default() record.Optional[any] { return f.def }

// Comparators. Each returns an atomic filter term on this field.

func (f Field) Eq(v any) query.Node  { return query.NewTerm(f.path, query.Eq, v) }
func (f Field) Ne(v any) query.Node  { return query.NewTerm(f.path, query.Ne, v) }
func (f Field) Gt(v any) query.Node  { return query.NewTerm(f.path, query.Gt, v) }
func (f Field) Lt(v any) query.Node  { return query.NewTerm(f.path, query.Lt, v) }
func (f Field) Gte(v any) query.Node { return query.NewTerm(f.path, query.Gte, v) }
func (f Field) Lte(v any) query.Node { return query.NewTerm(f.path, query.Lte, v) }

// Prefix matches string values beginning with the given prefix.
func (f Field) Prefix(prefix string) query.Node {
	return query.NewTerm(f.path, query.Prefix, prefix)
}

// Range matches values between lo and hi inclusive.
func (f Field) Range(lo, hi any) query.Node {
	return query.NewTerm(f.path, query.Range, []any{lo, hi})
}

func (f Field) Contains(v any) query.Node {
	return query.NewTerm(f.path, query.Contains, v)
}

func (f Field) NotContains(v any) query.Node {
	return query.NewTerm(f.path, query.NotContains, v)
}

// Update constructors. Each returns a single-path instruction.

func (f Field) Set(v any) update.Op {
	return update.Set(map[string]any{f.path: v})
}

func (f Field) Increment(delta float64) update.Op {
	return update.Increment(map[string]float64{f.path: delta})
}

func (f Field) Append(values ...any) update.Op {
	return update.Append(map[string][]any{f.path: values})
}

func (f Field) Prepend(values ...any) update.Op {
	return update.Prepend(map[string][]any{f.path: values})
}

func (f Field) Delete() update.Op {
	return update.Delete(f.path)
}

// Schema is the registry of declared fields for one record set ("base").
type Schema struct {
	base     string
	fields   map[string]Field
	order    []string
	defaults map[string]any
}

// New registers the fields of a record set. The "key" field is declared
// implicitly when not listed. Defaults are assembled into their nested form
// here, once, and deep-copied per record instantiation so no record shares
// mutable default structures with another.
func New(baseName string, fields ...Field) (*Schema, error) {
	if strings.TrimSpace(baseName) == "" {
		return nil, errors.New("schema: base name is required")
	}
	s := &Schema{
		base:     baseName,
		fields:   make(map[string]Field, len(fields)+1),
		defaults: make(map[string]any),
	}
	for _, f := range fields {
		if strings.TrimSpace(f.path) == "" {
			return nil, errors.New("schema: field path is required")
		}
		if _, exists := s.fields[f.path]; exists {
			return nil, fmt.Errorf("%w: %q on base %q", ErrFieldRedeclared, f.path, baseName)
		}
		s.fields[f.path] = f
		s.order = append(s.order, f.path)
		if def, ok := f.def.Get(); ok {
			record.SetPath(s.defaults, f.path, def)
		}
	}
	if _, ok := s.fields[KeyField]; !ok {
		s.fields[KeyField] = NewField(KeyField)
		s.order = append([]string{KeyField}, s.order...)
	}
	return s, nil
}

// MustNew is New for package-level schema declarations.
func MustNew(baseName string, fields ...Field) *Schema {
	s, err := New(baseName, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Base returns the record-set name this schema describes.
func (s *Schema) Base() string { return s.base }

// Field looks up a declared field by path.
func (s *Schema) Field(path string) (Field, bool) {
	f, ok := s.fields[path]
	return f, ok
}

// Fields returns the declared fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, 0, len(s.order))
	for _, path := range s.order {
		out = append(out, s.fields[path])
	}
	return out
}

// NewRecord builds a snapshot from a fresh copy of the schema defaults with
// the supplied values assigned over them, values keyed by dotted path.
func (s *Schema) NewRecord(values map[string]any) record.Snapshot {
	data := record.NewSnapshot(s.defaults).Fields()
	for path, v := range values {
		record.SetPath(data, path, v)
	}
	return record.NewSnapshot(data)
}
