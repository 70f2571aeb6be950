// Package tags derives cache-invalidation tags from SQL statements: the
// known tables a mutating statement mentions.
//
// Matching is textual. By default a table matches when its name occurs
// anywhere in the statement, so a table named "order" also matches
// "orders". WithWordBoundary restricts matches to whole identifiers.
package tags

import (
	"context"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/dan-strohschein/resilientdb/dialect"
)

// ErrCatalogEmpty is returned when introspection finds no tables at all,
// which usually means a wrong schema list.
var ErrCatalogEmpty = errors.New("table catalog is empty")

// mutating matches statements that change data or types.
var mutating = regexp.MustCompile(`(?i)\b(UPDATE|INSERT\s+INTO|DELETE|ALTER\s+TYPE|CREATE\s+TYPE)\s`)

// Source is the connection a Resolver introspects. *client.Client
// satisfies it.
type Source interface {
	Driver() dialect.Kind
	DatabaseName() string
	Column(ctx context.Context, statement string, params ...interface{}) ([]string, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSchemas restricts Postgres introspection to schemas. Tables outside
// "public" are schema-qualified.
func WithSchemas(schemas ...string) Option {
	return func(r *Resolver) {
		r.schemas = append([]string(nil), schemas...)
	}
}

// WithWordBoundary makes a table match only when it is not surrounded by
// identifier characters (letters, digits, underscore, dot).
func WithWordBoundary() Option {
	return func(r *Resolver) {
		r.wordBoundary = true
	}
}

// Resolver maps statements to the catalog tables they reference.
type Resolver struct {
	database     string
	tables       []string
	schemas      []string
	wordBoundary bool
}

// NewResolver loads the table catalog of src's database, from cache when an
// earlier Resolver stored it, otherwise by introspection, which is then
// cached. Synthetic engine tables come first, then introspected ones in
// query order.
func NewResolver(ctx context.Context, src Source, cache Cache, opts ...Option) (*Resolver, error) {
	r := &Resolver{database: src.DatabaseName()}
	for _, opt := range opts {
		opt(r)
	}
	if r.schemas == nil {
		if s, ok := src.(interface{ Schemas() []string }); ok {
			r.schemas = s.Schemas()
		}
	}

	if cache != nil {
		if tables, ok := cache.Get(r.database); ok && len(tables) > 0 {
			r.tables = tables
			return r, nil
		}
	}

	d, err := dialect.For(src.Driver())
	if err != nil {
		return nil, err
	}

	tables := append([]string(nil), d.SyntheticTables()...)

	query, args := d.CatalogQuery(r.database, r.schemas)
	names, err := src.Column(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "introspect tables of %s", r.database)
	}
	tables = append(tables, names...)

	if len(names) == 0 {
		return nil, errors.Wrapf(ErrCatalogEmpty, "database %s, schemas %v", r.database, r.schemas)
	}

	if cache != nil {
		cache.Set(r.database, tables)
	}
	r.tables = tables
	return r, nil
}

// NewStaticResolver builds a Resolver over a fixed catalog.
func NewStaticResolver(database string, tables []string, opts ...Option) *Resolver {
	r := &Resolver{database: database, tables: append([]string(nil), tables...)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Database returns the database the catalog belongs to.
func (r *Resolver) Database() string { return r.database }

// Catalog returns a copy of the known table names.
func (r *Resolver) Catalog() []string { return append([]string(nil), r.tables...) }

// Tables returns the catalog tables referenced by statement, in catalog order.
func (r *Resolver) Tables(statement string) []string {
	var out []string
	for _, table := range r.tables {
		if r.matches(statement, table) {
			out = append(out, table)
		}
	}
	return out
}

// MutatingTables is Tables restricted to statements that insert, update,
// delete or change types. It returns nil for anything else.
func (r *Resolver) MutatingTables(statement string) []string {
	if !IsMutating(statement) {
		return nil
	}
	return r.Tables(statement)
}

// IsMutating reports whether statement inserts, updates, deletes or
// creates or alters a type.
func IsMutating(statement string) bool {
	return mutating.MatchString(statement)
}

func (r *Resolver) matches(statement, table string) bool {
	if table == "" {
		return false
	}
	if !r.wordBoundary {
		return strings.Contains(statement, table)
	}

	for offset := 0; ; {
		idx := strings.Index(statement[offset:], table)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(table)
		if (start == 0 || !isIdentByte(statement[start-1])) &&
			(end == len(statement) || !isIdentByte(statement[end])) {
			return true
		}
		offset = start + 1
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '.' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
