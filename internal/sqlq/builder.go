package sqlq

import "strings"

// Builder accumulates SQL text and its bound arguments. Every value reaches the
// database through Arg; only identifiers and fixed fragments are written as text.
type Builder struct {
	d    Dialect
	sb   strings.Builder
	args []any
}

// NewBuilder returns an empty builder for the dialect.
func NewBuilder(d Dialect) *Builder {
	return &Builder{d: d}
}

// Dialect returns the dialect the builder renders for.
func (b *Builder) Dialect() Dialect {
	return b.d
}

// Write appends raw SQL fragments.
func (b *Builder) Write(parts ...string) *Builder {
	for _, p := range parts {
		b.sb.WriteString(p)
	}
	return b
}

// Arg binds v and returns its placeholder. Call it in the same order the
// placeholders appear in the text.
func (b *Builder) Arg(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

// List binds every value and returns the comma-separated placeholders.
func (b *Builder) List(values []string) string {
	marks := make([]string, len(values))
	for i, v := range values {
		marks[i] = b.Arg(v)
	}
	return strings.Join(marks, ", ")
}

// Ident quotes an identifier that passed ValidateIdent.
func (b *Builder) Ident(name string) string {
	return b.d.QuoteIdent(name)
}

// Column returns alias.name with the name quoted.
func (b *Builder) Column(alias, name string) string {
	return alias + "." + b.d.QuoteIdent(name)
}

// SQL returns the accumulated statement.
func (b *Builder) SQL() string {
	return b.sb.String()
}

// Args returns the bound arguments in placeholder order.
func (b *Builder) Args() []any {
	return b.args
}
