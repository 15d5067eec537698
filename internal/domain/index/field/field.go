package field

import (
	"fmt"
	"strconv"
	"strings"
)

// Attribute names accepted when an index is created. Anything else is dropped.
const (
	AttrName        = "name"
	AttrType        = "type"
	AttrIndexed     = "indexed"
	AttrStored      = "stored"
	AttrMultiValued = "multivalued"
	// AttrFlags carries a flag string (see ParseFlags). Explicit booleans win over it.
	AttrFlags = "flags"
)

var allowedAttributes = map[string]bool{
	AttrName:        true,
	AttrType:        true,
	AttrIndexed:     true,
	AttrStored:      true,
	AttrMultiValued: true,
}

// Field is an immutable schema field definition used at index creation time.
type Field struct {
	name        string
	fieldType   string
	indexed     bool
	stored      bool
	multiValued bool
}

// Option tweaks a Field during construction.
type Option func(*Field)

// WithIndexed sets the indexed flag (default true).
func WithIndexed(v bool) Option { return func(f *Field) { f.indexed = v } }

// WithStored sets the stored flag (default true).
func WithStored(v bool) Option { return func(f *Field) { f.stored = v } }

// WithMultiValued sets the multivalued flag (default false).
func WithMultiValued(v bool) Option { return func(f *Field) { f.multiValued = v } }

// New validates and creates a Field. Name and type are required.
func New(name, fieldType string, opts ...Option) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("field name is required")
	}
	if strings.ContainsAny(name, " \t\n/") {
		return Field{}, fmt.Errorf("field name %q contains invalid characters", name)
	}
	if fieldType == "" {
		return Field{}, fmt.Errorf("field type is required for %q", name)
	}
	f := Field{name: name, fieldType: fieldType, indexed: true, stored: true}
	for _, o := range opts {
		o(&f)
	}
	return f, nil
}

// FromAttributes builds a Field from a loosely typed attribute map.
// Unrecognized attributes are silently dropped. Boolean attributes accept
// bool values or their string forms.
func FromAttributes(attrs map[string]any) (Field, error) {
	clean := Sanitize(attrs)

	name, _ := clean[AttrName].(string)
	fieldType, _ := clean[AttrType].(string)

	var opts []Option
	if flags, ok := attrs[AttrFlags].(string); ok {
		opts = append(opts, ParseFlags(flags).Options()...)
	}
	for _, a := range []struct {
		key string
		opt func(bool) Option
	}{
		{AttrIndexed, WithIndexed},
		{AttrStored, WithStored},
		{AttrMultiValued, WithMultiValued},
	} {
		raw, ok := clean[a.key]
		if !ok {
			continue
		}
		v, err := toBool(raw)
		if err != nil {
			return Field{}, fmt.Errorf("field %q attribute %s: %w", name, a.key, err)
		}
		opts = append(opts, a.opt(v))
	}

	return New(name, fieldType, opts...)
}

// Sanitize returns a copy of attrs restricted to the allowed attribute set.
func Sanitize(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		key := strings.ToLower(k)
		if allowedAttributes[key] {
			out[key] = v
		}
	}
	return out
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, fmt.Errorf("invalid boolean %q", b)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("invalid boolean %v", v)
	}
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// Type returns the engine field type (e.g. "text_general", "pdate").
func (f Field) Type() string { return f.fieldType }

// Indexed reports whether the field is searchable.
func (f Field) Indexed() bool { return f.indexed }

// Stored reports whether the field value is retrievable.
func (f Field) Stored() bool { return f.stored }

// MultiValued reports whether the field holds multiple values.
func (f Field) MultiValued() bool { return f.multiValued }
