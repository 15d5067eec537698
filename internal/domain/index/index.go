package index

import (
	"fmt"
	"regexp"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// Type distinguishes the kinds of searchable targets a cluster exposes.
type Type string

const (
	// TypeCollection is a SolrCloud collection.
	TypeCollection Type = "collection"
	// TypeAlias is a collection alias pointing at one or more collections.
	TypeAlias Type = "alias"
	// TypeCore is a standalone core.
	TypeCore Type = "core"
)

// IsValid checks if the index type is known.
func (t Type) IsValid() bool {
	return t == TypeCollection || t == TypeAlias || t == TypeCore
}

// Index is a named searchable target (immutable value object).
type Index struct {
	name        string
	indexType   Type
	collections []string
}

// New creates an Index. Members are only kept for aliases.
func New(name string, t Type, collections ...string) Index {
	var members []string
	if t == TypeAlias && len(collections) > 0 {
		members = append([]string(nil), collections...)
	}
	return Index{name: name, indexType: t, collections: members}
}

// Name returns the index name.
func (i Index) Name() string { return i.name }

// Type returns the index type.
func (i Index) Type() Type { return i.indexType }

// Collections returns the alias member collections (empty for collections and cores).
func (i Index) Collections() []string {
	if len(i.collections) == 0 {
		return []string{}
	}
	return append([]string(nil), i.collections...)
}

// ValidateName checks that name is usable as a collection, core and config set name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("index name is required")
	}
	if len(name) > 128 {
		return fmt.Errorf("index name too long (max 128)")
	}
	if !nameRegex.MatchString(name) || name == "." || name == ".." {
		return fmt.Errorf("index name must be alphanumeric with underscores, dots and hyphens")
	}
	return nil
}
