package solr

import (
	"errors"
	"fmt"
)

// ErrUnexpectedResponse signals a response body that could not be interpreted.
var ErrUnexpectedResponse = errors.New("solr: unexpected response")

// Op names used for error context.
const (
	OpSystemInfo       = "admin/info/system"
	OpListCollections  = "collections.LIST"
	OpListAliases      = "collections.LISTALIASES"
	OpDeleteAlias      = "collections.DELETEALIAS"
	OpCreateCollection = "collections.CREATE"
	OpDeleteCollection = "collections.DELETE"
	OpListCores        = "cores.STATUS"
	OpCreateCore       = "cores.CREATE"
	OpListConfigSets   = "configs.LIST"
	OpAddFields        = "schema.add-field"
	OpGetSchema        = "schema"
	OpSelect           = "select"
	OpUpdate           = "update"
)

// Error wraps a failed engine call with the operation and the engine's response.
type Error struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Body != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Body)
	default:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }
