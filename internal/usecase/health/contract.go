package health

import (
	"context"

	"github.com/kailas-cloud/indexer/internal/coord"
)

// EnginePinger checks search engine availability.
type EnginePinger interface {
	Ping(ctx context.Context) error
}

// CoordinationOpener opens coordination-service sessions.
type CoordinationOpener = coord.Opener
