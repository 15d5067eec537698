package indexer

import "github.com/kailas-cloud/indexer/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound          = domain.ErrNotFound
	ErrAlreadyExists     = domain.ErrAlreadyExists
	ErrInvalidSchema     = domain.ErrInvalidSchema
	ErrInvalidRequest    = domain.ErrInvalidRequest
	ErrUnsupportedMode   = domain.ErrUnsupportedMode
	ErrTopology          = domain.ErrTopology
	ErrEngineUnavailable = domain.ErrEngineUnavailable
	ErrCreateFailed      = domain.ErrCreateFailed
	ErrDeleteFailed      = domain.ErrDeleteFailed
	ErrPayloadTooLarge   = domain.ErrPayloadTooLarge
)

// Error is the user-facing failure returned by lifecycle operations.
// Detail carries the engine or coordination-service message.
type Error = domain.Error
