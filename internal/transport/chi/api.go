package chi

import (
	"net/http"
)

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned by the API.
const (
	ErrorCodeBadRequest         ErrorCode = "bad_request"
	ErrorCodeUnauthorized       ErrorCode = "unauthorized"
	ErrorCodeValidationFailed   ErrorCode = "validation_failed"
	ErrorCodeIndexNotFound      ErrorCode = "index_not_found"
	ErrorCodeIndexAlreadyExists ErrorCode = "index_already_exists"
	ErrorCodeUnsupportedMode    ErrorCode = "unsupported_mode"
	ErrorCodePayloadTooLarge    ErrorCode = "payload_too_large"
	ErrorCodeEngineUnavailable  ErrorCode = "engine_unavailable"
	ErrorCodeTopologyUnknown    ErrorCode = "topology_unknown"
	ErrorCodeCreateFailed       ErrorCode = "create_failed"
	ErrorCodeDeleteFailed       ErrorCode = "delete_failed"
	ErrorCodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Detail  *string   `json:"detail,omitempty"`
}

// IndexResponse describes one index.
type IndexResponse struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Collections []string `json:"collections"`
}

// IndexListResponse wraps a list of indexes.
type IndexListResponse struct {
	Items []IndexResponse `json:"items"`
}

// CreateIndexRequest is the body of POST /indexes.
// Fields are attribute maps; unknown attributes are dropped.
type CreateIndexRequest struct {
	Name           string           `json:"name"`
	Fields         []map[string]any `json:"fields"`
	ConfigSet      *string          `json:"config_set,omitempty"`
	UniqueKeyField *string          `json:"unique_key_field,omitempty"`
	DefaultField   *string          `json:"df,omitempty"`
}

// ConfigListResponse wraps config set names.
type ConfigListResponse struct {
	Items []string `json:"items"`
}

// HealthResponse reports component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ListIndexesParams are the query parameters of GET /indexes.
type ListIndexesParams struct {
	IncludeCores *bool `form:"include_cores,omitempty" json:"include_cores,omitempty"`
}

// DeleteIndexParams are the query parameters of DELETE /indexes/{name}.
type DeleteIndexParams struct {
	KeepConfig *bool `form:"keep_config,omitempty" json:"keep_config,omitempty"`
}

// SampleIndexParams are the query parameters of GET /indexes/{name}/sample.
type SampleIndexParams struct {
	Rows *int `form:"rows,omitempty" json:"rows,omitempty"`
}

// UpdateIndexParams are the query parameters of POST /indexes/{name}/update.
// CSV loader options (separator, fieldnames, ...) are read from the query as-is.
type UpdateIndexParams struct {
	ContentType *string `form:"content_type,omitempty" json:"content_type,omitempty"`
	Version     *string `form:"version,omitempty" json:"version,omitempty"`
}

// ServerInterface is the set of API handlers.
type ServerInterface interface {
	// (GET /indexes)
	ListIndexes(w http.ResponseWriter, r *http.Request, params ListIndexesParams)
	// (POST /indexes)
	CreateIndex(w http.ResponseWriter, r *http.Request)
	// (DELETE /indexes/{name})
	DeleteIndex(w http.ResponseWriter, r *http.Request, name string, params DeleteIndexParams)
	// (POST /indexes/{name}/update)
	UpdateIndex(w http.ResponseWriter, r *http.Request, name string, params UpdateIndexParams)
	// (GET /indexes/{name}/sample)
	SampleIndex(w http.ResponseWriter, r *http.Request, name string, params SampleIndexParams)
	// (GET /indexes/{name}/schema)
	GetSchema(w http.ResponseWriter, r *http.Request, name string)
	// (GET /configs)
	ListConfigs(w http.ResponseWriter, r *http.Request)
	// (DELETE /aliases/{name})
	DeleteAlias(w http.ResponseWriter, r *http.Request, name string)
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}
