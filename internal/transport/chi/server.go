package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/indexer/internal/domain"
	domindex "github.com/kailas-cloud/indexer/internal/domain/index"
	"github.com/kailas-cloud/indexer/internal/domain/index/field"
	"github.com/kailas-cloud/indexer/internal/solr"
	healthuc "github.com/kailas-cloud/indexer/internal/usecase/health"
	indexuc "github.com/kailas-cloud/indexer/internal/usecase/index"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string, detail *string) bool

// IndexService is the index lifecycle coordinator as seen by the API.
type IndexService interface {
	GetIndexes(ctx context.Context, includeCores bool) ([]domindex.Index, error)
	CreateIndex(ctx context.Context, req indexuc.CreateRequest) error
	Index(ctx context.Context, name string, req indexuc.UpdateRequest) (json.RawMessage, error)
	DeleteIndex(ctx context.Context, name string, keepConfig bool) error
	SampleIndex(ctx context.Context, name string, rows int) (json.RawMessage, error)
	ListConfigs(ctx context.Context) ([]string, error)
	ListSchema(ctx context.Context, name string) (json.RawMessage, error)
	DeleteAlias(ctx context.Context, name string) error
	MaxUploadBytes() int64
}

// Server implements ServerInterface.
type Server struct {
	indexes       IndexService
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(indexes IndexService, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		indexes: indexes,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeIndexNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, ErrorCodeIndexAlreadyExists),
		sentinelHandler(domain.ErrInvalidSchema, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeBadRequest),
		sentinelHandler(domain.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge),
		sentinelHandler(domain.ErrUnsupportedMode, http.StatusNotImplemented, ErrorCodeUnsupportedMode),
		sentinelHandler(domain.ErrTopology, http.StatusBadGateway, ErrorCodeTopologyUnknown),
		sentinelHandler(domain.ErrEngineUnavailable, http.StatusBadGateway, ErrorCodeEngineUnavailable),
		sentinelHandler(domain.ErrCreateFailed, http.StatusInternalServerError, ErrorCodeCreateFailed),
		sentinelHandler(domain.ErrDeleteFailed, http.StatusInternalServerError, ErrorCodeDeleteFailed),
	}
	return s
}

// ListIndexes handles GET /indexes.
func (s *Server) ListIndexes(w http.ResponseWriter, r *http.Request, params ListIndexesParams) {
	indexes, err := s.indexes.GetIndexes(r.Context(), derefBool(params.IncludeCores, false))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]IndexResponse, len(indexes))
	for i, idx := range indexes {
		items[i] = indexToResponse(idx)
	}
	writeJSON(w, http.StatusOK, IndexListResponse{Items: items})
}

// CreateIndex handles POST /indexes.
func (s *Server) CreateIndex(w http.ResponseWriter, r *http.Request) {
	var req CreateIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "Index name is required")
		return
	}

	fields, err := fieldsFromRequest(req.Fields)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	err = s.indexes.CreateIndex(r.Context(), indexuc.CreateRequest{
		Name:         req.Name,
		Fields:       fields,
		ConfigSet:    derefString(req.ConfigSet),
		UniqueKey:    derefString(req.UniqueKeyField),
		DefaultField: derefString(req.DefaultField),
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

// DeleteIndex handles DELETE /indexes/{name}. The config set is kept unless keep_config=false.
func (s *Server) DeleteIndex(w http.ResponseWriter, r *http.Request, name string, params DeleteIndexParams) {
	if err := s.indexes.DeleteIndex(r.Context(), name, derefBool(params.KeepConfig, true)); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateIndex handles POST /indexes/{name}/update.
func (s *Server) UpdateIndex(w http.ResponseWriter, r *http.Request, name string, params UpdateIndexParams) {
	limit := s.indexes.MaxUploadBytes()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit+1))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge,
				fmt.Sprintf("Upload exceeds the limit of %d bytes", limit))
			return
		}
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Could not read request body")
		return
	}

	contentType := derefString(params.ContentType)
	if contentType == "" {
		contentType = contentTypeFromHeader(r.Header.Get("Content-Type"))
	}

	options := make(map[string]string)
	for k, v := range r.URL.Query() {
		if k == "content_type" || k == "version" || len(v) == 0 {
			continue
		}
		options[k] = v[0]
	}

	res, err := s.indexes.Index(r.Context(), name, indexuc.UpdateRequest{
		Data:        data,
		ContentType: contentType,
		Version:     derefString(params.Version),
		Options:     options,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, res)
}

// SampleIndex handles GET /indexes/{name}/sample.
func (s *Server) SampleIndex(w http.ResponseWriter, r *http.Request, name string, params SampleIndexParams) {
	rows := 0
	if params.Rows != nil {
		rows = *params.Rows
	}
	res, err := s.indexes.SampleIndex(r.Context(), name, rows)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, res)
}

// GetSchema handles GET /indexes/{name}/schema.
func (s *Server) GetSchema(w http.ResponseWriter, r *http.Request, name string) {
	res, err := s.indexes.ListSchema(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, res)
}

// ListConfigs handles GET /configs.
func (s *Server) ListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.indexes.ListConfigs(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ConfigListResponse{Items: configs})
}

// DeleteAlias handles DELETE /aliases/{name}.
func (s *Server) DeleteAlias(w http.ResponseWriter, r *http.Request, name string) {
	if err := s.indexes.DeleteAlias(r.Context(), name); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns the user-facing message of err without exposing internals.
// Only *domain.Error carries a detail.
func safeDomainMessage(err error) (string, *string) {
	var de *domain.Error
	if errors.As(err, &de) {
		if de.Detail == "" {
			return de.Message, nil
		}
		detail := de.Detail
		return de.Message, &detail
	}
	return "internal error", nil
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string, detail *string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeJSON(w, status, ErrorResponse{Code: code, Message: msg, Detail: detail})
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg, detail := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg, detail) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func indexToResponse(idx domindex.Index) IndexResponse {
	return IndexResponse{
		Name:        idx.Name(),
		Type:        string(idx.Type()),
		Collections: idx.Collections(),
	}
}

func fieldsFromRequest(raw []map[string]any) ([]field.Field, error) {
	fields := make([]field.Field, 0, len(raw))
	for i, attrs := range raw {
		f, err := field.FromAttributes(attrs)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// contentTypeFromHeader maps a MIME type to an update content type. Unknown types default to csv.
func contentTypeFromHeader(h string) string {
	mt, _, err := mime.ParseMediaType(h)
	if err != nil {
		return solr.ContentCSV
	}
	switch mt {
	case "application/json":
		return solr.ContentJSON
	case "application/xml", "text/xml":
		return solr.ContentXML
	default:
		return solr.ContentCSV
	}
}

func derefBool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
