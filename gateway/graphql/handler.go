package graphql

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	gqlgen "github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/c360/filmgraph/metric"
)

// Envelope is the response body: the GraphQL response plus the HTTP status.
type Envelope struct {
	gqlgen.Response
	Status int `json:"status"`
}

// ContextFunc builds the per-request application context.
type ContextFunc[C any] func(r *http.Request) (C, error)

// Handler serves a Schema over HTTP.
type Handler[C any] struct {
	schema  *Schema[C]
	newCtx  ContextFunc[C]
	logger  *slog.Logger
	metrics *metric.Metrics
}

// NewHandler binds schema to HTTP. metrics may be nil.
func NewHandler[C any](schema *Schema[C], newCtx ContextFunc[C], logger *slog.Logger, metrics *metric.Metrics) *Handler[C] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler[C]{
		schema:  schema,
		newCtx:  newCtx,
		logger:  logger,
		metrics: metrics,
	}
}

// ServeHTTP decodes, executes and encodes one request. The status is 200 when
// the operation executed, whatever its field errors, and 400 otherwise.
func (h *Handler[C]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	operation := "invalid"
	var env Envelope

	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("Panic while serving GraphQL request",
				"panic", rec,
				"stack", string(debug.Stack()))
			env = Envelope{
				Response: gqlgen.Response{Errors: gqlerror.List{
					newError(CodeInternal, nil, "Internal server error"),
				}},
				Status: http.StatusBadRequest,
			}
		}
		h.record(operation, env, time.Since(start))
		h.write(w, env)
	}()

	env = h.serve(r, &operation)
}

func (h *Handler[C]) serve(r *http.Request, operation *string) Envelope {
	req, err := DecodeRequest(r)
	if err != nil {
		return failureEnvelope(wrapError(err, nil, nil))
	}

	rc, err := h.newCtx(r)
	if err != nil {
		h.logger.Warn("Failed to build request context", "error", err)
		return failureEnvelope(wrapError(fmt.Errorf("build request context: %w", err), nil, nil))
	}

	result := h.schema.Execute(r.Context(), rc, req)
	*operation = result.Operation()

	status := http.StatusOK
	if !result.OK() {
		status = http.StatusBadRequest
	}
	return Envelope{Response: result.Response, Status: status}
}

func failureEnvelope(err *gqlerror.Error) Envelope {
	return Envelope{
		Response: gqlgen.Response{Errors: gqlerror.List{err}},
		Status:   http.StatusBadRequest,
	}
}

func (h *Handler[C]) record(operation string, env Envelope, duration time.Duration) {
	h.metrics.RecordRequest(operation, env.Status, duration)
	for _, e := range env.Errors {
		code, _ := e.Extensions["code"].(string)
		h.metrics.RecordFieldError(code)
	}

	if env.Status != http.StatusOK {
		h.logger.Debug("GraphQL request rejected",
			"operation", operation,
			"status", env.Status,
			"errors", len(env.Errors),
			"duration", duration)
	}
}

func (h *Handler[C]) write(w http.ResponseWriter, env Envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("Failed to encode GraphQL response", "error", err)
		env = failureEnvelope(newError(CodeInternal, nil, "encode response"))
		body, _ = json.Marshal(env)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.Status)
	if _, err := w.Write(body); err != nil {
		h.logger.Debug("Failed to write GraphQL response", "error", err)
	}
}
