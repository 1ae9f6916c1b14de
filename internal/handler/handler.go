package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"metacatalog/internal/apperror"
	"metacatalog/internal/auth"
	"metacatalog/internal/domain"
	"metacatalog/internal/hub"
	"metacatalog/internal/metrics"
	"metacatalog/internal/service"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 8 << 20

// Options configures the HTTP layer
type Options struct {
	CORSOrigins []string
	Auth        auth.Options
	// IsAdmin reports whether a principal is a configured administrator
	IsAdmin func(principal string) bool
	// TokenTTL is the lifetime of issued tokens when the request names none
	TokenTTL time.Duration
}

// Handler serves the catalog REST API
type Handler struct {
	catalog  *service.Catalog
	hub      *hub.Hub
	metrics  *metrics.Collector
	logger   *zap.Logger
	validate *validator.Validate
	opts     Options
}

// New creates the handler. sseHub and collector may be nil.
func New(catalog *service.Catalog, sseHub *hub.Hub, collector *metrics.Collector, logger *zap.Logger, opts Options) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.IsAdmin == nil {
		opts.IsAdmin = func(string) bool { return false }
	}
	return &Handler{
		catalog:  catalog,
		hub:      sseHub,
		metrics:  collector,
		logger:   logger,
		validate: newValidator(),
		opts:     opts,
	}
}

// Routes builds the router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.corsOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", h.principalHeader()},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(h.observe)

	r.Get("/health", h.Health)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(h.opts.Auth, h.catalog.Tokens, h.logger))

		users := newResource(h, h.catalog.Users, (*domain.CreateUser).ToEntity, false)
		r.Route("/users", func(r chi.Router) {
			users.mount(r)
			r.Post("/{id}/token", h.IssueToken)
			r.Delete("/{id}/token", h.RevokeTokens)
		})
		r.Route("/teams", newResource(h, h.catalog.Teams, (*domain.CreateTeam).ToEntity, false).mount)
		r.Route("/services/pipelineServices",
			newResource(h, h.catalog.PipelineServices, (*domain.CreatePipelineService).ToEntity, false).mount)
		r.Route("/services/databaseServices",
			newResource(h, h.catalog.DatabaseServices, (*domain.CreateDatabaseService).ToEntity, false).mount)
		r.Route("/databases", newResource(h, h.catalog.Databases, (*domain.CreateDatabase).ToEntity, true).mount)
		r.Route("/tables", newResource(h, h.catalog.Tables, (*domain.CreateTable).ToEntity, true).mount)
		r.Route("/pipelines", newResource(h, h.catalog.Pipelines, (*domain.CreatePipeline).ToEntity, true).mount)
		r.Route("/glossaries", newResource(h, h.catalog.Glossaries, (*domain.CreateGlossary).ToEntity, true).mount)
		r.Route("/glossaryTerms",
			newResource(h, h.catalog.GlossaryTerms, (*domain.CreateGlossaryTerm).ToEntity, true).mount)

		r.Route("/tags", h.mountTags)

		r.Get("/events", h.ListEvents)
		if h.hub != nil {
			r.Handle("/events/stream", h.hub)
		}
		r.Get("/export", h.Export)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, apperror.NotFoundf("no route for %s %s", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, &apperror.AppError{
			Type:       apperror.ErrorTypeValidation,
			Message:    fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path),
			HTTPStatus: http.StatusMethodNotAllowed,
		})
	})
	return r
}

// Health reports that the server is up
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]any{
		"status":  "healthy",
		"clients": h.clientCount(),
	}, http.StatusOK)
}

func (h *Handler) clientCount() int {
	if h.hub == nil {
		return 0
	}
	return h.hub.ClientCount()
}

func (h *Handler) corsOrigins() []string {
	if len(h.opts.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return h.opts.CORSOrigins
}

func (h *Handler) principalHeader() string {
	if h.opts.Auth.PrincipalHeader == "" {
		return auth.DefaultPrincipalHeader
	}
	return h.opts.Auth.PrincipalHeader
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Code      int    `json:"code"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{
		Code:      http.StatusInternalServerError,
		Type:      string(apperror.ErrorTypeInternal),
		Message:   "internal server error",
		RequestID: middleware.GetReqID(r.Context()),
	}
	if appErr, ok := apperror.As(err); ok {
		resp.Code = apperror.StatusCode(err)
		resp.Type = string(appErr.Type)
		resp.Message = appErr.Message
	}

	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", resp.Code),
		zap.String("request_id", resp.RequestID),
		zap.Error(err),
	}
	if resp.Code >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Warn("request rejected", fields...)
	}
	h.writeJSON(w, resp, resp.Code)
}

// decode reads a JSON body into v
func decode(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperror.Validation("failed to read request body: %v", err)
	}
	return decodeBytes(body, v)
}

func decodeBytes(body []byte, v any) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return apperror.Validation("request body must not be empty")
	}
	if err := json.Unmarshal(body, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return apperror.Validation("%s has an invalid value", typeErr.Field)
		}
		return apperror.Validation("invalid JSON body: %v", err)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// check validates a request body; the first failing field becomes the message
func (h *Handler) check(req any) error {
	err := h.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.Validation("invalid request: %v", err)
	}
	return apperror.Validation("%s", validationMessage(verrs[0]))
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " must not be null"
	case "max":
		return fmt.Sprintf("%s size must be between 1 and %s", field, fe.Param())
	case "email":
		return field + " must be a well-formed email address"
	case "url":
		return field + " must be a valid URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed the %s check", field, fe.Tag())
	}
}
