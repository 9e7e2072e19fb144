package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/sagarc03/mediarelay"
	"github.com/sagarc03/mediarelay/metrics"
)

// Service is the relay behaviour the handlers expose over HTTP.
type Service interface {
	ListUsers(ctx context.Context) ([]mediarelay.UserRecord, error)
	GetImage(ctx context.Context, filename string) (mediarelay.Object, error)
	CreateUser(ctx context.Context, in mediarelay.CreateUser) (mediarelay.UserRecord, error)
	GetUser(ctx context.Context, id string) (mediarelay.Reply, error)
	UpdateUser(ctx context.Context, id string, body json.RawMessage) (mediarelay.Reply, error)
	DeleteUser(ctx context.Context, id string) (mediarelay.Reply, error)
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

type HandlerConfig struct {
	CORS          CORSConfig
	MaxUploadSize int64            // 0 means no limit
	Metrics       *metrics.Metrics // nil disables metrics
	MetricsPath   string
}

// Form fields of the create request.
var createFields = []string{"name", "email", "institution", "position", "phone"}

const (
	multipartMemory = 32 << 20
	maxJSONBody     = 1 << 20
)

// Handler provides HTTP handlers for the relay.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	return &Handler{
		config:  *config,
		service: service,
	}
}

// Router returns an http.Handler with all relay routes configured.
// Record ids must be decimal; other ids fall through to 404.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger)
	r.Use(MetricsMiddleware(h.config.Metrics))

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Get("/", h.handleIndex)
	r.Get("/healthz", h.handleHealth)
	r.Get("/images/*", h.handleImage)

	r.Post("/users", h.handleCreate)
	r.Get("/users/{id:[0-9]+}", h.handleGet)
	r.Put("/users/{id:[0-9]+}", h.handleUpdate)
	r.Patch("/users/{id:[0-9]+}", h.handleUpdate)
	r.Delete("/users/{id:[0-9]+}", h.handleDelete)
	r.Delete("/users/{id:[0-9]+}/delete", h.handleDelete)

	if h.config.Metrics != nil {
		path := h.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, h.config.Metrics.Handler())
	}

	return r
}

func (h *Handler) observe(operation, outcome string) {
	if h.config.Metrics != nil {
		h.config.Metrics.ObserveOperation(operation, outcome)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.observe("list_users", "error")
		HandleError(w, err)
		return
	}
	h.observe("list_users", "ok")

	renderIndex(w, users)
}

func (h *Handler) handleImage(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "*")
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(filename); err == nil {
			filename = unescaped
		}
	}

	obj, err := h.service.GetImage(r.Context(), filename)
	if err != nil {
		h.observe("get_image", "error")
		slog.Warn("image fetch failed", "filename", filename, "err", err)
		writeImageError(w, err)
		return
	}
	defer func() { _ = obj.Body.Close() }()
	h.observe("get_image", "ok")

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, obj.Body); err != nil {
		slog.Warn("failed to stream image", "filename", filename, "err", err)
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if h.config.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "too_large", "Upload exceeds the size limit")
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid_form", "Expected a multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	values := make(map[string]string, len(createFields))
	for _, field := range createFields {
		v, ok := r.MultipartForm.Value[field]
		if !ok || len(v) == 0 {
			WriteError(w, http.StatusBadRequest, "missing_field", fmt.Sprintf("Missing form field: %s", field))
			return
		}
		values[field] = v[0]
	}

	in := mediarelay.CreateUser{
		Name:        values["name"],
		Email:       values["email"],
		Institution: values["institution"],
		Position:    values["position"],
		Phone:       values["phone"],
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		WriteError(w, http.StatusBadRequest, "invalid_form", "Could not read image")
		return
	default:
		defer func() { _ = file.Close() }()
		if header.Filename != "" {
			in.Image = &mediarelay.ImageUpload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				Content:     file,
			}
		}
	}

	_, err = h.service.CreateUser(r.Context(), in)
	if err != nil {
		var uploadErr *mediarelay.UploadError
		switch {
		case errors.Is(err, mediarelay.ErrEmailExists):
			h.observe("create_user", "conflict")
			_ = WriteJSON(w, http.StatusConflict, mediarelay.ErrorBody{Error: mediarelay.MsgEmailExists})
		case errors.As(err, &uploadErr):
			h.observe("create_user", "upload_failed")
			slog.Error("image upload failed", "key", uploadErr.Key, "err", uploadErr.Err)
			_ = WriteJSON(w, http.StatusInternalServerError, mediarelay.ErrorBody{Error: uploadErr.Err.Error()})
		default:
			h.observe("create_user", "error")
			HandleError(w, err)
		}
		return
	}
	h.observe("create_user", "ok")

	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reply, err := h.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.observe("get_user", "error")
		HandleError(w, err)
		return
	}
	h.observe("get_user", strconv.Itoa(reply.StatusCode))

	WriteReply(w, reply)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "too_large", "Request body exceeds the size limit")
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid_body", "Could not read request body")
		return
	}

	reply, err := h.service.UpdateUser(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		h.observe("update_user", "error")
		HandleError(w, err)
		return
	}
	h.observe("update_user", strconv.Itoa(reply.StatusCode))

	WriteReply(w, reply)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reply, err := h.service.DeleteUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.observe("delete_user", "error")
		HandleError(w, err)
		return
	}
	h.observe("delete_user", strconv.Itoa(reply.StatusCode))

	WriteReply(w, reply)
}
