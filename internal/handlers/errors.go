package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/crucial707/meddevice/internal/middleware"
	"github.com/crucial707/meddevice/internal/repo"
)

// ErrMessageInternal is the generic message for 500 responses. Do not expose internal details to clients.
const ErrMessageInternal = "internal server error"

// JSONError sends a JSON error response with a single "error" field.
func JSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// JSONValidationError sends a JSON error response with "error" and optional "fields" for field-level details.
// status is typically http.StatusBadRequest (400).
func JSONValidationError(w http.ResponseWriter, message string, fields map[string]string, status int) {
	out := map[string]any{"error": message}
	if len(fields) > 0 {
		out["fields"] = fields
	}
	writeJSON(w, status, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the body into v. It answers 413 or 400 itself and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			JSONError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("upload_url", func(fl validator.FieldLevel) bool {
		return uploadURL.MatchString(fl.Field().String())
	})
	return v
}

// validateStruct returns field -> failed rule, or nil when s is valid.
func validateStruct(s any) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[fe.Field()] = rule
	}
	return fields
}

// intParam parses a numeric chi URL parameter.
func intParam(r *http.Request, name string) (int, error) {
	return strconv.Atoi(chi.URLParam(r, name))
}

// intQuery returns the query value as a positive int, or def when absent or invalid.
func intQuery(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// writeRepoError maps repository errors to responses.
func writeRepoError(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		JSONError(w, notFound, http.StatusNotFound)
	case repo.IsUniqueViolation(err):
		JSONError(w, "already exists", http.StatusConflict)
	default:
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
	}
}

// auditLog records an action by the calling user. Failures are ignored.
func auditLog(ctx context.Context, a *repo.AuditRepo, action, resourceType, resourceID, details string) {
	if a == nil {
		return
	}
	if userID := middleware.UserIDFromContext(ctx); userID > 0 {
		_ = a.Log(ctx, userID, action, resourceType, resourceID, details)
	}
}

// publicBaseURL prefers the configured domain_url over fallback.
func publicBaseURL(ctx context.Context, settings *repo.SysConfigRepo, fallback string) string {
	if settings != nil {
		if v, err := settings.Get(ctx, repo.ConfigDomainURL); err == nil && v != "" {
			return strings.TrimRight(v, "/")
		}
	}
	return strings.TrimRight(fallback, "/")
}
