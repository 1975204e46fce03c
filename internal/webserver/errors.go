package webserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"site2apk/internal/convert"
	"site2apk/internal/i18n"
	"site2apk/internal/validate"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeConversion    ErrorType = "conversion"
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeFileIO        ErrorType = "file_io"
	ErrorTypeUpload        ErrorType = "upload"
	ErrorTypeSecurity      ErrorType = "security"
	ErrorTypeConflict      ErrorType = "conflict"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeInternal      ErrorType = "internal"
)

var (
	errCSRF            = errors.New("csrf token missing or invalid")
	errAttemptNotFound = errors.New("attempt not found")
	errUploadForm      = errors.New("upload form could not be read")
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Type        ErrorType `json:"type"`
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Details     string    `json:"details"`
	Suggestions []string  `json:"suggestions,omitempty"`
}

// CategorizeErrorWithLang analyzes an error and returns an appropriate ErrorResponse with translations
func CategorizeErrorWithLang(err error, lang string) ErrorResponse {
	t := i18n.GetTranslations(lang)

	if err == nil {
		return ErrorResponse{
			Type:        ErrorTypeInternal,
			Code:        "unknown_error",
			Title:       t.Text("error_processing_title"),
			Description: t.Text("error_processing_description"),
			Details:     "No error details available",
		}
	}

	errMsg := err.Error()

	var failure *convert.Failure

	switch {
	case errors.As(err, &failure):
		return categorizeFailure(t, failure)

	case errors.Is(err, convert.ErrInFlight):
		return ErrorResponse{
			Type:        ErrorTypeConflict,
			Code:        "conversion_in_progress",
			Title:       t.Text("toast_busy_title"),
			Description: t.Text("toast_busy_description"),
			Details:     errMsg,
		}

	case errors.Is(err, errCSRF):
		return ErrorResponse{
			Type:        ErrorTypeSecurity,
			Code:        "csrf_invalid",
			Title:       t.Text("error_csrf_title"),
			Description: t.Text("error_csrf_description"),
			Details:     errMsg,
		}

	case errors.Is(err, errAttemptNotFound):
		return ErrorResponse{
			Type:        ErrorTypeNotFound,
			Code:        "attempt_not_found",
			Title:       t.Text("error_attempt_not_found_title"),
			Description: t.Text("error_attempt_not_found_description"),
			Details:     errMsg,
		}
	}

	if _, ok := validate.Kind(err); ok {
		return categorizeFailure(t, convert.Classify(err))
	}

	var tooLarge *http.MaxBytesError

	// Upload errors
	if errors.Is(err, errUploadForm) || errors.As(err, &tooLarge) || strings.Contains(strings.ToLower(errMsg), "multipart") {
		return ErrorResponse{
			Type:        ErrorTypeUpload,
			Code:        "upload_form_error",
			Title:       t.Text("error_upload_form_title"),
			Description: t.Text("error_upload_form_description"),
			Details:     errMsg,
			Suggestions: []string{
				t.Text("error_upload_form_suggestion_selected"),
				t.Text("error_upload_form_suggestion_size"),
				t.Text("error_upload_form_suggestion_refresh"),
			},
		}
	}

	// Default fallback for unrecognized errors
	return ErrorResponse{
		Type:        ErrorTypeInternal,
		Code:        "processing_error",
		Title:       t.Text("error_processing_title"),
		Description: t.Text("error_processing_description"),
		Details:     errMsg,
		Suggestions: []string{
			t.Text("error_processing_suggestion_retry"),
			t.Text("error_processing_suggestion_fields"),
			t.Text("error_processing_suggestion_valid"),
		},
	}
}

// categorizeFailure reuses the notification text so the API and the toast agree.
func categorizeFailure(t i18n.Translation, f *convert.Failure) ErrorResponse {
	toast := convert.ToastFor(t, f, nil, "")

	resp := ErrorResponse{
		Code:        string(f.Kind),
		Title:       toast.Title,
		Description: toast.Description,
		Details:     f.Error(),
	}

	switch f.Kind {
	case convert.KindIncompleteForm, convert.KindInvalidInput:
		resp.Type = ErrorTypeValidation
		if f.Input != "" {
			resp.Code = string(f.Input)
		}
	case convert.KindEndpointNotConfigured:
		resp.Type = ErrorTypeConfiguration
	case convert.KindIORead:
		resp.Type = ErrorTypeFileIO
	case convert.KindNetworkFailure:
		resp.Type = ErrorTypeNetwork
	case convert.KindMalformedResponse, convert.KindRemoteFailure:
		resp.Type = ErrorTypeConversion
	default:
		resp.Type = ErrorTypeInternal
	}

	return resp
}

// StatusFor picks the HTTP status that goes with an error.
func StatusFor(err error) int {
	var (
		failure  *convert.Failure
		tooLarge *http.MaxBytesError
	)

	switch {
	case errors.Is(err, convert.ErrInFlight):
		return http.StatusConflict
	case errors.Is(err, errCSRF):
		return http.StatusForbidden
	case errors.Is(err, errAttemptNotFound):
		return http.StatusNotFound
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errUploadForm):
		return http.StatusBadRequest
	case errors.As(err, &failure):
		switch failure.Kind {
		case convert.KindIncompleteForm, convert.KindInvalidInput:
			return http.StatusUnprocessableEntity
		case convert.KindNetworkFailure, convert.KindMalformedResponse, convert.KindRemoteFailure, convert.KindEndpointNotConfigured:
			return http.StatusBadGateway
		}
	}

	if _, ok := validate.Kind(err); ok {
		return http.StatusUnprocessableEntity
	}

	return http.StatusInternalServerError
}

// WriteErrorResponseWithLang writes a structured error response as JSON with language support
func WriteErrorResponseWithLang(w http.ResponseWriter, err error, statusCode int, lang string) {
	errorResp := CategorizeErrorWithLang(err, lang)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if jsonErr := json.NewEncoder(w).Encode(errorResp); jsonErr != nil {
		slog.Error("Failed to encode error response", "error", jsonErr)
		fmt.Fprintf(w, "Error: %v", err)
	}
}
