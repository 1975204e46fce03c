package webserver

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"site2apk/internal/blob"
	"site2apk/internal/convert"
	"site2apk/internal/i18n"
	"site2apk/internal/notify"
	"site2apk/internal/validate"
)

//go:embed www/*
var wwwFiles embed.FS

var loadIndexTemplate = sync.OnceValues(func() (*template.Template, error) {
	return template.ParseFS(wwwFiles, "www/index_template.html")
})

// TemplateData holds data for template rendering
type TemplateData struct {
	Lang        string
	Languages   []string
	T           i18n.Translation
	CSRFToken   string
	MaxUploadMB int64
	IconSize    int
}

// ValidationResult answers the per-file validation endpoints.
type ValidationResult struct {
	OK      bool          `json:"ok"`
	Warning *notify.Toast `json:"warning,omitempty"`
}

// ConvertAccepted answers a started conversion.
type ConvertAccepted struct {
	ID        string `json:"id"`
	StatusURL string `json:"statusUrl"`
}

func (s *Server) HomeHandler(w http.ResponseWriter, r *http.Request) {
	lang := i18n.GetLanguageFromRequest(r)

	token := GetCSRFTokenFromCookie(r)
	if token == "" {
		var err error

		token, err = GenerateCSRFToken()
		if err != nil {
			slog.Error("Error generating CSRF token", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)

			return
		}

		SetCSRFTokenCookie(w, token, r.TLS != nil)
	}

	tmpl, err := loadIndexTemplate()
	if err != nil {
		slog.Error("Error parsing template", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	data := TemplateData{
		Lang:        lang,
		Languages:   i18n.Supported(),
		T:           i18n.GetTranslations(lang),
		CSRFToken:   token,
		MaxUploadMB: s.cfg.MaxUploadMB,
		IconSize:    validate.IconSize,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := tmpl.Execute(w, data); err != nil {
		slog.Error("Error executing template", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// ValidateArchiveHandler checks a site archive as soon as the user picks it.
// A missing index.html only produces a warning.
func (s *Server) ValidateArchiveHandler(w http.ResponseWriter, r *http.Request) {
	log := slog.With("handler", "ValidateArchiveHandler")
	lang := i18n.GetLanguageFromRequest(r)

	file, err := s.receiveFile(w, r, validate.Archive)
	if err != nil {
		log.Info("Archive rejected", "error", err)
		WriteErrorResponseWithLang(w, err, StatusFor(err), lang)

		return
	}

	result := ValidationResult{OK: true}

	if err := validate.ArchiveContents(file); err != nil {
		t := i18n.GetTranslations(lang)
		result.Warning = &notify.Toast{
			Title:       t.Text("toast_archive_warning_title"),
			Description: t.Text("zip_hint"),
			Variant:     notify.VariantDefault,
		}

		log.Info("Archive accepted with warning", "name", file.Name(), "warning", err)
	}

	writeJSON(w, http.StatusOK, result)
}

// ValidateIconHandler checks the launcher icon's type and dimensions.
func (s *Server) ValidateIconHandler(w http.ResponseWriter, r *http.Request) {
	log := slog.With("handler", "ValidateIconHandler")
	lang := i18n.GetLanguageFromRequest(r)

	file, err := s.receiveFile(w, r, func(f blob.File) error {
		return validate.Icon(r.Context(), f)
	})
	if err != nil {
		log.Info("Icon rejected", "error", err)
		WriteErrorResponseWithLang(w, err, StatusFor(err), lang)

		return
	}

	log.Debug("Icon accepted", "name", file.Name())

	writeJSON(w, http.StatusOK, ValidationResult{OK: true})
}

// ConvertHandler starts an attempt and returns immediately; the browser polls
// StatusHandler until the attempt is done.
func (s *Server) ConvertHandler(w http.ResponseWriter, r *http.Request) {
	log := slog.With("handler", "ConvertHandler")
	log.Info("Received conversion request", "remote_addr", r.RemoteAddr)

	lang := i18n.GetLanguageFromRequest(r)

	req, owner, err := s.receiveRequest(w, r)
	if err != nil {
		log.Error("Failed to receive request", "error", err)
		WriteErrorResponseWithLang(w, err, StatusFor(err), lang)

		return
	}

	a, err := s.attempts.reserve(owner, func(a *attempt) (*convert.Orchestrator, error) {
		return convert.New(convert.Deps{
			Resolver:         s.resolver,
			Builder:          s.builder,
			Saver:            convert.SaverFunc(a.save),
			Sink:             notify.Multi{a.toasts, s.notifier},
			Catalog:          i18n.GetTranslations(lang),
			ProgressInterval: s.cfg.ProgressInterval.Duration,
			ProgressStep:     s.cfg.ProgressStep,
		})
	})
	if err != nil {
		log.Warn("Conversion not started", "error", err)
		WriteErrorResponseWithLang(w, err, StatusFor(err), lang)

		return
	}

	go s.run(a, req)

	log.Info("Conversion started", "attempt", a.id)

	w.Header().Set("Location", "/api/attempts/"+a.id)
	writeJSON(w, http.StatusAccepted, ConvertAccepted{ID: a.id, StatusURL: "/api/attempts/" + a.id})
}

func (s *Server) run(a *attempt, req convert.Request) {
	defer s.attempts.release(a)

	// Failures are already logged and reported by the orchestrator.
	_, _ = a.orch.Run(s.baseCtx, req)
}

func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	a, ok := s.ownedAttempt(r)
	if !ok {
		WriteErrorResponseWithLang(w, errAttemptNotFound, http.StatusNotFound, i18n.GetLanguageFromRequest(r))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, a.status())
}

func (s *Server) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	log := slog.With("handler", "DownloadHandler")

	a, ok := s.ownedAttempt(r)
	if !ok {
		WriteErrorResponseWithLang(w, errAttemptNotFound, http.StatusNotFound, i18n.GetLanguageFromRequest(r))
		return
	}

	a.mu.Lock()
	dl, done := a.download, a.done
	a.mu.Unlock()

	if !done || dl == nil {
		WriteErrorResponseWithLang(w, errAttemptNotFound, http.StatusNotFound, i18n.GetLanguageFromRequest(r))
		return
	}

	if err := sendResponse(w, *dl); err != nil {
		log.Error("Failed to send response", "error", err)
		return
	}

	log.Info("Package downloaded", "attempt", a.id, "filename", dl.FileName)
}

func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "attempts": s.attempts.len()})
}

func (s *Server) ownedAttempt(r *http.Request) (*attempt, bool) {
	a, ok := s.attempts.get(chi.URLParam(r, "id"))
	if !ok {
		return nil, false
	}

	owner := GetCSRFTokenFromCookie(r)

	return a, owner != "" && owner == a.owner
}

func sendResponse(w http.ResponseWriter, dl convert.Download) error {
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", SanitizeFilename(dl.FileName)))
	w.Header().Set("Content-Type", dl.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Data)))

	if _, err := w.Write(dl.Data); err != nil {
		return fmt.Errorf("failed writing response: %w", err)
	}

	return nil
}

// receiveFile parses a single-file validation form and runs check on the
// "file" field before the generic upload limits.
func (s *Server) receiveFile(w http.ResponseWriter, r *http.Request, check func(blob.File) error) (blob.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())

	if err := r.ParseMultipartForm(MaxFormSize); err != nil {
		return nil, fmt.Errorf("%w: %w", errUploadForm, err)
	}

	_, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUploadForm, err)
	}

	file := blob.FromMultipart(header)

	if err := check(file); err != nil {
		return nil, err
	}

	if err := ValidateFileUpload(header, s.cfg.MaxUploadBytes()); err != nil {
		return nil, fmt.Errorf("%w: %w", errUploadForm, err)
	}

	return file, nil
}

// receiveRequest parses the conversion form and checks the CSRF token. Missing
// fields are not an error here: the orchestrator reports an incomplete form.
func (s *Server) receiveRequest(w http.ResponseWriter, r *http.Request) (convert.Request, string, error) {
	var req convert.Request

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())

	if err := r.ParseMultipartForm(MaxFormSize); err != nil {
		return req, "", fmt.Errorf("%w: %w", errUploadForm, err)
	}

	token := GetCSRFTokenFromCookie(r)
	if token == "" || !ValidateCSRFToken(r, token) {
		return req, "", errCSRF
	}

	req.AppName = strings.TrimSpace(r.FormValue("appName"))
	req.AppVersion = strings.TrimSpace(r.FormValue("appVersion"))

	var err error

	if req.Archive, err = s.snapshot(r.MultipartForm, "zip"); err != nil {
		return req, "", err
	}

	if req.Icon, err = s.snapshot(r.MultipartForm, "icon"); err != nil {
		return req, "", err
	}

	return req, token, nil
}

// snapshot copies an uploaded file into memory; the multipart temp files are
// removed when the handler returns, while the attempt keeps running.
func (s *Server) snapshot(form *multipart.Form, field string) (blob.File, error) {
	if form == nil || len(form.File[field]) == 0 {
		return nil, nil
	}

	header := form.File[field][0]
	if err := ValidateFileUpload(header, s.cfg.MaxUploadBytes()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errUploadForm, field, err)
	}

	upload := blob.FromMultipart(header)

	rc, err := upload.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errUploadForm, field, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errUploadForm, field, err)
	}

	return blob.FromBytes(upload.Name(), upload.ContentType(), data), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Failed to encode response", "error", err)
	}
}

func StaticFileServer() http.Handler {
	subFS, err := fs.Sub(wwwFiles, "www")
	if err != nil {
		slog.Error("Failed to create sub-filesystem", "error", err)
		return http.FileServer(http.FS(wwwFiles))
	}

	return http.FileServer(http.FS(subFS))
}

func FaviconHandler(filePath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := wwwFiles.ReadFile(filePath)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		if strings.HasSuffix(filePath, ".ico") {
			w.Header().Set("Content-Type", "image/x-icon")
		} else if strings.HasSuffix(filePath, ".png") {
			w.Header().Set("Content-Type", "image/png")
		}

		w.Header().Set("Cache-Control", "public, max-age=31536000") // 1 year

		_, _ = w.Write(data)
	}
}
