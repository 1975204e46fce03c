package webserver

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
)

const (
	// MaxFormSize is the part of a multipart form held in memory; the rest spills to disk.
	MaxFormSize = 10 * 1024 * 1024
	// CSRFTokenLength defines the length of CSRF tokens
	CSRFTokenLength = 32

	csrfCookieName = "csrf_token"
	csrfFieldName  = "csrf_token"
)

// ValidateFileUpload rejects uploads that are too large or carry path
// separators in their name. Type and content checks belong to the validate
// package and run first.
func ValidateFileUpload(header *multipart.FileHeader, maxSize int64) error {
	if header == nil {
		return fmt.Errorf("no file in form")
	}

	if strings.TrimSpace(header.Filename) == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	if maxSize > 0 && header.Size > maxSize {
		return fmt.Errorf("file too large: %d bytes (max %d)", header.Size, maxSize)
	}

	if strings.ContainsAny(header.Filename, `/\`) {
		return fmt.Errorf("invalid filename: contains path separators")
	}

	return nil
}

// SanitizeFilename strips path separators and characters that break a
// Content-Disposition header or a file system.
func SanitizeFilename(filename string) string {
	filename = strings.NewReplacer(
		"/", "",
		"\\", "",
		"..", "",
		":", "",
		"*", "",
		"?", "",
		"<", "",
		">", "",
		"|", "",
		`"`, "",
		"\r", "",
		"\n", "",
	).Replace(filename)
	filename = strings.TrimSpace(filename)

	if filename == "" {
		filename = "app.apk"
	}

	return filename
}

// GenerateCSRFToken generates a cryptographically secure CSRF token
func GenerateCSRFToken() (string, error) {
	bytes := make([]byte, CSRFTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate CSRF token: %w", err)
	}

	return hex.EncodeToString(bytes), nil
}

// ValidateCSRFToken compares the form token with the cookie token. The form
// must already be parsed.
func ValidateCSRFToken(r *http.Request, sessionToken string) bool {
	formToken := r.FormValue(csrfFieldName)
	if formToken == "" {
		formToken = r.Header.Get("X-CSRF-Token")
	}

	return formToken != "" && formToken == sessionToken
}

// SetCSRFTokenCookie sets a CSRF token in a secure cookie
func SetCSRFTokenCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
}

// GetCSRFTokenFromCookie retrieves CSRF token from cookie
func GetCSRFTokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(csrfCookieName)
	if err != nil {
		return ""
	}

	return cookie.Value
}
