package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed translations/*.json
var translationFiles embed.FS

// DefaultLanguage is used whenever negotiation finds nothing better.
const DefaultLanguage = "en"

// Translation holds translations for a specific language
type Translation map[string]string

// Text returns the translation for key, or key itself when missing.
func (t Translation) Text(key string) string {
	if text, ok := t[key]; ok {
		return text
	}

	return key
}

// Translations holds all loaded translations
type Translations map[string]Translation

var (
	mu           sync.RWMutex
	translations Translations
	matcher      language.Matcher
	supported    []string
)

// LoadTranslations loads every catalog under translations/. It is safe to
// call more than once.
func LoadTranslations() error {
	entries, err := translationFiles.ReadDir("translations")
	if err != nil {
		return fmt.Errorf("read translations: %w", err)
	}

	loaded := make(Translations)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".json" {
			continue
		}

		data, err := translationFiles.ReadFile(path.Join("translations", name))
		if err != nil {
			return fmt.Errorf("read translation %s: %w", name, err)
		}

		var trans Translation
		if err := json.Unmarshal(data, &trans); err != nil {
			return fmt.Errorf("parse translation %s: %w", name, err)
		}

		loaded[strings.TrimSuffix(name, ".json")] = trans
	}

	if _, ok := loaded[DefaultLanguage]; !ok {
		return fmt.Errorf("translation %s.json is missing", DefaultLanguage)
	}

	langs := make([]string, 0, len(loaded))
	for lang := range loaded {
		langs = append(langs, lang)
	}

	// The default goes first so the matcher falls back to it.
	sort.Slice(langs, func(i, j int) bool {
		if langs[i] == DefaultLanguage || langs[j] == DefaultLanguage {
			return langs[i] == DefaultLanguage
		}
		return langs[i] < langs[j]
	})

	tags := make([]language.Tag, 0, len(langs))
	for _, lang := range langs {
		tags = append(tags, language.Make(lang))
	}

	mu.Lock()
	translations = loaded
	supported = langs
	matcher = language.NewMatcher(tags)
	mu.Unlock()

	return nil
}

// Supported lists the loaded language codes, default first.
func Supported() []string {
	mu.RLock()
	defer mu.RUnlock()

	return append([]string(nil), supported...)
}

// Negotiate picks the best supported language for an Accept-Language value.
func Negotiate(acceptLanguage string) string {
	mu.RLock()
	defer mu.RUnlock()

	if matcher == nil || strings.TrimSpace(acceptLanguage) == "" {
		return DefaultLanguage
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLanguage
	}

	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return DefaultLanguage
	}

	return supported[index]
}

// GetLanguageFromRequest determines the language from URL param or Accept-Language header
func GetLanguageFromRequest(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" && isValidLanguage(lang) {
		return lang
	}

	return Negotiate(r.Header.Get("Accept-Language"))
}

func isValidLanguage(lang string) bool {
	mu.RLock()
	defer mu.RUnlock()

	_, exists := translations[lang]

	return exists
}

// GetTranslation returns the translation for a given key and language
func GetTranslation(lang, key string) string {
	return GetTranslations(lang).Text(key)
}

// GetTranslations returns the catalog for lang layered over the default
// language, so missing keys fall back to English.
func GetTranslations(lang string) Translation {
	mu.RLock()
	defer mu.RUnlock()

	out := make(Translation)

	for k, v := range translations[DefaultLanguage] {
		out[k] = v
	}

	if lang != DefaultLanguage {
		for k, v := range translations[lang] {
			out[k] = v
		}
	}

	return out
}
