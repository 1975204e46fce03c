package i18n

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := LoadTranslations(); err != nil {
		panic(err)
	}

	m.Run()
}

func TestSupported(t *testing.T) {
	assert.Equal(t, []string{"en", "ru"}, Supported())
}

func TestCatalogsShareKeys(t *testing.T) {
	en := translations["en"]
	ru := translations["ru"]

	for key := range en {
		_, ok := ru[key]
		assert.True(t, ok, "ru is missing %q", key)
	}

	for key := range ru {
		_, ok := en[key]
		assert.True(t, ok, "en is missing %q", key)
	}
}

func TestGetLanguageFromRequest(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		acceptLanguage string
		expected       string
	}{
		{name: "default", url: "/", expected: "en"},
		{name: "query param", url: "/?lang=ru", expected: "ru"},
		{name: "unsupported query param", url: "/?lang=de", expected: "en"},
		{name: "russian header", url: "/", acceptLanguage: "ru-RU,ru;q=0.9,en;q=0.8", expected: "ru"},
		{name: "english preferred", url: "/", acceptLanguage: "en-US,en;q=0.9,ru;q=0.5", expected: "en"},
		{name: "unsupported header", url: "/", acceptLanguage: "ja-JP", expected: "en"},
		{name: "garbage header", url: "/", acceptLanguage: ";;;", expected: "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.url, nil)
			if tt.acceptLanguage != "" {
				req.Header.Set("Accept-Language", tt.acceptLanguage)
			}

			assert.Equal(t, tt.expected, GetLanguageFromRequest(req))
		})
	}
}

func TestGetTranslation(t *testing.T) {
	assert.Equal(t, "Build APK", GetTranslation("en", "convert_button"))
	assert.Equal(t, "Собрать APK", GetTranslation("ru", "convert_button"))
	assert.Equal(t, "Build APK", GetTranslation("de", "convert_button"))
	assert.Equal(t, "no_such_key", GetTranslation("en", "no_such_key"))
}

func TestGetTranslationsIsACopy(t *testing.T) {
	tr := GetTranslations("ru")
	require.NotEmpty(t, tr)

	tr["convert_button"] = "changed"
	assert.Equal(t, "Собрать APK", GetTranslation("ru", "convert_button"))
}
