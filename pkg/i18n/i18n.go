package i18n

import (
	"embed"
	"encoding/json"
	"net/http"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var locales embed.FS

var supported = []language.Tag{language.English, language.Spanish}

var matcher = language.NewMatcher(supported)

type Translator struct {
	bundle *goi18n.Bundle
}

// New builds a translator from the embedded message files.
func New() (*Translator, error) {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, name := range []string{"locales/active.en.json", "locales/active.es.json"} {
		if _, err := bundle.LoadMessageFileFS(locales, name); err != nil {
			return nil, err
		}
	}
	return &Translator{bundle: bundle}, nil
}

// Load adds an extra message file from disk, overriding embedded messages with the same id.
func (t *Translator) Load(path string) error {
	_, err := t.bundle.LoadMessageFile(path)
	return err
}

// Localize returns the message for id in the best language matching acceptLang.
// It returns fallback when the id is unknown.
func (t *Translator) Localize(acceptLang, id string, data map[string]any, fallback string) string {
	if t == nil || id == "" {
		return fallback
	}
	loc := goi18n.NewLocalizer(t.bundle, acceptLang, language.English.String())
	msg, err := loc.Localize(&goi18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil || msg == "" {
		return fallback
	}
	return msg
}

// Language picks the supported language tag for an Accept-Language header.
func Language(r *http.Request) string {
	tags, _, _ := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	tag, _, _ := matcher.Match(tags...)
	base, _ := tag.Base()
	return base.String()
}
