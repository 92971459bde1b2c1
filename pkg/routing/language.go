package routing

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// LanguageName renders a configured language for a translation prompt.
// BCP 47 tags become English names ("es" -> "Spanish", "pt-BR" ->
// "Brazilian Portuguese"); anything else is passed through as written.
func LanguageName(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" || strings.ContainsAny(lang, " \t") {
		return lang
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return lang
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return lang
}

