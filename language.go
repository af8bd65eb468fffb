package newsharvest

import "strings"

// DefaultLanguages maps the locale codes seen across the adapter
// family to English language names. Site profiles can override or
// extend the table; unknown codes map to nothing.
var DefaultLanguages = map[string]string{
	"ar": "Arabic",
	"de": "German",
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"it": "Italian",
	"ja": "Japanese",
	"ko": "Korean",
	"nl": "Dutch",
	"pl": "Polish",
	"pt": "Portuguese",
	"ru": "Russian",
	"tr": "Turkish",
	"zh": "Chinese",
}

// LanguageName resolves a locale code such as "de", "de-DE" or "ja_JP"
// to a language name. overrides, usually the site profile's table, is
// consulted before the default table.
func LanguageName(code string, overrides map[string]string) (string, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "", false
	}
	// Region subtags never change the language name.
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	if name, ok := overrides[code]; ok {
		return name, name != ""
	}
	name, ok := DefaultLanguages[code]
	return name, ok
}
