package tts

import "strings"

// serviceLanguages lists the base language codes the service accepts.
var serviceLanguages = map[string]struct{}{
	"de": {}, "en": {}, "es": {}, "fr": {}, "hi": {},
	"id": {}, "it": {}, "ja": {}, "ko": {}, "nl": {},
	"pl": {}, "pt": {}, "ru": {}, "sv": {}, "th": {},
	"tr": {}, "uk": {}, "vi": {}, "zh": {},
}

// LanguageToServiceLanguage maps a language code such as "en", "es-ES" or
// "pt_BR" to the code sent in the init message. Regional variants fall back
// to their base language.
func LanguageToServiceLanguage(code string) (string, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "", false
	}
	if i := strings.IndexAny(code, "-_"); i != -1 {
		code = code[:i]
	}
	if _, ok := serviceLanguages[code]; !ok {
		return "", false
	}
	return code, true
}
