// Package langdetect identifies the language of short text. The result
// drives the TTS voice pick when the configured voice is "auto".
package langdetect

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// languages restricts detection to the set the assistant actually
// speaks; fewer candidates means better accuracy on short replies.
var languages = []lingua.Language{
	lingua.Russian,
	lingua.English,
	lingua.German,
	lingua.Spanish,
	lingua.French,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Ukrainian,
	lingua.Chinese,
	lingua.Japanese,
}

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// Detect returns the ISO 639-1 code (lower case) and English name of the
// dominant language of text. Empty or undetectable text yields ("", "").
func Detect(text string) (code, name string) {
	if strings.TrimSpace(text) == "" {
		return "", ""
	}

	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			Build()
	})

	lang, ok := detector.DetectLanguageOf(text)
	if !ok {
		return "", ""
	}
	return strings.ToLower(lang.IsoCode639_1().String()), lang.String()
}
