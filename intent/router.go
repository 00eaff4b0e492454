// Package intent routes user utterances: translate-screen-text requests
// are detected by keyword and get a dedicated prompt over the screen OCR;
// everything else goes to the chat path with screen context attached.
package intent

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/redassist/redassist/internal/types"
	"github.com/redassist/redassist/llm"
)

var translateKeywords = []string{"переведи", "перевод", "translate"}

var targetPattern = regexp.MustCompile(`на\s+([а-яa-z]+)`)

// defaultTarget is used when the utterance names no target language.
const defaultTarget = "русский"

// targetAliases maps English language names to their Russian equivalents
// so "translate to english" and "переведи на английский" behave the same.
var targetAliases = map[string]string{
	"english": "английский",
	"russian": "русский",
	"german":  "немецкий",
	"spanish": "испанский",
	"french":  "французский",
}

// aliasFallbackTags are tried when a latin-script target is not in the
// alias table; its English display name is matched and the Russian one
// substituted.
var aliasFallbackTags = []language.Tag{
	language.Italian,
	language.Portuguese,
	language.Dutch,
	language.Polish,
	language.Ukrainian,
	language.Turkish,
	language.Japanese,
	language.Chinese,
	language.Korean,
	language.Arabic,
	language.Hindi,
	language.Swedish,
	language.Norwegian,
	language.Finnish,
	language.Czech,
	language.Greek,
	language.Hebrew,
}

// Classify reports whether text is a translate request and, if so, the
// target language in Russian. Matching is case-insensitive.
func Classify(text string) (bool, string) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return false, ""
	}
	for _, k := range translateKeywords {
		if strings.Contains(t, k) {
			return true, extractTarget(t)
		}
	}
	return false, ""
}

func extractTarget(text string) string {
	m := targetPattern.FindStringSubmatch(text)
	if m == nil {
		return defaultTarget
	}
	return resolveTarget(m[1])
}

// resolveTarget normalizes an extracted language name to Russian. Known
// aliases resolve directly; other latin-script names go through the
// display-name tables; anything else is kept verbatim.
func resolveTarget(name string) string {
	if ru, ok := targetAliases[name]; ok {
		return ru
	}
	english := display.English.Languages()
	russian := display.Russian.Languages()
	for _, tag := range aliasFallbackTags {
		if strings.ToLower(english.Name(tag)) == name {
			return strings.ToLower(russian.Name(tag))
		}
	}
	return name
}

// BuildMessages assembles the completion request. history is copied,
// never mutated. sc is the last captured screen context; refresh is a
// best-effort synchronous capture used when a translate request finds no
// OCR text (nil disables it).
func BuildMessages(history []llm.Message, userText string, translate bool, target string, sc types.ScreenContext, refresh func() (types.ScreenContext, error)) []llm.Message {
	msgs := make([]llm.Message, len(history), len(history)+3)
	copy(msgs, history)

	if translate {
		ocr := sc.OCRText
		if ocr == "" && refresh != nil {
			if fresh, err := refresh(); err == nil {
				ocr = fresh.OCRText
			}
		}
		if ocr == "" {
			msgs = append(msgs,
				llm.Text("system", "На экране текста не найдено. Кратко скажи об этом."),
				llm.Text("user", "Переведи текст с экрана."))
			return msgs
		}
		msgs = append(msgs,
			llm.Text("system", "Ты переводчик. Переводи максимально кратко и точно без вступлений."),
			llm.Text("user", fmt.Sprintf("Переведи на %s этот текст с экрана:\n%s", target, ocr)))
		return msgs
	}

	if sc.Description != "" {
		msgs = append(msgs, llm.Text("system", "Контекст экрана: "+sc.Description))
	}
	if sc.WindowTitle != "" {
		msgs = append(msgs, llm.Text("system", "Активное окно: "+sc.WindowTitle))
	}
	if sc.OCRText != "" {
		msgs = append(msgs, llm.Text("system", "OCR: "+capRunes(sc.OCRText, 800)))
	}
	return append(msgs, llm.Text("user", userText))
}

func capRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
