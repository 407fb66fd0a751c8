package language

import (
	"strings"
	"unicode"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/pemistahl/lingua-go"
	"github.com/pka-ai/knowledge-core/prompts"
	"go.uber.org/zap"
)

// Display names used in the respond-in directive.
var languageNames = map[string]string{
	"en":    "English",
	"es":    "Spanish (Español)",
	"fr":    "French (Français)",
	"de":    "German (Deutsch)",
	"it":    "Italian (Italiano)",
	"pt":    "Portuguese (Português)",
	"ru":    "Russian (Русский)",
	"zh-cn": "Chinese (中文)",
	"ja":    "Japanese (日本語)",
	"ko":    "Korean (한국어)",
	"ar":    "Arabic (العربية)",
}

var supportedLanguages = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Russian,
	lingua.Chinese,
	lingua.Japanese,
	lingua.Korean,
	lingua.Arabic,
}

// Detector identifies the natural language of user input. Detection is
// advisory: it never fails, falling back to the default language instead.
type Detector struct {
	detector        lingua.LanguageDetector
	defaultLanguage string
}

// NewDetector builds the language model once at startup; lingua's detection
// is deterministic, so the same input always yields the same code.
func NewDetector() *Detector {
	return &Detector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(supportedLanguages...).
			Build(),
		defaultLanguage: prompts.DefaultLanguage,
	}
}

// Detect returns the ISO 639-1 code of the text's language. Inputs shorter
// than 3 non-whitespace characters short-circuit to the default without
// consulting the model; Chinese normalizes to "zh-cn".
func (d *Detector) Detect(text string) string {
	clean := strings.TrimSpace(text)

	if countNonSpace(clean) < 3 {
		logger.Info("Text too short for language detection, using default")
		return d.defaultLanguage
	}

	detected, ok := d.detector.DetectLanguageOf(clean)
	if !ok {
		logger.Info("Language detection unreliable, using default",
			zap.String("text_preview", preview(clean)))
		return d.defaultLanguage
	}

	code := strings.ToLower(detected.IsoCode639_1().String())
	if code == "zh" {
		code = "zh-cn"
	}

	return code
}

func (d *Detector) DefaultLanguage() string { return d.defaultLanguage }

// Name returns the display name for a language code, defaulting to English.
func Name(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return "English"
}

// IsSupported reports whether the language has a dedicated system prompt.
func IsSupported(code string) bool {
	return prompts.HasSystemPrompt(code)
}

// IsKnown reports whether the code is one of the detectable languages.
func IsKnown(code string) bool {
	_, ok := languageNames[code]
	return ok
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) > 50 {
		return string(runes[:50])
	}
	return s
}
