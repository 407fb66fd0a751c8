package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*
var templatesFS embed.FS

// DefaultLanguage is the language the assistant falls back to whenever
// detection is unreliable or no template exists for the detected language.
const DefaultLanguage = "en"

// SystemPrompt returns the assistant system prompt for a language code,
// falling back to the default-language template when no template exists.
func SystemPrompt(language string) string {
	content, err := templatesFS.ReadFile(fmt.Sprintf("templates/system_%s.md", language))
	if err != nil {
		content, _ = templatesFS.ReadFile("templates/system_" + DefaultLanguage + ".md")
	}
	return strings.TrimSpace(string(content))
}

// HasSystemPrompt reports whether a dedicated template exists for the
// language code.
func HasSystemPrompt(language string) bool {
	_, err := templatesFS.ReadFile(fmt.Sprintf("templates/system_%s.md", language))
	return err == nil
}

// RenderRespondInstruction renders the directive appended to the default
// system prompt when the detected language has no dedicated template.
func RenderRespondInstruction(languageName string) (string, error) {
	content, err := templatesFS.ReadFile("templates/respond_instruction.md")
	if err != nil {
		return "", err
	}

	tmpl, err := template.New("respond_instruction").Parse(string(content))
	if err != nil {
		return "", err
	}

	data := struct {
		LanguageName string
	}{
		LanguageName: languageName,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return "\n\n" + strings.TrimSpace(buf.String()), nil
}
