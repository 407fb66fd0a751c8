package language

import (
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/pka-ai/knowledge-core/llm"
	"github.com/pka-ai/knowledge-core/prompts"
	"go.uber.org/zap"
)

// AddLanguageContext prepends (or overwrites) a system turn carrying the
// language-specific assistant instructions. A custom prompt is used verbatim.
// Languages without a dedicated template get the default-language template
// plus a respond-in directive, skipped for the default language itself.
func (d *Detector) AddLanguageContext(messages []llm.Message, detectedLanguage, customPrompt string) []llm.Message {
	systemPrompt := customPrompt
	if systemPrompt == "" {
		systemPrompt = prompts.SystemPrompt(detectedLanguage)

		if detectedLanguage != d.defaultLanguage && !prompts.HasSystemPrompt(detectedLanguage) {
			instruction, err := prompts.RenderRespondInstruction(Name(detectedLanguage))
			if err != nil {
				logger.Error("Failed to render respond instruction", zap.Error(err))
			} else {
				systemPrompt += instruction
			}
		}
	}

	if len(messages) == 0 || messages[0].Role != llm.RoleSystem {
		return append([]llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}}, messages...)
	}

	modified := make([]llm.Message, len(messages))
	copy(modified, messages)
	modified[0].Content = systemPrompt
	return modified
}
