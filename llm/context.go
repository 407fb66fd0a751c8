package llm

import (
	"fmt"
	"sort"
	"strings"
)

// InjectContext weaves retrieved knowledge-base context into the last user
// turn, preserving all prior turns unchanged. If there is no user turn, the
// messages are returned as-is and the context is dropped.
func InjectContext(messages []Message, context string) []Message {
	if context == "" {
		return messages
	}

	modified := make([]Message, len(messages))
	copy(modified, messages)

	for i := len(modified) - 1; i >= 0; i-- {
		if modified[i].Role == RoleUser {
			modified[i].Content = fmt.Sprintf(
				"Context from knowledge base:\n%s\n\nUser question: %s",
				context, modified[i].Content)
			break
		}
	}

	return modified
}

// FallbackResponse builds a deterministic answer from keyword overlap between
// the prompt and the retrieved context. It is served only when the completion
// provider is unreachable and fallbacks are explicitly enabled.
func FallbackResponse(prompt, context string) string {
	if context == "" {
		return "I apologize, but the AI service is currently unavailable. Please try again later or contact support if the issue persists."
	}

	queryWords := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(prompt)) {
		queryWords[w] = true
	}

	var common []string
	seen := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(context)) {
		if queryWords[w] && !seen[w] {
			common = append(common, w)
			seen[w] = true
		}
	}

	if len(common) == 0 {
		return "I found some potentially relevant information in your documents, but the AI service is currently unavailable for detailed analysis. Please review the search results above."
	}

	sort.Strings(common)
	return fmt.Sprintf("Based on the available information, I found relevant content related to: %s. However, the AI service is currently unavailable for detailed analysis. Please refer to the search results above for more information.", strings.Join(common, ", "))
}

// lastUserContent returns the content of the most recent user turn.
func lastUserContent(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
