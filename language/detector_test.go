package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetector_Detect(t *testing.T) {
	detector := NewDetector()

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"english", "Hello, how are you doing today?", "en"},
		{"spanish", "Hola, ¿cómo estás? Me gustaría saber más sobre sus productos.", "es"},
		{"french", "Bonjour, je voudrais des informations sur vos services.", "fr"},
		{"german", "Guten Tag, ich hätte gerne weitere Informationen über Ihre Produkte.", "de"},
		{"chinese normalizes to zh-cn", "你好，请问你们的产品有哪些功能？", "zh-cn"},
		{"empty text", "", "en"},
		{"whitespace only", "   \n\t  ", "en"},
		{"too short", "ok", "en"},
		{"short after trim", "  a b  ", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, detector.Detect(tt.text))
		})
	}
}

func TestDetector_Detect_Deterministic(t *testing.T) {
	detector := NewDetector()
	text := "Hola, ¿cómo estás? Me gustaría saber más sobre sus productos."

	first := detector.Detect(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, detector.Detect(text))
	}
}

func TestDetector_DefaultLanguage(t *testing.T) {
	assert.Equal(t, "en", NewDetector().DefaultLanguage())
}

func TestName(t *testing.T) {
	assert.Equal(t, "English", Name("en"))
	assert.Equal(t, "Spanish (Español)", Name("es"))
	assert.Equal(t, "Chinese (中文)", Name("zh-cn"))
	assert.Equal(t, "English", Name("unknown"))
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("en"))
	assert.True(t, IsSupported("es"))
	assert.False(t, IsSupported("ja"))
	assert.False(t, IsSupported("xx"))
}

func TestIsKnown(t *testing.T) {
	assert.True(t, IsKnown("en"))
	assert.True(t, IsKnown("ja"))
	assert.True(t, IsKnown("zh-cn"))
	assert.False(t, IsKnown("xx"))
}
