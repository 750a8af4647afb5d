// Package phrase provides the quick phrase and saved text domain entities.
package phrase

import (
	"strings"

	"github.com/google/uuid"
)

// DefaultQuickPhrases is the seed list used when no quick phrases were ever stored.
var DefaultQuickPhrases = []string{
	"Alan, precisamos comprar banana",
	"Denis, você pode me ajudar?",
	"Preciso de ajuda, por favor.",
	"Estou com sede.",
	"Estou com fome.",
	"Sim",
	"Não",
	"Obrigado(a)",
	"Estou bem",
	"Não entendi",
}

// SavedText is a longer titled passage kept for repeated playback.
type SavedText struct {
	ID      string `json:"id,omitempty"` // Synthetic identifier (UUID)
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NewSavedText creates a saved text with trimmed fields and a fresh ID.
// Returns false if either field is empty after trimming.
func NewSavedText(title, content string) (SavedText, bool) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return SavedText{}, false
	}
	return SavedText{
		ID:      uuid.New().String(),
		Title:   title,
		Content: content,
	}, true
}

// Matches reports whether s has the same title and content as other.
// IDs are ignored.
func (s SavedText) Matches(other SavedText) bool {
	return s.Title == other.Title && s.Content == other.Content
}

// NormalizeQuickPhrase trims text and reports whether anything is left.
func NormalizeQuickPhrase(text string) (string, bool) {
	text = strings.TrimSpace(text)
	return text, text != ""
}
