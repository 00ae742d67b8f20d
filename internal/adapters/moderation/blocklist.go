// Package moderation holds the local content checks used when no remote
// moderation provider is configured.
package moderation

import (
	"context"
	"strings"
	"unicode"

	"github.com/PabloGalante/campfire/internal/domain"
)

// Blocklist rejects text containing any listed word, ignoring case and
// punctuation.
type Blocklist struct {
	words map[string]bool
}

func NewBlocklist(words []string) *Blocklist {
	b := &Blocklist{words: make(map[string]bool, len(words))}
	for _, w := range words {
		if w = normalize(w); w != "" {
			b.words[w] = true
		}
	}
	return b
}

func (b *Blocklist) Check(_ context.Context, text string) (bool, error) {
	for _, w := range strings.FieldsFunc(text, isSeparator) {
		if b.words[normalize(w)] {
			return false, nil
		}
	}
	return true, nil
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func normalize(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}

var _ domain.Moderator = (*Blocklist)(nil)
