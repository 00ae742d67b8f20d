// Package tokens estimates message token costs and memoises them on the log.
package tokens

import (
	"context"
	"fmt"
	"unicode"

	"github.com/PabloGalante/campfire/internal/domain"
)

// subwordRunes approximates how many runes of a word share one token.
const subwordRunes = 4

// Estimate approximates a tokenizer: every run of letters or digits costs one
// token per started group of four runes, every other visible rune costs one.
func Estimate(text string) int {
	n := 0
	word := 0
	flush := func() {
		if word > 0 {
			n += (word + subwordRunes - 1) / subwordRunes
			word = 0
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word++
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			n++
		}
	}
	flush()
	return n
}

// Counter returns token counts, computing each message's count once and
// caching it as a tokens tag on the log. Message text never changes, so the
// cache is never invalidated.
type Counter struct {
	log domain.TaggedLog
}

func NewCounter(log domain.TaggedLog) *Counter {
	return &Counter{log: log}
}

// Count returns the cost of msg. On a cache miss the tag is written to the log
// and to msg itself.
func (c *Counter) Count(ctx context.Context, msg *domain.Message) (int, error) {
	if n, ok := msg.CachedTokens(); ok {
		return n, nil
	}

	n := Estimate(msg.Text)
	tag := domain.TokenCountTag(n)
	if err := c.log.Annotate(ctx, msg.SessionID, msg.Index, tag); err != nil {
		return 0, fmt.Errorf("cache token count of message %d: %w", msg.Index, err)
	}
	msg.Tags = append(msg.Tags, tag)
	return n, nil
}
