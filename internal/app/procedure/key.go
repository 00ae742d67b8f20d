package procedure

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

const keyPrefix = "q-"

// Question is an outgoing Ask message. Suffix tells apart Ask points that
// legitimately use the same text, e.g. one per character field.
type Question struct {
	Text        string
	Attachments []string
	Suffix      string
}

// Key is the deterministic question key persisted as the Ask cursor.
func (q Question) Key() string {
	return QuestionKey(q.Text, q.Attachments, q.Suffix)
}

// QuestionKey hashes the question content and suffix. Parts are separated by
// NUL so that moving bytes between text and suffix changes the key.
func QuestionKey(text string, attachments []string, suffix string) string {
	h := blake3.New()
	_, _ = h.Write([]byte(text))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strings.Join(attachments, "\n")))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(suffix))
	sum := h.Sum(nil)
	return keyPrefix + hex.EncodeToString(sum[:16])
}
