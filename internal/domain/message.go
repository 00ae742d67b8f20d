package domain

// Message is one immutable entry of a session's tagged log. Text and
// Attachments never change after append; Tags only grow.
type Message struct {
	Index       int
	SessionID   SessionID
	Role        Role
	Text        string
	Attachments []string // image/audio references produced by generators
	Tags        []Tag
	CreatedAt   Timestamp
}

// Draft is a message that has not been appended yet.
type Draft struct {
	Role        Role
	Text        string
	Attachments []string
	Tags        []Tag
}

// HasTag reports whether any tag matches ref.
func (m *Message) HasTag(ref TagRef) bool {
	for _, t := range m.Tags {
		if ref.Matches(t) {
			return true
		}
	}
	return false
}

// CorrelatedWith reports whether m carries a kind tag whose value equals id.
func (m *Message) CorrelatedWith(kind TagKind, id string) bool {
	for _, t := range m.Tags {
		if CorrelationMatches(t, kind, id) {
			return true
		}
	}
	return false
}

// CorrelationID returns the first value of a kind correlation tag.
func (m *Message) CorrelationID(kind TagKind) (string, bool) {
	for _, t := range m.Tags {
		if t.Kind == kind && t.Value.Kind == ValueString {
			return t.Value.Str, true
		}
	}
	return "", false
}

// Excluded reports whether moderation removed the message from play.
func (m *Message) Excluded() bool {
	return m.HasTag(TagRef{Kind: TagExcluded})
}

// CachedTokens returns the memoised token count, if any.
func (m *Message) CachedTokens() (int, bool) {
	for _, t := range m.Tags {
		if t.Kind == TagTokens && t.Name == tokenCountName && t.Value.Kind == ValueInt {
			return t.Value.Int, true
		}
	}
	return 0, false
}

// Clone returns a deep copy so stores never hand out shared slices.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	cp := *m
	cp.Attachments = append([]string(nil), m.Attachments...)
	cp.Tags = make([]Tag, len(m.Tags))
	for i, t := range m.Tags {
		cp.Tags[i] = t
		if t.Value.Fields != nil {
			cp.Tags[i].Value = FieldsValue(t.Value.Fields)
		}
	}
	return &cp
}
