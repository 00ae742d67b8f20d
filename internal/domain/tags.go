package domain

import (
	"fmt"
	"strings"
)

// TagKind is the closed set of tag kinds a message can carry.
type TagKind string

const (
	// TagInstruction marks structural instruction messages (name: setup,
	// quest_intro, npc_intro).
	TagInstruction TagKind = "instruction"
	// TagQuest correlates a message with a quest (value: quest id).
	TagQuest TagKind = "quest"
	// TagConversation correlates a message with an NPC conversation (value: npc id).
	TagConversation TagKind = "conversation"
	// TagProcedure marks the procedure that produced a message (name: camp, onboarding...).
	TagProcedure TagKind = "procedure"
	// TagSummary marks a quest summary written when a quest is archived.
	TagSummary TagKind = "summary"
	// TagTokens caches the token count of a message.
	TagTokens TagKind = "tokens"
	// TagExcluded hides a message from every filter (moderation).
	TagExcluded TagKind = "excluded"
	// TagAsk marks a question message (name: question key).
	TagAsk TagKind = "ask"
	// TagInventory marks an inventory snapshot.
	TagInventory TagKind = "inventory"
)

// Instruction tag names.
const (
	InstructionSetup      = "setup"
	InstructionQuestIntro = "quest_intro"
	InstructionNPCIntro   = "npc_intro"
)

const tokenCountName = "count"

// ValueKind discriminates TagValue.
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueString
	ValueInt
	ValueFields
)

func (k ValueKind) String() string {
	switch k {
	case ValueNone:
		return "none"
	case ValueString:
		return "string"
	case ValueInt:
		return "int"
	case ValueFields:
		return "fields"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// TagValue is a tagged union; only the member selected by Kind is meaningful.
type TagValue struct {
	Kind   ValueKind         `json:"kind" cbor:"kind" firestore:"kind"`
	Str    string            `json:"str,omitempty" cbor:"str,omitempty" firestore:"str,omitempty"`
	Int    int               `json:"int,omitempty" cbor:"int,omitempty" firestore:"int,omitempty"`
	Fields map[string]string `json:"fields,omitempty" cbor:"fields,omitempty" firestore:"fields,omitempty"`
}

func StringValue(s string) TagValue { return TagValue{Kind: ValueString, Str: s} }
func IntValue(n int) TagValue       { return TagValue{Kind: ValueInt, Int: n} }

func FieldsValue(fields map[string]string) TagValue {
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return TagValue{Kind: ValueFields, Fields: cp}
}

// Tag is a (kind, name, value) marker attached to a Message.
type Tag struct {
	Kind  TagKind  `json:"kind" cbor:"kind" firestore:"kind"`
	Name  string   `json:"name" cbor:"name" firestore:"name"`
	Value TagValue `json:"value" cbor:"value" firestore:"value"`
}

// TagRef addresses tags by kind and name. An empty Name matches any name.
type TagRef struct {
	Kind TagKind
	Name string
}

func (r TagRef) Matches(t Tag) bool {
	return t.Kind == r.Kind && (r.Name == "" || t.Name == r.Name)
}

func (r TagRef) String() string {
	if r.Name == "" {
		return string(r.Kind)
	}
	return string(r.Kind) + ":" + r.Name
}

// Constructors for the tags the game writes.

func InstructionTag(name string) Tag {
	return Tag{Kind: TagInstruction, Name: name}
}

func QuestTag(id QuestID) Tag {
	return Tag{Kind: TagQuest, Name: "id", Value: StringValue(string(id))}
}

func ConversationTag(id NPCID) Tag {
	return Tag{Kind: TagConversation, Name: "id", Value: StringValue(string(id))}
}

func ProcedureTag(name string) Tag {
	return Tag{Kind: TagProcedure, Name: name}
}

func SummaryTag() Tag {
	return Tag{Kind: TagSummary, Name: "quest"}
}

func TokenCountTag(n int) Tag {
	return Tag{Kind: TagTokens, Name: tokenCountName, Value: IntValue(n)}
}

func ExcludedTag(reason string) Tag {
	return Tag{Kind: TagExcluded, Name: "moderation", Value: StringValue(reason)}
}

func AskTag(key string) Tag {
	return Tag{Kind: TagAsk, Name: key}
}

func InventoryTag(items map[string]string) Tag {
	return Tag{Kind: TagInventory, Name: "snapshot", Value: FieldsValue(items)}
}

// CorrelationMatches reports whether t correlates its message with id under kind.
// Ids compare case-insensitively.
func CorrelationMatches(t Tag, kind TagKind, id string) bool {
	if t.Kind != kind || t.Value.Kind != ValueString {
		return false
	}
	return strings.EqualFold(t.Value.Str, id)
}
