package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ReplyKind tags which shape a reply payload was decoded from.
type ReplyKind int

const (
	ReplyOpaque ReplyKind = iota
	ReplyString
	ReplyText
	ReplyItems
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyItems:
		return "items"
	case ReplyText:
		return "text"
	case ReplyString:
		return "string"
	default:
		return "opaque"
	}
}

// Reply is an agent reply whose wire shape is owned by the platform:
// a list of text-bearing items, an object with a text attribute, a bare
// string, or something else entirely.
type Reply struct {
	Kind  ReplyKind
	Items []string
	Text  string
}

// String returns the reply text. Item texts are concatenated without a
// separator.
func (r Reply) String() string {
	if r.Kind == ReplyItems {
		return strings.Join(r.Items, "")
	}
	return r.Text
}

// ItemsCarrier is implemented by payloads that hold a list of items.
type ItemsCarrier interface {
	ReplyItems() []any
}

// TextCarrier is implemented by payloads (or items) that expose text directly.
type TextCarrier interface {
	ReplyText() string
}

// DecodeReply classifies payload, checking in order: item list, direct text,
// plain string, then falling back to the payload's string form.
func DecodeReply(payload any) Reply {
	switch v := payload.(type) {
	case nil:
		return Reply{Kind: ReplyOpaque}
	case json.RawMessage:
		return decodeJSONReply(v)
	case []byte:
		return decodeJSONReply(v)
	case ItemsCarrier:
		return itemsReply(v.ReplyItems())
	case TextCarrier:
		return Reply{Kind: ReplyText, Text: v.ReplyText()}
	case map[string]any:
		if r, ok := decodeObject(v); ok {
			return r
		}
		b, err := json.Marshal(v)
		if err != nil {
			return Reply{Kind: ReplyOpaque, Text: fmt.Sprint(v)}
		}
		return Reply{Kind: ReplyOpaque, Text: string(b)}
	case string:
		return Reply{Kind: ReplyString, Text: v}
	case fmt.Stringer:
		return Reply{Kind: ReplyOpaque, Text: v.String()}
	default:
		return Reply{Kind: ReplyOpaque, Text: fmt.Sprint(v)}
	}
}

func decodeJSONReply(raw []byte) Reply {
	trimmed := bytes.TrimSpace(raw)
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return Reply{Kind: ReplyOpaque, Text: string(trimmed)}
	}
	switch t := v.(type) {
	case map[string]any:
		if r, ok := decodeObject(t); ok {
			return r
		}
	case string:
		return Reply{Kind: ReplyString, Text: t}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return Reply{Kind: ReplyOpaque, Text: string(trimmed)}
	}
	return Reply{Kind: ReplyOpaque, Text: compact.String()}
}

// decodeObject handles map-shaped payloads. "items" and "content" arrays count
// as item lists; a "text" member (or a string "content") counts as direct text.
func decodeObject(obj map[string]any) (Reply, bool) {
	for _, key := range []string{"items", "content"} {
		if list, ok := obj[key].([]any); ok {
			return itemsReply(list), true
		}
	}
	if text, ok := textOf(obj["text"]); ok {
		return Reply{Kind: ReplyText, Text: text}, true
	}
	if content, ok := obj["content"].(string); ok {
		return Reply{Kind: ReplyText, Text: content}, true
	}
	return Reply{}, false
}

func itemsReply(items []any) Reply {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if text, ok := itemText(item); ok {
			out = append(out, text)
		}
	}
	return Reply{Kind: ReplyItems, Items: out}
}

func itemText(item any) (string, bool) {
	switch v := item.(type) {
	case TextCarrier:
		return v.ReplyText(), true
	case map[string]any:
		return textOf(v["text"])
	}
	return "", false
}

// textOf accepts "text": "..." and the annotated form "text": {"value": "..."}.
func textOf(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case map[string]any:
		if s, ok := t["value"].(string); ok {
			return s, true
		}
	}
	return "", false
}
