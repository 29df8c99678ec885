package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const detailsHeader = "Additional details:"

// Detail is one caller-supplied key/value pair. Value holds the raw JSON.
type Detail struct {
	Key   string
	Value json.RawMessage
}

// Details keeps additional details in the order the caller sent them.
type Details []Detail

// UnmarshalJSON decodes a JSON object preserving member order. null decodes
// to an empty list.
func (d *Details) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*d = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("additional details: expected object, got %v", tok)
	}

	out := Details{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("additional details: unexpected key %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("additional details %q: %w", key, err)
		}
		out = append(out, Detail{Key: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = out
	return nil
}

// MarshalJSON encodes the details as an object in their stored order.
func (d Details) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, item := range d {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(item.Key)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		if len(item.Value) == 0 {
			b.WriteString("null")
		} else {
			b.Write(item.Value)
		}
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// StringDetails builds Details from string pairs, keeping argument order.
func StringDetails(pairs ...string) Details {
	out := make(Details, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		v, _ := json.Marshal(pairs[i+1])
		out = append(out, Detail{Key: pairs[i], Value: v})
	}
	return out
}

// Text renders the value: JSON strings verbatim, anything else as its
// compact JSON literal.
func (d Detail) Text() string {
	raw := bytes.TrimSpace(d.Value)
	if len(raw) == 0 {
		return "null"
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}

// BuildPrompt appends the details to the query as "key: value" lines under a
// fixed header. With no details the query is returned unchanged.
func BuildPrompt(query string, details Details) string {
	if len(details) == 0 {
		return query
	}
	lines := make([]string, 0, len(details))
	for _, d := range details {
		lines = append(lines, d.Key+": "+d.Text())
	}
	return query + "\n\n" + detailsHeader + "\n" + strings.Join(lines, "\n")
}
