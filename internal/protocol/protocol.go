// Package protocol defines the newline-delimited JSON envelopes exchanged
// with a cloud data server.
package protocol

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/tidwall/gjson"
)

// Methods understood by the client.  Other methods are accepted and
// ignored.
const (
	MethodHandshake = "handshake"
	MethodSet       = "set"
)

// Field names of the outbound envelope.  Extensions may not use them.
const (
	FieldUser      = "user"
	FieldProjectID = "project_id"
	FieldMethod    = "method"
	FieldName      = "name"
	FieldValue     = "value"
)

// Delimiter terminates every frame on the wire.
const Delimiter = '\n'

// Frame is one parsed inbound envelope.
type Frame struct {
	Method string
	Name   string
	// Value is the textual form of the "value" field.  JSON numbers keep
	// their literal text so "1.50" is not rewritten to "1.5".
	Value string
	// Raw is the segment the frame was parsed from, without delimiter.
	Raw []byte
}

// Field returns any top-level field of the raw envelope as text.
func (f Frame) Field(key string) (string, bool) {
	r := gjson.GetBytes(f.Raw, gjson.Escape(key))
	if !r.Exists() {
		return "", false
	}
	return ValueText(r), true
}

// ValueText converts a gjson result to the text stored for a variable.
func ValueText(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Null:
		return ""
	default:
		return r.Raw
	}
}

// ── Outbound ─────────────────────────────────────────────────────────

// Known extension keys.
const (
	// ExtToken carries an access token for self-hosted servers that
	// authenticate per frame instead of per connection.
	ExtToken = "token"
)

// Extensions are extra fields merged into every outbound frame after the
// base fields.  Keys colliding with a base field are ignored.
type Extensions map[string]any

// Envelope builds outbound frames for one user and project.
type Envelope struct {
	User      string
	ProjectID string
	Ext       Extensions
}

// Handshake returns the serialized handshake frame.
func (e Envelope) Handshake() []byte {
	return e.encode(MethodHandshake, "", "", false)
}

// Set returns the serialized set frame for name=value.
func (e Envelope) Set(name, value string) []byte {
	return e.encode(MethodSet, name, value, true)
}

func (e Envelope) encode(method, name, value string, withVar bool) []byte {
	var b bytes.Buffer
	b.WriteByte('{')
	writeField(&b, FieldUser, e.User, true)
	b.WriteString(`,"` + FieldProjectID + `":`)
	b.Write(ProjectIDJSON(e.ProjectID))
	writeField(&b, FieldMethod, method, false)
	if withVar {
		writeField(&b, FieldName, name, false)
		writeField(&b, FieldValue, value, false)
	}

	keys := make([]string, 0, len(e.Ext))
	for k := range e.Ext {
		if !reserved(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := marshal(e.Ext[k])
		if err != nil {
			continue
		}
		kj, _ := marshal(k)
		b.WriteByte(',')
		b.Write(kj)
		b.WriteByte(':')
		b.Write(v)
	}

	b.WriteByte('}')
	b.WriteByte(Delimiter)
	return b.Bytes()
}

func writeField(b *bytes.Buffer, key, val string, first bool) {
	if !first {
		b.WriteByte(',')
	}
	b.WriteString(`"` + key + `":`)
	v, _ := marshal(val)
	b.Write(v)
}

// marshal is json.Marshal without HTML escaping, so names containing
// '<', '>' or '&' go out as typed.
func marshal(v any) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(b.Bytes(), []byte{'\n'}), nil
}

func reserved(key string) bool {
	switch key {
	case FieldUser, FieldProjectID, FieldMethod, FieldName, FieldValue:
		return true
	}
	return false
}

// ProjectIDJSON renders id as a JSON number when it is an unsigned
// decimal integer without leading zeros, and as a JSON string otherwise.
func ProjectIDJSON(id string) []byte {
	if isDecimal(id) {
		return []byte(id)
	}
	v, _ := marshal(id)
	return v
}

func isDecimal(s string) bool {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
