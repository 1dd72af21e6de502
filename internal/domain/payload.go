package domain

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// PayloadKind tags the variant held by a Payload.
type PayloadKind int

const (
	// PayloadStructured is a decoded JSON object.
	PayloadStructured PayloadKind = iota
	// PayloadRawText is decoded text that was not a JSON object.
	PayloadRawText
)

// Payload is a decoded broker message: either a JSON object or the raw text
// it failed to parse from. Use Fields or Text to read the variant.
type Payload struct {
	kind   PayloadKind
	fields map[string]any
	text   string
}

// Structured wraps a decoded JSON object.
func Structured(fields map[string]any) Payload {
	return Payload{kind: PayloadStructured, fields: fields}
}

// RawText wraps text that could not be decoded as a JSON object.
func RawText(text string) Payload {
	return Payload{kind: PayloadRawText, text: text}
}

// Kind reports which variant the payload holds.
func (p Payload) Kind() PayloadKind { return p.kind }

// Fields returns the object fields and true for structured payloads.
func (p Payload) Fields() (map[string]any, bool) {
	if p.kind != PayloadStructured {
		return nil, false
	}
	return p.fields, true
}

// Text returns the raw text and true for raw-text payloads.
func (p Payload) Text() (string, bool) {
	if p.kind != PayloadRawText {
		return "", false
	}
	return p.text, true
}

// MarshalJSON renders structured payloads as objects and raw text as a JSON string.
func (p Payload) MarshalJSON() ([]byte, error) {
	if p.kind == PayloadRawText {
		return json.Marshal(p.text)
	}
	return json.Marshal(p.fields)
}

// DecodeRecord turns a raw record into a payload. It returns false when the
// record carries no value. Decoding never fails: corrupt base64 keeps the bytes
// decoded before the corruption, invalid UTF-8 is replaced with U+FFFD, and text
// that is not a JSON object falls back to a RawText payload.
func DecodeRecord(rec RawRecord) (Payload, bool) {
	if rec.Value == nil {
		return Payload{}, false
	}
	return parsePayload(decodeValue(*rec.Value)), true
}

// DecodePayloads decodes every record that carries a value, preserving order.
func DecodePayloads(records []RawRecord) []Payload {
	payloads := make([]Payload, 0, len(records))
	for _, rec := range records {
		if p, ok := DecodeRecord(rec); ok {
			payloads = append(payloads, p)
		}
	}
	return payloads
}

func decodeValue(value string) string {
	// DecodeString returns the bytes written before the first corrupt quantum.
	data, _ := base64.StdEncoding.DecodeString(value)
	return strings.ToValidUTF8(string(data), "\uFFFD")
}

var errTrailingData = errors.New("trailing data after JSON value")

func parsePayload(text string) Payload {
	fields, err := decodeObject(text)
	if err != nil || fields == nil {
		return RawText(text)
	}
	return Structured(fields)
}

func decodeObject(text string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return fields, nil
}

// EncodeValue base64-encodes a message body the way the managed event source does.
func EncodeValue(body []byte) *string {
	v := base64.StdEncoding.EncodeToString(body)
	return &v
}
