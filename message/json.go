package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// TypeKey is the JSON member carrying a message type name.
const TypeKey = "$type"

// FromJSON decodes a JSON object into a Map, preserving member order.
//
// Nested objects become nested messages and arrays of objects become
// repeating groups. A nested object without a "$type" member takes the
// member name as its type. Integral numbers decode as int64, others as
// float64.
func FromJSON(data []byte) (*Map, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("message: decode: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("message: decode: expected object, got %v", tok)
	}
	msg, err := decodeObject(dec, "")
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("message: decode: trailing data after object")
	}
	return msg, nil
}

func decodeObject(dec *json.Decoder, fallbackName string) (*Map, error) {
	msg := New(fallbackName)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("message: decode: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("message: decode: unexpected key %v", tok)
		}
		value, err := decodeValue(dec, key)
		if err != nil {
			return nil, err
		}
		if key == TypeKey {
			name, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("message: decode: %s must be a string", TypeKey)
			}
			msg.name = name
			continue
		}
		msg.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("message: decode: %w", err)
	}
	return msg, nil
}

func decodeValue(dec *json.Decoder, field string) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("message: decode %q: %w", field, err)
	}
	switch typed := tok.(type) {
	case json.Delim:
		switch typed {
		case '{':
			return decodeObject(dec, field)
		case '[':
			return decodeArray(dec, field)
		}
		return nil, fmt.Errorf("message: decode %q: unexpected %v", field, typed)
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return i, nil
		}
		f, err := typed.Float64()
		if err != nil {
			return nil, fmt.Errorf("message: decode %q: %w", field, err)
		}
		return f, nil
	default:
		return typed, nil
	}
}

func decodeArray(dec *json.Decoder, field string) (any, error) {
	var values []any
	allMessages := true
	for dec.More() {
		value, err := decodeValue(dec, field)
		if err != nil {
			return nil, err
		}
		if _, ok := value.(*Map); !ok {
			allMessages = false
		}
		values = append(values, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("message: decode %q: %w", field, err)
	}
	if allMessages && len(values) > 0 {
		legs := make([]Message, len(values))
		for i, value := range values {
			legs[i] = value.(*Map)
		}
		return legs, nil
	}
	if values == nil {
		values = []any{}
	}
	return values, nil
}
