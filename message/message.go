// Package message defines the message model consumed by the comparator,
// the leg matcher and the wait orchestrator.
//
// A Message is a named, ordered set of fields. Field values are plain Go
// values, nested messages, or repeating groups ([]Message) whose elements
// are called legs.
package message

import (
	"fmt"
	"strings"
)

// Message is the minimal contract the verification core needs from a
// protocol message.
type Message interface {
	// Name returns the message type name.
	Name() string
	// FieldNames returns field names in insertion order.
	FieldNames() []string
	// Get returns the value stored under name.
	Get(name string) (any, bool)
	// Set stores value under name, appending the name when new.
	Set(name string, value any)
	// Clone returns a shallow copy: field values are shared, the field
	// table is not.
	Clone() Message
}

// Map is an ordered, map-backed Message.
type Map struct {
	name   string
	order  []string
	fields map[string]any
}

// New constructs an empty Map message of the given type.
func New(name string) *Map {
	return &Map{
		name:   name,
		fields: map[string]any{},
	}
}

// With sets a field and returns the message for chaining.
func (m *Map) With(name string, value any) *Map {
	m.Set(name, value)
	return m
}

func (m *Map) Name() string {
	if m == nil {
		return ""
	}
	return m.name
}

func (m *Map) FieldNames() []string {
	if m == nil || len(m.order) == 0 {
		return nil
	}
	return append([]string(nil), m.order...)
}

func (m *Map) Get(name string) (any, bool) {
	if m == nil {
		return nil, false
	}
	value, ok := m.fields[name]
	return value, ok
}

func (m *Map) Set(name string, value any) {
	if m.fields == nil {
		m.fields = map[string]any{}
	}
	if _, exists := m.fields[name]; !exists {
		m.order = append(m.order, name)
	}
	m.fields[name] = value
}

// Remove deletes a field.
func (m *Map) Remove(name string) {
	if _, exists := m.fields[name]; !exists {
		return
	}
	delete(m.fields, name)
	for i, field := range m.order {
		if field == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *Map) Clone() Message {
	if m == nil {
		return nil
	}
	out := &Map{
		name:   m.name,
		order:  append([]string(nil), m.order...),
		fields: make(map[string]any, len(m.fields)),
	}
	for key, value := range m.fields {
		out.fields[key] = value
	}
	return out
}

func (m *Map) String() string {
	return Format(m)
}

// Legs returns the repeating group stored in field, if any.
func Legs(msg Message, field string) ([]Message, bool) {
	if msg == nil {
		return nil, false
	}
	value, ok := msg.Get(field)
	if !ok {
		return nil, false
	}
	legs, ok := value.([]Message)
	return legs, ok
}

// Format renders msg as `Name{field=value, ...}` for diagnostics.
func Format(msg Message) string {
	if msg == nil {
		return "<nil>"
	}
	var sb strings.Builder
	sb.WriteString(msg.Name())
	sb.WriteByte('{')
	for i, name := range msg.FieldNames() {
		if i > 0 {
			sb.WriteString(", ")
		}
		value, _ := msg.Get(name)
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(formatValue(value))
	}
	sb.WriteByte('}')
	return sb.String()
}

func formatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return "<nil>"
	case Message:
		return Format(typed)
	case []Message:
		parts := make([]string, len(typed))
		for i, leg := range typed {
			parts[i] = Format(leg)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return fmt.Sprintf("%q", typed)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprintf("%v", typed)
	}
}
