package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPreservesFieldOrder(t *testing.T) {
	msg := New("Order").With("b", 1).With("a", 2).With("b", 3)

	assert.Equal(t, []string{"b", "a"}, msg.FieldNames())
	value, ok := msg.Get("b")
	require.True(t, ok)
	assert.Equal(t, 3, value)
}

func TestMapCloneDetachesFieldTable(t *testing.T) {
	msg := New("Order").With("qty", 1)
	clone := msg.Clone()
	clone.Set("qty", 2)
	clone.Set("side", "buy")

	value, _ := msg.Get("qty")
	assert.Equal(t, 1, value)
	assert.Equal(t, []string{"qty"}, msg.FieldNames())
	assert.Equal(t, "Order", clone.Name())
}

func TestMapRemove(t *testing.T) {
	msg := New("Order").With("a", 1).With("b", 2).With("c", 3)
	msg.Remove("b")
	msg.Remove("missing")

	assert.Equal(t, []string{"a", "c"}, msg.FieldNames())
	_, ok := msg.Get("b")
	assert.False(t, ok)
}

func TestLegs(t *testing.T) {
	legs := []Message{New("Leg").With("px", 1)}
	msg := New("Order").With("legs", legs).With("qty", 1)

	got, ok := Legs(msg, "legs")
	require.True(t, ok)
	assert.Len(t, got, 1)

	_, ok = Legs(msg, "qty")
	assert.False(t, ok)
	_, ok = Legs(nil, "legs")
	assert.False(t, ok)
}

func TestFromJSON(t *testing.T) {
	msg, err := FromJSON([]byte(`{
		"$type": "NewOrderSingle",
		"ClOrdID": "abc",
		"Qty": 100,
		"Price": 10.5,
		"Tags": [1, 2],
		"Parties": [{"$type": "Party", "ID": "p1"}, {"ID": "p2"}],
		"Instrument": {"Symbol": "XYZ"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "NewOrderSingle", msg.Name())
	assert.Equal(t, []string{"ClOrdID", "Qty", "Price", "Tags", "Parties", "Instrument"}, msg.FieldNames())

	qty, _ := msg.Get("Qty")
	assert.Equal(t, int64(100), qty)
	price, _ := msg.Get("Price")
	assert.Equal(t, 10.5, price)
	tags, _ := msg.Get("Tags")
	assert.Equal(t, []any{int64(1), int64(2)}, tags)

	parties, ok := Legs(msg, "Parties")
	require.True(t, ok)
	require.Len(t, parties, 2)
	assert.Equal(t, "Party", parties[0].Name())
	assert.Equal(t, "Parties", parties[1].Name())

	instrument, _ := msg.Get("Instrument")
	nested, ok := instrument.(Message)
	require.True(t, ok)
	assert.Equal(t, "Instrument", nested.Name())
}

func TestFromJSONRejectsNonObject(t *testing.T) {
	_, err := FromJSON([]byte(`[1,2]`))
	require.Error(t, err)

	_, err = FromJSON([]byte(`{"a": 1} {"b": 2}`))
	require.Error(t, err)
}

func TestFormat(t *testing.T) {
	msg := New("Order").With("id", "a").With("legs", []Message{New("Leg").With("px", 1)})
	assert.Equal(t, `Order{id="a", legs=[Leg{px=1}]}`, Format(msg))
	assert.Equal(t, "<nil>", Format(nil))
}
