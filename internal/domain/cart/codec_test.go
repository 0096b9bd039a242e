package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_EmptyCart(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestEncode_WireFormat(t *testing.T) {
	desc := "milk"
	data, err := Encode([]LineItem{
		{ProductID: "p1", Name: "Latte", UnitPrice: 450, Description: &desc, Quantity: 2},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"p1","name":"Latte","price":450,"desc":"milk","image":null,"quantity":2}]`, string(data))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []LineItem
	}{
		{
			name: "unknown fields ignored and optional fields nil",
			in:   `[{"id":"p1","name":"Latte","price":450,"quantity":1,"extra":true}]`,
			want: []LineItem{{ProductID: "p1", Name: "Latte", UnitPrice: 450, Quantity: 1}},
		},
		{
			name: "empty id and non-positive quantity dropped",
			in:   `[{"id":"","quantity":1},{"id":"p2","quantity":0},{"id":"p3","name":"Mocha","price":500,"quantity":1}]`,
			want: []LineItem{{ProductID: "p3", Name: "Mocha", UnitPrice: 500, Quantity: 1}},
		},
		{
			name: "duplicate ids merged keeping the first snapshot",
			in:   `[{"id":"p1","name":"Latte","price":450,"quantity":1},{"id":"p1","name":"Other","price":1,"quantity":2}]`,
			want: []LineItem{{ProductID: "p1", Name: "Latte", UnitPrice: 450, Quantity: 3}},
		},
		{
			name: "empty array",
			in:   `[]`,
			want: []LineItem{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_NotAnArray(t *testing.T) {
	_, err := Decode([]byte(`{"id":"p1"}`))
	assert.Error(t, err)
}
