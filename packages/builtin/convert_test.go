package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToString(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, ""},
		{"string", "abc", "abc"},
		{"bytes", []byte("raw"), "raw"},
		{"bool", true, "true"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"whole float", float64(200), "200"},
		{"fraction", 1.25, "1.25"},
		{"map", map[string]any{"a": 1}, `{"a":1}`},
		{"slice", []any{1, "x"}, `[1,"x"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToString(tt.input))
		})
	}
}

func TestToInt(t *testing.T) {
	tests := []struct {
		input any
		want  int
		ok    bool
	}{
		{int64(5), 5, true},
		{float64(12), 12, true},
		{1.5, 0, false},
		{" 42 ", 42, true},
		{"abc", 0, false},
		{nil, 0, false},
	}

	for _, tt := range tests {
		got, ok := ToInt(tt.input)
		assert.Equal(t, tt.ok, ok, "%v", tt.input)
		assert.Equal(t, tt.want, got, "%v", tt.input)
	}
}

func TestToMap(t *testing.T) {
	m, ok := ToMap(map[string]string{"a": "b"})
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"a": "b"}, m)

	_, ok = ToMap("nope")
	assert.False(t, ok)
}
