package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_Basic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int64", int64(-100), "-100"},
		{"bool", true, "true"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"array", []any{1, "a", false}, `[1,"a",false]`},
		{"sorted keys", map[string]any{"zebra": 1, "alpha": 2, "beta": 3}, `{"alpha":2,"beta":3,"zebra":1}`},
		{"nested", map[string]any{"z": map[string]any{"b": 1, "a": 2}, "a": 3}, `{"a":3,"z":{"a":2,"b":1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalCanonical_UTF16Ordering(t *testing.T) {
	// U+10000 encodes as the surrogate pair D800 DC00, which sorts before
	// U+E000 in UTF-16 even though its UTF-8 bytes sort after.
	got, err := MarshalCanonical(map[string]any{"\uE000": 1, "𐀀": 2})
	require.NoError(t, err)
	assert.Equal(t, `{"𐀀":2,"`+"\uE000"+`":1}`, string(got))
}

func TestMarshalCanonical_Escaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"html kept", "<a & b>", `"<a & b>"`},
		{"quote and backslash", `say "hi" \o/`, `"say \"hi\" \\o/"`},
		{"short escapes", "a\nb\tc\r", `"a\nb\tc\r"`},
		{"control", "\x01", `"\u0001"`},
		{"line separators kept", "a\u2028b\u2029c", "\"a\u2028b\u2029c\""},
		{"nfc", "e\u0301", "\"\u00e9\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	for name, input := range map[string]any{
		"null":         nil,
		"float":        1.5,
		"nested null":  map[string]any{"a": []any{nil}},
		"unsupported":  struct{}{},
		"nested float": []any{map[string]any{"x": float32(2)}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := MarshalCanonical(input)
			assert.Error(t, err)
		})
	}
}

func TestHashWithDomain(t *testing.T) {
	a := hashWithDomain(DomainFileResult, []byte("{}"))
	b := hashWithDomain("other/v1", []byte("{}"))
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, hashWithDomain(DomainFileResult, []byte("{}")))
}
