package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDocumentKeepsIntegers(t *testing.T) {
	doc, err := DecodeDocument([]byte(`{"version":"0.1.0","steps":{"1":{"step_version":1,"step_type":"filter","big":9007199254740993}}}`))
	require.NoError(t, err)

	step := doc["steps"].(map[string]any)["1"].(map[string]any)
	assert.Equal(t, json.Number("1"), step["step_version"])
	assert.Equal(t, json.Number("9007199254740993"), step["big"])
}

func TestDecodeDocumentNull(t *testing.T) {
	doc, err := DecodeDocument([]byte("null"))
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestDecodeDocumentRejects(t *testing.T) {
	for _, in := range []string{`[]`, `"x"`, `{"a":1} {"b":2}`, `{`} {
		_, err := DecodeDocument([]byte(in))
		assert.ErrorIs(t, err, ErrDecode, in)
	}
}

func TestMarshalNoEscape(t *testing.T) {
	out, err := MarshalNoEscape(map[string]any{"formula": "=IF(A<B, 1, 0) & C"})
	require.NoError(t, err)
	assert.Equal(t, `{"formula":"=IF(A<B, 1, 0) & C"}`, string(out))

	out, err = MarshalNoEscapeIndent(map[string]any{"a": "<"}, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": \"<\"\n}", string(out))
}

func TestDecodeOrderedKeepsKeyOrder(t *testing.T) {
	v, err := DecodeOrdered([]byte(`{"zeta":1,"alpha":{"b":true,"a":null},"list":[{"y":"<","x":2}]}`))
	require.NoError(t, err)

	obj, ok := v.(*Object)
	require.True(t, ok)
	assert.Equal(t, []string{"zeta", "alpha", "list"}, obj.Keys())

	out, err := MarshalNoEscape(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":{"b":true,"a":null},"list":[{"y":"<","x":2}]}`, string(out))

	indented, err := MarshalNoEscapeIndent(obj, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"zeta\": 1,\n  \"alpha\": {\n    \"b\": true,\n    \"a\": null\n  },\n  \"list\": [\n    {\n      \"y\": \"<\",\n      \"x\": 2\n    }\n  ]\n}", string(indented))
}

func TestDecodeOrderedPlain(t *testing.T) {
	v, err := DecodeOrdered([]byte(`{"a":{"b":[{"c":1}]},"a":{"b":[]}}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": map[string]any{"b": []any{}}}, Plain(v))
	assert.Equal(t, []string{"a"}, v.(*Object).Keys())
}

func TestDecodeOrderedRejects(t *testing.T) {
	for _, in := range []string{`{`, `{"a":1} 2`, `[1,`, `}`} {
		_, err := DecodeOrdered([]byte(in))
		assert.ErrorIs(t, err, ErrDecode, in)
	}
}
