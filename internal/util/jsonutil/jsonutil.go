package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"savedanalysis/internal/schema"
)

var ErrDecode = errors.New("decode saved analysis")

// DecodeDocument decodes a saved analysis file into an untyped document.
// Numbers are kept as json.Number so integer fields survive exactly.
// A literal null decodes to a nil document.
func DecodeDocument(raw []byte) (schema.RawDocument, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after document", ErrDecode)
	}
	if v == nil {
		return nil, nil
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected object, got %T", ErrDecode, v)
	}
	return doc, nil
}

// MarshalNoEscape encodes v into JSON without escaping <, >, & into \u003c, etc.
// Formulas in saved analyses are full of those.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Remove trailing newline from json.Encoder.Encode
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalNoEscapeIndent encodes v into JSON with indentation but without HTML escaping.
func MarshalNoEscapeIndent(v any, prefix, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
