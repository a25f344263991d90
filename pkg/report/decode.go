package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrInvalidEncoding means the bytes are not UTF-8 (or BOM-marked UTF-16) text.
	ErrInvalidEncoding = errors.New("results are not valid UTF-8 text")
	// ErrInvalidJSON means the text is not a JSON document.
	ErrInvalidJSON = errors.New("results are not valid JSON")
)

// IsMalformed reports whether err came from Decode rejecting the input.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrInvalidEncoding) || errors.Is(err, ErrInvalidJSON)
}

// Decode turns raw artifact bytes into a generic JSON value: map[string]any,
// []any, string, float64, bool or nil. A byte-order mark selects UTF-8 or
// UTF-16; unmarked input must be UTF-8.
func Decode(data []byte) (any, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(text))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	// Only whitespace may follow the top-level value.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after top-level value", ErrInvalidJSON)
	}
	return v, nil
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

func decodeText(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, bomUTF16BE) || bytes.HasPrefix(data, bomUTF16LE) {
		text, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
		}
		return text, nil
	}
	// The x/text UTF-8 decoder substitutes U+FFFD instead of failing, so
	// unmarked input is validated directly.
	data = bytes.TrimPrefix(data, bomUTF8)
	if !utf8.Valid(data) {
		return nil, ErrInvalidEncoding
	}
	return data, nil
}
