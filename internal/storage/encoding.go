package storage

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// utf8Replacement is the encoded form of U+FFFD, which the cp1251 decoder
// substitutes for bytes the codepage does not define.
var utf8Replacement = []byte{0xEF, 0xBF, 0xBD}

// DecodeDBText converts a raw text column value from the legacy store.
// The schema predates UTF-8 and stores cp1251 bytes, but newer rows may
// already be valid UTF-8, so decoding tries UTF-8 first, then cp1251,
// then latin-1 as a last resort.
func DecodeDBText(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	if decoded, err := charmap.Windows1251.NewDecoder().Bytes(raw); err == nil && !bytes.Contains(decoded, utf8Replacement) {
		return string(decoded)
	}
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}

// EncodeDBText converts a string to the cp1251 bytes the legacy store
// expects, substituting unsupported characters rather than failing.
func EncodeDBText(value string) []byte {
	encoder := encoding.ReplaceUnsupported(charmap.Windows1251.NewEncoder())
	out, err := encoder.Bytes([]byte(value))
	if err != nil {
		return []byte(value)
	}
	return out
}
