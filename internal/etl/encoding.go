package etl

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeFallback decodes a raw file as UTF-8 when possible and falls back
// to the single-byte encodings the legacy exports were written in. It
// returns the decoded text and the name of the encoding that was used.
// Latin-1 assigns a character to every byte value, so decoding never fails.
func DecodeFallback(raw []byte) (string, string) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw), "utf-8"
	}
	if decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw); err == nil {
		return string(decoded), "latin-1"
	}
	decoded, _ := charmap.Windows1252.NewDecoder().Bytes(raw)
	return string(decoded), "windows-1252"
}
