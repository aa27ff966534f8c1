package jsonrpc

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/go-faster/jx"
)

// Envelopes are UTF-8 JSON text. Decoding rejects anything else; encoding
// replaces invalid sequences held in memory with U+FFFD.

const replacementChar = "\uFFFD"

func writeStr(e *jx.Encoder, s string) {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, replacementChar)
	}
	e.Str(s)
}

func writeRaw(e *jx.Encoder, raw jx.Raw) {
	if !utf8.Valid(raw) {
		raw = bytes.ToValidUTF8(raw, []byte(replacementChar))
	}
	e.Raw(raw)
}
