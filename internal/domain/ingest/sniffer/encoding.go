package sniffer

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding names reported by Decode, in the order they are tried.
const (
	EncodingUTF8BOM  = "utf-8-sig"
	EncodingUTF8     = "utf-8"
	EncodingLatin1   = "latin-1"
	EncodingCP1252   = "cp1252"
	EncodingISO88591 = "iso-8859-1"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type decoder struct {
	name   string
	decode func([]byte) (string, bool)
}

// decoders is the ordered fallback list. A single-byte decode is rejected
// when it yields C1 control characters, which real statements never contain
// and which signal that a different code page was used.
var decoders = []decoder{
	{EncodingUTF8BOM, func(b []byte) (string, bool) {
		if !bytes.HasPrefix(b, utf8BOM) {
			return "", false
		}
		rest := b[len(utf8BOM):]
		return string(rest), utf8.Valid(rest)
	}},
	{EncodingUTF8, func(b []byte) (string, bool) {
		return string(b), utf8.Valid(b)
	}},
	{EncodingLatin1, func(b []byte) (string, bool) {
		s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
		return string(s), err == nil && !hasC1Controls(string(s))
	}},
	{EncodingCP1252, func(b []byte) (string, bool) {
		s, err := charmap.Windows1252.NewDecoder().Bytes(b)
		out := string(s)
		return out, err == nil && !hasC1Controls(out) && !strings.ContainsRune(out, utf8.RuneError)
	}},
	{EncodingISO88591, func(b []byte) (string, bool) {
		s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
		return string(s), err == nil
	}},
}

// Decode converts raw statement bytes to text using the first encoding in
// the fallback list that decodes cleanly. ISO-8859-1 maps every byte, so the
// list never runs dry.
func Decode(data []byte) (string, string) {
	for _, d := range decoders {
		if text, ok := d.decode(data); ok {
			return text, d.name
		}
	}
	return string(data), EncodingISO88591
}

func hasC1Controls(s string) bool {
	for _, r := range s {
		if r >= 0x80 && r <= 0x9F {
			return true
		}
	}
	return false
}
