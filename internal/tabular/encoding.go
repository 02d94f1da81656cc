package tabular

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names a text encoding a CSV source may have been written in.
type Encoding string

const (
	UTF8    Encoding = "utf-8"
	UTF16   Encoding = "utf-16"
	UTF16BE Encoding = "utf-16be"
	UTF16LE Encoding = "utf-16le"
	Latin1  Encoding = "latin1"
)

// DefaultEncodings is the fallback order used when a source declares none.
var DefaultEncodings = []Encoding{UTF8, Latin1, UTF16BE}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseEncoding normalizes an encoding name.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8":
		return UTF8, nil
	case "utf-16", "utf16":
		return UTF16, nil
	case "utf-16be", "utf16be", "utf-16-be":
		return UTF16BE, nil
	case "utf-16le", "utf16le", "utf-16-le":
		return UTF16LE, nil
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1", "l1":
		return Latin1, nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", name)
	}
}

// ParseEncodings normalizes a list of names, rejecting unknown ones.
func ParseEncodings(names []string) ([]Encoding, error) {
	out := make([]Encoding, 0, len(names))
	for _, n := range names {
		enc, err := ParseEncoding(n)
		if err != nil {
			return nil, err
		}
		out = append(out, enc)
	}
	return out, nil
}

func (e Encoding) codec() (encoding.Encoding, error) {
	switch e {
	case UTF16:
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), nil
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	case Latin1:
		return charmap.ISO8859_1, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", string(e))
	}
}

// decodeText converts raw bytes to UTF-8 text. Decoding is strict: invalid
// input or a replacement rune in the output rejects the candidate.
func (e Encoding) decodeText(data []byte) (string, error) {
	if e == UTF8 {
		data = bytes.TrimPrefix(data, utf8BOM)
		if !utf8.Valid(data) {
			return "", errors.New("invalid utf-8 byte sequence")
		}
		return string(data), nil
	}
	if (e == UTF16BE || e == UTF16LE) && len(data)%2 != 0 {
		return "", errors.New("odd byte count for utf-16")
	}
	codec, err := e.codec()
	if err != nil {
		return "", err
	}
	out, err := codec.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	if e != Latin1 && bytes.ContainsRune(out, utf8.RuneError) {
		return "", errors.New("undecodable byte sequence")
	}
	text := string(out)
	if e == UTF16BE || e == UTF16LE {
		text = strings.TrimPrefix(text, "\ufeff")
	}
	return text, nil
}

// encodeText converts UTF-8 text into the target encoding. Runes the
// encoding cannot represent fail the conversion.
func (e Encoding) encodeText(text string) ([]byte, error) {
	if e == UTF8 {
		if !utf8.ValidString(text) {
			return nil, errors.New("invalid utf-8 text")
		}
		return []byte(text), nil
	}
	codec, err := e.codec()
	if err != nil {
		return nil, err
	}
	if e == UTF16 {
		codec = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	}
	out, err := codec.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, err
	}
	return out, nil
}
