// Package jsonfield extracts named string fields from flat JSON text.
//
// The relay and session blobs this system consumes are small flat objects
// whose interesting values are always strings. This package keeps that
// narrow contract with defined behavior on missing or malformed input
// instead of substring arithmetic over raw text.
package jsonfield

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// String returns the value of the first string field named key within blob.
// The second return is false when the key is absent, the value is not a
// string, or the surrounding text is malformed. Arbitrary input never
// panics.
func String(blob, key string) (string, bool) {
	if key == "" {
		return "", false
	}
	needle := `"` + key + `"`
	offset := 0
	for {
		idx := strings.Index(blob[offset:], needle)
		if idx < 0 {
			return "", false
		}
		pos := offset + idx + len(needle)
		offset = pos

		rest := skipSpace(blob[pos:])
		if !strings.HasPrefix(rest, ":") {
			// Matched a value, not a key. Keep scanning.
			continue
		}
		rest = skipSpace(rest[1:])
		if !strings.HasPrefix(rest, `"`) {
			return "", false
		}
		return decodeString(rest[1:])
	}
}

func skipSpace(s string) string {
	return strings.TrimLeft(s, " \t\r\n")
}

// decodeString consumes a JSON string body up to its closing quote and
// resolves escape sequences.
func decodeString(s string) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"':
			return b.String(), true
		case c == '\\':
			if i+1 >= len(s) {
				return "", false
			}
			esc := s[i+1]
			switch esc {
			case '"', '\\', '/':
				b.WriteByte(esc)
				i += 2
			case 'b':
				b.WriteByte('\b')
				i += 2
			case 'f':
				b.WriteByte('\f')
				i += 2
			case 'n':
				b.WriteByte('\n')
				i += 2
			case 'r':
				b.WriteByte('\r')
				i += 2
			case 't':
				b.WriteByte('\t')
				i += 2
			case 'u':
				r, consumed, ok := decodeUnicode(s[i:])
				if !ok {
					return "", false
				}
				b.WriteRune(r)
				i += consumed
			default:
				return "", false
			}
		case c < 0x20:
			// Raw control characters are not valid inside JSON strings.
			return "", false
		default:
			b.WriteByte(c)
			i++
		}
	}
	// Unterminated string.
	return "", false
}

// decodeUnicode decodes a \uXXXX escape starting at s[0], pairing UTF-16
// surrogates when a second escape follows.
func decodeUnicode(s string) (rune, int, bool) {
	first, ok := hex4(s)
	if !ok {
		return 0, 0, false
	}
	r := rune(first)
	if !utf16.IsSurrogate(r) {
		return r, 6, true
	}
	if len(s) >= 12 && s[6] == '\\' && s[7] == 'u' {
		second, ok := hex4(s[6:])
		if ok {
			if combined := utf16.DecodeRune(r, rune(second)); combined != utf8.RuneError {
				return combined, 12, true
			}
		}
	}
	return utf8.RuneError, 6, true
}

func hex4(s string) (int, bool) {
	if len(s) < 6 || s[0] != '\\' || s[1] != 'u' {
		return 0, false
	}
	value := 0
	for _, c := range []byte(s[2:6]) {
		value <<= 4
		switch {
		case c >= '0' && c <= '9':
			value |= int(c - '0')
		case c >= 'a' && c <= 'f':
			value |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			value |= int(c-'A') + 10
		default:
			return 0, false
		}
	}
	return value, true
}
