package chat

import (
	"errors"
	"unicode/utf8"
)

var ErrInvalidUTF8 = errors.New("chat content is not valid UTF-8")

// decodeQuotedPrintable decodes =XX escapes and soft line breaks and keeps
// anything else as is. Unlike mime/quotedprintable it does not fail on '='
// followed by trailing whitespace and does not strip trailing whitespace from
// lines.
func decodeQuotedPrintable(src []byte) ([]byte, error) {
	out := make([]byte, 0, len(src))
	for i := 0; i < len(src); i++ {
		c := src[i]
		if c != '=' {
			out = append(out, c)
			continue
		}

		rest := src[i+1:]
		switch {
		case len(rest) >= 1 && rest[0] == '\n':
			i++
		case len(rest) >= 2 && rest[0] == '\r' && rest[1] == '\n':
			i += 2
		case len(rest) >= 2 && isHex(rest[0]) && isHex(rest[1]):
			out = append(out, unhex(rest[0])<<4|unhex(rest[1]))
			i += 2
		default:
			out = append(out, c)
		}
	}

	if !utf8.Valid(out) {
		return nil, ErrInvalidUTF8
	}
	return out, nil
}

func isHex(b byte) bool {
	return ('0' <= b && b <= '9') || ('a' <= b && b <= 'f') || ('A' <= b && b <= 'F')
}

func unhex(b byte) byte {
	switch {
	case '0' <= b && b <= '9':
		return b - '0'
	case 'a' <= b && b <= 'f':
		return b - 'a' + 10
	default:
		return b - 'A' + 10
	}
}
