package charset

import (
	"bytes"
	"unicode/utf8"
)

// metaSniffLen bounds the prefix scanned for an HTML charset declaration.
const metaSniffLen = 2048

// Detect classifies b into a charset.
//
// The decision order is fixed; the first rule that matches wins:
//  1. UTF-8 or UTF-16 byte-order mark.
//  2. The whole buffer is valid UTF-8 (a sequence cut off at the end of the
//     buffer is tolerated).
//  3. An HTML "charset=" declaration in the first 2048 bytes naming a
//     resolvable charset.
//  4. The unique highest positive score among Shift_JIS, EUC-KR and Johab.
//  5. On a tie for the highest positive score: EUC-KR, then Shift_JIS, then Johab.
//  6. A Johab-exclusive byte pair anywhere in the buffer.
//  7. EUC-KR.
func Detect(b []byte) Charset {
	if cs, ok := detectBOM(b); ok {
		return cs
	}
	if validUTF8(b) {
		return UTF8
	}
	if cs, ok := sniffMetaCharset(b); ok {
		return cs
	}
	if cs, ok := pickByScore(Scores(b)); ok {
		return cs
	}
	if hasJohabExclusivePair(b) {
		return Johab
	}
	return EUCKR
}

func detectBOM(b []byte) (Charset, bool) {
	switch {
	case len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF:
		return UTF8, true
	case len(b) >= 2 && b[0] == 0xFF && b[1] == 0xFE:
		return UTF16LE, true
	case len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF:
		return UTF16BE, true
	}
	return "", false
}

// validUTF8 reports whether b is strictly valid UTF-8, allowing a single
// incomplete multi-byte sequence at the very end (the sample window may
// split a character).
func validUTF8(b []byte) bool {
	end := len(b)
	// Walk back over at most three continuation bytes to the last lead byte.
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		c := b[i]
		if c&0xC0 == 0x80 {
			continue
		}
		if c >= 0xC0 && !utf8.FullRune(b[i:]) {
			end = i
		}
		break
	}
	return utf8.Valid(b[:end])
}

var charsetKey = []byte("charset=")

func sniffMetaCharset(b []byte) (Charset, bool) {
	head := b
	if len(head) > metaSniffLen {
		head = head[:metaSniffLen]
	}
	lower := make([]byte, len(head))
	for i, c := range head {
		if c >= 0x80 {
			// Not US-ASCII; cannot be part of a declaration.
			c = ' '
		}
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		lower[i] = c
	}

	rest := lower
	for {
		i := bytes.Index(rest, charsetKey)
		if i < 0 {
			return "", false
		}
		rest = rest[i+len(charsetKey):]
		if name := metaToken(rest); name != "" {
			if cs, ok := Lookup(name); ok {
				return cs, true
			}
		}
	}
}

// metaToken extracts the charset token following "charset=".
func metaToken(b []byte) string {
	for len(b) > 0 && (b[0] == '"' || b[0] == '\'' || b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	n := 0
	for n < len(b) && isTokenByte(b[n]) {
		n++
	}
	return string(b[:n])
}

func isTokenByte(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '_', c == ':', c == '.':
		return true
	}
	return false
}

// pickByScore applies rules 4 and 5 of Detect.
func pickByScore(sjis, euckr, johab int) (Charset, bool) {
	best := max(sjis, euckr, johab)
	if best <= 0 {
		return "", false
	}
	// Tie-break preference order; with a unique maximum only one matches.
	switch best {
	case euckr:
		return EUCKR, true
	case sjis:
		return ShiftJIS, true
	default:
		return Johab, true
	}
}
