package charset

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/transform"
)

// fallbackOrder lists the candidates tried after the requested charset.
// windows-1252 maps every byte and terminates the search.
var fallbackOrder = []Charset{UTF8, EUCKR, ShiftJIS, Johab}

// Candidates returns the ordered, de-duplicated list of charsets Decode
// tries for a buffer detected (or declared) as cs.
func Candidates(cs Charset) []Charset {
	out := make([]Charset, 0, len(fallbackOrder)+2)
	out = append(out, cs)
	for _, c := range fallbackOrder {
		if c != cs {
			out = append(out, c)
		}
	}
	if cs != Windows1252 {
		out = append(out, Windows1252)
	}
	return out
}

// Decode decodes b as cs and returns the text along with the charset that
// produced it.
//
// When decoding with cs introduces replacement characters that are not in
// the input, the remaining candidates are tried in order and the first clean
// result wins. If none is clean, the result of decoding with cs is returned.
func Decode(b []byte, cs Charset) (string, Charset) {
	if cs == "" {
		cs = Detect(b)
	}
	var first string
	for i, c := range Candidates(cs) {
		text, ok := tryDecode(b, c)
		if i == 0 {
			first = text
		}
		if ok {
			return text, c
		}
	}
	return first, cs
}

// DecodeString decodes b as cs without falling back to other candidates.
func DecodeString(b []byte, cs Charset) string {
	text, _ := tryDecode(b, cs)
	return text
}

// tryDecode reports ok when the output holds no more U+FFFD than the input
// could legitimately contain.
func tryDecode(b []byte, cs Charset) (string, bool) {
	out, _, err := transform.Bytes(cs.Decoder(), b)
	if err != nil {
		return "", false
	}
	return string(out), countReplacement(out) <= countReplacement(b)
}

var replacement = []byte(string(utf8.RuneError))

func countReplacement(b []byte) int {
	return bytes.Count(b, replacement)
}
