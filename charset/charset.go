// Package charset classifies byte buffers into text encodings and decodes
// them to UTF-8.
//
// Detection follows a fixed decision order so ambiguous legacy CJK text
// always resolves the same way: byte-order marks, strict UTF-8 validity, an
// HTML meta charset declaration, weighted Shift_JIS/EUC-KR/Johab scoring with
// a fixed tie-break, a Johab structural check, and finally EUC-KR.
package charset

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
)

// Charset identifies a text encoding.
//
// The well-known values below form the closed set produced by the scorers.
// An HTML-declared charset is represented by its canonical WHATWG name.
type Charset string

// Known charsets.
const (
	UTF8        Charset = "UTF-8"
	UTF16LE     Charset = "UTF-16LE"
	UTF16BE     Charset = "UTF-16BE"
	ShiftJIS    Charset = "Shift_JIS"
	EUCKR       Charset = "EUC-KR"
	Johab       Charset = "Johab"
	Windows1252 Charset = "windows-1252"
)

// String returns the charset name.
func (c Charset) String() string {
	return string(c)
}

// IsUTF16 reports whether c is one of the UTF-16 variants.
func (c Charset) IsUTF16() bool {
	return c == UTF16LE || c == UTF16BE
}

// Decoder returns a fresh decoder for c.
// Unknown names decode as UTF-8.
func (c Charset) Decoder() *encoding.Decoder {
	if c == Johab {
		return NewJohabDecoder()
	}
	return c.encoding().NewDecoder()
}

func (c Charset) encoding() encoding.Encoding {
	switch c {
	case UTF8:
		return unicode.UTF8BOM
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	case ShiftJIS:
		return japanese.ShiftJIS
	case EUCKR:
		return korean.EUCKR
	case Windows1252:
		return charmap.Windows1252
	}
	if enc, err := htmlindex.Get(string(c)); err == nil {
		return enc
	}
	return unicode.UTF8BOM
}

var aliases = map[string]Charset{
	"utf-8":          UTF8,
	"utf8":           UTF8,
	"utf-16le":       UTF16LE,
	"utf-16be":       UTF16BE,
	"shift_jis":      ShiftJIS,
	"shift-jis":      ShiftJIS,
	"sjis":           ShiftJIS,
	"ms_kanji":       ShiftJIS,
	"windows-31j":    ShiftJIS,
	"euc-kr":         EUCKR,
	"euckr":          EUCKR,
	"cp949":          EUCKR,
	"ks_c_5601-1987": EUCKR,
	"johab":          Johab,
	"x-johab":        Johab,
	"cp1361":         Johab,
	"windows-1252":   Windows1252,
	"cp1252":         Windows1252,
}

// Lookup resolves a charset name.
//
// Names of the known charsets (and common aliases) map to the constants.
// Any other name the WHATWG encoding index recognizes resolves to its
// canonical name. The second result is false for unresolvable names.
func Lookup(name string) (Charset, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", false
	}
	if cs, ok := aliases[key]; ok {
		return cs, true
	}
	enc, err := htmlindex.Get(key)
	if err != nil {
		return "", false
	}
	canonical, err := htmlindex.Name(enc)
	if err != nil {
		return "", false
	}
	if cs, ok := aliases[strings.ToLower(canonical)]; ok {
		return cs, true
	}
	return Charset(canonical), true
}

// DecodeArchiveName decodes a raw archive entry name.
// Names flagged as UTF-8 are returned as is; everything else is interpreted
// as IBM Code Page 437, the legacy single-byte ZIP encoding.
func DecodeArchiveName(raw []byte, utf8Flag bool) string {
	if utf8Flag {
		return string(raw)
	}
	ascii := true
	for _, b := range raw {
		if b >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(raw)
	}
	out, err := charmap.CodePage437.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
