package charset

import (
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// Jamo table markers.
const (
	jamoGap  = -1 // bit pattern with no jamo assigned
	jamoFill = -2 // explicit filler: the component is absent
)

// Hangul syllable composition constants (Unicode 3.12).
const (
	hangulBase   = 0xAC00
	medialCount  = 21
	finalCount   = 28
	initialBlock = medialCount * finalCount // 588
)

// johabInitial maps the 5-bit initial field (bits 10-14) to a choseong index.
var johabInitial = [32]int8{
	jamoGap, jamoFill, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13,
	14, 15, 16, 17, 18, jamoGap, jamoGap, jamoGap, jamoGap, jamoGap, jamoGap, jamoGap, jamoGap, jamoGap, jamoGap, jamoGap,
}

// johabMedial maps the 5-bit medial field (bits 5-9) to a jungseong index.
var johabMedial = [32]int8{
	jamoGap, jamoGap, jamoFill, 0, 1, 2, 3, 4, jamoGap, jamoGap, 5, 6, 7, 8, 9, 10,
	jamoGap, jamoGap, 11, 12, 13, 14, 15, 16, jamoGap, jamoGap, 17, 18, 19, 20, jamoGap, jamoGap,
}

// johabFinal maps the 5-bit final field (bits 0-4) to a jongseong index,
// where 0 means no final consonant. Code 18 is unassigned, so codes 19-29
// land on indices 17-27.
var johabFinal = [32]int8{
	jamoGap, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14,
	15, 16, jamoGap, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, jamoGap, jamoGap,
}

// Compatibility jamo used for units that carry a single component.
var (
	compatInitial = [19]rune{
		0x3131, 0x3132, 0x3134, 0x3137, 0x3138, 0x3139, 0x3141, 0x3142, 0x3143, 0x3145,
		0x3146, 0x3147, 0x3148, 0x3149, 0x314A, 0x314B, 0x314C, 0x314D, 0x314E,
	}
	compatFinal = [27]rune{
		0x3131, 0x3132, 0x3133, 0x3134, 0x3135, 0x3136, 0x3137, 0x3139, 0x313A, 0x313B,
		0x313C, 0x313D, 0x313E, 0x313F, 0x3140, 0x3141, 0x3142, 0x3144, 0x3145, 0x3146,
		0x3147, 0x3148, 0x314A, 0x314B, 0x314C, 0x314D, 0x314E,
	}
)

const compatMedialBase = 0x314F

// composeJohab converts one big-endian Johab code unit into a rune.
// Units whose fields do not describe a syllable or a single jamo map to
// utf8.RuneError.
func composeJohab(code uint16) rune {
	ini := johabInitial[(code>>10)&0x1F]
	med := johabMedial[(code>>5)&0x1F]
	fin := johabFinal[code&0x1F]

	switch {
	case ini >= 0 && med >= 0 && fin >= 0:
		return hangulBase + rune(ini)*initialBlock + rune(med)*finalCount + rune(fin)
	case ini == jamoFill && med == jamoFill && fin > 0:
		return compatFinal[fin-1]
	case ini >= 0 && med == jamoFill && fin == 0:
		return compatInitial[ini]
	case ini == jamoFill && med >= 0 && fin == 0:
		return compatMedialBase + rune(med)
	}
	return utf8.RuneError
}

// NewJohabDecoder returns a decoder from Johab to UTF-8.
//
// Decoding is total: bytes below 0x80 pass through, Hangul units are
// composed from their jamo fields, and anything else (gap positions,
// symbol and Hanja rows, stray bytes) becomes U+FFFD.
func NewJohabDecoder() *encoding.Decoder {
	return &encoding.Decoder{Transformer: johabDecoder{}}
}

// DecodeJohab decodes Johab-encoded b.
func DecodeJohab(b []byte) string {
	out, _, err := transform.Bytes(johabDecoder{}, b)
	if err != nil {
		// Unreachable: the transformer never reports data errors.
		return string(b)
	}
	return string(out)
}

type johabDecoder struct{ transform.NopResetter }

func (johabDecoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		c := src[nSrc]
		if c < 0x80 {
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = c
			nDst++
			nSrc++
			continue
		}

		r, size := utf8.RuneError, 1
		if isJohabHangulLead(c) || isJohabSymbolLead(c) {
			if nSrc+1 >= len(src) && !atEOF {
				return nDst, nSrc, transform.ErrShortSrc
			}
			if nSrc+1 < len(src) {
				t := src[nSrc+1]
				switch {
				case isJohabHangulLead(c) && isJohabHangulTrail(t):
					r, size = composeJohab(uint16(c)<<8|uint16(t)), 2
				case isJohabSymbolLead(c) && isJohabSymbolTrail(t):
					size = 2
				}
			}
		}

		if nDst+utf8.RuneLen(r) > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += utf8.EncodeRune(dst[nDst:], r)
		nSrc += size
	}
	return nDst, nSrc, nil
}
