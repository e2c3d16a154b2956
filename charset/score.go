package charset

// Scoring weights. Downstream callers rely on these exact values for
// reproducible results on ambiguous legacy text.
const (
	sjisKanaWeight       = 1 // half-width katakana single byte
	sjisHiraKataWeight   = 5 // lead 0x82/0x83 with a valid trail
	sjisPairWeight       = 1 // any other valid Shift_JIS pair
	euckrHangulWeight    = 2 // core Hangul block pair
	johabExclusiveWeight = 3 // Hangul lead with a Johab-only trail
	johabPairWeight      = 1 // any other structurally valid Johab pair
)

// Scores returns the non-negative heuristic scores of b for Shift_JIS,
// EUC-KR and Johab. Each scanner walks b independently as a stream of
// candidate double-byte sequences.
func Scores(b []byte) (sjis, euckr, johab int) {
	return scoreShiftJIS(b), scoreEUCKR(b), scoreJohab(b)
}

func scoreShiftJIS(b []byte) int {
	score := 0
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			i++
		case c >= 0xA1 && c <= 0xDF:
			score += sjisKanaWeight
			i++
		case isSJISLead(c) && i+1 < len(b) && isSJISTrail(b[i+1]):
			if c == 0x82 || c == 0x83 {
				score += sjisHiraKataWeight
			} else {
				score += sjisPairWeight
			}
			i += 2
		default:
			i++
		}
	}
	return score
}

func isSJISLead(c byte) bool {
	return (c >= 0x81 && c <= 0x9F) || (c >= 0xE0 && c <= 0xFC)
}

func isSJISTrail(c byte) bool {
	return (c >= 0x40 && c <= 0x7E) || (c >= 0x80 && c <= 0xFC)
}

// scoreEUCKR only counts the core Hangul block (lead 0xB0-0xC8, trail
// 0xA1-0xFE). The CP949 extension and the 0xA1-0xAF symbol rows are walked
// over without scoring so they do not double-count against the other scanners.
func scoreEUCKR(b []byte) int {
	score := 0
	for i := 0; i < len(b); {
		c := b[i]
		if c < 0x81 || i+1 >= len(b) {
			i++
			continue
		}
		t := b[i+1]
		if c >= 0xB0 && c <= 0xC8 && t >= 0xA1 && t <= 0xFE {
			score += euckrHangulWeight
			i += 2
			continue
		}
		if t >= 0x41 {
			i += 2
			continue
		}
		i++
	}
	return score
}

func scoreJohab(b []byte) int {
	score := 0
	for i := 0; i < len(b); {
		c := b[i]
		if c < 0x84 || i+1 >= len(b) {
			i++
			continue
		}
		t := b[i+1]
		switch {
		case isJohabHangulLead(c) && isJohabExclusiveTrail(t):
			score += johabExclusiveWeight
			i += 2
		case isJohabHangulLead(c) && isJohabHangulTrail(t):
			score += johabPairWeight
			i += 2
		case isJohabSymbolLead(c) && isJohabSymbolTrail(t):
			score += johabPairWeight
			i += 2
		default:
			i++
		}
	}
	return score
}

// hasJohabExclusivePair reports whether any position of b starts a Hangul
// lead byte followed by a trail value that is invalid in both Shift_JIS and
// EUC-KR.
func hasJohabExclusivePair(b []byte) bool {
	for i := 0; i+1 < len(b); i++ {
		if isJohabHangulLead(b[i]) && isJohabExclusiveTrail(b[i+1]) {
			return true
		}
	}
	return false
}

func isJohabHangulLead(c byte) bool {
	return c >= 0x84 && c <= 0xD3
}

func isJohabHangulTrail(c byte) bool {
	return (c >= 0x41 && c <= 0x7E) || (c >= 0x81 && c <= 0xFE)
}

func isJohabExclusiveTrail(c byte) bool {
	return (c >= 0x5B && c <= 0x60) || (c >= 0x7B && c <= 0x7E)
}

func isJohabSymbolLead(c byte) bool {
	return (c >= 0xD8 && c <= 0xDE) || (c >= 0xE0 && c <= 0xF9)
}

func isJohabSymbolTrail(c byte) bool {
	return (c >= 0x31 && c <= 0x7E) || (c >= 0x91 && c <= 0xFE)
}
