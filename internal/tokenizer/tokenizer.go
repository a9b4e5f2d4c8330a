// Package tokenizer turns English and Russian text into normalized index
// terms. It decodes UTF-8 by hand so that ill-formed bytes degrade to U+FFFD
// instead of aborting, lowercases ASCII and basic Cyrillic code points, and
// keeps hyphens, apostrophes, plus signs, and interior decimal points inside
// words.
package tokenizer

// HeaderLines is the number of metadata lines at the top of every corpus file.
const HeaderLines = 6

// Line appends the normalized tokens of a single line of text to dst and
// returns the extended slice. Tokens never span lines.
func Line(line string, dst []string) []string {
	var tok []byte
	i := 0
	for i < len(line) {
		cp, size := decodeRune(line, i)
		j := i + size

		var next rune
		hasNext := j < len(line)
		if hasNext {
			next, _ = decodeRune(line, j)
		}

		switch {
		case isAlnum(cp):
			tok = appendRune(tok, lowerRune(cp))
		case (isHyphen(cp) || cp == '+') && len(tok) > 0 && hasNext && isAlnum(next):
			tok = appendRune(tok, cp)
		case isApostrophe(cp) && len(tok) > 0 && hasNext && isLetter(next):
			tok = appendRune(tok, cp)
		case cp == '.' && len(tok) > 0 && isASCIIDigit(rune(tok[len(tok)-1])) && hasNext && isASCIIDigit(next):
			tok = append(tok, '.')
		default:
			if len(tok) > 0 {
				dst = append(dst, string(tok))
				tok = tok[:0]
			}
		}
		i = j
	}
	if len(tok) > 0 {
		dst = append(dst, string(tok))
	}
	return dst
}

// Normalize lowercases s with the same rules the tokenizer applies to corpus
// text, so a query term compares byte-equal against dictionary terms. Code
// points outside the recognized letter classes pass through unchanged.
func Normalize(s string) string {
	// Fast path: already lowercase ASCII.
	lower := true
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' || s[i] >= 0x80 {
			lower = false
			break
		}
	}
	if lower {
		return s
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); {
		cp, size := decodeRune(s, i)
		out = appendRune(out, lowerRune(cp))
		i += size
	}
	return string(out)
}
