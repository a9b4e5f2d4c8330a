package tokenizer

// replacementRune substitutes for any ill-formed UTF-8 byte.
const replacementRune = 0xFFFD

func isASCIIUpper(cp rune) bool { return cp >= 'A' && cp <= 'Z' }
func isASCIILower(cp rune) bool { return cp >= 'a' && cp <= 'z' }
func isASCIIDigit(cp rune) bool { return cp >= '0' && cp <= '9' }

func isCyrUpper(cp rune) bool { return (cp >= 0x0410 && cp <= 0x042F) || cp == 0x0401 }
func isCyrLower(cp rune) bool { return (cp >= 0x0430 && cp <= 0x044F) || cp == 0x0451 }
func isGreek(cp rune) bool    { return cp >= 0x0370 && cp <= 0x03FF }

// isLetter reports whether cp belongs to a recognized letter class: ASCII,
// basic Cyrillic (with Ё/ё), the Greek block, or the micro sign.
func isLetter(cp rune) bool {
	if isASCIILower(cp) || isASCIIUpper(cp) {
		return true
	}
	if isCyrLower(cp) || isCyrUpper(cp) {
		return true
	}
	if isGreek(cp) {
		return true
	}
	return cp == 0x00B5
}

func isAlnum(cp rune) bool { return isLetter(cp) || isASCIIDigit(cp) }

func isHyphen(cp rune) bool {
	return cp == 0x002D || cp == 0x2010 || cp == 0x2011 || cp == 0x2012 || cp == 0x2212
}

func isApostrophe(cp rune) bool { return cp == 0x0027 || cp == 0x2019 }

// lowerRune maps uppercase ASCII and basic Cyrillic (including Ё) to
// lowercase; everything else passes through.
func lowerRune(cp rune) rune {
	if isASCIIUpper(cp) {
		return cp + 32
	}
	if cp >= 0x0410 && cp <= 0x042F {
		return cp + 32
	}
	if cp == 0x0401 {
		return 0x0451
	}
	return cp
}
