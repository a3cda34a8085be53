package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const tatweel = 'ـ'

// stripMarks removes harakat, other combining marks and the tatweel.
// runes.Remove keeps no state, so the transformer can be shared.
var stripMarks = runes.Remove(runes.Predicate(func(r rune) bool {
	return r == tatweel || unicode.Is(unicode.Mn, r)
}))

var letterVariants = map[rune]rune{
	'أ': 'ا',
	'إ': 'ا',
	'آ': 'ا',
	'ٱ': 'ا',
	'ى': 'ي',
	'ئ': 'ي',
	'ی': 'ي',
	'ؤ': 'و',
	'ة': 'ه',
	'ک': 'ك',
}

// Latin letters that operators commonly type instead of the Arabic plate letter.
var latinToArabic = map[rune]rune{
	'A': 'ا',
	'B': 'ب',
	'J': 'ج',
	'D': 'د',
	'R': 'ر',
	'S': 'س',
	'T': 'ط',
	'H': 'ح',
	'W': 'و',
	'Y': 'ي',
}

// NormalizePlate приводит номерной знак к каноническому ключу сравнения:
// формы представления (U+FB50–U+FEFF) раскрыты через NFKC, без огласовок,
// с единым начертанием букв, западными цифрами и только арабскими буквами
// и цифрами.
func NormalizePlate(raw string) string {
	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		return ""
	}

	// A Chain buffers between its stages, so it is built per call.
	fold := transform.Chain(norm.NFKC, stripMarks)
	if stripped, _, err := transform.String(fold, normalized); err == nil {
		normalized = stripped
	}

	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		if mapped, ok := letterVariants[r]; ok {
			r = mapped
		}
		r = westernDigit(r)
		if mapped, ok := latinToArabic[unicode.ToUpper(r)]; ok {
			r = mapped
		}
		if isPlateRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func westernDigit(r rune) rune {
	switch {
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	}
	return r
}

func isPlateRune(r rune) bool {
	if r >= '0' && r <= '9' {
		return true
	}
	return unicode.Is(unicode.Arabic, r) && unicode.IsLetter(r)
}

// PlateDigits returns the digit subsequence of a normalized plate.
func PlateDigits(normalized string) string {
	var b strings.Builder
	for _, r := range normalized {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
