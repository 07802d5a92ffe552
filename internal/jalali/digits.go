package jalali

import (
	"strconv"
	"strings"
)

// ToPersianDigits replaces ASCII digits with Persian ones.
func ToPersianDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return '۰' + (r - '0')
		}
		return r
	}, s)
}

// NormalizeDigits replaces Persian and Arabic-Indic digits with ASCII ones.
func NormalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		}
		return r
	}, s)
}

// FormatMoney groups thousands with commas and renders Persian digits.
func FormatMoney(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	raw := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range raw {
		if i > 0 && (len(raw)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := ToPersianDigits(b.String())
	if neg {
		return "-" + out
	}
	return out
}

// CleanNumber extracts an integer amount from formatted user input such as
// "۱۲,۵۰۰" or "12,500 تومان". Unparseable input yields 0.
func CleanNumber(s string) int64 {
	s = NormalizeDigits(s)
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '-' || r == '.' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if i := strings.IndexByte(clean, '.'); i >= 0 {
		clean = clean[:i]
	}
	n, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
