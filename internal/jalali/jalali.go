// Package jalali implements the Persian (Solar Hijri) calendar pieces the
// ledger needs: date parsing, conversion from time.Time, month lengths and
// Persian digit formatting.
package jalali

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrMalformedDate = errors.New("malformed date")

var monthNames = [12]string{
	"فروردین", "اردیبهشت", "خرداد", "تیر", "مرداد", "شهریور",
	"مهر", "آبان", "آذر", "دی", "بهمن", "اسفند",
}

// Date is a day in the Persian calendar.
type Date struct {
	Year  int
	Month int
	Day   int
}

// Period is a (year, month) pair used as a filter key.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// DaysInMonth returns 31 for months 1-6, 30 for 7-11 and 29 for 12.
// Esfand has 30 days in leap years; that day is deliberately not counted so
// every caller sees the same fixed month length. Invalid months return 0.
func DaysInMonth(month int) int {
	switch {
	case month >= 1 && month <= 6:
		return 31
	case month >= 7 && month <= 11:
		return 30
	case month == 12:
		return 29
	default:
		return 0
	}
}

// Parse reads "YYYY/MM/DD" (or with '-') in Latin, Persian or Arabic-Indic
// digits.
func Parse(s string) (Date, error) {
	s = strings.TrimSpace(NormalizeDigits(s))
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '-' })
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Date{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
		}
		nums[i] = n
	}
	d := Date{Year: nums[0], Month: nums[1], Day: nums[2]}
	if d.Year < 1 || d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 31 {
		return Date{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	return d, nil
}

// FromTime converts t, in its own location, to the Persian calendar.
func FromTime(t time.Time) Date {
	gy, gm, gd := t.Date()
	return fromGregorian(gy, int(gm), gd)
}

// FromUnixMilli converts a millisecond timestamp in loc.
func FromUnixMilli(ms int64, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return FromTime(time.UnixMilli(ms).In(loc))
}

var gregorianDaysBeforeMonth = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

func fromGregorian(gy, gm, gd int) Date {
	gy2 := gy
	if gm > 2 {
		gy2 = gy + 1
	}
	days := 355666 + 365*gy + (gy2+3)/4 - (gy2+99)/100 + (gy2+399)/400 + gd + gregorianDaysBeforeMonth[gm-1]
	jy := -1595 + 33*(days/12053)
	days %= 12053
	jy += 4 * (days / 1461)
	days %= 1461
	if days > 365 {
		jy += (days - 1) / 365
		days = (days - 1) % 365
	}
	if days < 186 {
		return Date{Year: jy, Month: 1 + days/31, Day: 1 + days%31}
	}
	return Date{Year: jy, Month: 7 + (days-186)/30, Day: 1 + (days-186)%30}
}

func (d Date) Period() Period {
	return Period{Year: d.Year, Month: d.Month}
}

// String formats as YYYY/MM/DD with Latin digits.
func (d Date) String() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, d.Month, d.Day)
}

// Current returns the period containing t.
func Current(t time.Time) Period {
	return FromTime(t).Period()
}

// AddMonths moves n Persian months forward (or back when n < 0).
func (p Period) AddMonths(n int) Period {
	idx := p.Year*12 + (p.Month - 1) + n
	y, m := idx/12, idx%12
	if m < 0 {
		y--
		m += 12
	}
	return Period{Year: y, Month: m + 1}
}

func (p Period) Contains(d Date) bool {
	return d.Year == p.Year && d.Month == p.Month
}

func (p Period) Valid() bool {
	return p.Year > 0 && p.Month >= 1 && p.Month <= 12
}

func (p Period) DaysInMonth() int {
	return DaysInMonth(p.Month)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d/%02d", p.Year, p.Month)
}

// Label is the display header, e.g. "دی ۱۴۰۳".
func (p Period) Label() string {
	return MonthName(p.Month) + " " + ToPersianDigits(strconv.Itoa(p.Year))
}

// MonthName returns the Persian month name for 1..12, "" otherwise.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}
