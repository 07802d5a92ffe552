// Package budget computes the monthly budget view: the total for a period,
// a per-day series for the bar chart and a per-tag breakdown.
package budget

import (
	"math"
	"slices"
	"sort"
	"time"

	"paydo/internal/core"
	"paydo/internal/jalali"
)

// Policy selects which tags of a transaction feed the category breakdown.
type Policy string

const (
	// AllTags adds the full amount to the bucket of every tag on the
	// transaction. Bucket sums can exceed the total for multi-tag entries.
	AllTags Policy = "all"
	// FirstTag adds the amount to the first tag's bucket only.
	FirstTag Policy = "first"
)

// MinBarHeight is the height, in percent, given to zero-valued bars.
const MinBarHeight = 2.0

func (p Policy) IsValid() bool {
	return p == AllTags || p == FirstTag
}

type (
	Category struct {
		Tag     string `json:"tag"`
		Amount  int64  `json:"amount"`
		Percent int    `json:"percent"`
		// Width is the bar width in percent relative to the largest category.
		Width float64 `json:"width"`
	}

	Report struct {
		Period      jalali.Period        `json:"period"`
		Kind        core.TransactionType `json:"kind"`
		Total       int64                `json:"total"`
		DaysInMonth int                  `json:"daysInMonth"`
		// Daily holds the sum for day d at index d-1.
		Daily      []int64    `json:"dailySeries"`
		Categories []Category `json:"categories"`
	}

	Option func(*options)

	options struct {
		policy Policy
		loc    *time.Location
	}
)

func WithTagPolicy(p Policy) Option {
	return func(o *options) {
		if p.IsValid() {
			o.policy = p
		}
	}
}

// WithLocation sets the zone used to place transactions that have no date
// string and must be dated from their timestamp.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// Clone returns a copy that shares no slices with r.
func (r Report) Clone() Report {
	r.Daily = slices.Clone(r.Daily)
	r.Categories = slices.Clone(r.Categories)
	return r
}

// Day returns the amount recorded on day d, or 0 when d is out of range.
func (r Report) Day(d int) int64 {
	if d < 1 || d > len(r.Daily) {
		return 0
	}
	return r.Daily[d-1]
}

// Aggregate builds the report for kind within period. txs is never modified.
// Transactions with an unparseable date are skipped. Transactions dated past
// the month length still count toward Total and Categories but are left out
// of the daily series.
func Aggregate(txs []core.Transaction, period jalali.Period, kind core.TransactionType, opts ...Option) Report {
	o := options{policy: AllTags, loc: time.Local}
	for _, opt := range opts {
		opt(&o)
	}

	n := jalali.DaysInMonth(period.Month)
	r := Report{
		Period:      period,
		Kind:        kind,
		DaysInMonth: n,
		Daily:       make([]int64, n),
		Categories:  []Category{},
	}
	if kind != core.Expense && kind != core.Income {
		return r
	}

	type bucket struct {
		tag    string
		amount int64
	}
	var buckets []bucket
	index := map[string]int{}
	add := func(tag string, amount int64) {
		i, ok := index[tag]
		if !ok {
			i = len(buckets)
			index[tag] = i
			buckets = append(buckets, bucket{tag: tag})
		}
		buckets[i].amount += amount
	}

	for _, t := range txs {
		if t.Type != kind {
			continue
		}
		d, ok := transactionDate(t, o.loc)
		if !ok || !period.Contains(d) {
			continue
		}
		r.Total += t.Amount
		if d.Day <= n {
			r.Daily[d.Day-1] += t.Amount
		}
		if o.policy == FirstTag || len(t.Tags) == 0 {
			add(t.FirstTag(), t.Amount)
			continue
		}
		for i, tag := range t.Tags {
			// a tag repeated on one transaction is credited once
			if slices.Contains(t.Tags[:i], tag) {
				continue
			}
			add(tag, t.Amount)
		}
	}

	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].amount > buckets[j].amount })

	var maxAmount int64
	if len(buckets) > 0 {
		maxAmount = buckets[0].amount
	}
	for _, b := range buckets {
		r.Categories = append(r.Categories, Category{
			Tag:     b.tag,
			Amount:  b.amount,
			Percent: percent(b.amount, r.Total),
			Width:   ratio(b.amount, maxAmount),
		})
	}
	return r
}

// BarHeights maps each cell to cell/max*100. max is 1 when every cell is
// zero; zero cells get MinBarHeight.
func BarHeights(daily []int64) []float64 {
	var maxVal int64
	for _, v := range daily {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}
	out := make([]float64, len(daily))
	for i, v := range daily {
		if v == 0 {
			out[i] = MinBarHeight
			continue
		}
		out[i] = float64(v) / float64(maxVal) * 100
	}
	return out
}

func transactionDate(t core.Transaction, loc *time.Location) (jalali.Date, bool) {
	if t.Date == "" {
		if t.Timestamp <= 0 {
			return jalali.Date{}, false
		}
		return jalali.FromUnixMilli(t.Timestamp, loc), true
	}
	d, err := jalali.Parse(t.Date)
	if err != nil {
		return jalali.Date{}, false
	}
	return d, true
}

func percent(amount, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(amount) / float64(total) * 100))
}

func ratio(amount, largest int64) float64 {
	if largest <= 0 {
		return 0
	}
	return float64(amount) / float64(largest) * 100
}
