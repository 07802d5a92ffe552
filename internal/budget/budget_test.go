package budget

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paydo/internal/core"
	"paydo/internal/jalali"
)

func tx(kind core.TransactionType, amount int64, date string, tags ...string) core.Transaction {
	return core.Transaction{Type: kind, Amount: amount, Title: "t", Tags: tags, AccountID: 1, Date: date}
}

func TestAggregateFoodScenario(t *testing.T) {
	txs := []core.Transaction{
		tx(core.Expense, 1000, "1403/10/05", "#food"),
		tx(core.Expense, 2000, "1403/10/06", "#food"),
	}
	r := Aggregate(txs, jalali.Period{Year: 1403, Month: 10}, core.Expense)

	assert.Equal(t, int64(3000), r.Total)
	assert.Equal(t, 30, r.DaysInMonth)
	require.Len(t, r.Daily, 30)
	assert.Equal(t, int64(1000), r.Day(5))
	assert.Equal(t, int64(2000), r.Day(6))
	assert.Equal(t, []Category{{Tag: "#food", Amount: 3000, Percent: 100, Width: 100}}, r.Categories)
}

func TestAggregateEmpty(t *testing.T) {
	r := Aggregate(nil, jalali.Period{Year: 1403, Month: 1}, core.Expense)
	assert.Zero(t, r.Total)
	require.Len(t, r.Daily, 31)
	for _, v := range r.Daily {
		assert.Zero(t, v)
	}
	assert.Empty(t, r.Categories)
	assert.NotNil(t, r.Categories)
}

func TestAggregateLastMonthDropsDayThirty(t *testing.T) {
	txs := []core.Transaction{
		tx(core.Expense, 500, "1403/12/29", "#a"),
		tx(core.Expense, 700, "1403/12/30", "#a"),
	}
	r := Aggregate(txs, jalali.Period{Year: 1403, Month: 12}, core.Expense)

	assert.Equal(t, 29, r.DaysInMonth)
	require.Len(t, r.Daily, 29)
	assert.Equal(t, int64(500), r.Day(29))
	assert.Zero(t, r.Day(30))
	assert.Equal(t, int64(1200), r.Total)
	assert.Equal(t, int64(1200), r.Categories[0].Amount)
}

func TestAggregateFilters(t *testing.T) {
	txs := []core.Transaction{
		tx(core.Expense, 100, "1403/10/01", "#a"),
		tx(core.Income, 900, "1403/10/01", "#salary"),
		tx(core.Transfer, 50, "1403/10/01", "#a"),
		tx(core.Expense, 300, "1403/09/01", "#a"),
		tx(core.Expense, 400, "1402/10/01", "#a"),
		tx(core.Expense, 800, "not a date", "#a"),
		tx(core.Expense, 800, "1403/10/40", "#a"),
	}
	p := jalali.Period{Year: 1403, Month: 10}

	exp := Aggregate(txs, p, core.Expense)
	assert.Equal(t, int64(100), exp.Total)

	inc := Aggregate(txs, p, core.Income)
	assert.Equal(t, int64(900), inc.Total)
	assert.Equal(t, "#salary", inc.Categories[0].Tag)

	tr := Aggregate(txs, p, core.Transfer)
	assert.Zero(t, tr.Total)
	assert.Empty(t, tr.Categories)
}

func TestAggregatePersianDigitDates(t *testing.T) {
	txs := []core.Transaction{tx(core.Expense, 250, "۱۴۰۳/۱۰/۰۵", "#a")}
	r := Aggregate(txs, jalali.Period{Year: 1403, Month: 10}, core.Expense)
	assert.Equal(t, int64(250), r.Day(5))
}

func TestAggregateFallsBackToTimestamp(t *testing.T) {
	ts := time.Date(2024, 12, 25, 9, 0, 0, 0, time.UTC).UnixMilli()
	undated := core.Transaction{Type: core.Expense, Amount: 10, Tags: []string{"#a"}, Timestamp: ts}
	noTime := core.Transaction{Type: core.Expense, Amount: 99, Tags: []string{"#a"}}

	r := Aggregate([]core.Transaction{undated, noTime}, jalali.Period{Year: 1403, Month: 10}, core.Expense, WithLocation(time.UTC))
	assert.Equal(t, int64(10), r.Total)
	assert.Equal(t, int64(10), r.Day(5))
}

func TestAggregateTagPolicies(t *testing.T) {
	txs := []core.Transaction{
		tx(core.Expense, 100, "1403/10/01", "#food", "#party"),
		tx(core.Expense, 300, "1403/10/02", "#rent"),
		tx(core.Expense, 50, "1403/10/03"),
	}
	p := jalali.Period{Year: 1403, Month: 10}

	first := Aggregate(txs, p, core.Expense, WithTagPolicy(FirstTag))
	want := []Category{
		{Tag: "#rent", Amount: 300, Percent: 67, Width: 100},
		{Tag: "#food", Amount: 100, Percent: 22, Width: 33.333},
		{Tag: core.DefaultTag, Amount: 50, Percent: 11, Width: 16.667},
	}
	require.Len(t, first.Categories, len(want))
	for i, w := range want {
		got := first.Categories[i]
		assert.Equal(t, w.Tag, got.Tag)
		assert.Equal(t, w.Amount, got.Amount)
		assert.Equal(t, w.Percent, got.Percent)
		assert.InDelta(t, w.Width, got.Width, 0.001)
	}

	all := Aggregate(txs, p, core.Expense)
	tags := make([]string, 0, len(all.Categories))
	for _, c := range all.Categories {
		tags = append(tags, c.Tag)
	}
	assert.Equal(t, []string{"#rent", "#food", "#party", core.DefaultTag}, tags)
	assert.Equal(t, int64(100), all.Categories[2].Amount)
	assert.Equal(t, int64(450), all.Total)
}

func TestAggregateStableTies(t *testing.T) {
	txs := []core.Transaction{
		tx(core.Expense, 100, "1403/10/01", "#b"),
		tx(core.Expense, 100, "1403/10/01", "#a"),
		tx(core.Expense, 100, "1403/10/01", "#c"),
	}
	r := Aggregate(txs, jalali.Period{Year: 1403, Month: 10}, core.Expense)
	require.Len(t, r.Categories, 3)
	assert.Equal(t, "#b", r.Categories[0].Tag)
	assert.Equal(t, "#a", r.Categories[1].Tag)
	assert.Equal(t, "#c", r.Categories[2].Tag)
	for _, c := range r.Categories {
		assert.Equal(t, 33, c.Percent)
	}
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	txs := []core.Transaction{
		tx(core.Expense, 100, "1403/10/01", "#b", "#a"),
		tx(core.Expense, 200, "1403/10/02"),
	}
	before := []core.Transaction{txs[0].Clone(), txs[1].Clone()}
	Aggregate(txs, jalali.Period{Year: 1403, Month: 10}, core.Expense)
	assert.Equal(t, before, txs)
}

func TestAggregateProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tags := []string{"#food", "#rent", "#fun", "#bills", "#travel"}
	kinds := []core.TransactionType{core.Expense, core.Income, core.Transfer}

	for round := 0; round < 50; round++ {
		month := 1 + rng.Intn(12)
		p := jalali.Period{Year: 1403, Month: month}
		var txs []core.Transaction
		for i := 0; i < rng.Intn(40); i++ {
			day := 1 + rng.Intn(jalali.DaysInMonth(month))
			m := month
			if rng.Intn(4) == 0 {
				m = 1 + rng.Intn(12)
			}
			txs = append(txs, tx(kinds[rng.Intn(len(kinds))], int64(rng.Intn(100000)),
				fmt.Sprintf("1403/%02d/%02d", m, day), tags[rng.Intn(len(tags))]))
		}

		r := Aggregate(txs, p, core.Expense, WithTagPolicy(FirstTag))

		var daily, cats int64
		for _, v := range r.Daily {
			daily += v
		}
		pctSum := 0
		for i, c := range r.Categories {
			cats += c.Amount
			pctSum += c.Percent
			assert.GreaterOrEqual(t, c.Percent, 0)
			assert.LessOrEqual(t, c.Percent, 100)
			if i > 0 {
				assert.GreaterOrEqual(t, r.Categories[i-1].Amount, c.Amount)
			}
		}
		assert.Equal(t, r.Total, daily, "round %d", round)
		assert.Equal(t, r.Total, cats, "round %d", round)
		if r.Total > 0 {
			slack := (len(r.Categories) + 1) / 2
			assert.InDelta(t, 100, pctSum, float64(slack), "round %d", round)
		}
	}
}

func TestBarHeights(t *testing.T) {
	h := BarHeights([]int64{0, 50, 100})
	assert.Equal(t, []float64{MinBarHeight, 50, 100}, h)

	zeros := BarHeights([]int64{0, 0})
	assert.Equal(t, []float64{MinBarHeight, MinBarHeight}, zeros)

	assert.Empty(t, BarHeights(nil))
}

func TestPolicyIsValid(t *testing.T) {
	assert.True(t, AllTags.IsValid())
	assert.True(t, FirstTag.IsValid())
	assert.False(t, Policy("some").IsValid())
}

func TestAggregateRepeatedTagCountedOnce(t *testing.T) {
	txs := []core.Transaction{
		tx(core.Expense, 100, "1403/10/05", "#food", "#food"),
		tx(core.Expense, 300, "1403/10/06", "#rent", "#food", "#rent"),
	}
	r := Aggregate(txs, jalali.Period{Year: 1403, Month: 10}, core.Expense)

	assert.Equal(t, int64(400), r.Total)
	assert.Equal(t, []Category{
		{Tag: "#food", Amount: 400, Percent: 100, Width: 100},
		{Tag: "#rent", Amount: 300, Percent: 75, Width: 75},
	}, r.Categories)
	for _, c := range r.Categories {
		assert.LessOrEqual(t, c.Amount, r.Total)
	}
}

func TestReportCloneSharesNothing(t *testing.T) {
	r := Aggregate([]core.Transaction{tx(core.Expense, 100, "1403/10/05", "#food")},
		jalali.Period{Year: 1403, Month: 10}, core.Expense)
	c := r.Clone()
	c.Daily[4] = 0
	c.Categories[0].Tag = "#changed"

	assert.Equal(t, int64(100), r.Day(5))
	assert.Equal(t, "#food", r.Categories[0].Tag)
}
