package ledger

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"paydo/internal/budget"
	"paydo/internal/core"
	"paydo/internal/jalali"
)

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// State returns a deep copy of the current state.
func (l *Ledger) State() core.State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Clone()
}

func (l *Ledger) Accounts() []core.Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.Account{}, l.state.Accounts...)
}

func (l *Ledger) TotalBalance() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total int64
	for _, a := range l.state.Accounts {
		total += a.Balance
	}
	return total
}

// AccountName resolves id for display.
func (l *Ledger) AccountName(id int64) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if a := l.state.Account(id); a != nil {
		return a.Name
	}
	return core.DeletedAccountName
}

// Recent returns up to n transactions, newest first.
func (l *Ledger) Recent(n int) []core.Transaction {
	all := l.sorted()
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// Search returns transactions, newest first, whose title, amount or tags
// contain q. Amounts match in Latin or Persian digits. An empty q matches
// everything.
func (l *Ledger) Search(q string) []core.Transaction {
	all := l.sorted()
	q = strings.TrimSpace(q)
	if q == "" {
		return all
	}
	latin := jalali.NormalizeDigits(q)

	out := make([]core.Transaction, 0)
	for _, t := range all {
		if matches(t, q, latin) {
			out = append(out, t)
		}
	}
	return out
}

func matches(t core.Transaction, q, latin string) bool {
	if strings.Contains(t.Title, q) {
		return true
	}
	if strings.Contains(strconv.FormatInt(t.Amount, 10), latin) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(tag, q) {
			return true
		}
	}
	return false
}

func (l *Ledger) sorted() []core.Transaction {
	l.mu.RLock()
	out := make([]core.Transaction, len(l.state.Transactions))
	for i, t := range l.state.Transactions {
		out[i] = t.Clone()
	}
	l.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

// Tags counts how many transactions carry each tag, ordered by tag.
func (l *Ledger) Tags() []TagCount {
	l.mu.RLock()
	counts := make(map[string]int)
	for _, t := range l.state.Transactions {
		for _, tag := range t.Tags {
			counts[tag]++
		}
	}
	l.mu.RUnlock()

	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// CurrentPeriod is the Persian month containing the clock's now.
func (l *Ledger) CurrentPeriod() jalali.Period {
	return jalali.Current(l.now().In(l.loc))
}

// Budget returns the report for period and kind. Reports are cached per
// state revision, so a cached report is never stale.
func (l *Ledger) Budget(period jalali.Period, kind core.TransactionType) budget.Report {
	l.mu.RLock()
	defer l.mu.RUnlock()

	key := fmt.Sprintf("%d|%s|%s|%s", l.revision, period, kind, l.policy)
	if r, ok := l.reports.Get(key); ok {
		return r.Clone()
	}
	r := budget.Aggregate(l.state.Transactions, period, kind,
		budget.WithTagPolicy(l.policy),
		budget.WithLocation(l.loc))
	l.reports.Set(key, r.Clone())
	return r
}

// BudgetForOffset is Budget for the month offset months away from the
// current one.
func (l *Ledger) BudgetForOffset(offset int, kind core.TransactionType) budget.Report {
	return l.Budget(l.CurrentPeriod().AddMonths(offset), kind)
}
