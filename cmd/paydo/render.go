package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"paydo/internal/budget"
	"paydo/internal/core"
	"paydo/internal/jalali"
	"paydo/internal/ledger"
)

// barCells is the width of a 100% bar in the terminal.
const barCells = 20

var kindLabels = map[core.TransactionType]string{
	core.Expense: "هزینه",
	core.Income:  "درآمد",
}

func renderBudget(w io.Writer, r budget.Report) {
	fmt.Fprintf(w, "%s - %s\n", r.Period.Label(), kindLabels[r.Kind])
	fmt.Fprintf(w, "جمع: %s\n", jalali.FormatMoney(r.Total))
	if r.Total == 0 {
		fmt.Fprintln(w, "موردی ثبت نشده")
		return
	}

	fmt.Fprintln(w)
	for _, c := range r.Categories {
		fmt.Fprintf(w, "%-12s %s %s٪ %s\n", c.Tag, bar(c.Width), jalali.ToPersianDigits(strconv.Itoa(c.Percent)), jalali.FormatMoney(c.Amount))
	}

	fmt.Fprintln(w)
	heights := budget.BarHeights(r.Daily)
	for i, v := range r.Daily {
		if v == 0 {
			continue
		}
		day := jalali.ToPersianDigits(fmt.Sprintf("%02d", i+1))
		fmt.Fprintf(w, "%s %s %s\n", day, bar(heights[i]), jalali.FormatMoney(v))
	}
}

// bar draws pct (0-100) as block characters, at least one cell.
func bar(pct float64) string {
	n := int(math.Round(pct / 100 * barCells))
	n = min(max(n, 1), barCells)
	return strings.Repeat("█", n)
}

func formatTransaction(t core.Transaction, l *ledger.Ledger) string {
	account := l.AccountName(t.AccountID)
	if t.TargetAccountID != nil {
		account += " → " + l.AccountName(*t.TargetAccountID)
	}
	sign := ""
	switch t.Type {
	case core.Expense:
		sign = "-"
	case core.Income:
		sign = "+"
	}
	return fmt.Sprintf("%s\t%s%s\t%s\t%s\t%s",
		jalali.ToPersianDigits(t.Date), sign, jalali.FormatMoney(t.Amount), t.Title, account, strings.Join(t.Tags, " "))
}
