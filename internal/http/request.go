package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"paydo/internal/core"
	"paydo/internal/jalali"
)

// amountInput accepts a JSON number or a string such as "۱۲,۵۰۰".
type amountInput int64

func (a *amountInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amountInput(jalali.CleanNumber(s))
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = amountInput(n)
	return nil
}

type transactionRequest struct {
	Type            core.TransactionType `json:"type"`
	Amount          amountInput          `json:"amount"`
	Title           string               `json:"title"`
	Tags            string               `json:"tags"`
	AccountID       int64                `json:"accountId"`
	TargetAccountID int64                `json:"targetAccountId"`
}

type accountRequest struct {
	Name    string           `json:"name"`
	Type    core.AccountType `json:"type"`
	Balance amountInput      `json:"balance"`
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// budgetQuery reads kind plus either year and month or a month offset.
func budgetQuery(r *http.Request, current jalali.Period) (jalali.Period, core.TransactionType, error) {
	q := r.URL.Query()

	kind := core.TransactionType(strings.TrimSpace(q.Get("kind")))
	if kind == "" {
		kind = core.Expense
	}
	if kind != core.Expense && kind != core.Income {
		return jalali.Period{}, "", fmt.Errorf("%w: kind must be expense or income", errBadRequest)
	}

	if q.Has("year") || q.Has("month") {
		year, yerr := strconv.Atoi(jalali.NormalizeDigits(q.Get("year")))
		month, merr := strconv.Atoi(jalali.NormalizeDigits(q.Get("month")))
		p := jalali.Period{Year: year, Month: month}
		if yerr != nil || merr != nil || !p.Valid() {
			return jalali.Period{}, "", fmt.Errorf("%w: invalid year or month", errBadRequest)
		}
		return p, kind, nil
	}

	offset := 0
	if v := strings.TrimSpace(q.Get("offset")); v != "" {
		n, err := strconv.Atoi(jalali.NormalizeDigits(v))
		if err != nil {
			return jalali.Period{}, "", fmt.Errorf("%w: invalid offset", errBadRequest)
		}
		offset = n
	}
	return current.AddMonths(offset), kind, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id", errBadRequest)
	}
	return id, nil
}
