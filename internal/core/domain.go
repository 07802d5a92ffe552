package core

import (
	"errors"
	"slices"
	"strings"
)

const (
	Expense  TransactionType = "expense"
	Income   TransactionType = "income"
	Transfer TransactionType = "transfer"

	Cash AccountType = "cash"
	Card AccountType = "card"
)

// DefaultTag is attached to every transaction created without tags and to
// transactions whose last tag was removed.
const DefaultTag = "#سایر"

// MaxTags is the number of tags kept from user input.
const MaxTags = 3

// DeletedAccountName labels references to accounts that no longer exist.
const DeletedAccountName = "حذف شده"

type (
	TransactionType string
	AccountType     string

	Transaction struct {
		ID              int64           `json:"id"`
		Type            TransactionType `json:"type"`
		Amount          int64           `json:"amount"`
		Title           string          `json:"title"`
		Tags            []string        `json:"tags"`
		AccountID       int64           `json:"accountId"`
		TargetAccountID *int64          `json:"targetAccountId"` // transfers only
		Date            string          `json:"date"`            // Persian calendar, YYYY/MM/DD
		Timestamp       int64           `json:"timestamp"`       // unix milliseconds
	}

	Account struct {
		ID      int64       `json:"id"`
		Name    string      `json:"name"`
		Type    AccountType `json:"type"`
		Balance int64       `json:"balance"`
	}

	// State is the whole persisted document.
	State struct {
		Accounts     []Account     `json:"accounts"`
		Transactions []Transaction `json:"transactions"`
	}
)

var (
	ErrAmountTitleRequired   = errors.New("amount and title are required")
	ErrNegativeAmount        = errors.New("amount cannot be negative")
	ErrSourceAccountRequired = errors.New("source account is required")
	ErrTargetAccountRequired = errors.New("target account is required")
	ErrSameAccount           = errors.New("source and target account must differ")
	ErrAccountNotFound       = errors.New("account not found")
	ErrLastAccount           = errors.New("at least one account is required")
	ErrEmptyAccountName      = errors.New("empty account name")
	ErrInvalidAccountType    = errors.New("invalid account type")
	ErrInvalidType           = errors.New("invalid transaction type")
	ErrEmptyTags             = errors.New("transaction has no tags")
)

func (t TransactionType) IsValid() bool {
	switch t {
	case Expense, Income, Transfer:
		return true
	}
	return false
}

func (t AccountType) IsValid() bool {
	return t == Cash || t == Card
}

// DefaultState returns the document used on first start and after a failed load.
func DefaultState() State {
	return State{
		Accounts:     []Account{{ID: 1, Name: "کیف پول نقدی", Type: Cash, Balance: 0}},
		Transactions: []Transaction{},
	}
}

// Validate checks a stored transaction for internal consistency.
func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if t.Amount < 0 {
		return ErrNegativeAmount
	}
	if t.Amount == 0 || strings.TrimSpace(t.Title) == "" {
		return ErrAmountTitleRequired
	}
	if t.AccountID == 0 {
		return ErrSourceAccountRequired
	}
	if len(t.Tags) == 0 {
		return ErrEmptyTags
	}
	if t.Type == Transfer {
		if t.TargetAccountID == nil || *t.TargetAccountID == 0 {
			return ErrTargetAccountRequired
		}
		if *t.TargetAccountID == t.AccountID {
			return ErrSameAccount
		}
	}
	return nil
}

// FirstTag returns the leading tag, or DefaultTag for an untagged transaction.
func (t Transaction) FirstTag() string {
	if len(t.Tags) == 0 {
		return DefaultTag
	}
	return t.Tags[0]
}

// HasTag reports whether the transaction carries tag.
func (t Transaction) HasTag(tag string) bool {
	for _, v := range t.Tags {
		if v == tag {
			return true
		}
	}
	return false
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyAccountName
	}
	if !a.Type.IsValid() {
		return ErrInvalidAccountType
	}
	return nil
}

// Account returns a pointer into s.Accounts for id, or nil.
func (s *State) Account(id int64) *Account {
	for i := range s.Accounts {
		if s.Accounts[i].ID == id {
			return &s.Accounts[i]
		}
	}
	return nil
}

// Clone returns a deep copy so callers cannot alias the controller's slices.
func (s State) Clone() State {
	out := State{
		Accounts:     append([]Account{}, s.Accounts...),
		Transactions: make([]Transaction, len(s.Transactions)),
	}
	for i, t := range s.Transactions {
		out.Transactions[i] = t.Clone()
	}
	return out
}

func (t Transaction) Clone() Transaction {
	t.Tags = append([]string(nil), t.Tags...)
	if t.TargetAccountID != nil {
		id := *t.TargetAccountID
		t.TargetAccountID = &id
	}
	return t
}

// ParseTags splits free-form tag input on whitespace and commas, prefixes
// each with '#', drops repeats and keeps the first MaxTags distinct tags.
func ParseTags(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == '،' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	tags := make([]string, 0, MaxTags)
	for _, f := range fields {
		if len(tags) == MaxTags {
			break
		}
		if !strings.HasPrefix(f, "#") {
			f = "#" + f
		}
		if slices.Contains(tags, f) {
			continue
		}
		tags = append(tags, f)
	}
	if len(tags) == 0 {
		return []string{DefaultTag}
	}
	return tags
}
