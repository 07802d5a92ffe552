package ledger

import (
	"context"
	"strings"

	"paydo/internal/core"
	"paydo/internal/jalali"
)

// Draft is a transaction as entered by the user.
type Draft struct {
	Type            core.TransactionType
	Amount          int64
	Title           string
	Tags            string // free-form, split by ParseTags
	AccountID       int64
	TargetAccountID int64 // transfers only
}

type AccountDraft struct {
	Name    string
	Type    core.AccountType
	Balance int64 // opening balance
}

// AddTransaction records d, adjusts the balances it touches and returns the
// stored transaction.
func (l *Ledger) AddTransaction(ctx context.Context, d Draft) (core.Transaction, error) {
	t, p, err := l.addTransaction(ctx, d)
	l.publish(ctx, p)
	return t, err
}

func (l *Ledger) addTransaction(ctx context.Context, d Draft) (core.Transaction, *pending, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkDraft(d); err != nil {
		return core.Transaction{}, nil, err
	}

	now := l.now()
	t := core.Transaction{
		Type:      d.Type,
		Amount:    d.Amount,
		Title:     strings.TrimSpace(d.Title),
		Tags:      core.ParseTags(d.Tags),
		AccountID: d.AccountID,
		Date:      jalali.FromTime(now.In(l.loc)).String(),
		Timestamp: now.UnixMilli(),
	}
	if d.Type == core.Transfer {
		target := d.TargetAccountID
		t.TargetAccountID = &target
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, nil, err
	}

	next := l.state.Clone()
	applyBalances(&next, t)
	lastID := l.lastID
	t.ID = l.nextID(now)
	next.Transactions = append([]core.Transaction{t}, next.Transactions...)

	if err := l.persist(ctx, next); err != nil {
		l.lastID = lastID
		return core.Transaction{}, nil, err
	}
	p := l.announce(core.LedgerEvent{Kind: core.EventTransactionCreated, Transactions: []core.Transaction{t.Clone()}})
	return t.Clone(), p, nil
}

func (l *Ledger) checkDraft(d Draft) error {
	if !d.Type.IsValid() {
		return core.ErrInvalidType
	}
	if d.Amount < 0 {
		return core.ErrNegativeAmount
	}
	if d.Amount == 0 || strings.TrimSpace(d.Title) == "" {
		return core.ErrAmountTitleRequired
	}
	if d.AccountID == 0 {
		return core.ErrSourceAccountRequired
	}
	if d.Type == core.Transfer {
		if d.TargetAccountID == 0 {
			return core.ErrTargetAccountRequired
		}
		if d.TargetAccountID == d.AccountID {
			return core.ErrSameAccount
		}
		if l.state.Account(d.TargetAccountID) == nil {
			return core.ErrAccountNotFound
		}
	}
	if l.state.Account(d.AccountID) == nil {
		return core.ErrAccountNotFound
	}
	return nil
}

func applyBalances(st *core.State, t core.Transaction) {
	src := st.Account(t.AccountID)
	switch t.Type {
	case core.Expense:
		src.Balance -= t.Amount
	case core.Income:
		src.Balance += t.Amount
	case core.Transfer:
		src.Balance -= t.Amount
		st.Account(*t.TargetAccountID).Balance += t.Amount
	}
}

func (l *Ledger) AddAccount(ctx context.Context, d AccountDraft) (core.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a := core.Account{Name: strings.TrimSpace(d.Name), Type: d.Type, Balance: d.Balance}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	lastID := l.lastID
	a.ID = l.nextID(l.now())
	next := l.state.Clone()
	next.Accounts = append(next.Accounts, a)
	if err := l.persist(ctx, next); err != nil {
		l.lastID = lastID
		return core.Account{}, err
	}
	return a, nil
}

// DeleteAccount removes the account. Transactions that reference it are kept
// and show DeletedAccountName as their account.
func (l *Ledger) DeleteAccount(ctx context.Context, id int64) error {
	p, err := l.deleteAccount(ctx, id)
	l.publish(ctx, p)
	return err
}

func (l *Ledger) deleteAccount(ctx context.Context, id int64) (*pending, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.Account(id) == nil {
		return nil, core.ErrAccountNotFound
	}
	if len(l.state.Accounts) <= 1 {
		return nil, core.ErrLastAccount
	}

	next := l.state.Clone()
	kept := next.Accounts[:0]
	for _, a := range next.Accounts {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	next.Accounts = kept
	if err := l.persist(ctx, next); err != nil {
		return nil, err
	}
	return l.announce(core.LedgerEvent{Kind: core.EventAccountDeleted, AccountID: id}), nil
}

// DeleteTag strips tag from every transaction, giving DefaultTag to those left
// without tags. It returns how many transactions changed and saves only when
// that number is positive.
func (l *Ledger) DeleteTag(ctx context.Context, tag string) (int, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return 0, nil
	}
	if !strings.HasPrefix(tag, "#") {
		tag = "#" + tag
	}
	n, p, err := l.deleteTag(ctx, tag)
	l.publish(ctx, p)
	return n, err
}

func (l *Ledger) deleteTag(ctx context.Context, tag string) (int, *pending, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state.Clone()
	var changed []core.Transaction
	for i := range next.Transactions {
		t := &next.Transactions[i]
		if !t.HasTag(tag) {
			continue
		}
		tags := make([]string, 0, len(t.Tags))
		for _, v := range t.Tags {
			if v != tag {
				tags = append(tags, v)
			}
		}
		if len(tags) == 0 {
			tags = []string{core.DefaultTag}
		}
		t.Tags = tags
		changed = append(changed, t.Clone())
	}
	if len(changed) == 0 {
		return 0, nil, nil
	}
	if err := l.persist(ctx, next); err != nil {
		return 0, nil, err
	}
	p := l.announce(core.LedgerEvent{Kind: core.EventTransactionsUpdated, Tag: tag, Transactions: changed})
	return len(changed), p, nil
}
