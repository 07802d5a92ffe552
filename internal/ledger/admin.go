package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"paydo/internal/backup"
	"paydo/internal/core"
)

// Reset deletes every stored document and returns to the default state.
func (l *Ledger) Reset(ctx context.Context) error {
	p, err := l.reset(ctx)
	l.publish(ctx, p)
	return err
}

func (l *Ledger) reset(ctx context.Context) (*pending, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.repo.Reset(ctx); err != nil {
		return nil, err
	}
	l.commit(core.DefaultState())
	l.reports.Purge()
	slog.InfoContext(ctx, "Ledger reset")
	return l.announce(core.LedgerEvent{Kind: core.EventLedgerReset}), nil
}

// Backup writes the current state to w, encrypted when passphrase is set.
func (l *Ledger) Backup(w io.Writer, passphrase string) error {
	return backup.Encode(w, l.State(), passphrase)
}

// Restore replaces the whole state with the backup read from r. Nothing
// changes when the backup is invalid.
func (l *Ledger) Restore(ctx context.Context, r io.Reader, passphrase string) error {
	st, err := backup.Decode(r, passphrase)
	if err != nil {
		return err
	}
	p, err := l.restore(ctx, st)
	l.publish(ctx, p)
	return err
}

func (l *Ledger) restore(ctx context.Context, st core.State) (*pending, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.persist(ctx, st); err != nil {
		return nil, fmt.Errorf("restore ledger: %w", err)
	}
	for _, a := range st.Accounts {
		l.lastID = max(l.lastID, a.ID)
	}
	for _, t := range st.Transactions {
		l.lastID = max(l.lastID, t.ID)
	}
	slog.InfoContext(ctx, "Ledger restored",
		"accounts", len(st.Accounts),
		"transactions", len(st.Transactions))
	return l.announce(core.LedgerEvent{Kind: core.EventLedgerRestored, Transactions: st.Clone().Transactions}), nil
}

// StorageUsage reports the bytes held by the backing store.
func (l *Ledger) StorageUsage(ctx context.Context) (int64, error) {
	return l.repo.Usage(ctx)
}
