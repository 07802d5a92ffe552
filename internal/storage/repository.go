package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"paydo/internal/core"
)

var ErrCorruptDocument = errors.New("corrupt ledger document")

// Repository loads and saves the ledger State as one JSON document under a
// single key, falling back to older key names when the current one is absent.
type Repository struct {
	store      Store
	key        string
	legacyKeys []string
}

// LoadResult describes where a state came from.
type LoadResult struct {
	State  core.State
	Key    string // key the document was read from, "" when none existed
	Legacy bool
}

func NewRepository(store Store, key string, legacyKeys ...string) *Repository {
	return &Repository{store: store, key: key, legacyKeys: legacyKeys}
}

func (r *Repository) Key() string { return r.key }

// Load returns the stored state. When no document exists the default state
// is returned with a nil error. When the document cannot be decoded the
// default state is returned together with an error wrapping
// ErrCorruptDocument.
func (r *Repository) Load(ctx context.Context) (LoadResult, error) {
	keys := append([]string{r.key}, r.legacyKeys...)
	for i, key := range keys {
		data, err := r.store.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return LoadResult{State: core.DefaultState()}, fmt.Errorf("load %s: %w", key, err)
		}
		res := LoadResult{Key: key, Legacy: i > 0}
		st, err := DecodeState(data)
		if err != nil {
			res.State = core.DefaultState()
			return res, fmt.Errorf("load %s: %w", key, err)
		}
		if res.Legacy {
			slog.InfoContext(ctx, "Loaded ledger from legacy storage key", "key", key, "current_key", r.key)
		}
		res.State = st
		return res, nil
	}
	return LoadResult{State: core.DefaultState()}, nil
}

func (r *Repository) Save(ctx context.Context, st core.State) error {
	data, err := EncodeState(st)
	if err != nil {
		return err
	}
	if err := r.store.Put(ctx, r.key, data); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// Reset removes the document under the current and every legacy key.
func (r *Repository) Reset(ctx context.Context) error {
	for _, key := range append([]string{r.key}, r.legacyKeys...) {
		if err := r.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("reset ledger: %w", err)
		}
	}
	return nil
}

func (r *Repository) Usage(ctx context.Context) (int64, error) {
	return r.store.Usage(ctx)
}

// DecodeState parses a ledger document. Both "accounts" and "transactions"
// must be present. An empty account list gets the default cash account so
// the one-account invariant holds.
func DecodeState(data []byte) (core.State, error) {
	var doc struct {
		Accounts     *[]core.Account     `json:"accounts"`
		Transactions *[]core.Transaction `json:"transactions"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return core.State{}, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	if doc.Accounts == nil || doc.Transactions == nil {
		return core.State{}, fmt.Errorf("%w: missing accounts or transactions", ErrCorruptDocument)
	}
	st := core.State{Accounts: *doc.Accounts, Transactions: *doc.Transactions}
	if len(st.Accounts) == 0 {
		st.Accounts = core.DefaultState().Accounts
	}
	return st, nil
}

func EncodeState(st core.State) ([]byte, error) {
	if st.Accounts == nil {
		st.Accounts = []core.Account{}
	}
	if st.Transactions == nil {
		st.Transactions = []core.Transaction{}
	}
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	return data, nil
}
