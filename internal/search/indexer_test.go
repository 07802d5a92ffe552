package search

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paydo/internal/core"
)

type fakeES struct {
	mu       sync.Mutex
	bulk     []string
	deletes  []string
	deleteSC int
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/_bulk"):
		var items []string
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			line := sc.Text()
			f.bulk = append(f.bulk, line)
			if strings.HasPrefix(line, `{"index"`) {
				items = append(items, `{"index":{"status":201}}`)
			}
		}
		io.WriteString(w, `{"took":1,"errors":false,"items":[`+strings.Join(items, ",")+`]}`)
	case r.Method == http.MethodDelete:
		f.deletes = append(f.deletes, r.URL.Path)
		if f.deleteSC != 0 {
			w.WriteHeader(f.deleteSC)
		}
		io.WriteString(w, `{"acknowledged":true}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestIndexer(t *testing.T) (*Indexer, *fakeES) {
	t.Helper()
	fake := &fakeES{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	ix, err := NewIndexer([]string{srv.URL}, "paydo-test")
	require.NoError(t, err)
	return ix, fake
}

func TestNewDocument(t *testing.T) {
	target := int64(2)
	doc := NewDocument(core.Transaction{
		ID: 7, Type: core.Transfer, Amount: 100, Title: "x", Tags: []string{"#a"},
		AccountID: 1, TargetAccountID: &target, Date: "۱۴۰۳/۱۰/۰۵", Timestamp: 1735128000000,
	})
	assert.Equal(t, 1403, doc.Year)
	assert.Equal(t, 10, doc.Month)
	assert.Equal(t, 5, doc.Day)
	assert.Equal(t, "transfer", doc.Type)
	assert.Equal(t, time.Date(2024, 12, 25, 12, 0, 0, 0, time.UTC), doc.Timestamp)

	doc = NewDocument(core.Transaction{ID: 8, Date: "garbage"})
	assert.Zero(t, doc.Year)
}

func TestHandleCreatedIndexesByID(t *testing.T) {
	ix, fake := newTestIndexer(t)
	ev := core.LedgerEvent{
		ID:   "e1",
		Kind: core.EventTransactionCreated,
		Transactions: []core.Transaction{
			{ID: 11, Type: core.Expense, Amount: 5, Title: "نان", Tags: []string{"#food"}, AccountID: 1, Date: "1403/10/05"},
		},
	}
	require.NoError(t, ix.Handle(context.Background(), ev))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.bulk, 2)
	assert.Contains(t, fake.bulk[0], `"_id":"11"`)
	assert.Contains(t, fake.bulk[1], `"title":"نان"`)
}

func TestHandleResetDeletesIndex(t *testing.T) {
	ix, fake := newTestIndexer(t)
	fake.deleteSC = http.StatusNotFound

	require.NoError(t, ix.Handle(context.Background(), core.LedgerEvent{ID: "e", Kind: core.EventLedgerReset}))
	assert.Equal(t, []string{"/paydo-test"}, fake.deletes)

	require.NoError(t, ix.Handle(context.Background(), core.LedgerEvent{ID: "e", Kind: core.EventAccountDeleted}))
	assert.Len(t, fake.deletes, 1)
}

func TestDeleteIndexServerError(t *testing.T) {
	ix, fake := newTestIndexer(t)
	fake.deleteSC = http.StatusBadRequest
	assert.Error(t, ix.DeleteIndex(context.Background()))
}
