// Package search mirrors ledger transactions into Elasticsearch so they can be
// explored with Kibana style queries.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"paydo/internal/core"
	"paydo/internal/jalali"
)

const flushBytes = 2048

// Indexer upserts transactions by id and drops the index on reset.
type Indexer struct {
	es    *elasticsearch.Client
	index string
}

// Document is the indexed form of a transaction. The Persian date is split
// so dashboards can bucket by Persian month.
type Document struct {
	ID              int64     `json:"id"`
	Type            string    `json:"type"`
	Amount          int64     `json:"amount"`
	Title           string    `json:"title"`
	Tags            []string  `json:"tags"`
	AccountID       int64     `json:"account_id"`
	TargetAccountID *int64    `json:"target_account_id,omitempty"`
	Date            string    `json:"date"`
	Year            int       `json:"year,omitempty"`
	Month           int       `json:"month,omitempty"`
	Day             int       `json:"day,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

func NewIndexer(urls []string, index string) (*Indexer, error) {
	retryBackoff := backoff.NewExponentialBackOff()

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: urls,

		// 429 TooManyRequests is retried along with gateway errors
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			if i == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},
		MaxRetries: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return &Indexer{es: es, index: index}, nil
}

func (ix *Indexer) Name() string { return "elasticsearch" }

// Handle applies one ledger event to the index.
func (ix *Indexer) Handle(ctx context.Context, ev core.LedgerEvent) error {
	switch ev.Kind {
	case core.EventTransactionCreated, core.EventTransactionsUpdated:
		return ix.Index(ctx, ev.Transactions)
	case core.EventLedgerReset:
		return ix.DeleteIndex(ctx)
	case core.EventLedgerRestored:
		if err := ix.DeleteIndex(ctx); err != nil {
			return err
		}
		return ix.Index(ctx, ev.Transactions)
	default:
		return nil
	}
}

// Index bulk-writes txs, replacing documents with the same id.
func (ix *Indexer) Index(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         ix.index,
		Client:        ix.es,
		FlushBytes:    flushBytes,
		NumWorkers:    2,
		FlushInterval: 5 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("bulk indexer: %w", err)
	}

	for _, t := range txs {
		data, err := json.Marshal(NewDocument(t))
		if err != nil {
			return fmt.Errorf("marshal document %d: %w", t.ID, err)
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: strconv.FormatInt(t.ID, 10),
			Body:       bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					slog.ErrorContext(ctx, "Failed to index transaction", "transaction_id", item.DocumentID, "error", err)
					return
				}
				slog.ErrorContext(ctx, "Failed to index transaction",
					"transaction_id", item.DocumentID,
					"error_type", res.Error.Type,
					"reason", res.Error.Reason)
			},
		})
		if err != nil {
			return fmt.Errorf("queue document %d: %w", t.ID, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("flush bulk indexer: %w", err)
	}

	stats := bi.Stats()
	if stats.NumFailed > 0 {
		return fmt.Errorf("failed indexing %d of %d documents", stats.NumFailed, stats.NumAdded)
	}
	slog.InfoContext(ctx, "Indexed transactions", "count", stats.NumFlushed, "index", ix.index)
	return nil
}

// DeleteIndex removes the whole index. A missing index is not an error.
func (ix *Indexer) DeleteIndex(ctx context.Context) error {
	res, err := ix.es.Indices.Delete([]string{ix.index}, ix.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete index %s: %w", ix.index, err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete index %s: %s", ix.index, res.Status())
	}
	slog.InfoContext(ctx, "Deleted search index", "index", ix.index)
	return nil
}

func NewDocument(t core.Transaction) Document {
	doc := Document{
		ID:              t.ID,
		Type:            string(t.Type),
		Amount:          t.Amount,
		Title:           t.Title,
		Tags:            t.Tags,
		AccountID:       t.AccountID,
		TargetAccountID: t.TargetAccountID,
		Date:            t.Date,
		Timestamp:       time.UnixMilli(t.Timestamp).UTC(),
	}
	if d, err := jalali.Parse(t.Date); err == nil {
		doc.Year, doc.Month, doc.Day = d.Year, d.Month, d.Day
	}
	return doc
}
