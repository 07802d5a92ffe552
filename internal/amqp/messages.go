package amqp

import (
	"encoding/json"
	"errors"
	"fmt"

	"paydo/internal/core"
)

var ErrMalformedEvent = errors.New("malformed ledger event")

var knownKinds = map[core.EventKind]bool{
	core.EventTransactionCreated:  true,
	core.EventTransactionsUpdated: true,
	core.EventAccountDeleted:      true,
	core.EventLedgerReset:         true,
	core.EventLedgerRestored:      true,
}

func EncodeEvent(ev core.LedgerEvent) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return body, nil
}

// DecodeEvent parses a message body and checks that it names a known kind.
func DecodeEvent(body []byte) (core.LedgerEvent, error) {
	var ev core.LedgerEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return core.LedgerEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.ID == "" {
		return core.LedgerEvent{}, fmt.Errorf("%w: missing id", ErrMalformedEvent)
	}
	if !knownKinds[ev.Kind] {
		return core.LedgerEvent{}, fmt.Errorf("%w: unknown kind %q", ErrMalformedEvent, ev.Kind)
	}
	return ev, nil
}
