// Package ledger persists the last processed command request id per device
// so a restarted agent does not replay a command it already applied
package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"callrota/internal/platform/logger"
)

const keyPrefix = "last_request_id/"

// Badger is the ledger over an embedded badger database
type Badger struct {
	db *badger.DB
}

// Open opens or creates the ledger under dir; an empty dir opens an in-memory ledger
func Open(dir string) (*Badger, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("ledger: create %s: %w", dir, err)
		}
		opts = badger.DefaultOptions(dir).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("ledger: open: %w", err)
	}
	return &Badger{db: db}, nil
}

// LastRequestID returns "" when device never processed a command
func (l *Badger) LastRequestID(_ context.Context, device string) (string, error) {
	var id string
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + device))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			id = string(v)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("ledger: read %s: %w", device, err)
	}
	return id, nil
}

// SetLastRequestID records id as processed for device
func (l *Badger) SetLastRequestID(_ context.Context, device, id string) error {
	err := l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+device), []byte(id))
	})
	if err != nil {
		return fmt.Errorf("ledger: write %s: %w", device, err)
	}
	return nil
}

// RunGC collects the value log every interval until ctx ends
func (l *Badger) RunGC(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			// one pass per tick; ErrNoRewrite just means nothing to collect
			if err := l.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				logger.Named("ledger").Debug().Err(err).Msg("value log gc")
			}
		}
	}
}

// Close flushes and closes the database
func (l *Badger) Close() error { return l.db.Close() }
