package slot

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Badger stores the slot as a single key in an embedded BadgerDB.
type Badger struct {
	db  *badger.DB
	key []byte
}

// NewBadger opens a BadgerDB at dir. An empty dir opens an in-memory
// database.
func NewBadger(dir, name string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Badger{db: db, key: []byte("slot:" + name)}, nil
}

func (b *Badger) Load(context.Context) ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	return data, nil
}

func (b *Badger) Save(_ context.Context, data []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key, data)
	})
	if err != nil {
		return fmt.Errorf("badger set: %w", err)
	}
	return nil
}

func (b *Badger) Remove(context.Context) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(b.key)
	})
	if err != nil {
		return fmt.Errorf("badger delete: %w", err)
	}
	return nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}
