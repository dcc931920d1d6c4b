// Package local provides a badger-backed table store for development and tests.
// It behaves like a DynamoDB table keyed by a string id: full-row puts, SET and
// REMOVE updates that create missing rows, idempotent deletes and paginated scans.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tablegrid/application/ports"
	"tablegrid/domain/core/entities"
	"tablegrid/domain/core/valueobjects"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

var rowPrefix = []byte("row/")

const defaultPageSize = 100

// Options configures a BadgerStore
type Options struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path string
	// PageSize bounds the rows read per scan page
	PageSize int
	// Logger receives badger's own log output. If nil, logging is disabled.
	Logger *zap.Logger
}

// BadgerStore implements ports.TableStore on badger
type BadgerStore struct {
	db       *badger.DB
	pageSize int
}

var _ ports.TableStore = (*BadgerStore)(nil)

// NewBadgerStore opens the store
func NewBadgerStore(opts Options) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(newBadgerLogger(opts.Logger))
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &BadgerStore{db: db, pageSize: pageSize}, nil
}

// Close closes the database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func rowKey(id string) []byte {
	return append(append([]byte(nil), rowPrefix...), id...)
}

// ScanPage reads up to limit rows after the id startAfter (exclusive). The
// returned cursor is empty once the table is exhausted.
func (s *BadgerStore) ScanPage(ctx context.Context, startAfter string, limit int) (entities.Snapshot, string, error) {
	if limit <= 0 {
		limit = s.pageSize
	}

	rows := entities.Snapshot{}
	cursor := ""
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = rowPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		if startAfter != "" {
			start := rowKey(startAfter)
			it.Seek(start)
			if it.Valid() && bytes.Equal(it.Item().Key(), start) {
				it.Next()
			}
		} else {
			it.Seek(rowPrefix)
		}

		for ; it.ValidForPrefix(rowPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if len(rows) == limit {
				cursor = rows[len(rows)-1].ID()
				return nil
			}

			var row entities.Row
			if err := it.Item().Value(func(val []byte) error {
				var err error
				row, err = decodeRow(val)
				return err
			}); err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return rows, cursor, nil
}

// Scan reads every row page by page
func (s *BadgerStore) Scan(ctx context.Context) (entities.Snapshot, error) {
	all := entities.Snapshot{}
	cursor := ""
	for {
		page, next, err := s.ScanPage(ctx, cursor, s.pageSize)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		all = append(all, page...)
		if next == "" {
			return all, nil
		}
		cursor = next
	}
}

// Put writes the full row
func (s *BadgerStore) Put(ctx context.Context, row entities.Row) error {
	id := row.ID()
	if id == "" {
		return fmt.Errorf("put: row has no id")
	}
	stored := row.Clone()
	stored[valueobjects.IDColumn] = id

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("put: encode row: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(rowKey(id), data)
	})
}

// Update sets and removes columns, creating the row when it does not exist
func (s *BadgerStore) Update(ctx context.Context, id string, set entities.Row, remove []string) error {
	if len(set) == 0 && len(remove) == 0 {
		return nil
	}

	return s.db.Update(func(txn *badger.Txn) error {
		row := entities.Row{valueobjects.IDColumn: id}

		item, err := txn.Get(rowKey(id))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return fmt.Errorf("update: %w", err)
		default:
			if err := item.Value(func(val []byte) error {
				row, err = decodeRow(val)
				return err
			}); err != nil {
				return fmt.Errorf("update: %w", err)
			}
		}

		for _, col := range remove {
			delete(row, col)
		}
		for col, v := range set {
			if col == valueobjects.IDColumn {
				continue
			}
			row[col] = v
		}

		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("update: encode row: %w", err)
		}
		return txn.Set(rowKey(id), data)
	})
}

// Delete removes the row; deleting a missing row succeeds
func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(rowKey(id))
	})
}

func decodeRow(data []byte) (entities.Row, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var row entities.Row
	if err := dec.Decode(&row); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return row, nil
}

// badgerLogger routes badger's logging through zap
type badgerLogger struct {
	sugar *zap.SugaredLogger
}

func newBadgerLogger(logger *zap.Logger) badgerLogger {
	return badgerLogger{sugar: logger.Named("badger").Sugar()}
}

func (l badgerLogger) Errorf(format string, args ...interface{})   { l.sugar.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...interface{})    { l.sugar.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...interface{})   { l.sugar.Debugf(format, args...) }
