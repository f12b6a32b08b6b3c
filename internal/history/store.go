// Package history persists a local log of finished transfers in an embedded
// BadgerDB. Records are append-only snapshots; the only bulk operation is a
// user-initiated clear.
package history

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Record is a durable snapshot of a completed transfer session.
type Record struct {
	ID            int       `json:"id"`
	UUID          string    `json:"uuid"`
	FileName      string    `json:"fileName"`
	FileSize      string    `json:"fileSize"`
	MimeType      string    `json:"type"`
	Status        string    `json:"status"`
	Progress      int       `json:"progress"`
	CID           string    `json:"cid"`
	ShareableLink string    `json:"shareableLink"`
	ErrorMessage  string    `json:"errorMessage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

const keyPrefix = "file:"

// Store is a badger-backed record log.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the history database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append stores rec, assigning UUID, the derived integer ID, and CreatedAt
// when they are unset. Records are never mutated afterwards.
//
// The key embeds a 19-digit zero-padded timestamp plus the UUID, so a
// reverse prefix scan yields records newest-first and two records written in
// the same nanosecond still get distinct keys.
func (s *Store) Append(rec Record) error {
	if rec.UUID == "" {
		rec.UUID = uuid.New().String()
	}
	if rec.ID == 0 {
		rec.ID = idFromUUID(rec.UUID)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	key := fmt.Sprintf("%s%019d:%s", keyPrefix, rec.CreatedAt.UnixNano(), rec.UUID)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal history record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// ListAll returns every record, newest first.
func (s *Store) ListAll() ([]Record, error) {
	var records []Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		// Reverse iteration needs a seek key past the last possible entry.
		seekKey := append([]byte(keyPrefix), 0xFF)

		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec Record
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("unmarshal history record: %w", err)
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// RemoveByID deletes the record with the given integer id, if present.
func (s *Store) RemoveByID(id int) error {
	return s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var rec Record
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			if rec.ID == id {
				return txn.Delete(item.KeyCopy(nil))
			}
		}
		return nil
	})
}

// Clear removes every record.
func (s *Store) Clear() error {
	return s.db.DropPrefix([]byte(keyPrefix))
}

// idFromUUID derives the integer id from the first 8 hex characters of the
// UUID, parsed base 16.
func idFromUUID(u string) int {
	hex := strings.ReplaceAll(u, "-", "")
	if len(hex) > 8 {
		hex = hex[:8]
	}
	n, err := strconv.ParseInt(hex, 16, 64)
	if err != nil {
		return 0
	}
	return int(n)
}
