package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"tokcount/internal/domain"
)

var (
	bucketCounts = []byte("counts")
	bucketMeta   = []byte("meta")
)

// BoltCache persists token counts keyed by encoding and text content.
type BoltCache struct {
	db *bbolt.DB
}

func NewBoltCache(path string) (*BoltCache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketCounts, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltCache{db: db}, nil
}

type countEntry struct {
	Path      string `json:"path,omitempty"`
	Encoding  string `json:"encoding"`
	Tokens    int    `json:"tokens"`
	Bytes     int    `json:"bytes"`
	CountedAt int64  `json:"counted_at"`
}

// cacheKey hashes the encoding name and text; the NUL separator keeps
// ("ab", "c") and ("a", "bc") apart.
func cacheKey(encoding, text string) []byte {
	h := sha256.New()
	h.Write([]byte(encoding))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return []byte(hex.EncodeToString(h.Sum(nil)[:16]))
}

func (s *BoltCache) Get(encoding, text string) (domain.Count, bool, error) {
	var count domain.Count
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCounts).Get(cacheKey(encoding, text))
		if data == nil {
			return nil
		}
		var entry countEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return fmt.Errorf("corrupt cache entry: %w", err)
		}
		count = domain.Count{
			Path:      entry.Path,
			Encoding:  entry.Encoding,
			Tokens:    entry.Tokens,
			Bytes:     entry.Bytes,
			CountedAt: time.Unix(entry.CountedAt, 0),
		}
		found = true
		return nil
	})
	return count, found, err
}

func (s *BoltCache) Put(encoding, text string, count domain.Count) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		entry := countEntry{
			Path:      count.Path,
			Encoding:  count.Encoding,
			Tokens:    count.Tokens,
			Bytes:     count.Bytes,
			CountedAt: count.CountedAt.Unix(),
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketCounts).Put(cacheKey(encoding, text), data)
	})
}

// Len returns the number of cached counts.
func (s *BoltCache) Len() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketCounts).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *BoltCache) Close() error {
	return s.db.Close()
}
