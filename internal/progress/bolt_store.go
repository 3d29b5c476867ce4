package progress

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltStore is the bbolt-backed alternative to FileStore, selected by the
// PROGRESS_STORE_MODE config. Same contract, one bucket keyed by URL.
type BoltStore struct {
	db *bolt.DB

	completed map[string]bool
	mu        sync.Mutex
}

const boltCompletedBucket = "basemap-completed-urls"

// BoltFileName is the fixed name of the database inside the output dir.
const BoltFileName = "download_progress.db"

func NewBoltStore(dir string) (*BoltStore, error) {
	if dir == "" {
		return nil, errors.New("progress: required dir")
	}
	path := filepath.Join(dir, BoltFileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("progress: create bolt dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600,
		&bolt.Options{Timeout: time.Second},
	)
	if err != nil {
		return nil, fmt.Errorf("progress: opening bolt: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, berr := tx.CreateBucketIfNotExists([]byte(boltCompletedBucket))
		return berr
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("progress: cant init bucket: %w", err)
	}

	st := &BoltStore{db: db, completed: make(map[string]bool)}
	if err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(boltCompletedBucket))
		if b == nil {
			return errors.New("progress: bucket miss")
		}
		return b.ForEach(func(k, _ []byte) error {
			st.completed[string(k)] = true
			return nil
		})
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (st *BoltStore) Contains(url string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.completed[url]
}

func (st *BoltStore) Add(ctx context.Context, url string) error {
	if st.db == nil {
		return errors.New("progress: bolt not init")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.completed[url] {
		return nil
	}
	if err := st.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(boltCompletedBucket))
		if b == nil {
			return errors.New("progress: bucket miss")
		}
		return b.Put([]byte(url), []byte(time.Now().UTC().Format(time.RFC3339)))
	}); err != nil {
		return fmt.Errorf("progress: put url: %w", err)
	}
	st.completed[url] = true
	return nil
}

func (st *BoltStore) Close() error {
	if st.db == nil {
		return nil
	}
	err := st.db.Close()
	st.db = nil
	return err
}
