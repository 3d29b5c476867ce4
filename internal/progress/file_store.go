package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rzagha1/NAIP-Basemap-Download/internal/core"
)

// ProgressFileName is the fixed name of the store inside the output dir.
const ProgressFileName = "download_progress.json"

// FileStore keeps the completed set as a JSON array of URLs on disk.
// Every Add rewrites the whole file through a tmp + rename, so the
// on-disk set never loses previously recorded URLs.
type FileStore struct {
	path string

	// urls keeps insertion order for the on-disk array; completed is the
	// membership index over the same values.
	urls      []string
	completed map[string]bool

	mu sync.Mutex
}

// NewFileStore loads the persisted set from dir. A missing file means an
// empty set; an existing but unreadable file is a corruption error.
func NewFileStore(dir string) (*FileStore, error) {
	const op = "progress.NewFileStore"
	if dir == "" {
		return nil, errors.New("progress: required dir")
	}

	st := &FileStore{
		path:      filepath.Join(dir, ProgressFileName),
		completed: make(map[string]bool),
	}

	data, err := os.ReadFile(st.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return st, nil
		}
		return nil, fmt.Errorf("progress: read store: %w", err)
	}

	urls := []string{}
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil, core.NewCorruptStoreError(st.path, err, op)
	}
	for _, u := range urls {
		if st.completed[u] {
			continue
		}
		st.completed[u] = true
		st.urls = append(st.urls, u)
	}
	return st, nil
}

func (st *FileStore) Contains(url string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.completed[url]
}

func (st *FileStore) Add(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.completed[url] {
		return nil
	}
	st.completed[url] = true
	st.urls = append(st.urls, url)

	return st.flush(ctx)
}

func (st *FileStore) Close() error {
	return nil
}

// Path returns the on-disk location of the store.
func (st *FileStore) Path() string {
	return st.path
}

// flush rewrites the whole persisted file. Callers hold st.mu.
func (st *FileStore) flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(st.path), 0o755); err != nil {
		return fmt.Errorf("progress: create dir: %w", err)
	}

	tmpPath := st.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("progress: open tmp: %w", err)
	}

	enc := json.NewEncoder(f)
	if err := enc.Encode(st.urls); err != nil {
		closeErr := f.Close()
		if closeErr != nil {
			return fmt.Errorf("progress: encode: %v: close: %w", err, closeErr)
		}
		return fmt.Errorf("progress: encode: %w", err)
	} else if err := f.Sync(); err != nil {
		closeErr := f.Close()
		if closeErr != nil {
			return fmt.Errorf("progress: fsync: %v: close: %w", err, closeErr)
		}
		return fmt.Errorf("progress: fsync: %w", err)
	} else if err := f.Close(); err != nil {
		return fmt.Errorf("progress: close: %w", err)
	} else if err := os.Rename(tmpPath, st.path); err != nil {
		return fmt.Errorf("progress: rename tmp: %w", err)
	} else {
		return nil
	}
}
