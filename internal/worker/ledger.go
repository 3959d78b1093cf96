package worker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/oshima-labs/paperctl/internal/cache"
)

// ledgerTTL keeps upload records long enough to cover repeated batch
// runs over the same corpus.
const ledgerTTL = 90 * 24 * time.Hour

// Ledger remembers which PDFs were already uploaded, by content digest.
// The in-process set catches the same file appearing twice in one batch;
// the cache catches files uploaded by earlier runs. A nil cache keeps
// only the in-process set.
type Ledger struct {
	store cache.Cache
	seen  map[string]bool
	mu    sync.Mutex
}

// NewLedger creates a ledger backed by store
func NewLedger(store cache.Cache) *Ledger {
	return &Ledger{
		store: store,
		seen:  make(map[string]bool),
	}
}

// FileDigest returns the sha256 hex digest of the file contents
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Seen reports whether a file with this digest was already uploaded
func (l *Ledger) Seen(digest string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.seen[digest] {
		return true
	}
	if l.store == nil {
		return false
	}
	_, found := l.store.Get(cache.Key("upload", digest))
	return found
}

// Record marks a digest as uploaded, remembering the paper ID the server
// assigned
func (l *Ledger) Record(digest, paperID string) {
	l.mu.Lock()
	l.seen[digest] = true
	l.mu.Unlock()

	if l.store == nil {
		return
	}
	_ = l.store.Set(cache.Key("upload", digest), []byte(paperID), ledgerTTL)
}
