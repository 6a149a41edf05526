package session

import (
	"context"
	"sync"
)

// MemoryDirectory is a mutex-guarded in-process directory for tests and
// single-node development runs.
type MemoryDirectory struct {
	mu     sync.RWMutex
	tokens map[string]int64
}

// NewMemoryDirectory creates an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{tokens: make(map[string]int64)}
}

func (d *MemoryDirectory) Issue(ctx context.Context, userID int64) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}
	d.mu.Lock()
	d.tokens[token] = userID
	d.mu.Unlock()
	return token, nil
}

func (d *MemoryDirectory) Lookup(ctx context.Context, token string) (int64, error) {
	d.mu.RLock()
	userID, ok := d.tokens[token]
	d.mu.RUnlock()
	if !ok {
		return 0, ErrTokenNotFound
	}
	return userID, nil
}

func (d *MemoryDirectory) Revoke(ctx context.Context, token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tokens[token]; !ok {
		return ErrTokenNotFound
	}
	delete(d.tokens, token)
	return nil
}
