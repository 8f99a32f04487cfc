package followup

import (
	"context"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store abstracts where follow-up contexts live. Injected so tests can
// use a deterministic fake and deployments can pick memory or redis.
type Store interface {
	Get(ctx context.Context, userID int64) (*Context, bool, error)
	Put(ctx context.Context, fc *Context) error
	Remove(ctx context.Context, userID int64) error
}

// contextTTL bounds how long an untouched thread survives. Threads are
// ephemeral by design; losing one on expiry or restart is acceptable.
const contextTTL = 24 * time.Hour

// MemoryStore keeps contexts in-process.
type MemoryStore struct {
	cache *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: gocache.New(contextTTL, 10*time.Minute)}
}

func (s *MemoryStore) Get(_ context.Context, userID int64) (*Context, bool, error) {
	v, found := s.cache.Get(memoryKey(userID))
	if !found {
		return nil, false, nil
	}
	fc, ok := v.(*Context)
	if !ok {
		return nil, false, nil
	}
	return fc, true, nil
}

func (s *MemoryStore) Put(_ context.Context, fc *Context) error {
	s.cache.Set(memoryKey(fc.UserID), fc, gocache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, userID int64) error {
	s.cache.Delete(memoryKey(userID))
	return nil
}

func memoryKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
