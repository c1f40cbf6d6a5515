package router

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/chittyos/chittyrouter/errors"
)

// resultCache is the short-lived completion cache. Entries are written only
// after a successful invocation, so a cache hit can never mask a failure.
// Writes are idempotent; overwriting with an identical value is harmless.
type resultCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

func newResultCache(maxEntries int64, ttl time.Duration) (*resultCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build result cache")
	}
	return &resultCache{cache: cache, ttl: ttl}, nil
}

func (c *resultCache) get(key string) (*Result, bool) {
	value, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	cached, ok := value.(*Result)
	if !ok {
		return nil, false
	}

	copied := *cached
	copied.Cached = true
	copied.Attempts = nil
	return &copied, true
}

func (c *resultCache) put(key string, result *Result) {
	copied := *result
	copied.Attempts = nil
	c.cache.SetWithTTL(key, &copied, 1, c.ttl)
	// Ristretto admits asynchronously; Wait makes the entry visible to the
	// next identical request.
	c.cache.Wait()
}

// cacheKey covers the caller-supplied request identity only. System and
// Context are derived from memory state, which shifts after every request;
// including them would defeat idempotence for identical calls.
func cacheKey(req *Request) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s\x00%s\x00%s\x00%s\x00%d",
		req.AgentID, req.Prompt, req.TaskType, req.Complexity, req.MaxTokens))
	return hex.EncodeToString(sum[:])
}
