package wpactrl

import (
	"sync"
	"time"
)

// ttlCache memoizes a single string value for a fixed duration, matching
// the Python client's cached_property_with_ttl(ttl=5) used for UUID,
// Address and P2PDeviceAddress — every read of those properties within
// the TTL window reuses the last STATUS response instead of issuing a
// new request.
type ttlCache struct {
	mu      sync.Mutex
	value   string
	expires time.Time
}

func (c *ttlCache) get(ttl time.Duration, fetch func() (string, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().Before(c.expires) {
		return c.value, nil
	}
	v, err := fetch()
	if err != nil {
		return "", err
	}
	c.value = v
	c.expires = time.Now().Add(ttl)
	return v, nil
}
