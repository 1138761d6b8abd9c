package queryengine

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// planCache bounds how many PhysicalPlans a staged engine keeps around,
// with both a size cap and a TTL so a stale plan (built against a schema
// that has since changed) eventually falls out on its own. Concurrent
// misses for the same key are collapsed with singleflight so a burst of
// identical queries only runs OPTIMIZE once (CONVERT still runs on every
// call, before the cache lookup).
type planCache struct {
	lru   *expirable.LRU[string, *PhysicalPlan]
	group singleflight.Group
}

func newPlanCache(size int, ttl time.Duration) *planCache {
	return &planCache{lru: expirable.NewLRU[string, *PhysicalPlan](size, nil, ttl)}
}

// getOrBuild returns the cached plan for key, building it with build on a
// miss. Concurrent callers sharing a key observe exactly one build.
func (c *planCache) getOrBuild(key string, build func() (*PhysicalPlan, error)) (*PhysicalPlan, error) {
	if plan, ok := c.lru.Get(key); ok {
		return plan, nil
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if plan, ok := c.lru.Get(key); ok {
			return plan, nil
		}
		plan, err := build()
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, plan)
		return plan, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*PhysicalPlan), nil
}

func (c *planCache) purge() {
	c.lru.Purge()
}

func (c *planCache) len() int {
	return c.lru.Len()
}
