package appointments

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/killallgit/scribe-api/internal/metrics"
	"github.com/killallgit/scribe-api/internal/models"
)

// CachedDirectory fronts another directory with an expiring LRU. Misses are
// not cached, so an appointment booked after a failed lookup is found next time.
type CachedDirectory struct {
	next  Directory
	cache *expirable.LRU[string, models.Appointment]
}

// NewCachedDirectory wraps next with a cache of size entries living ttl
func NewCachedDirectory(next Directory, size int, ttl time.Duration) *CachedDirectory {
	if size <= 0 {
		size = 256
	}
	return &CachedDirectory{
		next:  next,
		cache: expirable.NewLRU[string, models.Appointment](size, nil, ttl),
	}
}

func (c *CachedDirectory) Name() string { return c.next.Name() + "+cache" }

// Get returns a copy of the cached appointment, loading it on a miss
func (c *CachedDirectory) Get(ctx context.Context, id string) (*models.Appointment, error) {
	if cached, ok := c.cache.Get(id); ok {
		metrics.AppointmentCacheHit()
		return &cached, nil
	}
	metrics.AppointmentCacheMiss()

	appointment, err := c.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, *appointment)
	return appointment, nil
}

// Save writes through and drops the cached copy
func (c *CachedDirectory) Save(ctx context.Context, appointment *models.Appointment) error {
	if err := c.next.Save(ctx, appointment); err != nil {
		return err
	}
	c.cache.Remove(appointment.ID)
	return nil
}

// Len returns the number of cached entries
func (c *CachedDirectory) Len() int {
	return c.cache.Len()
}
