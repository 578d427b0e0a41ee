package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/runterritory/server/internal/lib/territory"
)

const territoryPrefix = "territory:"

// Cache provides thread-safe in-memory storage with TTL
type Cache struct {
	entries map[string]*Entry
	mutex   sync.RWMutex
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// Entry represents a cached item with metadata
type Entry struct {
	Key       string        `json:"key"`
	Data      []byte        `json:"data"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
	TTL       time.Duration `json:"ttl"`
	Source    string        `json:"source"`
}

// Stats provides cache usage statistics
type Stats struct {
	TotalEntries int       `json:"total_entries"`
	FreshEntries int       `json:"fresh_entries"`
	StaleEntries int       `json:"stale_entries"`
	OldestEntry  time.Time `json:"oldest_entry"`
	NewestEntry  time.Time `json:"newest_entry"`
}

// NewCache creates a new in-memory cache
func NewCache(logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		entries: make(map[string]*Entry),
		logger:  logger.Sugar().Named("cache"),
		now:     time.Now,
	}
}

// Set stores data as JSON; the entry goes stale after ttl
func (c *Cache) Set(key string, data interface{}, ttl time.Duration, source string) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data for cache: %w", err)
	}

	now := c.now()
	entry := &Entry{
		Key:       key,
		Data:      jsonData,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		TTL:       ttl,
		Source:    source,
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = entry
	return nil
}

// Get decodes a fresh entry into result; stale or missing entries report false
func (c *Cache) Get(key string, result interface{}) (bool, error) {
	c.mutex.RLock()
	entry, exists := c.entries[key]
	c.mutex.RUnlock()

	if !exists || c.expired(entry) {
		return false, nil
	}

	if err := json.Unmarshal(entry.Data, result); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	return true, nil
}

// Delete removes an entry from cache
func (c *Cache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.entries, key)
}

// Keys returns all cache keys with the given prefix in sorted order
func (c *Cache) Keys(prefix string) []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Stats returns cache statistics
func (c *Cache) Stats() Stats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	stats := Stats{TotalEntries: len(c.entries)}
	for _, entry := range c.entries {
		if c.expired(entry) {
			stats.StaleEntries++
		} else {
			stats.FreshEntries++
		}

		if stats.OldestEntry.IsZero() || entry.CreatedAt.Before(stats.OldestEntry) {
			stats.OldestEntry = entry.CreatedAt
		}
		if entry.CreatedAt.After(stats.NewestEntry) {
			stats.NewestEntry = entry.CreatedAt
		}
	}
	return stats
}

// CleanupStale removes all stale entries from cache
func (c *Cache) CleanupStale() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var removed int
	for key, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// StartPeriodicCleanup removes stale entries every interval until ctx is done
func (c *Cache) StartPeriodicCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Errorw("Cache cleanup: recovered from panic", "error", r)
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := c.CleanupStale(); removed > 0 {
					c.logger.Debugw("Removed stale cache entries", "removed", removed)
				}
			}
		}
	}()
}

func (c *Cache) expired(entry *Entry) bool {
	return c.now().After(entry.ExpiresAt)
}

// PutTerritory stores a captured territory under its id
func (c *Cache) PutTerritory(t *territory.Territory, ttl time.Duration) error {
	return c.Set(territoryPrefix+t.ID, t, ttl, "territory")
}

// GetTerritory retrieves a captured territory by id
func (c *Cache) GetTerritory(id string) (*territory.Territory, bool, error) {
	var t territory.Territory
	found, err := c.Get(territoryPrefix+id, &t)
	if err != nil || !found {
		return nil, false, err
	}
	return &t, true, nil
}

// ListTerritories returns every fresh territory ordered by creation time
func (c *Cache) ListTerritories() ([]territory.Territory, error) {
	var territories []territory.Territory
	for _, key := range c.Keys(territoryPrefix) {
		var t territory.Territory
		found, err := c.Get(key, &t)
		if err != nil {
			return nil, err
		}
		if found {
			territories = append(territories, t)
		}
	}

	sort.SliceStable(territories, func(i, j int) bool {
		return territories[i].CreatedAt < territories[j].CreatedAt
	})
	return territories, nil
}
