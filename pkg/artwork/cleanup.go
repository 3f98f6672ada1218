package artwork

import (
	"context"
	"os"

	"github.com/pkg/errors"
)

// CleanupThreshold is the fraction of the size budget the cache is reduced
// to once it exceeds the budget.
const CleanupThreshold = 0.8

// CleanupStats holds statistics about a cleanup operation.
type CleanupStats struct {
	FilesRemoved  int   `json:"files_removed"`
	BytesRemoved  int64 `json:"bytes_removed"`
	FilesRemained int   `json:"files_remained"`
	BytesRemained int64 `json:"bytes_remained"`
}

// Cleanup removes cached images, least recently used first, until the cache
// is back under CleanupThreshold of its budget. Nothing is removed while the
// cache is within budget.
func (c *Cache) Cleanup(ctx context.Context) (*CleanupStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cleanup(ctx)
}

func (c *Cache) cleanup(ctx context.Context) (*CleanupStats, error) {
	entries, err := c.store.ArtworkEntriesByAccess(ctx)
	if err != nil {
		return nil, err
	}

	stats := &CleanupStats{}
	var total int64
	for _, e := range entries {
		total += e.SizeBytes
	}
	stats.FilesRemained = len(entries)
	stats.BytesRemained = total

	if c.maxSize <= 0 || total <= c.maxSize {
		return stats, nil
	}

	target := int64(float64(c.maxSize) * CleanupThreshold)
	for _, e := range entries {
		if stats.BytesRemained <= target {
			break
		}
		if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
			// Keep going with the other files.
			continue
		}
		if err := c.store.DeleteArtworkPath(ctx, e.Key()); err != nil {
			return stats, errors.WithStack(err)
		}
		stats.FilesRemoved++
		stats.BytesRemoved += e.SizeBytes
		stats.FilesRemained--
		stats.BytesRemained -= e.SizeBytes
	}
	return stats, nil
}
