package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func whereArtworkKey(key models.ArtworkKey) func(q bun.QueryBuilder) bun.QueryBuilder {
	return func(q bun.QueryBuilder) bun.QueryBuilder {
		return q.
			Where("owner_id = ?", key.OwnerID).
			Where("owner_type = ?", key.OwnerType).
			Where("variant = ?", key.Variant)
	}
}

// ArtworkPath returns the cache entry for key, or nil if nothing is cached.
func (svc *Service) ArtworkPath(ctx context.Context, key models.ArtworkKey) (*models.ArtworkCacheEntry, error) {
	entry := &models.ArtworkCacheEntry{}
	err := svc.db.NewSelect().
		Model(entry).
		ApplyQueryBuilder(whereArtworkKey(key)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(err)
	}
	return entry, nil
}

// SetArtworkPath records where the image for entry's key lives on disk.
func (svc *Service) SetArtworkPath(ctx context.Context, entry *models.ArtworkCacheEntry) error {
	now := svc.now()
	entry.UpdatedAt = now
	if entry.LastAccessedAt.IsZero() {
		entry.LastAccessedAt = now
	}
	_, err := svc.db.NewInsert().
		Model(entry).
		On("CONFLICT (owner_id, owner_type, variant) DO UPDATE").
		Set("path = EXCLUDED.path").
		Set("source_path = EXCLUDED.source_path").
		Set("size_bytes = EXCLUDED.size_bytes").
		Set("updated_at = EXCLUDED.updated_at").
		Set("last_accessed_at = EXCLUDED.last_accessed_at").
		Exec(ctx)
	return wrap(err)
}

// TouchArtwork bumps the last access time used for eviction.
func (svc *Service) TouchArtwork(ctx context.Context, key models.ArtworkKey, at time.Time) error {
	_, err := svc.db.NewUpdate().
		Model((*models.ArtworkCacheEntry)(nil)).
		Set("last_accessed_at = ?", at).
		ApplyQueryBuilder(whereArtworkKey(key)).
		Exec(ctx)
	return wrap(err)
}

func (svc *Service) DeleteArtworkPath(ctx context.Context, key models.ArtworkKey) error {
	_, err := svc.db.NewDelete().
		Model((*models.ArtworkCacheEntry)(nil)).
		ApplyQueryBuilder(whereArtworkKey(key)).
		Exec(ctx)
	return wrap(err)
}

// ArtworkEntriesForOwner returns every cached variant for the owner.
func (svc *Service) ArtworkEntriesForOwner(ctx context.Context, ownerID, ownerType string) ([]*models.ArtworkCacheEntry, error) {
	entries := []*models.ArtworkCacheEntry{}
	err := svc.db.NewSelect().
		Model(&entries).
		Where("aw.owner_id = ?", ownerID).
		Where("aw.owner_type = ?", ownerType).
		Order("aw.variant ASC").
		Scan(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	return entries, nil
}

// ArtworkEntriesByAccess returns all entries, least recently used first.
func (svc *Service) ArtworkEntriesByAccess(ctx context.Context) ([]*models.ArtworkCacheEntry, error) {
	entries := []*models.ArtworkCacheEntry{}
	err := svc.db.NewSelect().
		Model(&entries).
		Order("aw.last_accessed_at ASC", "aw.owner_id ASC", "aw.variant ASC").
		Scan(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	return entries, nil
}
