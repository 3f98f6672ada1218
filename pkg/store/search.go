package store

import (
	"context"

	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/normalize"
)

// Search matches substrings of the normalized keys, so it ignores case and
// diacritics. instr() is used instead of LIKE so "%" and "_" in a query are
// literal. An empty query matches nothing.

func (svc *Service) SearchAlbums(ctx context.Context, query string) ([]*models.Album, error) {
	albums := []*models.Album{}
	key := normalize.Normalize(query)
	if key == "" {
		return albums, nil
	}
	err := svc.db.NewSelect().
		Model(&albums).
		Where("instr(al.title_key, ?) > 0 OR instr(al.artist_key, ?) > 0", key, key).
		OrderExpr(albumOrder).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	return albums, svc.loadAlbumRelations(ctx, svc.db, albums)
}

func (svc *Service) SearchArtists(ctx context.Context, query string) ([]*models.Artist, error) {
	artists := []*models.Artist{}
	key := normalize.Normalize(query)
	if key == "" {
		return artists, nil
	}
	err := svc.db.NewSelect().
		Model(&artists).
		Where("instr(ar.name_key, ?) > 0 OR instr(ar.sort_key, ?) > 0", key, key).
		OrderExpr(artistOrder).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	return artists, nil
}

func (svc *Service) SearchCollections(ctx context.Context, query string) ([]*models.Collection, error) {
	collections := []*models.Collection{}
	key := normalize.Normalize(query)
	if key == "" {
		return collections, nil
	}
	err := svc.db.NewSelect().
		Model(&collections).
		Where("instr(co.title_key, ?) > 0", key).
		OrderExpr(collectionOrder).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	return collections, nil
}
