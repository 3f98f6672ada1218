// Package artwork caches remote cover art on local disk, with an optional
// downscaled thumbnail per image, and evicts the least recently used files
// once the cache outgrows its budget.
package artwork

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cadenzamusic/cadenza/pkg/config"
	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/store"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"golang.org/x/image/draw"
)

// maxImageBytes caps a single download. Larger images are rejected.
const maxImageBytes = 20 << 20

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// Resolver turns a remote artwork path into a fetchable URL.
type Resolver interface {
	ResolveArtworkURL(rawPath string) (string, error)
}

// Cache manages the artwork cache directory. The store's artwork_cache table
// is the index of what is on disk.
type Cache struct {
	dir       string
	maxSize   int64
	maxImage  int64
	thumbSize int

	store    *store.Service
	resolver Resolver
	client   *http.Client

	// mu guards the index and the files; downloads happen outside it.
	mu  sync.Mutex
	now func() time.Time
}

func NewCache(cfg *config.Config, st *store.Service, resolver Resolver) *Cache {
	return &Cache{
		dir:       cfg.ArtworkCacheDir,
		maxSize:   cfg.ArtworkCacheMaxBytes,
		maxImage:  maxImageBytes,
		thumbSize: cfg.ArtworkThumbnailSize,
		store:     st,
		resolver:  resolver,
		client:    &http.Client{Timeout: cfg.RemoteTimeout},
		now:       time.Now,
	}
}

// Get returns the on-disk path of the image for key, downloading rawPath
// from the remote when nothing is cached or the cached copy came from a
// different path.
func (c *Cache) Get(ctx context.Context, key models.ArtworkKey, rawPath string) (string, error) {
	if rawPath == "" {
		return "", errcodes.NotFound("Artwork", key.OwnerID)
	}
	if key.Variant != models.ArtworkVariantFull && key.Variant != models.ArtworkVariantThumbnail {
		return "", errcodes.ValidationError("Unknown artwork variant " + key.Variant)
	}

	if path, ok := c.cached(ctx, key, rawPath); ok {
		return path, nil
	}

	data, mime, err := c.download(ctx, rawPath)
	if err != nil {
		return "", err
	}

	ext := extensions[mime]
	if key.Variant == models.ArtworkVariantThumbnail {
		if data, err = thumbnail(data, c.thumbSize); err != nil {
			return "", err
		}
		ext = ".jpg"
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.filename(key, ext)
	entry, err := c.store.ArtworkPath(ctx, key)
	if err != nil {
		return "", err
	}
	if entry != nil && entry.Path != "" && entry.Path != path {
		_ = os.Remove(entry.Path)
	}
	if err := writeFile(path, data); err != nil {
		return "", err
	}

	entry = &models.ArtworkCacheEntry{
		OwnerID:        key.OwnerID,
		OwnerType:      key.OwnerType,
		Variant:        key.Variant,
		Path:           path,
		SourcePath:     rawPath,
		SizeBytes:      int64(len(data)),
		LastAccessedAt: c.now(),
	}
	if err := c.store.SetArtworkPath(ctx, entry); err != nil {
		os.Remove(path)
		return "", err
	}

	if _, err := c.cleanup(ctx); err != nil {
		logger.FromContext(ctx).Err(err).Warn("artwork cache cleanup failed")
	}

	return path, nil
}

// cached returns the on-disk path when key is cached from rawPath and the
// file still exists.
func (c *Cache) cached(ctx context.Context, key models.ArtworkKey, rawPath string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := c.store.ArtworkPath(ctx, key)
	if err != nil || entry == nil || entry.SourcePath != rawPath {
		return "", false
	}
	if _, err := os.Stat(entry.Path); err != nil {
		return "", false
	}
	// Non-fatal if it fails.
	_ = c.store.TouchArtwork(ctx, key, c.now())
	return entry.Path, true
}

// InvalidateCache drops every cached variant for the owner.
func (c *Cache) InvalidateCache(ctx context.Context, ownerID, ownerType string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.store.ArtworkEntriesForOwner(ctx, ownerID, ownerType)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
			return errors.WithStack(err)
		}
		if err := c.store.DeleteArtworkPath(ctx, e.Key()); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) download(ctx context.Context, rawPath string) ([]byte, string, error) {
	u, err := c.resolver.ResolveArtworkURL(rawPath)
	if err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", errors.WithStack(err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", errcodes.Timeout()
		}
		return nil, "", errcodes.RemoteUnreachable(err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, "", errcodes.NotFound("Artwork", rawPath)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, "", errcodes.AuthenticationExpired()
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, "", errcodes.RemoteUnreachable(resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxImage+1))
	if err != nil {
		return nil, "", errcodes.RemoteUnreachable(err.Error())
	}
	if int64(len(data)) > c.maxImage {
		return nil, "", errcodes.MalformedResponse(fmt.Sprintf("artwork %s is larger than %d bytes", rawPath, c.maxImage))
	}
	mime := mimetype.Detect(data).String()
	if _, ok := extensions[mime]; !ok {
		return nil, "", errcodes.MalformedResponse("unsupported artwork type " + mime)
	}
	return data, mime, nil
}

// thumbnail scales the image to fit within size x size, keeping its aspect
// ratio. Images already small enough are re-encoded at their own size.
func thumbnail(data []byte, size int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errcodes.MalformedResponse("undecodable artwork: " + err.Error())
	}
	b := src.Bounds()
	w, h := fitDimensions(b.Dx(), b.Dy(), size)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, errors.WithStack(err)
	}
	return buf.Bytes(), nil
}

func fitDimensions(w, h, size int) (int, int) {
	if size <= 0 || (w <= size && h <= size) {
		return w, h
	}
	if w >= h {
		return size, max(1, h*size/w)
	}
	return max(1, w*size/h), size
}

func (c *Cache) filename(key models.ArtworkKey, ext string) string {
	return filepath.Join(c.dir, key.OwnerType, url.PathEscape(key.OwnerID)+"_"+key.Variant+ext)
}

// writeFile writes through a temp file so readers never see a partial image.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WithStack(err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".artwork-*")
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.WithStack(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(tmp.Name(), path))
}
