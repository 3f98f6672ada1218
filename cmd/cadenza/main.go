package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cadenzamusic/cadenza/pkg/artwork"
	"github.com/cadenzamusic/cadenza/pkg/config"
	"github.com/cadenzamusic/cadenza/pkg/database"
	"github.com/cadenzamusic/cadenza/pkg/library"
	"github.com/cadenzamusic/cadenza/pkg/migrations"
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/query"
	"github.com/cadenzamusic/cadenza/pkg/remote/plex"
	"github.com/cadenzamusic/cadenza/pkg/server"
	"github.com/cadenzamusic/cadenza/pkg/store"
	"github.com/cadenzamusic/cadenza/pkg/tags"
	"github.com/cadenzamusic/cadenza/pkg/version"
	"github.com/cadenzamusic/cadenza/pkg/worker"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/robinjoseph08/golib/signals"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	app := &cli.App{
		Name:    "cadenza",
		Usage:   "mirror a Plex music library into a local SQLite cache",
		Version: version.Version,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and the background refresh worker",
				Action: serve,
			},
			{
				Name:  "sync",
				Usage: "refresh the library once and print the outcome",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "reset", Usage: "replace the cache wholesale"},
					&cli.BoolFlag{Name: "warm-artwork", Usage: "cache album thumbnails after the refresh"},
				},
				Action: syncOnce,
			},
			{
				Name:      "search",
				Usage:     "search cached albums, artists and collections",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Value: library.SearchTypeAll, Usage: "all, albums, artists or collections"},
				},
				Action: search,
			},
			{
				Name:  "query",
				Usage: "list cached albums matching every given condition",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "year-min"},
					&cli.IntFlag{Name: "year-max"},
					&cli.StringSliceFlag{Name: "genre"},
					&cli.StringSliceFlag{Name: "style"},
					&cli.StringSliceFlag{Name: "mood"},
					&cli.StringSliceFlag{Name: "artist", Usage: "artist id"},
					&cli.StringSliceFlag{Name: "collection", Usage: "collection id"},
					&cli.StringFlag{Name: "text"},
					&cli.IntFlag{Name: "limit", Value: 50},
					&cli.IntFlag{Name: "offset"},
				},
				Action: queryAlbums,
			},
			{
				Name:  "runs",
				Usage: "print recent sync runs",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20},
				},
				Action: listRuns,
			},
		},
	}

	if err := app.RunContext(log.WithContext(context.Background()), os.Args); err != nil {
		log.Err(err).Fatal("app run error")
	}
}

type deps struct {
	cfg            *config.Config
	db             *bun.DB
	libraryService *library.Service
	tagService     *tags.Service
	artworkCache   *artwork.Cache
}

// setup loads config, opens and migrates the database, and builds the
// services every command shares.
func setup(ctx context.Context) (*deps, error) {
	log := logger.FromContext(ctx)

	cfg, err := config.New()
	if err != nil {
		return nil, err
	}

	if err := initCacheDir(cfg.ArtworkCacheDir); err != nil {
		return nil, err
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, err
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if group.ID != 0 {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	client, err := plex.NewClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	st := store.NewService(db)
	cache := artwork.NewCache(cfg, st, client)

	return &deps{
		cfg:            cfg,
		db:             db,
		libraryService: library.NewService(st, client, cache),
		tagService:     tags.NewService(db),
		artworkCache:   cache,
	}, nil
}

func (d *deps) close(ctx context.Context) {
	if err := d.db.Close(); err != nil {
		logger.FromContext(ctx).Err(err).Error("database close error")
	}
}

func serve(c *cli.Context) error {
	ctx := c.Context
	log := logger.FromContext(ctx)

	log.Info("starting cadenza", logger.Data{"version": version.Version})

	d, err := setup(ctx)
	if err != nil {
		return err
	}

	wrkr := worker.New(d.cfg, d.libraryService, d.tagService, d.artworkCache)

	srv, err := server.New(d.cfg, d.db, d.libraryService, d.artworkCache)
	if err != nil {
		d.close(ctx)
		return err
	}

	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", srv.Addr)
	if err != nil {
		d.close(ctx)
		return errors.Wrap(err, "failed to bind port")
	}

	graceful := signals.Setup()

	go func() {
		log.Info("server started", logger.Data{"addr": listener.Addr().String()})
		err := srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	wrkr.Start()
	log.Info("worker started")

	<-graceful
	log.Info("starting graceful shutdown")

	if err := srv.Shutdown(ctx); err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	wrkr.Shutdown()
	log.Info("worker shutdown")

	d.close(ctx)
	log.Info("database closed")
	return nil
}

func syncOnce(c *cli.Context) error {
	ctx := c.Context

	d, err := setup(ctx)
	if err != nil {
		return err
	}
	defer d.close(ctx)

	reason := models.RefreshReasonUserInitiated
	if c.Bool("reset") {
		reason = models.RefreshReasonReset
	}

	outcome, err := d.libraryService.RefreshLibrary(ctx, reason)
	if err != nil {
		return err
	}

	if c.Bool("warm-artwork") {
		albums, err := d.libraryService.Albums(ctx, store.Page{})
		if err != nil {
			return err
		}
		n, err := d.artworkCache.Warm(ctx, albums)
		if err != nil {
			return err
		}
		logger.FromContext(ctx).Info("artwork warmed", logger.Data{"thumbnails": n})
	}

	return printJSON(outcome)
}

func search(c *cli.Context) error {
	ctx := c.Context

	if c.NArg() == 0 {
		return errors.New("search needs a query")
	}
	searchType := c.String("type")
	switch searchType {
	case library.SearchTypeAll, library.SearchTypeAlbums, library.SearchTypeArtists, library.SearchTypeCollections:
	default:
		return errors.Errorf("unknown search type %q", searchType)
	}

	d, err := setup(ctx)
	if err != nil {
		return err
	}
	defer d.close(ctx)

	results, err := d.libraryService.Search(ctx, strings.Join(c.Args().Slice(), " "), searchType)
	if err != nil {
		return err
	}
	return printJSON(results)
}

func queryAlbums(c *cli.Context) error {
	ctx := c.Context

	filter := query.AlbumFilter{
		GenreTags:     c.StringSlice("genre"),
		StyleTags:     c.StringSlice("style"),
		MoodTags:      c.StringSlice("mood"),
		ArtistIDs:     c.StringSlice("artist"),
		CollectionIDs: c.StringSlice("collection"),
		TextQuery:     c.String("text"),
		Limit:         c.Int("limit"),
		Offset:        c.Int("offset"),
	}
	if c.IsSet("year-min") || c.IsSet("year-max") {
		filter.YearRange = &query.YearRange{}
		if c.IsSet("year-min") {
			filter.YearRange.Min = pointerutil.Int(c.Int("year-min"))
		}
		if c.IsSet("year-max") {
			filter.YearRange.Max = pointerutil.Int(c.Int("year-max"))
		}
	}

	d, err := setup(ctx)
	if err != nil {
		return err
	}
	defer d.close(ctx)

	albums, err := d.libraryService.QueryAlbums(ctx, filter)
	if err != nil {
		return err
	}
	return printJSON(albums)
}

func listRuns(c *cli.Context) error {
	ctx := c.Context

	d, err := setup(ctx)
	if err != nil {
		return err
	}
	defer d.close(ctx)

	runs, err := d.libraryService.SyncRuns(ctx, c.Int("limit"))
	if err != nil {
		return err
	}
	return printJSON(runs)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return errors.WithStack(enc.Encode(v))
}

// initCacheDir creates the artwork cache directory and verifies it is
// writable.
func initCacheDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create cache directory: %s", dir)
	}

	testFile := filepath.Join(dir, ".write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return errors.Wrapf(err, "cache directory is not writable: %s", dir)
	}
	f.Close()

	if err := os.Remove(testFile); err != nil {
		return errors.Wrapf(err, "failed to clean up write test file: %s", testFile)
	}

	return nil
}
