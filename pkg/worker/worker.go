// Package worker runs library refreshes in the background: one at startup,
// then on a fixed interval, plus any queued on demand. Each refresh is
// followed by cache maintenance.
package worker

import (
	"context"
	"time"

	"github.com/cadenzamusic/cadenza/pkg/artwork"
	"github.com/cadenzamusic/cadenza/pkg/config"
	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/cadenzamusic/cadenza/pkg/library"
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/store"
	"github.com/cadenzamusic/cadenza/pkg/tags"
	"github.com/google/uuid"
	"github.com/robinjoseph08/golib/logger"
)

type Worker struct {
	config   *config.Config
	log      logger.Logger
	interval time.Duration

	libraryService *library.Service
	tagService     *tags.Service
	artworkCache   *artwork.Cache

	queue          chan string
	shutdown       chan struct{}
	doneScheduling chan struct{}
	doneProcessing chan struct{}
}

// New builds a worker. artworkCache may be nil.
func New(cfg *config.Config, libraryService *library.Service, tagService *tags.Service, artworkCache *artwork.Cache) *Worker {
	return &Worker{
		config:   cfg,
		log:      logger.New(),
		interval: time.Duration(cfg.SyncIntervalMinutes) * time.Minute,

		libraryService: libraryService,
		tagService:     tagService,
		artworkCache:   artworkCache,

		// One pending refresh is enough: it will see everything a second one
		// would.
		queue:          make(chan string, 1),
		shutdown:       make(chan struct{}),
		doneScheduling: make(chan struct{}),
		doneProcessing: make(chan struct{}),
	}
}

// Start queues an app_launch refresh and starts the scheduler. A zero
// SyncIntervalMinutes disables the periodic refresh.
func (w *Worker) Start() {
	w.Enqueue(models.RefreshReasonAppLaunch)
	go w.schedule()
	go w.process()
}

// Enqueue asks for a refresh. It reports false when one is already queued.
func (w *Worker) Enqueue(reason string) bool {
	select {
	case w.queue <- reason:
		return true
	default:
		return false
	}
}

func (w *Worker) schedule() {
	if w.interval <= 0 {
		<-w.shutdown
		close(w.doneScheduling)
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.shutdown:
			close(w.doneScheduling)
			return
		case <-ticker.C:
			if !w.Enqueue(models.RefreshReasonBackground) {
				w.log.Info("skipping scheduled refresh: one is already queued")
			}
		}
	}
}

func (w *Worker) process() {
	for {
		select {
		case <-w.shutdown:
			close(w.doneProcessing)
			return
		case reason := <-w.queue:
			w.Run(context.Background(), reason)
		}
	}
}

// Run refreshes the library and then prunes old sync runs, unused tags and
// the artwork cache. Failures are logged, never returned: the next run
// starts from whatever state this one left.
func (w *Worker) Run(ctx context.Context, reason string) *library.RefreshOutcome {
	id, err := uuid.NewRandom()
	if err != nil {
		w.log.Err(err).Error("new uuid error")
		return nil
	}
	log := w.log.ID(id.String()).Root(logger.Data{"reason": reason})
	ctx = log.WithContext(ctx)

	outcome, err := w.libraryService.RefreshLibrary(ctx, reason)
	if err != nil {
		if errcodes.HasCode(err, errcodes.CodeOperationFailed) {
			log.Info("refresh skipped", logger.Data{"cause": err.Error()})
		} else {
			log.Err(err).Error("refresh error")
		}
	} else if w.config.ArtworkWarmOnRefresh {
		w.warmArtwork(ctx)
	}

	w.maintain(ctx)
	return outcome
}

func (w *Worker) warmArtwork(ctx context.Context) {
	if w.artworkCache == nil {
		return
	}
	log := logger.FromContext(ctx)

	albums, err := w.libraryService.Store().FetchAlbums(ctx, store.Page{})
	if err != nil {
		log.Err(err).Error("artwork warmup error")
		return
	}
	n, err := w.artworkCache.Warm(ctx, albums)
	if err != nil {
		log.Err(err).Error("artwork warmup error")
		return
	}
	log.Info("artwork warmed", logger.Data{"thumbnails": n})
}

func (w *Worker) maintain(ctx context.Context) {
	log := logger.FromContext(ctx)

	n, err := w.libraryService.Store().CleanupOldSyncRuns(ctx, w.config.SyncRunsToKeep)
	if err != nil {
		log.Err(err).Error("sync run cleanup error")
	} else if n > 0 {
		log.Info("removed old sync runs", logger.Data{"count": n})
	}

	if w.tagService != nil {
		n, err := w.tagService.CleanupOrphanedTags(ctx)
		if err != nil {
			log.Err(err).Error("tag cleanup error")
		} else if n > 0 {
			log.Info("removed unused tags", logger.Data{"count": n})
		}
	}

	if w.artworkCache != nil {
		stats, err := w.artworkCache.Cleanup(ctx)
		if err != nil {
			log.Err(err).Error("artwork cleanup error")
		} else if stats.FilesRemoved > 0 {
			log.Info("evicted cached artwork", logger.Data{
				"files_removed": stats.FilesRemoved,
				"bytes_removed": stats.BytesRemoved,
			})
		}
	}
}

// Shutdown stops the scheduler and waits for an in-flight refresh to finish.
// A queued refresh that hasn't started is dropped.
func (w *Worker) Shutdown() {
	close(w.shutdown)

	<-w.doneScheduling
	<-w.doneProcessing
}
