package reaper

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"docvault/internal/repository"
	"docvault/internal/service"
	"docvault/internal/storage"
)

// blobPrefix is where document blobs live in the bucket.
const blobPrefix = "documents/"

// iterationTimeout bounds a single sweep so a wedged dependency cannot
// stall the loop forever.
const iterationTimeout = 10 * time.Minute

// Reaper owns the two background sweeps: the hourly trash sweep that purges
// documents past their retention window (and garbage-collects long-expired
// permission grants), and the daily orphan sweep that deletes blobs no
// document references anymore.
//
// Sweeps are not transactional across items. A failure on one document is
// logged and skipped; a crash mid-sweep leaves the remainder for the next
// run, which is safe because purge retries are idempotent (purged documents
// no longer match the trashed query).
type Reaper struct {
	docs      repository.DocumentRepository
	perms     repository.PermissionRepository
	store     storage.Storage
	lifecycle service.DocumentLifecycle

	retention      time.Duration
	interval       time.Duration
	orphanInterval time.Duration

	clk clock.Clock
	log zerolog.Logger

	purgedTotal    prometheus.Counter
	purgeFailures  prometheus.Counter
	orphansDeleted prometheus.Counter

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// New constructs a Reaper and registers its metrics.
func New(
	docs repository.DocumentRepository,
	perms repository.PermissionRepository,
	store storage.Storage,
	lifecycle service.DocumentLifecycle,
	retention, interval, orphanInterval time.Duration,
	clk clock.Clock,
	log zerolog.Logger,
	reg prometheus.Registerer,
) (*Reaper, error) {
	r := &Reaper{
		docs:           docs,
		perms:          perms,
		store:          store,
		lifecycle:      lifecycle,
		retention:      retention,
		interval:       interval,
		orphanInterval: orphanInterval,
		clk:            clk,
		log:            log.With().Str("component", "reaper").Logger(),
		purgedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trash_reaper_purged_total",
			Help: "Documents permanently deleted by the trash reaper.",
		}),
		purgeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trash_reaper_failures_total",
			Help: "Individual purge attempts that failed and were skipped.",
		}),
		orphansDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orphan_sweep_deleted_total",
			Help: "Orphaned blobs removed by the orphan sweep.",
		}),
		stop: make(chan struct{}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{r.purgedTotal, r.purgeFailures, r.orphansDeleted} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// Start launches both sweep loops. The reaper keeps no cursor: a restart
// simply resumes from current store state.
func (r *Reaper) Start() {
	r.wg.Add(2)
	go r.loop(r.interval, r.runTrashSweep)
	go r.loop(r.orphanInterval, r.runOrphanSweep)
	r.log.Info().
		Dur("trash_interval", r.interval).
		Dur("orphan_interval", r.orphanInterval).
		Dur("retention", r.retention).
		Msg("reaper started")
}

// Stop halts both loops and waits for any in-flight iteration to finish.
func (r *Reaper) Stop() {
	r.once.Do(func() { close(r.stop) })
	r.wg.Wait()
	r.log.Info().Msg("reaper stopped")
}

func (r *Reaper) loop(every time.Duration, fn func()) {
	defer r.wg.Done()
	t := r.clk.NewTimer(every)
	defer t.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-t.Chan():
			fn()
			t.Reset(every)
		}
	}
}

func (r *Reaper) runTrashSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), iterationTimeout)
	defer cancel()
	purged, err := r.SweepTrash(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("trash sweep failed")
		return
	}
	r.log.Info().Int("purged", purged).Msg("trash sweep completed")
}

func (r *Reaper) runOrphanSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), iterationTimeout)
	defer cancel()
	deleted, err := r.SweepOrphans(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("orphan sweep failed")
		return
	}
	r.log.Info().Int("deleted", deleted).Msg("orphan sweep completed")
}

// SweepTrash purges every document whose trash residency exceeds the
// retention window. Per-item failures are counted, logged and skipped so a
// single bad blob cannot block the rest of the queue.
func (r *Reaper) SweepTrash(ctx context.Context) (int, error) {
	now := r.clk.Now().UTC()
	cutoff := now.Add(-r.retention)

	candidates, err := r.docs.ListTrashedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	purged := 0
	for i := range candidates {
		doc := candidates[i]
		if !service.RetentionExpired(doc.TrashedAt, r.retention, now) {
			continue
		}
		if err := r.lifecycle.AutoPurge(ctx, &doc); err != nil {
			r.purgeFailures.Inc()
			r.log.Error().Err(err).Str("document_id", doc.ID).Msg("purge failed, skipping")
			continue
		}
		r.purgedTotal.Inc()
		purged++
	}

	// Expired grants are inert either way; dropping ones long past expiry
	// just reclaims rows.
	if n, err := r.perms.DeleteExpiredBefore(ctx, cutoff); err != nil {
		r.log.Error().Err(err).Msg("expired grant cleanup failed")
	} else if n > 0 {
		r.log.Info().Int64("grants", n).Msg("expired grants removed")
	}

	return purged, nil
}

// SweepOrphans deletes blobs that no document row references. Purely
// additive cleanup: it never touches the document state machine.
func (r *Reaper) SweepOrphans(ctx context.Context) (int, error) {
	objects, err := r.store.List(ctx, blobPrefix)
	if err != nil {
		return 0, err
	}
	paths, err := r.docs.ListStoragePaths(ctx)
	if err != nil {
		return 0, err
	}

	referenced := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		referenced[p] = struct{}{}
	}

	deleted := 0
	for _, obj := range objects {
		if _, ok := referenced[obj.Key]; ok {
			continue
		}
		if err := r.store.Delete(ctx, obj.Key); err != nil {
			r.log.Error().Err(err).Str("key", obj.Key).Msg("orphan delete failed, skipping")
			continue
		}
		r.orphansDeleted.Inc()
		deleted++
	}
	return deleted, nil
}
