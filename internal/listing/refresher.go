package listing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ctlcal/internal/config"
	"ctlcal/internal/feed"
	"ctlcal/internal/filter"
	appLog "ctlcal/internal/log"
	"ctlcal/internal/metrics"
)

// retireDelay is how long a replaced snapshot stays open so requests that
// already hold it can finish searching.
const retireDelay = 30 * time.Second

// Source fetches the raw feed body. *feed.Fetcher implements it.
type Source interface {
	Fetch(ctx context.Context, url string) (feed.FetchResult, error)
}

// Refresher loads the feed into snapshots and serves the current one.
type Refresher struct {
	src        Source
	url        string
	schedule   string
	loc        *time.Location
	categories []string
	now        func() time.Time

	mu      sync.RWMutex
	current *Snapshot
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithNow overrides time.Now for upcoming-only loading and date validation.
func WithNow(now func() time.Time) RefresherOption {
	return func(r *Refresher) { r.now = now }
}

// NewRefresher builds a Refresher for cfg's feed. An unknown timezone falls
// back to time.Local.
func NewRefresher(cfg *config.Config, src Source, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		src:        src,
		url:        cfg.FeedURL,
		schedule:   cfg.RefreshCron,
		loc:        resolveLocationOrLocal(cfg.Timezone),
		categories: cfg.CategoryFilter,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("invalid timezone, falling back to local", err, "timezone", name)
		return time.Local
	}
	return loc
}

// Location is the zone feed datetimes are read in.
func (r *Refresher) Location() *time.Location { return r.loc }

// Current returns the latest snapshot, or nil before the first successful
// load.
func (r *Refresher) Current() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Refresh fetches and loads the feed once. On error the current snapshot is
// kept.
func (r *Refresher) Refresh(ctx context.Context) error {
	started := time.Now()

	res, err := r.src.Fetch(ctx, r.url)
	if err != nil {
		return fmt.Errorf("refresh: fetch: %w", err)
	}

	raws, err := feed.Decode(res.Body)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	raws = feed.FilterCategories(raws, r.categories)

	now := r.now()
	events := feed.Load(raws, now, r.loc)
	feed.SortByDate(events)

	snap := NewSnapshot(events, now, res.FromCache, filter.WithClock(r.now))
	r.swap(snap)

	metrics.EventsLoaded.Set(float64(len(events)))
	metrics.LastRefresh.SetToCurrentTime()
	appLog.Info("feed refreshed",
		"events", len(events),
		"records", len(raws),
		"from_cache", res.FromCache,
		"elapsed", time.Since(started).String(),
	)
	return nil
}

func (r *Refresher) swap(next *Snapshot) {
	r.mu.Lock()
	prev := r.current
	r.current = next
	r.mu.Unlock()

	if prev != nil {
		time.AfterFunc(retireDelay, func() {
			if err := prev.Close(); err != nil {
				appLog.Error("closing retired snapshot failed", err)
			}
		})
	}
}

// Start schedules Refresh on the configured cron spec until ctx is done.
// Overlapping runs are skipped. It does not run an initial refresh.
func (r *Refresher) Start(ctx context.Context) error {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(r.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(r.schedule, func() {
		if err := r.Refresh(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err, "schedule", r.schedule)
		}
	}); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", r.schedule, err)
	}

	c.Start()
	appLog.Info("refresh scheduler started", "schedule", r.schedule, "timezone", r.loc.String())

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Info("refresh scheduler stopped")
	}()
	return nil
}

// cronLogger routes cron's own messages through the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}
