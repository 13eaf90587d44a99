// Package reconcile keeps a client's cached view of one trip converged with
// the server. Change events are hints, not diffs: every event triggers a
// refetch of authoritative state, and a reconnect triggers a full resync.
// That trades a little bandwidth for immunity to lost, duplicated, or
// reordered events.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ebersole/caravan/internal/model"
	"github.com/ebersole/caravan/internal/realtime"
	"github.com/sethvargo/go-retry"
)

// Fetcher supplies authoritative server state. APIFetcher implements it
// over HTTP; tests use fakes.
type Fetcher interface {
	// FetchActivity returns the caller's view of one activity, or an error
	// wrapping model.ErrNotFound when it no longer exists.
	FetchActivity(ctx context.Context, activityID int64) (model.ActivityView, error)
	// FetchTrip returns the caller's full board for a trip, in creation order.
	FetchTrip(ctx context.Context, tripID int64) ([]model.ActivityView, error)
}

const (
	resyncBaseDelay  = 100 * time.Millisecond
	resyncMaxDelay   = 2 * time.Second
	resyncMaxRetries = 5
)

// Reconciler is the client-side cache for one (trip, user) pair.
type Reconciler struct {
	tripID  int64
	fetcher Fetcher
	logger  *slog.Logger

	mu      sync.Mutex
	entries map[int64]model.ActivityView
	synced  bool
}

func New(tripID int64, fetcher Fetcher, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		tripID:  tripID,
		fetcher: fetcher,
		logger:  logger,
		entries: make(map[int64]model.ActivityView),
	}
}

// Resync replaces the whole cache with a fresh trip fetch. Must be called
// after (re)connecting, before trusting any incremental events: any number
// of events may have been missed while offline. Transient fetch failures
// are retried with capped exponential backoff.
func (r *Reconciler) Resync(ctx context.Context) error {
	var views []model.ActivityView

	backoff := retry.WithMaxRetries(resyncMaxRetries, retry.WithCappedDuration(resyncMaxDelay, retry.NewExponential(resyncBaseDelay)))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		views, err = r.fetcher.FetchTrip(ctx, r.tripID)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("resync trip %d: %w", r.tripID, err)
	}

	entries := make(map[int64]model.ActivityView, len(views))
	for _, v := range views {
		entries[v.ID] = v
	}

	r.mu.Lock()
	r.entries = entries
	r.synced = true
	r.mu.Unlock()
	return nil
}

// MarkDisconnected invalidates the cache. Views remain readable (stale data
// beats no data for display), but the next Apply forces a full resync.
func (r *Reconciler) MarkDisconnected() {
	r.mu.Lock()
	r.synced = false
	r.mu.Unlock()
}

// Apply reconciles one inbound change event. Deletes evict locally;
// everything else refetches the named activity and replaces the cached
// entry with whatever the server says now. A failed single fetch, or an
// event arriving before the initial sync, falls back to a full resync.
func (r *Reconciler) Apply(ctx context.Context, ev realtime.Event) error {
	if ev.TripID != r.tripID {
		return nil
	}

	r.mu.Lock()
	synced := r.synced
	r.mu.Unlock()
	if !synced {
		return r.Resync(ctx)
	}

	if ev.Kind == realtime.KindDeleted {
		r.mu.Lock()
		delete(r.entries, ev.ActivityID)
		r.mu.Unlock()
		return nil
	}

	v, err := r.fetcher.FetchActivity(ctx, ev.ActivityID)
	if errors.Is(err, model.ErrNotFound) {
		// Deleted between the event and our refetch
		r.mu.Lock()
		delete(r.entries, ev.ActivityID)
		r.mu.Unlock()
		return nil
	}
	if err != nil {
		r.logger.Warn("activity refetch failed, resyncing", "activity_id", ev.ActivityID, "error", err)
		return r.Resync(ctx)
	}

	r.mu.Lock()
	r.entries[v.ID] = v
	r.mu.Unlock()
	return nil
}

// Board returns the cached trip board in creation order.
func (r *Reconciler) Board() []model.ActivityView {
	r.mu.Lock()
	defer r.mu.Unlock()

	views := make([]model.ActivityView, 0, len(r.entries))
	for _, v := range r.entries {
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

// Schedule returns the cached personal schedule: only accepted activities.
func (r *Reconciler) Schedule() []model.ActivityView {
	board := r.Board()
	schedule := make([]model.ActivityView, 0, len(board))
	for _, v := range board {
		if v.Accepted != nil && *v.Accepted {
			schedule = append(schedule, v)
		}
	}
	return schedule
}

// Synced reports whether the cache has been synchronized since the last
// connect or disconnect.
func (r *Reconciler) Synced() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.synced
}
