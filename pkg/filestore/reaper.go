package filestore

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type pendingFile struct {
	entity string
	name   string
}

// Reaper removes files whose records are gone. Deletions that fail are
// queued and retried by Flush, which the server runs on a schedule.
type Reaper struct {
	Store  Store
	Logger *zap.SugaredLogger

	mu      sync.Mutex
	pending []pendingFile
}

// NewReaper returns a Reaper over s.
func NewReaper(s Store, logger *zap.SugaredLogger) *Reaper {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Reaper{Store: s, Logger: logger}
}

// Remove deletes the named files now and queues any that fail.
func (r *Reaper) Remove(ctx context.Context, entity string, names ...string) {
	for _, n := range names {
		if n == "" {
			continue
		}
		if err := r.Store.Delete(ctx, entity, n); err != nil {
			r.Logger.Warnw("queue file for removal", "entity", entity, "file", n, "err", err)
			r.mu.Lock()
			r.pending = append(r.pending, pendingFile{entity: entity, name: n})
			r.mu.Unlock()
		}
	}
}

// Flush retries queued deletions and returns how many are still pending.
func (r *Reaper) Flush(ctx context.Context) int {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()

	var failed []pendingFile
	for _, p := range batch {
		if err := r.Store.Delete(ctx, p.entity, p.name); err != nil {
			r.Logger.Debugw("file removal retry failed", "entity", p.entity, "file", p.name, "err", err)
			failed = append(failed, p)
		}
	}
	r.mu.Lock()
	r.pending = append(r.pending, failed...)
	n := len(r.pending)
	r.mu.Unlock()
	return n
}

// Pending returns the number of queued deletions.
func (r *Reaper) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
