package admin

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/faciam-dev/gadmin/pkg/metrics"
	"github.com/faciam-dev/gadmin/pkg/session"
	"github.com/faciam-dev/gadmin/pkg/store"
	"github.com/faciam-dev/gadmin/pkg/viewmodel"
)

type cacheEntry struct {
	opts    []viewmodel.Option
	expires time.Time
}

// selectCache keeps select list options per (list, tenant) for ttl.
type selectCache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func newSelectCache(ttl time.Duration) *selectCache {
	return &selectCache{ttl: ttl, entries: map[string]cacheEntry{}}
}

func cacheKey(name, tenant string) string { return name + "\x00" + tenant }

func (c *selectCache) get(name, tenant string, now time.Time) ([]viewmodel.Option, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[cacheKey(name, tenant)]
	if !ok || now.After(e.expires) {
		return nil, false
	}
	return e.opts, true
}

func (c *selectCache) put(name, tenant string, opts []viewmodel.Option, now time.Time) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[cacheKey(name, tenant)] = cacheEntry{opts: opts, expires: now.Add(c.ttl)}
	c.mu.Unlock()
}

// invalidate drops cached options built from an entity.
func (c *selectCache) invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := name + "\x00"
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// SelectLists returns the options of every select list field of entity.
func (s *Service) SelectLists(ctx context.Context, sess session.Session, entity, tenant string) (_ map[string][]viewmodel.Option, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOp(entity, "select_lists", err, start) }()
	e, err := s.entity(sess, entity)
	if err != nil {
		return nil, err
	}
	out := map[string][]viewmodel.Option{}
	for _, f := range e.VM.Fields {
		if f.SelectList == "" {
			continue
		}
		opts, err := s.selectList(ctx, f.SelectList, tenant)
		if err != nil {
			return nil, err
		}
		out[f.Name] = opts
	}
	return out, nil
}

func (s *Service) selectList(ctx context.Context, name, tenant string) ([]viewmodel.Option, error) {
	now := s.now()
	if opts, ok := s.options.get(name, tenant, now); ok {
		metrics.CacheHits.Inc()
		return opts, nil
	}
	metrics.CacheMisses.Inc()
	var (
		opts []viewmodel.Option
		err  error
	)
	if fn, ok := s.reg.selectLists[name]; ok {
		opts, err = fn(ctx, tenant)
		if err != nil {
			s.logger.Errorw("select list provider failed", "list", name, "err", err)
			return nil, err
		}
	} else {
		ref, rerr := s.reg.Entity(name)
		if rerr != nil {
			return nil, rerr
		}
		opts, err = s.entityOptions(ctx, ref, tenant)
		if err != nil {
			return nil, err
		}
	}
	s.options.put(name, tenant, opts, now)
	return opts, nil
}

// entityOptions lists every record of ref as (id, label), ordered by label.
func (s *Service) entityOptions(ctx context.Context, ref *Entity, tenant string) ([]viewmodel.Option, error) {
	scope, err := scopeFor(ref.VM, tenant)
	if err != nil {
		return nil, err
	}
	pk, disp := ref.VM.PrimaryField(), ref.displayField()
	cols := []string{pk.Name}
	if disp.Name != pk.Name {
		cols = append(cols, disp.Name)
	}
	order := []store.Order{{Column: disp.Name}}
	if disp.Name != pk.Name {
		order = append(order, store.Order{Column: pk.Name})
	}
	recs, err := s.st.Find(ctx, store.Query{Table: ref.VM.Table, Columns: cols, Scope: scope, OrderBy: order})
	if err != nil {
		return nil, storageErr("options "+ref.Name(), err)
	}
	opts := make([]viewmodel.Option, len(recs))
	for i, r := range recs {
		opts[i] = viewmodel.Option{Key: viewmodel.FormatValue(pk, r[pk.Name]), Label: viewmodel.FormatValue(disp, r[disp.Name])}
	}
	return opts, nil
}
