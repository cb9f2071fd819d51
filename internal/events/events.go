package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/faciam-dev/goquent/orm/query"
	"github.com/google/uuid"

	"github.com/faciam-dev/gadmin/internal/logger"
	"github.com/faciam-dev/gadmin/pkg/admin"
)

// Event is the envelope published to sinks.
type Event struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Time time.Time   `json:"time"`
	Data admin.Event `json:"data"`
}

// Sink publishes events.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// EntityFilter limits a sink to the named entities. Empty matches all.
type EntityFilter []string

// Match reports whether events of entity pass the filter.
func (f EntityFilter) Match(entity string) bool {
	if len(f) == 0 {
		return true
	}
	for _, n := range f {
		if n == entity {
			return true
		}
	}
	return false
}

// DLQ stores events that exhausted their retries.
type DLQ interface {
	Store(ctx context.Context, e Event, attempts int, lastErr string) error
}

// Dispatcher broadcasts events to every sink with exponential backoff. It
// implements admin.Emitter.
type Dispatcher struct {
	sinks        []Sink
	maxAttempts  int
	initialDelay time.Duration
	dlq          DLQ
	wg           sync.WaitGroup
}

// NewDispatcher creates a dispatcher from sinks and retry config.
func NewDispatcher(cfg Config, dlq DLQ, sinks ...Sink) *Dispatcher {
	d := &Dispatcher{maxAttempts: 3, initialDelay: time.Second, dlq: dlq}
	if cfg.Retry.MaxAttempts > 0 {
		d.maxAttempts = cfg.Retry.MaxAttempts
	}
	if cfg.Retry.InitialDelay > 0 {
		d.initialDelay = cfg.Retry.InitialDelay
	}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	return d
}

// Emit wraps a mutation event and dispatches it.
func (d *Dispatcher) Emit(ctx context.Context, e admin.Event) {
	if d == nil {
		return
	}
	d.Dispatch(ctx, Event{ID: uuid.NewString(), Name: e.Name, Time: e.Time, Data: e})
}

// Dispatch sends the event to all sinks asynchronously. Delivery outlives
// the request, so cancellation of ctx is ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) {
	ctx = context.WithoutCancel(ctx)
	for _, s := range d.sinks {
		d.wg.Add(1)
		go func(s Sink) {
			defer d.wg.Done()
			d.retrySend(ctx, s, e)
		}(s)
	}
}

// Wait blocks until every pending delivery finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) retrySend(ctx context.Context, s Sink, e Event) {
	delay := d.initialDelay
	var err error
	for i := 1; i <= d.maxAttempts; i++ {
		if err = s.Emit(ctx, e); err == nil {
			return
		}
		if i < d.maxAttempts {
			time.Sleep(delay)
			delay *= 2
		}
	}
	logger.L.Warn("event delivery failed", "event", e.Name, "id", e.ID, "err", err)
	if d.dlq != nil {
		if derr := d.dlq.Store(ctx, e, d.maxAttempts, err.Error()); derr != nil {
			logger.L.Error("store failed event", "id", e.ID, "err", derr)
		}
	}
}

// SQLDLQ stores failed events in the {prefix}events_failed table.
type SQLDLQ struct {
	DB          *sql.DB
	Dialect     ormdriver.Dialect
	TablePrefix string
}

// Store inserts the failed event.
func (q *SQLDLQ) Store(ctx context.Context, e Event, attempts int, lastErr string) error {
	if q == nil || q.DB == nil {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = query.New(q.DB, q.TablePrefix+"events_failed", q.Dialect).
		WithContext(ctx).
		InsertGetId(map[string]any{
			"name":       e.Name,
			"payload":    string(data),
			"attempts":   attempts,
			"last_error": lastErr,
		})
	return err
}
