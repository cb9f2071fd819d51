package server

import (
	"database/sql"
	"fmt"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"

	"github.com/faciam-dev/gadmin/internal/config"
	"github.com/faciam-dev/gadmin/internal/events"
	"github.com/faciam-dev/gadmin/internal/logger"
)

// newDispatcher builds the event dispatcher from the events config file. It
// returns nil when no sink is configured. Sinks that fail to start are
// logged and skipped.
func newDispatcher(cfg *config.Config, db *sql.DB, dialect ormdriver.Dialect) (*events.Dispatcher, error) {
	evtConf, err := events.LoadConfig(cfg.EventsConfig)
	if err != nil {
		return nil, fmt.Errorf("events config: %w", err)
	}
	sinks, errs := evtConf.BuildSinks()
	for _, err := range errs {
		logger.L.Error("event sink", "err", err)
	}
	if len(sinks) == 0 {
		return nil, nil
	}
	var dlq events.DLQ
	if db != nil {
		dlq = &events.SQLDLQ{DB: db, Dialect: dialect, TablePrefix: cfg.TablePrefix}
	}
	return events.NewDispatcher(evtConf, dlq, sinks...), nil
}
