package server

import (
	"context"
	"database/sql"
	"fmt"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/faciam-dev/gadmin/internal/auditlog"
	"github.com/faciam-dev/gadmin/internal/auth"
	"github.com/faciam-dev/gadmin/internal/config"
	"github.com/faciam-dev/gadmin/internal/events"
	"github.com/faciam-dev/gadmin/internal/logger"
	"github.com/faciam-dev/gadmin/internal/plugin"
	"github.com/faciam-dev/gadmin/internal/rbac"
	"github.com/faciam-dev/gadmin/pkg/admin"
	"github.com/faciam-dev/gadmin/pkg/filestore"
	"github.com/faciam-dev/gadmin/pkg/migrator"
	"github.com/faciam-dev/gadmin/pkg/store"
	pkgutil "github.com/faciam-dev/gadmin/pkg/util"
)

// App holds the collaborators the HTTP layer is built from. DB is nil when
// records live in MongoDB; audit, users, RBAC tables and the event DLQ then
// stay disabled.
type App struct {
	Config   *config.Config
	DB       *sql.DB
	Mongo    *mongo.Client
	Dialect  ormdriver.Dialect
	Service  *admin.Service
	Files    filestore.Store
	Reaper   *filestore.Reaper
	Events   *events.Dispatcher
	Audit    *auditlog.Repo
	Users    *auth.UserRepo
	Enforcer *rbac.Enforcer

	closers []func() error
}

// Open connects storage and builds the service described by cfg.
func Open(ctx context.Context, cfg *config.Config, zl *zap.SugaredLogger) (*App, error) {
	reg, err := admin.LoadRegistry(cfg.EntitiesFile)
	if err != nil {
		return nil, err
	}
	if cfg.PluginDir != "" {
		names, err := plugin.LoadDir(cfg.PluginDir, reg)
		if err != nil {
			return nil, fmt.Errorf("load plugins: %w", err)
		}
		logger.L.Info("validator plugins loaded", "entities", names)
	}
	a := &App{Config: cfg, Dialect: pkgutil.DialectFromDriver(cfg.Driver)}

	var st store.Store
	if cfg.Driver == "mongo" {
		cli, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DSN))
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		a.Mongo = cli
		a.closers = append(a.closers, func() error { return cli.Disconnect(context.Background()) })
		st = store.NewMongo(cli, cfg.MongoDatabase)
	} else {
		db, err := sql.Open(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.PingContext(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("ping db: %w", err)
		}
		a.DB = db
		if cfg.AutoMigrate {
			if err := migrate(ctx, db, cfg); err != nil {
				a.Close()
				return nil, err
			}
		} else if cfg.Driver != "sqlite3" {
			if err := config.CheckPrefix(ctx, db, a.Dialect, cfg.TablePrefix); err != nil {
				logger.L.Warn("admin tables missing", "err", err)
			}
		}
		st = store.NewSQL(db, cfg.Driver)
	}

	if cfg.S3Bucket != "" {
		s3, err := filestore.NewS3(ctx, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("s3 store: %w", err)
		}
		a.Files = s3
	} else {
		a.Files = filestore.NewLocal(cfg.UploadRoot)
	}
	a.Reaper = filestore.NewReaper(a.Files, zl)

	var recorder admin.Recorder
	if a.DB != nil {
		a.Audit = &auditlog.Repo{DB: a.DB, Dialect: a.Dialect, TablePrefix: cfg.TablePrefix}
		a.Users = &auth.UserRepo{DB: a.DB, Dialect: a.Dialect, TablePrefix: cfg.TablePrefix, PasswordCost: bcrypt.DefaultCost}
		recorder = &auditlog.Recorder{DB: a.DB, Dialect: a.Dialect, TablePrefix: cfg.TablePrefix}
	}

	if a.Events, err = newDispatcher(cfg, a.DB, a.Dialect); err != nil {
		a.Close()
		return nil, err
	}
	var emitter admin.Emitter
	if a.Events != nil {
		emitter = a.Events
		a.closers = append(a.closers, func() error { a.Events.Wait(); return nil })
	}

	if cfg.AuthEnabled {
		if a.Enforcer, err = newEnforcer(ctx, cfg, a.DB, a.Dialect); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Service = admin.New(admin.Config{
		Registry:      reg,
		Store:         st,
		Access:        admin.AccessConfig{Enabled: cfg.AuthEnabled, IsLoggedIn: admin.LoggedIn},
		Files:         a.Reaper,
		Events:        emitter,
		Audit:         recorder,
		Logger:        zl,
		SelectListTTL: cfg.SelectListTTL,
	})
	logger.L.Info("admin service ready", "driver", cfg.Driver, "entities", len(reg.Entities()))
	return a, nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	a.closers = nil
	return err
}

func migrate(ctx context.Context, db *sql.DB, cfg *config.Config) error {
	m, err := migrator.New(cfg.Driver, cfg.TablePrefix)
	if err != nil {
		return err
	}
	if err := m.Up(ctx, db, 0); err != nil {
		return err
	}
	logger.L.Info("schema migrated", "version", m.Latest())
	return nil
}
