package cli

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/nhle/tada/internal/cleanup"
	"github.com/nhle/tada/internal/credential"
	"github.com/nhle/tada/internal/lists"
	"github.com/nhle/tada/internal/logger"
	"github.com/nhle/tada/internal/model"
	"github.com/nhle/tada/internal/remote"
	"github.com/nhle/tada/internal/share"
	"github.com/nhle/tada/internal/store"
	tadasync "github.com/nhle/tada/internal/sync"
	"github.com/nhle/tada/internal/ui/settings"
)

// deps holds everything a command needs, wired from the config file.
type deps struct {
	cfg     *model.AppConfig
	log     *zap.Logger
	store   *store.SQLiteStore
	lists   *lists.Service
	backend remote.Backend
	engine  *tadasync.Engine
	repl    *tadasync.Replicator
	sched   *cleanup.Scheduler
	sharing *share.Service
}

// openDeps loads the config, builds the logger, and opens the store.
// A store that fails to open is fatal.
func openDeps(configPath string, logToFile bool) (*deps, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logOpts := logger.Options{Development: cfg.Log.Development}
	if logToFile {
		logOpts.File = cfg.Log.File
	}
	log, err := logger.New(logOpts)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("device", cfg.Sync.Device))

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		log.Error("opening store", zap.String("path", cfg.Database.Path), zap.Error(err))
		logger.Sync(log)
		return nil, fmt.Errorf("opening store %s: %w", cfg.Database.Path, err)
	}

	d := &deps{
		cfg:   cfg,
		log:   log,
		store: st,
		lists: lists.New(st, log.Named("lists")),
	}
	d.backend = d.openBackend()

	engineOpts := []tadasync.EngineOption{tadasync.WithSuccessDisplay(cfg.Sync.SuccessDisplay)}
	if last, err := d.lists.LastSync(context.Background()); err != nil {
		log.Warn("reading last sync time", zap.Error(err))
	} else if !last.IsZero() {
		engineOpts = append(engineOpts, tadasync.WithLastSync(last))
	}
	d.engine = tadasync.NewEngine(log.Named("sync"), engineOpts...)
	d.repl = tadasync.NewReplicator(d.engine, d.lists, d.backend, st, log.Named("replicator"),
		tadasync.ReplicatorOptions{
			PollInterval: cfg.Sync.PollInterval,
			Timeout:      cfg.Sync.Timeout,
			SaveDebounce: cfg.Sync.SaveDebounce,
		},
	)
	d.sched = cleanup.NewScheduler(d.lists, cleanup.Policy{
		HideAfter:        cfg.Cleanup.HideAfter,
		PurgeAfter:       cfg.Cleanup.PurgeAfter,
		Interval:         cfg.Cleanup.Interval,
		HideOnBackground: cfg.Cleanup.HideOnBackground,
	}, log.Named("cleanup"))
	d.sharing = share.New(d.backend, d.lists, log.Named("share"))

	return d, nil
}

// openBackend returns nil, never a typed nil, when sync is not configured.
func (d *deps) openBackend() remote.Backend {
	if d.cfg.Sync.URL == "" {
		d.log.Info("no sync url configured, running local-only")
		return nil
	}

	token := os.Getenv(credential.SyncTokenEnv)
	if token == "" {
		creds, err := credential.Open()
		if err == nil {
			token, err = creds.SyncToken()
		}
		if err != nil {
			d.log.Warn("reading sync token", zap.Error(err))
		}
	}
	return remote.NewClient(d.cfg.Sync.URL, token)
}

// settingsDeps lets the terminal ui edit the config file and the token.
func (d *deps) settingsDeps(configPath string) *settings.Deps {
	creds, err := credential.Open()
	if err != nil {
		d.log.Warn("opening keyring for settings", zap.Error(err))
	}

	sd := &settings.Deps{
		Config: d.cfg,
		Path:   configPath,
		Check: func(ctx context.Context, url, token string) (remote.AccountStatus, error) {
			// An empty field keeps the stored token.
			if token == "" && creds != nil {
				stored, err := creds.SyncToken()
				if err != nil {
					return "", err
				}
				token = stored
			}
			return remote.NewClient(url, token).AccountStatus(ctx)
		},
	}
	if creds != nil {
		sd.Tokens = creds
	}
	return sd
}

func (d *deps) close() {
	if err := d.store.Close(); err != nil {
		d.log.Warn("closing store", zap.Error(err))
	}
	logger.Sync(d.log)
}
