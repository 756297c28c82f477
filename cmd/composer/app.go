package main

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dpshade/prompt-composer/internal/auth"
	"github.com/dpshade/prompt-composer/internal/config"
	"github.com/dpshade/prompt-composer/internal/gateway"
	"github.com/dpshade/prompt-composer/internal/seed"
	"github.com/dpshade/prompt-composer/internal/store"
)

// app holds the backend a command runs against
type app struct {
	cfg  *config.Config
	log  *logrus.Entry
	gw   gateway.Gateway
	auth auth.Authenticator

	closers []func() error
}

var (
	appMu   sync.Mutex
	openApp *app
)

// newApp loads configuration and connects the configured backend
func newApp(interactive bool) (*app, error) {
	cfg, log, err := loadConfig(interactive)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}
	switch cfg.Backend {
	case config.BackendSupabase:
		client, err := gateway.DialSupabase(cfg.Supabase.URL, cfg.Supabase.Key)
		if err != nil {
			return nil, err
		}
		a.gw = gateway.NewSupabase(client)
		a.auth = auth.NewSupabase(client)
	case config.BackendMemory:
		a.gw = gateway.NewMemory()
		a.auth = auth.NewStatic(cfg.UserID)
	default:
		db, err := gateway.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		a.gw = db
		a.auth = auth.NewStatic(cfg.UserID)
		a.closers = append(a.closers, db.Close)
	}

	log.WithField("backend", cfg.Backend).Debug("Backend connected")

	appMu.Lock()
	openApp = a
	appMu.Unlock()
	return a, nil
}

// closeApp releases the backend opened by newApp
func closeApp() {
	appMu.Lock()
	a := openApp
	openApp = nil
	appMu.Unlock()
	if a == nil {
		return
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.WithError(err).Warn("Failed to close backend")
		}
	}
}

// storeOptions applies the configured debounce and seed catalog
func (a *app) storeOptions() (store.Options, error) {
	opts := store.Options{Debounce: a.cfg.Debounce}
	if a.cfg.Seed.Catalog != "" {
		catalog, err := seed.Load(a.cfg.Seed.Catalog)
		if err != nil {
			return opts, err
		}
		opts.Catalog = catalog
	}
	return opts, nil
}

// openStore authenticates the session user and loads their library
func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	opts, err := a.storeOptions()
	if err != nil {
		return nil, err
	}
	return a.openStoreWith(ctx, opts)
}

func (a *app) openStoreWith(ctx context.Context, opts store.Options) (*store.Store, error) {
	userID, err := a.auth.Authenticate(ctx, a.cfg.Token)
	if err != nil {
		return nil, err
	}
	st, err := store.New(userID, a.gw, a.log, opts)
	if err != nil {
		return nil, err
	}
	if err := st.Load(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
