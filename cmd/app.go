package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/vempat/vempat/internal/auth"
	"github.com/vempat/vempat/internal/config"
	"github.com/vempat/vempat/internal/connectivity"
	"github.com/vempat/vempat/internal/db"
	"github.com/vempat/vempat/internal/output"
	"github.com/vempat/vempat/internal/remote"
	"github.com/vempat/vempat/internal/repository"
	"github.com/vempat/vempat/internal/store"
	vsync "github.com/vempat/vempat/internal/sync"
	"github.com/spf13/cobra"
)

// app bundles the local store with the queue and repository on top of it.
type app struct {
	db    *db.DB
	queue *vsync.Queue
	repo  *repository.Repository
}

// openApp opens the local database in the configured data dir. metrics may
// be nil.
func openApp(metrics *vsync.Metrics) (*app, error) {
	database, err := db.Open(config.DataDir())
	if err != nil {
		return nil, err
	}
	q := vsync.New(database, vsync.Options{
		MaxAttempts: config.MaxAttempts(),
		BaseDelay:   config.BaseDelay(),
		MaxBackoff:  config.MaxBackoff(),
		Metrics:     metrics,
	})
	return &app{
		db:    database,
		queue: q,
		repo:  repository.New(database, q, repository.Options{}),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// remoteConn is the configured remote: how to reconcile entries against it
// and how to tell whether it is reachable.
type remoteConn struct {
	kind       string
	reconciler vsync.Reconciler
	prober     connectivity.Prober
	identity   auth.IdentityProvider
	close      func() error
}

func (rc *remoteConn) Close() error {
	if rc.close == nil {
		return nil
	}
	return rc.close()
}

// openRemote builds the remote selected by config. It never contacts the
// remote; reachability is the prober's job.
func openRemote() (*remoteConn, error) {
	switch kind := config.RemoteKind(); kind {
	case config.KindMemory:
		return &remoteConn{
			kind:       kind,
			reconciler: remote.NewReconciler(remote.NewMemoryStore()),
			prober:     connectivity.Always,
			identity:   auth.OfflineProvider{},
		}, nil
	case config.KindRedis:
		rdb := remote.DialLazy(config.RedisAddr())
		store := remote.NewRedisStore(rdb, "")
		return &remoteConn{
			kind:       kind,
			reconciler: remote.NewReconciler(store),
			prober:     connectivity.RedisProber(store),
			identity:   auth.OfflineProvider{},
			close:      rdb.Close,
		}, nil
	case config.KindHTTP:
		c := remote.NewClient(config.RemoteURL(), config.APIKey())
		return &remoteConn{
			kind:       kind,
			reconciler: remote.NewReconciler(c),
			prober:     connectivity.HTTPProber(c),
			identity:   auth.RemoteProvider{Client: c},
		}, nil
	default:
		return nil, fmt.Errorf("unknown remote kind %q (use http, redis or memory)", kind)
	}
}

// friendly turns well-known errors into short messages for output.Error.
func friendly(err error) string {
	var verr *repository.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, store.ErrNotFound):
		return "not found"
	case errors.Is(err, vsync.ErrEntryNotFound):
		return "no such queue entry"
	default:
		return err.Error()
	}
}

// fail prints err and returns it so RunE can exit non-zero.
func fail(err error) error {
	output.Error("%s", friendly(err))
	return err
}

// withApp opens the local store, runs fn and closes the store again.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(nil)
	if err != nil {
		return fail(err)
	}
	defer a.Close()
	if err := fn(cmd.Context(), a); err != nil {
		return fail(err)
	}
	return nil
}
