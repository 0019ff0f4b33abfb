// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heartboard/server/internal/auth"
	"github.com/heartboard/server/internal/cache"
	"github.com/heartboard/server/internal/config"
	"github.com/heartboard/server/internal/database"
	"github.com/heartboard/server/internal/handlers"
	"github.com/heartboard/server/internal/room"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		logrus.Fatalf("logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	scope, err := room.ParseLockScope(cfg.Game.TurnLockScope)
	if err != nil {
		return err
	}
	ttl, err := auth.ParseTTL(cfg.Auth.TokenExpire)
	if err != nil {
		return err
	}
	var issuer *auth.Issuer
	if cfg.Auth.PrivateKeyPath != "" {
		issuer, err = auth.LoadIssuer(cfg.Auth.PrivateKeyPath, ttl)
	} else {
		issuer, err = auth.NewIssuer(ttl)
	}
	if err != nil {
		return err
	}

	opts := room.DefaultOptions()
	opts.LockScope = scope
	opts.AllowDebugActions = cfg.Game.AllowDebugActions
	opts.PersistTimeout = cfg.Game.PersistTimeout
	engine := room.NewEngine(logger, opts)

	rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer rdb.Close()
	rooms := cache.NewRoomCache(rdb, cfg.Redis.SnapshotTTL)
	persisters := room.Persisters{rooms}
	engine.Actions = cache.NewActionQueue(rdb, cfg.Historian.QueueName)

	var accounts handlers.Accounts
	if cfg.Database.URL != "" {
		if err := database.Connect(ctx, cfg.Database.URL); err != nil {
			return err
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			return err
		}
		persisters = append(persisters, database.RoomSnapshots{})
		engine.Results = database.MatchRecorder{}
		accounts = database.Accounts{}
	} else {
		logger.Warn("DATABASE_URL not set: accounts and match history are disabled")
	}
	engine.Persister = persisters

	if _, err := engine.Restore(ctx, rooms); err != nil {
		logger.WithError(err).Warn("room restore failed, starting empty")
	}

	srv := handlers.NewServer(engine, issuer, accounts, logger)
	srv.Debug = cfg.Game.AllowDebugActions
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if maxAge := cfg.Game.TurnLockMaxAge; maxAge > 0 {
		g.Go(func() error {
			engine.Locks.Run(gctx, maxAge/2, maxAge)
			return nil
		})
	}
	g.Go(func() error {
		logger.Infof("Running on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	engine.Wait()
	logger.Info("server stopped")
	return err
}
