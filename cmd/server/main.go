package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fieldcollect/go-session-server/auth"
	pgdirectory "github.com/fieldcollect/go-session-server/directory/postgres"
	"github.com/fieldcollect/go-session-server/exporter"
	"github.com/fieldcollect/go-session-server/internal/config"
	"github.com/fieldcollect/go-session-server/internal/metrics"
	"github.com/fieldcollect/go-session-server/server"
	"github.com/fieldcollect/go-session-server/sessions"
	"github.com/fieldcollect/go-session-server/sessions/mongostore"
	"github.com/fieldcollect/go-session-server/sessions/redisstore"
	"github.com/fieldcollect/go-session-server/token"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("error running server, restarting")
			time.Sleep(1 * time.Second)
			continue
		}
		break
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, c.GetDirectoryDSN())
	if err != nil {
		return fmt.Errorf("pgxpool.New: %w", err)
	}
	defer pool.Close()

	dir, err := pgdirectory.New(pool)
	if err != nil {
		return fmt.Errorf("directory.New: %w", err)
	}

	store, closeStore, err := newSessionStore(ctx, c)
	if err != nil {
		return fmt.Errorf("newSessionStore: %w", err)
	}
	defer closeStore()

	m := metrics.New()

	orchestrator, err := auth.NewOrchestrator(
		auth.Repos{Directory: dir, Sessions: store},
		token.NewIssuer(),
		exporter.NewLogExporter(),
	)
	if err != nil {
		return fmt.Errorf("auth.NewOrchestrator: %w", err)
	}

	reconciler, err := auth.NewReconciler(dir, store, auth.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("auth.NewReconciler: %w", err)
	}

	// Reconcile before the listener starts so traffic never races a cold
	// cache. A failed run is logged; logins rebuild the cache as they arrive.
	if err := reconciler.RunOnce(ctx); err != nil {
		log.Error().Err(err).Msg("startup session reconciliation aborted")
	}
	if interval := c.GetReconcileInterval(); interval > 0 {
		go reconciler.RunEvery(ctx, interval)
	}

	srv, err := server.New(c, orchestrator, m)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer, c.GetShutdownTimeout())
}

func newSessionStore(ctx context.Context, c config.Config) (sessions.Store, func(), error) {
	switch c.GetSessionBackend() {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.GetRedisAddr(),
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
		})
		store, err := redisstore.New(client)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, func() { _ = client.Close() }, nil
	default:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.GetMongoURI()))
		if err != nil {
			return nil, nil, err
		}
		store, err := mongostore.New(ctx, client.Database(c.GetMongoDatabase()))
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return store, func() { _ = client.Disconnect(context.Background()) }, nil
	}
}

func listenAndServe(httpServer *http.Server) {
	log.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
