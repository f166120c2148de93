// Package main runs a till or the central order hub.
//
// In terminal mode the process serves the JSON API for one till and pushes
// every order to the hub through the sync outbox. In hub mode it accepts
// those pushes over gRPC and stores them.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angzarr-io/pos/config"
	"github.com/angzarr-io/pos/httpapi"
	"github.com/angzarr-io/pos/loyalty"
	"github.com/angzarr-io/pos/outbox"
	"github.com/angzarr-io/pos/pos"
	"github.com/angzarr-io/pos/storage"
	"github.com/angzarr-io/pos/terminal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"gorm.io/gorm"
)

func main() {
	configFile := flag.String("config", "", "path to config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}

	switch cfg.Mode {
	case config.ModeHub:
		err = runHub(ctx, cfg, db, logger)
	default:
		err = runTerminal(ctx, cfg, db, logger)
	}
	if err != nil {
		logger.Fatal("server exited", zap.String("mode", cfg.Mode), zap.Error(err))
	}
}

func runHub(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *zap.Logger) error {
	hub := outbox.NewHub(storage.NewGormOrders(db, pos.SystemClock{}), logger)
	return pos.RunServer(ctx, pos.ServerConfig{
		Service:     outbox.SyncServiceName,
		DefaultPort: cfg.GRPC.Port,
	}, logger, func(s *grpc.Server) {
		outbox.RegisterOrderSync(s, hub)
	})
}

func runTerminal(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *zap.Logger) error {
	menu := storage.NewGormMenu(db)
	seeded, err := storage.SeedMenu(ctx, menu)
	if err != nil {
		return err
	}
	logger.Info("menu ready", zap.Int("products", seeded))

	ladder, err := cfg.Ladder()
	if err != nil {
		return err
	}
	svc := loyalty.NewService(storage.NewGormLoyaltyStore(db), ladder, pos.SystemClock{}, logger)

	queue, err := outbox.NewGormQueue(db)
	if err != nil {
		return err
	}
	var remote outbox.Remote
	if cfg.Sync.Remote != "" {
		grpcRemote, err := outbox.NewGRPCRemote(cfg.Sync.Remote)
		if err != nil {
			return err
		}
		defer grpcRemote.Close()
		remote = grpcRemote
	}
	engine := outbox.NewEngine(storage.NewGormOrders(db, pos.SystemClock{}), queue, remote,
		outbox.WithMaxRetries(cfg.Sync.MaxRetries),
		outbox.WithLogger(logger),
	)

	till := terminal.New(terminal.Config{
		StoreID:     cfg.Store.ID,
		TerminalID:  cfg.Store.TerminalID,
		SnapshotKey: cfg.Snapshot.Key,
		TaxRate:     cfg.TaxRate(),
	}, svc,
		terminal.WithSnapshots(storage.NewGormSnapshots(db)),
		terminal.WithSink(engine),
		terminal.WithLogger(logger),
		terminal.WithTaxEnabled(cfg.Tax.Enabled),
	)
	if err := till.Restore(ctx); err != nil {
		return err
	}

	if remote != nil {
		if _, err := engine.SetOnline(ctx, true); err != nil {
			logger.Warn("initial sync failed", zap.Error(err))
		}
	}
	go engine.Run(ctx, cfg.Sync.Interval)

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("no jwt secret configured, sessions will not survive a restart")
	}
	auth, err := httpapi.NewAuthenticator(cfg.Auth.Staff, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, pos.SystemClock{})
	if err != nil {
		return err
	}

	api := httpapi.NewServer(httpapi.Deps{
		Terminal: till,
		Loyalty:  svc,
		Menu:     menu,
		Sync:     engine,
		Auth:     auth,
		Logger:   logger,
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("terminal started",
		zap.String("store_id", cfg.Store.ID),
		zap.String("terminal_id", cfg.Store.TerminalID),
		zap.String("addr", cfg.HTTP.Addr),
		zap.Bool("sync", remote != nil))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
