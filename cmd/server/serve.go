package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/lost-found/internal/adapter/handler"
	"github.com/rl1809/lost-found/internal/core/domain"
	"github.com/rl1809/lost-found/internal/core/parser"
	"github.com/rl1809/lost-found/internal/core/service"
	"github.com/rl1809/lost-found/internal/port"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the gRPC health endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		figure.NewFigure("Lost & Found", "small", true).Print()
		fmt.Println()
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	deps := map[string]handler.Pinger{"database": store}
	var guard port.ClaimGuard
	redisGuard, closeRedis := openGuard(ctx, cfg, log)
	defer closeRedis()
	if redisGuard != nil {
		guard = redisGuard
		deps["redis"] = redisGuard
	}

	users := service.NewUserService(store, log.Named("users"))
	created, err := users.EnsureUser(ctx, service.NewUser{
		Username: cfg.Admin.Username,
		Password: cfg.Admin.Password,
		Name:     cfg.Admin.Name,
		Email:    cfg.Admin.Email,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.Info("created default admin user", zap.String("username", cfg.Admin.Username))
	}

	claims := service.NewClaimService(store, store, store, store, guard, log.Named("claims"))
	items := service.NewItemService(store, store, parser.NewDefaultFactory(log.Named("parser")), cfg.Upload.MaxFileSize, log.Named("items"))

	h := handler.NewHTTPHandler(claims, items, users, deps, cfg.Upload.MaxFileSize, log.Named("http"))
	e := handler.NewRouter(h, cfg.Server.BodyLimit)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	health := handler.NewGRPCHealth(deps, log.Named("grpc"))
	grpcServer := handler.NewGRPCServer(health)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("gRPC server listening", zap.String("addr", cfg.Server.GRPCAddr))
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		health.Run(gctx, 15*time.Second)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP shutdown", zap.Error(err))
		}
		log.Info("HTTP server stopped")

		grpcServer.GracefulStop()
		log.Info("gRPC server stopped")
		return nil
	})

	return g.Wait()
}
