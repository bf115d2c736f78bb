package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"primegap/pkg/api"
	"primegap/pkg/monitor"
	"primegap/pkg/network"
	"primegap/pkg/storage"
)

var (
	httpAddr string
	tcpAddr  string
)

func runServe(cmd *cobra.Command, args []string) error {
	if httpAddr == "" {
		httpAddr = cfg.Server.Addr
	}
	if tcpAddr == "" {
		tcpAddr = cfg.Server.TCPAddr
	}

	m, err := activeModel()
	if err != nil {
		return err
	}

	var backend storage.Backend
	if cfg.Storage.Path != "" {
		b, err := storage.NewSQLiteBackend(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer b.Close()
		backend = b
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats := monitor.NewPredictionStats()
	httpServer := api.NewServer(cfg, stats, backend, logger.Named("http"))
	tcpServer := network.NewTCPServer(m, stats, logger.Named("tcp"))
	tcpServer.SetMaxConns(cfg.Server.MaxConns)

	logger.Info("starting primegap",
		zap.String("calibration", m.Calibration().Name),
		zap.String("http", httpAddr),
		zap.String("tcp", tcpAddr))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpServer.Run(gctx, httpAddr)
	})
	g.Go(func() error {
		return tcpServer.Start(tcpAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		tcpServer.Close()
		return nil
	})

	err = g.Wait()
	logger.Info("shut down", zap.Any("stats", stats.Snapshot()))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
