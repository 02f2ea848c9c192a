package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smartmeeting/gateway/pkg/config"
	"github.com/smartmeeting/gateway/pkg/gateway"
	"github.com/smartmeeting/gateway/pkg/httpserver"
	"github.com/smartmeeting/gateway/pkg/logger"
)

var log = logger.New("gateway/main")

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("Configuration error")
	}
	if err := logger.SetLogLevel(cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("Invalid log level")
	}

	gw := gateway.New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First sweep runs synchronously so routing starts with health data.
	log.Info().Msg("Performing initial health sweep")
	gw.HealthSweep(ctx)
	go gw.RunHealthLoop(ctx, time.Duration(cfg.HealthCheckInterval))

	server := httpserver.New(cfg.ListenAddr, gateway.Handler(gw))
	server.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down gateway")
	cancel()
	if err := server.Stop(); err != nil {
		log.Fatal().Err(err).Msg("Forced shutdown")
	}
	log.Info().Msg("Gateway exited")
}
