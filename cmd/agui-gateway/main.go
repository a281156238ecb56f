package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/consolehq/agui-gateway/gateway"
	"github.com/consolehq/agui-gateway/gatewayconfig"
	"github.com/consolehq/agui-gateway/observe"
	otelsink "github.com/consolehq/agui-gateway/observe/otel"
	runlogsqlite "github.com/consolehq/agui-gateway/runlog/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file (optional)")
	flag.Parse()

	cfg, err := gatewayconfig.Load(*configPath)
	if err != nil {
		log.Fatalf("agui-gateway: %v", err)
	}
	cfg = gatewayconfig.ApplyEnv(cfg)

	serverCfg := gateway.Config{
		Addr:        cfg.Addr,
		UpstreamURL: cfg.UpstreamURL,
		AppName:     cfg.AppName,
		Debug:       observe.NewRingSink(cfg.DebugBufferSize),
	}

	if cfg.RunLogPath != "" {
		store, err := runlogsqlite.New(cfg.RunLogPath)
		if err != nil {
			log.Fatalf("agui-gateway: failed to open run log: %v", err)
		}
		defer func() { _ = store.Close() }()
		serverCfg.RunLog = store
	}

	if cfg.OTelEnabled {
		tp := sdktrace.NewTracerProvider()
		defer func() { _ = tp.Shutdown(context.Background()) }()
		serverCfg.Sink = otelsink.NewSink(tp)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := gateway.NewServer(serverCfg)
	log.Printf("agui-gateway: listening on %s (upstream: %s)", cfg.Addr, cfg.UpstreamURL)
	if err := server.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("agui-gateway: %v", err)
	}
}
