package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/mzurek/go-can-dispatch/internal/can"
	"github.com/mzurek/go-can-dispatch/internal/metrics"
)

// Helper implementations live in dedicated files: version.go, config.go,
// logger.go, table.go, app.go, backend.go, mdns.go, metrics_logger.go.

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("can-dispatch %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(2)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)

	rxTable, txTable, err := loadTables(cfg.tableFile, cfg.tickEvery, l)
	if err != nil {
		l.Error("table_load_error", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	w, startRX, cleanup, berr := initBackend(ctx, cfg, l, &wg)
	if berr != nil {
		l.Error("backend_init_error", "error", berr)
		os.Exit(1)
	}

	clock := startTicker(ctx, cfg.tickEvery, &wg)
	rxEng, txEng := buildEngines(cfg, clock, rxTable, txTable, w, l)
	startRX(func(fr can.Frame) { rxEng.Push(fr.ID(), fr.Payload(), fr.Len, fr.Extended()) })
	pollLoop(ctx, cfg.pollEvery, rxEng, txEng, &wg)
	l.Info("dispatch_running",
		"backend", cfg.backend,
		"watch", len(rxTable),
		"periodic", len(txTable),
		"tick", cfg.tickEvery,
		"poll", cfg.pollEvery,
	)

	metrics.SetReadinessFunc(func() bool { return ctx.Err() == nil })
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srvHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()

		if cfg.mdnsEnable {
			portNum := 0
			if _, p, err := net.SplitHostPort(cfg.metricsAddr); err == nil {
				portNum, _ = strconv.Atoi(p)
			}
			if portNum == 0 {
				l.Warn("mdns_skip", "reason", "metrics-addr has no fixed port")
			} else if cleanupMDNS, err := startMDNS(ctx, cfg, portNum); err != nil {
				l.Warn("mdns_start_failed", "error", err)
			} else {
				l.Info("mdns_started", "service", mdnsServiceType, "name", cfg.mdnsName, "port", portNum)
				defer cleanupMDNS()
			}
		}
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	l.Info("shutdown_signal", "signal", s.String())
	cancel()
	cleanup()
	wg.Wait()
}
