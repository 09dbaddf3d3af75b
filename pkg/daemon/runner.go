package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/zk-tools/zk-watcher-go/pkg/errors"
	"github.com/zk-tools/zk-watcher-go/pkg/logging"
	"github.com/zk-tools/zk-watcher-go/pkg/metrics"
	"github.com/zk-tools/zk-watcher-go/pkg/registry"
)

// Run loads configuration, constructs the registry and the daemon, and
// blocks until a termination signal arrives (or runDuration elapses),
// then shuts everything down so final deregistrations are not lost.
func Run(runDuration int, configFile string, serverOverride string, verbose bool, logger logging.Logger) error {
	logger.Infof("Watcher daemon runner starting...")

	ctx := context.Background()
	if runDuration > 0 {
		duration := time.Duration(runDuration) * time.Second
		logger.Infof("Using RUN DURATION of %v", duration)
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	logger.Infof("Using CONFIGURATION FILE: %s", configFile)

	config, err := LoadConfigFromFile(configFile)
	if err != nil {
		return errors.NewIOError("failed to load configuration", err).WithContext("config_file", configFile)
	}

	if serverOverride != "" {
		config.Daemon.ZooKeeperServers = strings.Split(serverOverride, ",")
	}

	if err := ValidateConfig(config); err != nil {
		return errors.NewValidationError("configuration validation failed", err).WithContext("config_file", configFile)
	}

	if !verbose && config.Daemon.LogLevel != "" {
		if err := logging.SetLevel(config.Daemon.LogLevel); err != nil {
			logger.Warnf("Invalid log level %q in configuration: %v", config.Daemon.LogLevel, err)
		}
	}

	logger.Infof("Configuration loaded successfully from %s", configFile)
	logger.Infof("ZooKeeper servers: %v, services: %d", config.Daemon.ZooKeeperServers, len(config.Services))

	host := config.Daemon.HostIdentifier
	if host == "" {
		host, err = ResolveHostIdentifier()
		if err != nil {
			return err
		}
	}
	logger.Infof("Using host identifier: %s", host)

	// Registry handle construction is the only fatal path. Every error
	// after this point is recovered inside the watchers.
	reg, err := registry.NewZooKeeperRegistry(registry.ZooKeeperOptions{
		Servers:        config.Daemon.ZooKeeperServers,
		SessionTimeout: config.Daemon.SessionTimeout,
	}, logging.NewLoggerFrom("registry , ", logger))
	if err != nil {
		return errors.NewRegistryError("failed to create registry", err)
	}

	daemon, err := NewDaemon(Options{
		HostIdentifier:       host,
		ForceShutdownTimeout: config.Daemon.ForceShutdownTimeout,
	}, reg, logger)
	if err != nil {
		reg.Close()
		return err
	}

	for _, spec := range ServiceSpecsFromConfig(config, logger) {
		if err := daemon.AddService(spec); err != nil {
			reg.Close()
			return errors.NewValidationError(
				fmt.Sprintf("failed to add service: %s", spec.Name),
				err,
			).WithContext("service", spec.Name)
		}
	}

	if err := daemon.Start(); err != nil {
		reg.Close()
		return err
	}

	var metricsServer *http.Server
	if addr := config.Daemon.MetricsListenAddress; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: addr, Handler: mux}
		go func() {
			logger.Infof("Metrics listening on %s", addr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("Metrics server failed: %v", err)
			}
		}()
	}

	logger.Infof("Enabling signal handling...")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case receivedSignal := <-sig:
		logger.Infof("Watcher daemon received signal: %v", receivedSignal)
	case <-ctx.Done():
		logger.Infof("Watcher daemon run duration elapsed")
	}

	stopErr := daemon.Stop(context.Background())

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("Failed to shut down metrics server: %v", err)
		}
	}

	logger.Infof("Watcher daemon runner stopped")
	return stopErr
}
