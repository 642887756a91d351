package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daemonp/webasto-monitor/internal/api"
	"github.com/daemonp/webasto-monitor/internal/config"
	"github.com/daemonp/webasto-monitor/internal/controller"
	"github.com/daemonp/webasto-monitor/internal/gateway"
	"github.com/daemonp/webasto-monitor/internal/homeassistant"
	"github.com/daemonp/webasto-monitor/internal/log"
	"github.com/daemonp/webasto-monitor/internal/metrics"
	"github.com/daemonp/webasto-monitor/internal/monitor"
	"github.com/daemonp/webasto-monitor/internal/mqtt"
	"github.com/daemonp/webasto-monitor/internal/stream"
)

// Version is set during build
var Version = "dev"

const shutdownTimeout = 5 * time.Second

func main() {
	configFile := flag.String("config", "config.yml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	logger := log.NewLogger(cfg.Log)
	logger.Info("Starting webasto-monitor %s", Version)

	m := metrics.New()

	// Create the projector and its event sources
	mon := monitor.New(cfg.Monitor.LogCapacity, logger.Source("monitor"), m)

	session := stream.NewSession(stream.Options{
		URL:           stream.StreamURL(cfg.Controller.Host, cfg.Controller.Secure, cfg.Controller.StreamPort),
		RetryInterval: cfg.Monitor.RetryInterval(),
		Logger:        logger.Source("stream"),
		Metrics:       m,
	})

	gw := gateway.New(cfg.Controller.APIBaseURL(), cfg.Controller.Timeout(), logger.Source("gateway"), m)
	ctrl := controller.New(gw, mon, logger.Source("controller"))

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		mon.Run(ctx, session.Events())
	}()

	// Connect to MQTT broker
	var mqttClient *mqtt.MQTT
	if cfg.MQTT.Enabled {
		mqttClient = mqtt.NewMQTT(&cfg.MQTT, ctrl, mon, logger.Source("mqtt"))
		mon.Subscribe(mqttClient.OnSnapshot)
		if err := mqttClient.Connect(); err != nil {
			logger.Error("Failed to connect to MQTT broker: %v", err)
			os.Exit(1)
		}

		// Initialize and start Home Assistant integration if enabled
		if cfg.HomeAssistant.Discovery {
			ha := homeassistant.New(&cfg.HomeAssistant, mqttClient, logger.Source("homeassistant"))
			mon.Subscribe(ha.OnSnapshot)
			ha.Start()
		}
	}

	var server *api.Server
	if cfg.HTTP.Enabled {
		server = api.NewServer(api.NewHandler(mon, ctrl, Version), m.Handler(), logger.Source("http"))
		go func() {
			if err := server.Start(cfg.HTTP.Listen); err != nil {
				logger.Error("HTTP API stopped: %v", err)
			}
		}()
	}

	session.Start()
	go ctrl.LoadInitialData(ctx)

	// Wait for termination signal
	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP API shutdown: %v", err)
		}
	}
	if err := session.Close(); err != nil {
		logger.Warn("Stream close: %v", err)
	}
	<-monitorDone
	if mqttClient != nil {
		mqttClient.Close()
	}
}
