package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"security-hub/internal/api"
	"security-hub/internal/config"
	"security-hub/internal/db"
	"security-hub/internal/events"
	"security-hub/internal/grace"
	"security-hub/internal/images"
	"security-hub/internal/kafka"
	"security-hub/internal/logging"
	"security-hub/internal/mqtt"
	"security-hub/internal/network"
	"security-hub/internal/notification"
	"security-hub/internal/providers"
	"security-hub/internal/store"
	"security-hub/internal/utils"
	"security-hub/internal/ws"
)

const purgeInterval = 24 * time.Hour

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Config load failed:", err)
	}

	// Initialize logger
	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatal("Logger init failed:", err)
	}
	defer logger.Close()

	policy, err := store.ParsePolicy(cfg.Alerts.Triggers)
	if err != nil {
		logger.Fatalf("Invalid ALARM_TRIGGERS: %v", err)
	}
	imageStore, err := images.New(cfg.Images.StoragePath)
	if err != nil {
		logger.Fatalf("Image storage init failed: %v", err)
	}

	registry := store.NewRegistry()
	statuses := store.NewStatusStore(registry)
	alerts := store.NewAlertLog(cfg.AlertRetention())

	// Optional Postgres archive
	var (
		database *db.DB
		recorder notification.Recorder
		archive  api.NotificationLister
	)
	if cfg.DB.DSN != "" {
		err := utils.Retry(logger, 3, 2*time.Second, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			conn, err := db.New(ctx, cfg.DB.DSN)
			if err != nil {
				return err
			}
			database = conn
			return nil
		})
		if err != nil {
			logger.Fatalf("DB connect failed: %v", err)
		}
		defer database.Close()
		if err := database.Migrate(context.Background()); err != nil {
			logger.Fatalf("DB migrate failed: %v", err)
		}
		recorder, archive = database, database
		logger.Infof("Postgres archive enabled")
	}

	// Escalation providers
	svc := notification.New(recorder, logger, cfg)
	if cfg.Kafka.Broker != "" {
		producer := kafka.NewProducer(kafka.Config{Broker: cfg.Kafka.Broker, Topic: cfg.Kafka.Topic}, logger)
		defer producer.Close()
		svc.Register("kafka", producer.Send)
		logger.Infof("Kafka producer initialized with topic: %s", cfg.Kafka.Topic)
	}
	tg, err := providers.NewTelegram(cfg, logger)
	if err != nil {
		logger.Fatalf("Telegram provider init failed: %v", err)
	}
	if tg != nil {
		svc.Register("telegram", tg.Send)
	}

	// Event sinks
	hub := ws.NewHub(logger)
	sinks := []events.Sink{hub}
	if database != nil {
		sinks = append(sinks, database)
	}
	var mqttClient *mqtt.Client
	if cfg.MQTT.Broker != "" {
		mqttClient, err = mqtt.Connect(cfg, logger)
		if err != nil {
			logger.Errorf("MQTT bridge disabled: %v", err)
		} else {
			sinks = append(sinks, mqtt.NewBridge(mqttClient, cfg.MQTT.TopicPrefix))
		}
	}
	dispatcher := events.NewDispatcher(logger, cfg.Events.QueueSize, sinks...)

	coordinator := grace.New(svc, dispatcher, logger, cfg.Security.Armed)
	manager := network.NewManager(cfg, &network.Processor{
		Registry:    registry,
		Status:      statuses,
		Alerts:      alerts,
		Policy:      policy,
		Grace:       coordinator,
		GracePeriod: cfg.GracePeriod(),
		Images:      imageStore,
		Publisher:   dispatcher,
		Logger:      logger,
	}, logger)

	var wg sync.WaitGroup
	dispatcher.Start(&wg)
	svc.Start(&wg)
	manager.Start()

	stopPurge := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		purgeLoop(logger, imageStore, database, cfg, stopPurge)
	}()

	// Start API server
	handler := api.NewHandler(api.Deps{
		Registry:      registry,
		Status:        statuses,
		Alerts:        alerts,
		Grace:         coordinator,
		Network:       manager,
		Images:        imageStore,
		Hub:           hub,
		Notifications: archive,
	}, logger, cfg)
	srv := &http.Server{Addr: cfg.API.Port, Handler: api.NewRouter(handler, logger, cfg)}
	go func() {
		logger.Infof("API started on %s", cfg.API.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("API run failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Infof("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("API shutdown failed: %v", err)
	}
	manager.Stop()
	coordinator.Stop()
	close(stopPurge)
	svc.Stop()
	dispatcher.Stop()
	wg.Wait()
	hub.Close()
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	logger.Infof("Service stopped")
}

// purgeLoop applies image and archived-alert retention once at start and then daily.
func purgeLoop(logger *logging.Logger, imageStore *images.Store, database *db.DB, cfg config.Config, stop <-chan struct{}) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		if n, err := imageStore.Purge(cfg.ImageRetention()); err != nil {
			logger.Errorf("Image purge failed: %v", err)
		} else if n > 0 {
			logger.Infof("Purged %d images older than %d days", n, cfg.Images.RetentionDays)
		}
		if database != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			n, err := database.DeleteAlertsBefore(ctx, time.Now().Add(-cfg.AlertRetention()))
			cancel()
			if err != nil {
				logger.Errorf("Archive prune failed: %v", err)
			} else if n > 0 {
				logger.Infof("Pruned %d archived alerts", n)
			}
		}

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}
