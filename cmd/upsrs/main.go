package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dicomflow/upsrs/internal/api"
	"github.com/dicomflow/upsrs/internal/auditlog"
	"github.com/dicomflow/upsrs/internal/buildinfo"
	"github.com/dicomflow/upsrs/internal/config"
	"github.com/dicomflow/upsrs/internal/maintenance"
	"github.com/dicomflow/upsrs/internal/matcher"
	"github.com/dicomflow/upsrs/internal/notify"
	"github.com/dicomflow/upsrs/internal/service"
	"github.com/dicomflow/upsrs/internal/store"
)

func main() {
	// 1. Load and validate environment config
	cfg, err := config.LoadEnvConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	if warning, ok := config.TokenWarning(cfg.APIToken); ok {
		log.Printf("WARNING: %s", warning)
	}

	log.Printf("upsrs %s (%s, built %s)", buildinfo.Version, buildinfo.GitCommit, buildinfo.BuildTime)

	// 2. Audit trail
	var auditRepo *auditlog.Repo
	var auditSvc *auditlog.Service
	if cfg.AuditLogEnabled {
		if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: create state dir: %v\n", err)
			os.Exit(1)
		}
		auditRepo, err = auditlog.Open(filepath.Join(cfg.StateDir, "audit.db"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: open audit log: %v\n", err)
			os.Exit(1)
		}
		defer auditRepo.Close()

		auditSvc = auditlog.NewService(auditlog.ServiceConfig{
			Repo:          auditRepo,
			QueueSize:     cfg.AuditLogQueueSize,
			FlushBatch:    cfg.AuditLogFlushBatchSize,
			FlushInterval: cfg.AuditLogFlushInterval,
		})
		auditSvc.Start()
		defer auditSvc.Stop()
	}

	// 3. Wire services
	items := store.NewWorkItemStore()
	subs := store.NewSubscriptionStore()
	match := matcher.New(cfg.MatcherMaxPatterns)
	defer match.Close()

	registry := notify.NewRegistry()
	pending := notify.NewPendingQueue(cfg.PendingQueueMaxPerSubscriber)
	notifier := notify.NewNotifier(registry, pending, subs, items, match, notify.NewBuilder())
	workitems := service.NewWorkItemService(items, notifier, match)
	subscriptions := service.NewSubscriptionService(subs, registry, notifier)

	// 4. Housekeeping
	janitor, err := maintenance.New(maintenance.Config{
		Schedule:       cfg.MaintenanceScheduleSpec,
		AuditRepo:      auditRepo,
		AuditRetention: cfg.AuditLogRetention,
		Pending:        pending,
		Subscriptions:  subs,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: maintenance schedule: %v\n", err)
		os.Exit(1)
	}
	janitor.Start()

	// 5. Create and start API server
	srv := api.NewServerWithAddress(
		cfg.ListenAddress,
		cfg.Port,
		cfg.APIToken,
		int64(cfg.APIMaxBodyBytes),
		workitems,
		subscriptions,
		registry,
		auditSvc,
	)

	go func() {
		log.Printf("UPS-RS server starting on %s:%d", cfg.ListenAddress, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// 6. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("Received signal %s, shutting down...", sig)

	// Tell connected subscribers the SCP is going away before closing
	// their channels. State is in-memory, so a restart is a cold start.
	notifier.BroadcastSCPStatus(notify.SCPGoingDown, notify.ListCold, notify.ListCold)
	janitor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	registry.CloseAll()
	log.Println("Server stopped")
}
