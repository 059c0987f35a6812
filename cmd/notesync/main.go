package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/unforgotten-api/internal/repository"
	"github.com/noah-isme/unforgotten-api/internal/service"
	"github.com/noah-isme/unforgotten-api/pkg/config"
	"github.com/noah-isme/unforgotten-api/pkg/database"
	"github.com/noah-isme/unforgotten-api/pkg/jobs"
	"github.com/noah-isme/unforgotten-api/pkg/logger"
)

const sweepJobType = "note_sweep"

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	session, err := service.NewTokenSession(service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer), cfg.Notes.SessionToken)
	if err != nil {
		logr.Fatal("invalid session token", zap.Error(err))
	}
	accountID := cfg.Notes.AccountID
	if accountID == "" {
		accountID = session.AccountID()
	}
	if accountID == "" {
		logr.Fatal("NOTES_ACCOUNT_ID is required when the session token carries no account")
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	local, err := repository.NewFileLocalNoteStore(cfg.Notes.LocalStoreDir)
	if err != nil {
		logr.Fatal("failed to open local note store", zap.Error(err), zap.String("dir", cfg.Notes.LocalStoreDir))
	}

	agentLog := logr.With(zap.String("account_id", accountID), zap.String("user_id", session.UserID()))
	syncer := service.NewNoteSyncService(service.NoteSyncParams{
		Remote:  repository.NewNoteRepository(db),
		Local:   local,
		Session: session,
		Logger:  agentLog,
		Config: service.NoteSyncConfig{
			DebounceWindow:      cfg.Notes.DebounceWindow,
			DebounceScope:       cfg.Notes.DebounceScope,
			CompletedResetDelay: cfg.Notes.CompletedResetDelay,
		},
		OnStatusChange: func(st service.SyncStatus) {
			agentLog.Debug("sync status", zap.String("state", string(st.State)), zap.Float64("progress", st.Progress), zap.Int("synced", st.SyncedCount))
		},
	})
	defer syncer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		if err := syncer.SweepAccount(ctx, accountID); err != nil {
			agentLog.Error("sweep failed", zap.Error(err))
			os.Exit(1)
		}
		agentLog.Info("sweep completed", zap.String("state", string(syncer.Status().State)))
		return
	}

	queue := jobs.NewQueue("note-sync", func(ctx context.Context, job jobs.Job) error {
		account, _ := job.Payload.(string)
		started := time.Now()
		if err := syncer.SweepAccount(ctx, account); err != nil {
			return err
		}
		agentLog.Info("sweep completed", zap.String("job_id", job.ID), zap.Int64("duration_ms", time.Since(started).Milliseconds()))
		return nil
	}, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 1,
		MaxRetries: cfg.Notes.WorkerRetries,
		RetryDelay: cfg.Notes.RetryDelay,
		Timeout:    5 * time.Minute,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()

	enqueue := func() {
		if err := queue.TryEnqueue(jobs.Job{Type: sweepJobType, Payload: accountID}); err != nil {
			agentLog.Warn("sweep skipped", zap.Error(err))
		}
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Notes.SweepCron, enqueue); err != nil {
		logr.Fatal("invalid sweep schedule", zap.String("cron", cfg.Notes.SweepCron), zap.Error(err))
	}
	scheduler.Start()
	agentLog.Info("note sync agent started", zap.String("cron", cfg.Notes.SweepCron))
	enqueue()

	<-ctx.Done()
	<-scheduler.Stop().Done()
	agentLog.Info("note sync agent stopped")
}
