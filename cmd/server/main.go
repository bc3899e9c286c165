package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizattempt/internal/config"
	"github.com/stemsi/quizattempt/internal/database"
	"github.com/stemsi/quizattempt/internal/handler"
	"github.com/stemsi/quizattempt/internal/logger"
	"github.com/stemsi/quizattempt/internal/middleware"
	"github.com/stemsi/quizattempt/internal/model"
	"github.com/stemsi/quizattempt/internal/notify"
	"github.com/stemsi/quizattempt/internal/repository"
	"github.com/stemsi/quizattempt/internal/repository/memory"
	"github.com/stemsi/quizattempt/internal/router"
	"github.com/stemsi/quizattempt/internal/seed"
	"github.com/stemsi/quizattempt/internal/service"
	"github.com/stemsi/quizattempt/internal/timer"
	"github.com/stemsi/quizattempt/internal/validator"
	"github.com/stemsi/quizattempt/internal/worker"
)

// stores bundles the persistence backends chosen by STORAGE_DRIVER.
type stores struct {
	quizzes     service.QuizStore
	attempts    service.AttemptStore
	history     service.AntiCheatLog
	checkpoints service.CheckpointQueue
	events      service.EventQueue
	orders      service.OrderQueue
	rdb         *redis.Client
	workers     []func(context.Context)
	close       func()
}

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("storage", cfg.StorageDriver).
		Msg("Starting quiz attempt engine")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Storage ───────────────────────────────────────────────────────
	var st *stores
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		st = memoryStores(ctx, cfg, log)
	case config.StorageDriverPostgres:
		var err error
		if st, err = postgresStores(ctx, cfg, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize storage")
		}
	default:
		log.Fatal().Str("driver", cfg.StorageDriver).Msg("Unknown STORAGE_DRIVER")
	}
	defer st.close()

	// ─── Notifications ─────────────────────────────────────────────────
	var notifier service.Notifier = notify.Nop{}
	if cfg.AMQPURL != "" {
		pub, err := notify.Dial(cfg.AMQPURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
		}
		defer pub.Close()
		notifier = pub
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg.JWTSecret, cfg.JWTExpiry)
	quizService := service.NewQuizService(st.quizzes, st.rdb, cfg.QuizCacheTTL, log)
	attemptService := service.NewAttemptService(st.attempts, quizService, st.checkpoints, st.orders, log).
		WithNotifier(notifier).
		WithLowTimeThreshold(cfg.LowTimeWarningSecs)
	antiCheatService := service.NewAntiCheatService(st.attempts, quizService, st.events, st.history, log)

	timers := timer.NewCoordinator(timer.Config{
		TickInterval:     cfg.TimerTick,
		AutosaveInterval: cfg.AutosaveInterval,
		LowTimeThreshold: cfg.LowTimeWarningSecs,
	}, attemptService.ExpireAttempt, attemptService.Autosave, log)
	attemptService.WithSessions(timers)

	cheatLimiter := middleware.NewRateLimiter(cfg.CheatEventsPerMinute, time.Minute, middleware.ByLearnerAndParam("attempt_id"))

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Attempt:   handler.NewAttemptHandler(attemptService, log),
		AntiCheat: handler.NewAntiCheatHandler(antiCheatService, log),
		WS:        handler.NewWSHandler(attemptService, antiCheatService, timers, cheatLimiter, log, cfg.AllowedOrigins),
		System:    handler.NewSystemHandler(st.rdb, timers, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	expiry := worker.NewExpiryWorker(attemptService, cfg.ExpirySweep, cfg.ExpiryBatchSize, log)
	workers.Go(func() { expiry.Start(workerCtx) })
	for _, run := range st.workers {
		workers.Go(func() { run(workerCtx) })
	}

	stopCleanup := make(chan struct{})
	go cheatLimiter.Cleanup(stopCleanup)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cheatLimiter, cfg, log)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests. Hijacked WebSocket connections are
	// not tracked by Shutdown, so their timers are stopped explicitly.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop attempt timers. Deadlines are enforced again by the expiry
	// sweep of whichever instance runs next.
	timers.StopAll()
	close(stopCleanup)

	// 3. Stop background workers; each drains its buffer before returning.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

func postgresStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		pool.Close()
		return nil, err
	}

	quizRepo := repository.NewQuizRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	antiCheatRepo := repository.NewAntiCheatRepository(pool)
	queue := worker.NewQueue(rdb)

	autosave := worker.NewAutosaveWorker(attemptRepo, rdb, log)
	cheats := worker.NewCheatWorker(antiCheatRepo, rdb, log)
	orders := worker.NewQuestionOrderWorker(attemptRepo, rdb, log)

	return &stores{
		quizzes:     quizRepo,
		attempts:    mirroredAttempts{AttemptRepository: attemptRepo, queue: queue},
		history:     antiCheatRepo,
		checkpoints: queue,
		events:      queue,
		orders:      queue,
		rdb:         rdb,
		workers:     []func(context.Context){autosave.Start, cheats.Start, orders.Start},
		close: func() {
			rdb.Close()
			pool.Close()
		},
	}, nil
}

// mirroredAttempts serves checkpoint reads from the Redis mirror first.
type mirroredAttempts struct {
	*repository.AttemptRepository
	queue *worker.Queue
}

func (m mirroredAttempts) LatestCheckpoint(ctx context.Context, attemptID uuid.UUID) (*model.Checkpoint, error) {
	return m.queue.LatestCheckpoint(ctx, attemptID, m.AttemptRepository)
}

// memoryStores backs a single-process instance without Postgres or Redis.
func memoryStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) *stores {
	store := memory.NewStore()

	if path := cfg.SeedFile; path != "" {
		quizzes, err := seed.LoadFile(path)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("Invalid seed file")
		}
		for _, q := range quizzes {
			if err := store.Create(ctx, q); err != nil {
				log.Fatal().Err(err).Msg("Failed to seed quiz")
			}
			log.Info().Str("quiz_id", q.ID.String()).Str("title", q.Title).Msg("Quiz loaded")
		}
	}

	return &stores{
		quizzes:     store,
		attempts:    store.Attempts(),
		history:     store,
		checkpoints: store,
		events:      store,
		orders:      store,
		close:       func() {},
	}
}
