package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/stemsi/quizattempt/internal/config"
	"github.com/stemsi/quizattempt/internal/database"
	"github.com/stemsi/quizattempt/internal/logger"
	"github.com/stemsi/quizattempt/internal/repository"
	"github.com/stemsi/quizattempt/internal/seed"
	"github.com/stemsi/quizattempt/internal/service"
	"github.com/stemsi/quizattempt/internal/validator"
)

func main() {
	var (
		file string
		warm bool
	)
	flag.StringVar(&file, "file", "", "JSON or YAML file with one quiz or a list of quizzes")
	flag.BoolVar(&warm, "warm", true, "Load the seeded quizzes into the Redis cache")
	flag.Parse()

	if file == "" {
		fmt.Fprintln(os.Stderr, "Usage: seed-quiz -file quizzes.yaml [-warm=false]")
		os.Exit(2)
	}

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	validator.Setup()

	quizzes, err := seed.LoadFile(file)
	if err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("Invalid seed file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	repo := repository.NewQuizRepository(pool)

	var quizService *service.QuizService
	if warm {
		rdb, err := database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		quizService = service.NewQuizService(repo, rdb, cfg.QuizCacheTTL, log)
	}

	created := 0
	for _, q := range quizzes {
		if err := repo.Create(ctx, q); err != nil {
			log.Error().Err(err).Str("title", q.Title).Msg("Failed to create quiz")
			fmt.Printf("%s  %s\n", color.RedString("FAIL"), q.Title)
			continue
		}
		created++
		fmt.Printf("%s  %s  %s\n", color.GreenString(" OK "), color.CyanString(q.ID.String()), q.Title)
		log.Info().
			Str("quiz_id", q.ID.String()).
			Str("title", q.Title).
			Int("questions", len(q.Questions)).
			Msg("Quiz created")

		if quizService != nil {
			if err := quizService.Warm(ctx, q); err != nil {
				log.Warn().Err(err).Str("quiz_id", q.ID.String()).Msg("Cache warm failed")
			}
		}
	}

	log.Info().Int("created", created).Int("total", len(quizzes)).Msg("Seed completed")
	if created < len(quizzes) {
		os.Exit(1)
	}
}
