package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizattempt/internal/config"
	"github.com/stemsi/quizattempt/internal/model"
	"github.com/stemsi/quizattempt/internal/repository"
)

// QuizService is the question bank accessor. Quiz definitions are read-only to
// the attempt engine and are cached in Redis as a learner-safe payload plus a
// separate answer key hash.
type QuizService struct {
	store QuizStore
	rdb   *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

// NewQuizService creates a new QuizService. rdb may be nil, in which case every
// lookup goes to the store.
func NewQuizService(store QuizStore, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *QuizService {
	return &QuizService{
		store: store,
		rdb:   rdb,
		ttl:   ttl,
		log:   log.With().Str("component", "quiz_service").Logger(),
	}
}

// Get returns the full quiz definition including correct flags.
func (s *QuizService) Get(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	if s.rdb != nil {
		quiz, err := s.fromCache(ctx, id)
		if err == nil {
			return quiz, nil
		}
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Str("quiz_id", id.String()).Msg("Quiz cache read failed, falling back to store")
		}
	}

	quiz, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	if s.rdb != nil {
		if err := s.Warm(ctx, quiz); err != nil {
			s.log.Warn().Err(err).Str("quiz_id", id.String()).Msg("Failed to warm quiz cache")
		}
	}
	return quiz, nil
}

// Warm writes a quiz's payload and answer key to Redis in one pipeline.
func (s *QuizService) Warm(ctx context.Context, quiz *model.Quiz) error {
	if s.rdb == nil {
		return nil
	}

	payloadJSON, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	answerKey := make(map[string]any, len(quiz.Questions))
	for i := range quiz.Questions {
		correct := quiz.Questions[i].CorrectOptions()
		if correct == nil {
			correct = []uuid.UUID{}
		}
		raw, err := json.Marshal(correct)
		if err != nil {
			return fmt.Errorf("marshal answer key: %w", err)
		}
		answerKey[quiz.Questions[i].ID.String()] = string(raw)
	}

	payloadKey := config.CacheKey.QuizPayloadKey(quiz.ID)
	keyKey := config.CacheKey.QuizAnswerKey(quiz.ID)

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, payloadKey, payloadJSON, s.ttl)
	pipe.Del(ctx, keyKey)
	if len(answerKey) > 0 {
		pipe.HSet(ctx, keyKey, answerKey)
		if s.ttl > 0 {
			pipe.Expire(ctx, keyKey, s.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("quiz_id", quiz.ID.String()).
		Int("questions", len(quiz.Questions)).
		Msg("Quiz cache warmed")
	return nil
}

// Evict drops a quiz from the cache.
func (s *QuizService) Evict(ctx context.Context, id uuid.UUID) error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Del(ctx, config.CacheKey.QuizPayloadKey(id), config.CacheKey.QuizAnswerKey(id)).Err()
}

// fromCache rebuilds a quiz from its cached payload and answer key. A missing
// or inconsistent entry reports redis.Nil so the caller reloads from the store.
func (s *QuizService) fromCache(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	pipe := s.rdb.Pipeline()
	payloadCmd := pipe.Get(ctx, config.CacheKey.QuizPayloadKey(id))
	keyCmd := pipe.HGetAll(ctx, config.CacheKey.QuizAnswerKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	data, err := payloadCmd.Bytes()
	if err != nil {
		return nil, err
	}
	var quiz model.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	key := keyCmd.Val()
	if len(key) != len(quiz.Questions) {
		return nil, redis.Nil
	}
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		raw, ok := key[q.ID.String()]
		if !ok {
			return nil, redis.Nil
		}
		var correct []uuid.UUID
		if err := json.Unmarshal([]byte(raw), &correct); err != nil {
			return nil, fmt.Errorf("unmarshal answer key: %w", err)
		}
		for _, optID := range correct {
			if opt, ok := q.Option(optID); ok {
				opt.IsCorrect = true
			}
		}
	}
	return &quiz, nil
}
