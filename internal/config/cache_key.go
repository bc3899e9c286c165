package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// QuizPayloadKey returns the cache key for a quiz definition without correct flags.
func (r *CacheKeyStruct) QuizPayloadKey(quizID uuid.UUID) string {
	return fmt.Sprintf("quiz:%s:payload", quizID)
}

// QuizAnswerKey returns the cache key for a quiz's answer key hash
// (question id -> JSON array of correct option ids).
func (r *CacheKeyStruct) QuizAnswerKey(quizID uuid.UUID) string {
	return fmt.Sprintf("quiz:%s:key", quizID)
}

// AttemptCheckpointKey returns the cache key mirroring an attempt's latest checkpoint.
func (r *CacheKeyStruct) AttemptCheckpointKey(attemptID uuid.UUID) string {
	return fmt.Sprintf("attempt:%s:checkpoint", attemptID)
}

var CacheKey = NewCacheKeyStruct()
