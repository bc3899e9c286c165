package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizService_GetWithoutCache(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	quiz, err := f.quizzes.Get(ctx, f.quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, f.quiz.Title, quiz.Title)
	assert.Equal(t, f.quiz.Questions[1].CorrectOptions(), quiz.Questions[1].CorrectOptions())

	_, err = f.quizzes.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrQuizNotFound)

	assert.NoError(t, f.quizzes.Warm(ctx, quiz))
	assert.NoError(t, f.quizzes.Evict(ctx, quiz.ID))
}
