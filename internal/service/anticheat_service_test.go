package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizattempt/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAntiCheat(f *fixture, queue EventQueue) *AntiCheatService {
	if queue == nil {
		queue = f.store
	}
	svc := NewAntiCheatService(f.store.Attempts(), f.quizzes, queue, f.store, zerolog.Nop())
	svc.now = f.clock.Now
	return svc
}

func TestAntiCheatLog_RecordsWatchedSignals(t *testing.T) {
	f := newFixture(t, func(q *model.Quiz) {
		q.PreventTabSwitch = true
		q.PreventCopyPaste = true
	})
	ctx := context.Background()
	svc := newAntiCheat(f, nil)
	id := f.start(t, learner).Attempt.ID

	res, err := svc.Log(ctx, id, learner, model.EventKindTabSwitch)
	require.NoError(t, err)
	assert.True(t, res.Recorded)
	assert.False(t, res.Suppress)

	res, err = svc.Log(ctx, id, learner, model.EventKindPaste)
	require.NoError(t, err)
	assert.True(t, res.Recorded)
	assert.True(t, res.Suppress)

	events, err := svc.List(ctx, id, learner)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.EventKindTabSwitch, events[0].Kind)
	assert.Equal(t, f.clock.Now(), events[0].OccurredAt)
}

func TestAntiCheatLog_IgnoredWhenFlagOff(t *testing.T) {
	f := newFixture(t, func(q *model.Quiz) { q.PreventTabSwitch = true })
	ctx := context.Background()
	svc := newAntiCheat(f, nil)
	id := f.start(t, learner).Attempt.ID

	res, err := svc.Log(ctx, id, learner, model.EventKindCopy)
	require.NoError(t, err)
	assert.False(t, res.Recorded)
	assert.False(t, res.Suppress)

	events, err := svc.List(ctx, id, learner)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAntiCheatLog_IgnoredWhenNotInProgress(t *testing.T) {
	f := newFixture(t, func(q *model.Quiz) { q.PreventCopyPaste = true })
	ctx := context.Background()
	svc := newAntiCheat(f, nil)
	id := f.start(t, learner).Attempt.ID

	_, err := f.svc.Submit(ctx, id, learner, 0)
	require.NoError(t, err)

	res, err := svc.Log(ctx, id, learner, model.EventKindCopy)
	require.NoError(t, err)
	assert.False(t, res.Recorded)
	assert.False(t, res.Suppress)
}

func TestAntiCheatLog_QueueFailureDoesNotBlock(t *testing.T) {
	f := newFixture(t, func(q *model.Quiz) { q.PreventCopyPaste = true })
	ctx := context.Background()
	queue := &failingQueue{}
	svc := newAntiCheat(f, queue)
	id := f.start(t, learner).Attempt.ID

	res, err := svc.Log(ctx, id, learner, model.EventKindCopy)
	require.NoError(t, err)
	assert.False(t, res.Recorded)
	assert.True(t, res.Suppress)
	assert.Equal(t, 1, queue.calls)

	// The attempt carries on unaffected.
	q, o := f.option(0, 0)
	_, err = f.svc.SelectAnswer(ctx, id, learner, q, o)
	assert.NoError(t, err)
}

func TestAntiCheatLog_Rejections(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	svc := newAntiCheat(f, nil)
	id := f.start(t, learner).Attempt.ID

	_, err := svc.Log(ctx, id, learner, model.EventKind("SCREENSHOT"))
	assert.ErrorIs(t, err, ErrInvalidEventKind)

	_, err = svc.Log(ctx, id, "intruder", model.EventKindCopy)
	assert.ErrorIs(t, err, ErrAttemptNotFound)

	_, err = svc.Log(ctx, uuid.New(), learner, model.EventKindCopy)
	assert.ErrorIs(t, err, ErrAttemptNotFound)

	_, err = svc.List(ctx, id, "intruder")
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}
