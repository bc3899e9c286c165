//go:build integration

package worker_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizattempt/internal/config"
	"github.com/stemsi/quizattempt/internal/model"
	"github.com/stemsi/quizattempt/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var rdb *redis.Client

func TestMain(m *testing.M) {
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "start redis:", err)
		os.Exit(1)
	}

	code := func() int {
		defer c.Terminate(ctx)
		host, err := c.Host(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		port, err := c.MappedPort(ctx, "6379/tcp")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		rdb = redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
		defer rdb.Close()
		return m.Run()
	}()
	os.Exit(code)
}

// recorder is a goroutine-safe stand-in for the Postgres stores.
type recorder struct {
	mu          sync.Mutex
	events      []model.AntiCheatEvent
	checkpoints []model.Checkpoint
}

func (r *recorder) InsertBatch(_ context.Context, events []model.AntiCheatEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *recorder) Insert(_ context.Context, e *model.AntiCheatEvent) error {
	return r.InsertBatch(context.Background(), []model.AntiCheatEvent{*e})
}

func (r *recorder) SaveCheckpoint(_ context.Context, cp *model.Checkpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkpoints = append(r.checkpoints, *cp)
	return nil
}

func (r *recorder) eventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) lastCheckpoint() (model.Checkpoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.checkpoints) == 0 {
		return model.Checkpoint{}, false
	}
	return r.checkpoints[len(r.checkpoints)-1], true
}

func run(t *testing.T, start func(context.Context)) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestCheatWorker_DrainsQueue(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, rdb.FlushDB(ctx).Err())
	queue := worker.NewQueue(rdb)
	store := &recorder{}

	attemptID := uuid.New()
	for _, kind := range []model.EventKind{model.EventKindTabSwitch, model.EventKindCopy, model.EventKindPaste} {
		require.NoError(t, queue.EnqueueEvent(ctx, &model.AntiCheatEvent{AttemptID: attemptID, Kind: kind, OccurredAt: time.Now()}))
	}

	run(t, worker.NewCheatWorker(store, rdb, zerolog.Nop()).Start)

	require.Eventually(t, func() bool { return store.eventCount() == 3 }, 10*time.Second, 100*time.Millisecond)
	n, err := rdb.LLen(ctx, config.WorkerKey.PersistCheatsQueue).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAutosaveWorker_KeepsNewestCheckpoint(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, rdb.FlushDB(ctx).Err())
	queue := worker.NewQueue(rdb)
	store := &recorder{}

	attemptID, questionID := uuid.New(), uuid.New()
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		require.NoError(t, queue.EnqueueCheckpoint(ctx, &model.Checkpoint{
			AttemptID:            attemptID,
			Answers:              model.Answers{questionID: {uuid.New()}},
			CurrentQuestionIndex: i,
			SavedAt:              base.Add(time.Duration(i) * time.Second),
		}))
	}

	mirrored, err := queue.MirroredCheckpoint(ctx, attemptID)
	require.NoError(t, err)
	assert.Equal(t, 2, mirrored.CurrentQuestionIndex)

	run(t, worker.NewAutosaveWorker(store, rdb, zerolog.Nop()).Start)

	require.Eventually(t, func() bool {
		cp, ok := store.lastCheckpoint()
		return ok && cp.CurrentQuestionIndex == 2
	}, 10*time.Second, 100*time.Millisecond)
}

func TestQueue_MirrorMissing(t *testing.T) {
	_, err := worker.NewQueue(rdb).MirroredCheckpoint(context.Background(), uuid.New())
	assert.ErrorIs(t, err, redis.Nil)
}

type fixedSource struct{ cp *model.Checkpoint }

func (s fixedSource) LatestCheckpoint(context.Context, uuid.UUID) (*model.Checkpoint, error) {
	return s.cp, nil
}

func TestQueue_LatestCheckpointPrefersMirror(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, rdb.FlushDB(ctx).Err())
	queue := worker.NewQueue(rdb)
	attemptID := uuid.New()
	stored := &model.Checkpoint{AttemptID: attemptID, CurrentQuestionIndex: 1}

	got, err := queue.LatestCheckpoint(ctx, attemptID, fixedSource{stored})
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentQuestionIndex)

	require.NoError(t, queue.EnqueueCheckpoint(ctx, &model.Checkpoint{AttemptID: attemptID, CurrentQuestionIndex: 4, SavedAt: time.Now()}))
	got, err = queue.LatestCheckpoint(ctx, attemptID, fixedSource{stored})
	require.NoError(t, err)
	assert.Equal(t, 4, got.CurrentQuestionIndex)
}
