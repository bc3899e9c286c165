//go:build integration

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizattempt/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRabbit(ctx context.Context, t *testing.T) string {
	t.Helper()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5672/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
}

func TestRabbitPublisher_RoutesByEventType(t *testing.T) {
	ctx := context.Background()
	url := startRabbit(ctx, t)

	pub, err := Dial(url, zerolog.Nop())
	require.NoError(t, err)
	defer pub.Close()

	// A consumer bound only to completions.
	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, string(model.AttemptEventCompleted), Exchange, false, nil))
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	attemptID := uuid.New()
	score := 90
	require.NoError(t, pub.Publish(ctx, &model.AttemptEvent{
		Type: model.AttemptEventStarted, AttemptID: attemptID, LearnerID: "learner-1", OccurredAt: time.Now(),
	}))
	require.NoError(t, pub.Publish(ctx, &model.AttemptEvent{
		Type: model.AttemptEventCompleted, AttemptID: attemptID, LearnerID: "learner-1", Score: &score, OccurredAt: time.Now(),
	}))

	select {
	case d := <-deliveries:
		assert.Equal(t, string(model.AttemptEventCompleted), d.RoutingKey)
		var e model.AttemptEvent
		require.NoError(t, json.Unmarshal(d.Body, &e))
		assert.Equal(t, attemptID, e.AttemptID)
		require.NotNil(t, e.Score)
		assert.Equal(t, 90, *e.Score)
	case <-time.After(10 * time.Second):
		t.Fatal("no completion delivered")
	}

	select {
	case d := <-deliveries:
		t.Fatalf("unexpected delivery with key %s", d.RoutingKey)
	case <-time.After(300 * time.Millisecond):
	}
}
