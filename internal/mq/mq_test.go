package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jjudge-oj/catalog/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishJSONOverMemoryBackend(t *testing.T) {
	q := New(NewMemoryBackend(4))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	id, err := q.PublishJSON(ctx, "problem-events", map[string]any{"problem_id": 3}, map[string]string{AttrOrderingKey: "3"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	var got Message
	err = q.Subscribe(ctx, "problem-events", func(ctx context.Context, msg Message) error {
		got = msg
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, "application/json", got.Attributes[AttrContentType])
	assert.Equal(t, "3", got.Attributes[AttrOrderingKey])

	var body map[string]int
	require.NoError(t, json.Unmarshal(got.Data, &body))
	assert.Equal(t, 3, body["problem_id"])
}

func TestMemoryBackendRedeliversFailedMessages(t *testing.T) {
	backend := NewMemoryBackend(2)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := backend.Publish(ctx, "c", []byte("x"), nil)
	require.NoError(t, err)

	attempts := 0
	err = backend.Subscribe(ctx, "c", func(ctx context.Context, msg Message) error {
		attempts++
		if attempts == 1 {
			return errors.New("transient")
		}
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestMemoryBackendClosed(t *testing.T) {
	backend := NewMemoryBackend(1)
	require.NoError(t, backend.Close())

	_, err := backend.Publish(context.Background(), "c", nil, nil)
	assert.Error(t, err)
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()

	q, err := Open(ctx, config.MQConfig{Backend: "none"})
	require.NoError(t, err)
	assert.Nil(t, q)

	q, err = Open(ctx, config.MQConfig{Backend: "memory"})
	require.NoError(t, err)
	require.NotNil(t, q)
	require.NoError(t, q.Close())

	_, err = Open(ctx, config.MQConfig{Backend: "kafka"})
	require.Error(t, err)

	_, err = Open(ctx, config.MQConfig{Backend: "pubsub"})
	require.Error(t, err)
}
