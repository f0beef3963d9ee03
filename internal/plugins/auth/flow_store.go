package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// flowKeyPrefix namespaces pending flows in Redis.
const flowKeyPrefix = "authflow:"

// FlowStore keeps PKCE verifiers between the link request and the callback.
type FlowStore interface {
	// Save stores the flow and returns its id.
	Save(ctx context.Context, flow *Flow) (string, error)

	// Take returns and deletes the flow. A missing or expired flow is
	// (nil, nil); errors mean Redis could not answer.
	Take(ctx context.Context, id string) (*Flow, error)
}

// redisFlowStore implements FlowStore with one JSON value per flow.
type redisFlowStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFlowStore creates a Redis-backed flow store. Flows expire after ttl.
func NewFlowStore(client *redis.Client, ttl time.Duration) FlowStore {
	return &redisFlowStore{client: client, ttl: ttl}
}

func (s *redisFlowStore) Save(ctx context.Context, flow *Flow) (string, error) {
	data, err := json.Marshal(flow)
	if err != nil {
		return "", fmt.Errorf("marshaling flow: %w", err)
	}

	id := uuid.NewString()
	if err := s.client.Set(ctx, flowKeyPrefix+id, data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("storing flow: %w", err)
	}
	return id, nil
}

// Take uses GETDEL so a flow can be redeemed exactly once, even when two
// callbacks race.
func (s *redisFlowStore) Take(ctx context.Context, id string) (*Flow, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	data, err := s.client.GetDel(ctx, flowKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("taking flow: %w", err)
	}

	var flow Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("unmarshaling flow: %w", err)
	}
	return &flow, nil
}
