package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"foodie-skill/internal/domain"
)

// Store backends selectable by configuration.
const (
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Store is implemented by every backend.
type Store interface {
	Load(ctx context.Context, userKey string) (*domain.PersistedRecord, error)
	Save(ctx context.Context, userKey string, rec domain.PersistedRecord) error
}

// StoreOptions carries what each backend needs. Only the fields of the
// selected backend are read.
type StoreOptions struct {
	Backend   string
	Dynamo    dynamodbAPI
	TableName string
	RedisURL  string
	RedisTTL  time.Duration
}

// NewStore opens the configured backend. The returned close func releases
// its connections and is never nil.
func NewStore(ctx context.Context, opts StoreOptions) (Store, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case BackendDynamoDB, "":
		s, err := NewDynamo(opts.Dynamo, opts.TableName)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case BackendRedis:
		s, client, err := NewRedisFromURL(ctx, opts.RedisURL, opts.RedisTTL)
		if err != nil {
			return nil, noop, err
		}
		return s, client.Close, nil
	case BackendMemory:
		return NewMemory(), noop, nil
	}
	return nil, noop, fmt.Errorf("repository: unknown store backend %q", opts.Backend)
}
