package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/astro-web3/print-gateway/pkg/tracer"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces revoked token ids. Issuers revoke a token by setting
// KeyPrefix+jti with a TTL no shorter than the token's remaining lifetime.
const KeyPrefix = "printgw:revoked:"

const pingTimeout = 5 * time.Second

func NewRedisClient(url string, poolSize int) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	if poolSize > 0 {
		opt.PoolSize = poolSize
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// List is a read-only view of the revoked token ids held in Redis.
type List struct {
	client redis.UniversalClient
}

func NewList(client redis.UniversalClient) *List {
	return &List{client: client}
}

func Key(tokenID string) string {
	return KeyPrefix + tokenID
}

func (l *List) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "infra.revocation.IsRevoked")
	defer span.End()

	n, err := l.client.Exists(ctx, Key(tokenID)).Result()
	if err != nil {
		tracer.Fail(span, err)
		return false, fmt.Errorf("failed to check revocation list: %w", err)
	}

	return n > 0, nil
}
