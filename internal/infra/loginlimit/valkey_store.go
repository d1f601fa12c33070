package loginlimit

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/jchen-dev/recipebox/internal/domain/auth"
)

// ValkeyStore counts failed logins in a Valkey-compatible database so the
// throttle holds across instances.
type ValkeyStore struct {
	client      valkey.Client
	prefix      string
	maxFailures int
	window      time.Duration
}

// NewValkeyStore constructs a limiter backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string, maxFailures int, window time.Duration) *ValkeyStore {
	if prefix == "" {
		prefix = "loginfail"
	}
	return &ValkeyStore{client: client, prefix: prefix, maxFailures: maxFailures, window: window}
}

func (s *ValkeyStore) TooManyFailures(ctx context.Context, key string) (bool, error) {
	result := s.client.Do(ctx, s.client.B().Get().Key(s.key(key)).Build())
	count, err := result.AsInt64()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return false, nil
		}
		return false, err
	}
	return count >= int64(s.maxFailures), nil
}

func (s *ValkeyStore) RecordFailure(ctx context.Context, key string) error {
	count, err := s.client.Do(ctx, s.client.B().Incr().Key(s.key(key)).Build()).AsInt64()
	if err != nil {
		return err
	}
	if count == 1 {
		return s.client.Do(ctx, s.client.B().Expire().Key(s.key(key)).Seconds(int64(s.window.Seconds())).Build()).Error()
	}
	return nil
}

func (s *ValkeyStore) Reset(ctx context.Context, key string) error {
	return s.client.Do(ctx, s.client.B().Del().Key(s.key(key)).Build()).Error()
}

func (s *ValkeyStore) key(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

var _ auth.LoginLimiter = (*ValkeyStore)(nil)
