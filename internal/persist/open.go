package persist

import (
	"context"
	"fmt"
)

// Options selects and configures a backend.
type Options struct {
	Kind          Kind
	Dir           string
	RedisURL      string
	RedisPrefix   string
	PostgresDSN   string
	PostgresTable string
}

// Open builds the backend named by opts.Kind. Network backends are checked
// for connectivity before being returned.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Kind {
	case KindFile, "":
		if opts.Dir == "" {
			return nil, fmt.Errorf("file backend: state directory not set")
		}
		return NewFileBackend(opts.Dir), nil
	case KindMemory:
		return NewMemoryBackend(), nil
	case KindRedis:
		rb, err := NewRedisBackend(opts.RedisURL, opts.RedisPrefix)
		if err != nil {
			return nil, err
		}
		if err := rb.Ping(ctx); err != nil {
			rb.Close()
			return nil, fmt.Errorf("redis backend: %w", err)
		}
		return rb, nil
	case KindPostgres:
		return OpenPostgres(ctx, opts.PostgresDSN, opts.PostgresTable)
	default:
		return nil, fmt.Errorf("unknown state backend %q", opts.Kind)
	}
}
