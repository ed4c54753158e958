package connectivity

import (
	"context"
	"fmt"

	"github.com/vempat/vempat/internal/remote"
)

// HTTPProber probes the document server's /healthz endpoint.
func HTTPProber(c *remote.Client) Prober {
	return ProberFunc(func(ctx context.Context) error {
		resp, err := c.HealthCheck(ctx)
		if err != nil {
			return err
		}
		if resp.Status != "ok" {
			return fmt.Errorf("server status %q", resp.Status)
		}
		return nil
	})
}

// RedisProber pings the Redis document store.
func RedisProber(s *remote.RedisStore) Prober {
	return ProberFunc(s.Ping)
}

// Always reports online; used with the in-memory store.
var Always Prober = ProberFunc(func(context.Context) error { return nil })
