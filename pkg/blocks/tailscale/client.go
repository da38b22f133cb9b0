package tailscale

import (
	"context"
	"sync"

	"tailscale.com/client/local"
	"tailscale.com/ipn/ipnstate"
)

// localClient lazily wraps tailscale.com/client/local.Client so building a
// block never touches the daemon socket.
type localClient struct {
	socketPath string
	once       sync.Once
	client     *local.Client
}

// NewLocalClient creates a StatusClient backed by the local tailscaled.
// An empty socketPath uses the platform default.
func NewLocalClient(socketPath string) StatusClient {
	return &localClient{socketPath: socketPath}
}

func (c *localClient) Status(ctx context.Context) (*ipnstate.Status, error) {
	c.once.Do(func() {
		c.client = &local.Client{}
		if c.socketPath != "" {
			c.client.Socket = c.socketPath
		}
	})
	return c.client.Status(ctx)
}
