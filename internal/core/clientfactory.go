package core

import (
	"context"
	"time"

	"github.com/giantswarm/hstreamenv/internal/client"
)

// clientPingTimeout bounds how long DialClient waits for the first broker
// to answer.
const clientPingTimeout = 30 * time.Second

var _ ClientFactory = DialClient

// DialClient is the default ClientFactory. It connects over gRPC and waits
// until a broker answers a health check.
func DialClient(ctx context.Context, endpoints string, opts ClientOptions) (Client, error) {
	c, err := client.Dial(ctx, endpoints, client.Options{TLS: opts.TLS, Logger: opts.Logger})
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, clientPingTimeout)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}
