// Package client connects to the brokers of a session over gRPC.
//
// The seed list is fed to a manual resolver, so the connection balances
// round-robin across every broker without any discovery round trip. Ping uses
// the standard gRPC health service; a broker that does not implement it still
// counts as reachable because it answered.
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/resolver"
	"google.golang.org/grpc/resolver/manual"
	"google.golang.org/grpc/status"
)

// ErrNoEndpoints is returned by Dial when the endpoint list is empty.
var ErrNoEndpoints = errors.New("endpoint list must not be empty")

// ErrNotServing is returned by Ping when a broker reports itself not serving.
var ErrNotServing = errors.New("cluster is not serving")

const (
	resolverScheme = "hstreamenv"
	serviceConfig  = `{"loadBalancingConfig":[{"round_robin":{}}]}`
)

// Options configures Dial.
type Options struct {
	// TLS enables transport security; nil means plaintext.
	TLS *tls.Config

	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
}

// Client is a connection to all brokers of one session.
type Client struct {
	conn      *grpc.ClientConn
	health    healthpb.HealthClient
	endpoints []string
	log       *slog.Logger
}

// ParseEndpoints splits a comma separated endpoint list, dropping blanks.
func ParseEndpoints(list string) []string {
	var out []string
	for _, ep := range strings.Split(list, ",") {
		if ep = strings.TrimSpace(ep); ep != "" {
			out = append(out, ep)
		}
	}
	return out
}

// Dial creates a client for the comma separated endpoint list. It does not
// wait for a connection; use Ping for that.
func Dial(ctx context.Context, endpoints string, opts Options) (*Client, error) {
	eps := ParseEndpoints(endpoints)
	if len(eps) == 0 {
		return nil, ErrNoEndpoints
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	addrs := make([]resolver.Address, 0, len(eps))
	for _, ep := range eps {
		addrs = append(addrs, resolver.Address{Addr: ep})
	}
	r := manual.NewBuilderWithScheme(resolverScheme)
	r.InitialState(resolver.State{Addresses: addrs})

	creds := insecure.NewCredentials()
	if opts.TLS != nil {
		creds = credentials.NewTLS(opts.TLS)
	}

	conn, err := grpc.DialContext(ctx, resolverScheme+":///cluster",
		grpc.WithResolvers(r),
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultServiceConfig(serviceConfig),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoints, err)
	}
	log.Debug("client created", "endpoints", eps, "tls", opts.TLS != nil)
	return &Client{
		conn:      conn,
		health:    healthpb.NewHealthClient(conn),
		endpoints: eps,
		log:       log,
	}, nil
}

// Conn returns the underlying connection for generated service stubs.
func (c *Client) Conn() grpc.ClientConnInterface { return c.conn }

// Endpoints returns the seed list the client was created with.
func (c *Client) Endpoints() []string {
	return append([]string(nil), c.endpoints...)
}

// Ping waits until a broker answers a health check or ctx is done.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{}, grpc.WaitForReady(true))
	if status.Code(err) == codes.Unimplemented {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ping cluster: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", ErrNotServing, resp.GetStatus())
	}
	return nil
}

// Close closes the connection. A nil Client is a no-op.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
