package zookeeper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/giantswarm/hstreamenv/internal/process"
)

// ClientPort is the port the zookeeper image listens on.
const ClientPort = 2181

var (
	_ process.Handle       = (*Process)(nil)
	_ process.LogRelocator = (*Process)(nil)
)

// Config holds the configuration for a coordinator node.
type Config struct {
	Runtime       string // container runtime CLI
	Image         string
	ContainerName string
	Host          string // address the node is reachable on
	DataDir       string // session data dir; receives zk.log
	FixtureDir    string // optional security fixtures

	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
}

func (c Config) validate() error {
	if c.Runtime == "" {
		return errors.New("runtime must not be empty")
	}
	if c.Image == "" {
		return errors.New("image must not be empty")
	}
	if c.ContainerName == "" {
		return errors.New("container name must not be empty")
	}
	if c.Host == "" {
		return errors.New("host must not be empty")
	}
	if c.DataDir == "" {
		return errors.New("data dir must not be empty")
	}
	return nil
}

// Process manages a coordinator container.
type Process struct {
	config Config
	base   process.BaseProcess
}

// New returns a coordinator Process. It performs no I/O.
func New(cfg Config) (*Process, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid zookeeper config: %w", err)
	}
	return &Process{
		config: cfg,
		base:   process.NewBaseProcess(process.RoleCoordinator, 0, cfg.Logger),
	}, nil
}

func (p *Process) containerSpec() process.ContainerSpec {
	return process.ContainerSpec{
		Runtime: p.config.Runtime,
		Image:   p.config.Image,
		Name:    p.config.ContainerName,
		Mounts:  process.SessionMounts(p.config.DataDir, p.config.FixtureDir),
		// The admin server would bind 8080 on the host network.
		Env: map[string]string{"ZOO_CFG_EXTRA": "admin.enableServer=false"},
	}
}

// Start launches the container. ctx bounds the lifetime of the node.
func (p *Process) Start(ctx context.Context) error {
	if p.base.IsStarted() {
		return process.ErrAlreadyStarted
	}
	cmd, err := p.containerSpec().Command(ctx)
	if err != nil {
		return err
	}
	if err := p.base.SetupAndStart(cmd, p.config.DataDir); err != nil {
		return fmt.Errorf("setup and start zookeeper: %w", err)
	}
	return nil
}

// Endpoint returns host:port of the client port.
func (p *Process) Endpoint() string {
	return net.JoinHostPort(p.config.Host, strconv.Itoa(ClientPort))
}

// URI returns the metastore URI brokers are given, e.g. zk://127.0.0.1:2181.
func (p *Process) URI() string {
	return URI(p.config.Host)
}

// URI returns the metastore URI of a coordinator on host.
func URI(host string) string {
	return "zk://" + net.JoinHostPort(host, strconv.Itoa(ClientPort))
}

func (p *Process) Name() string                     { return p.base.Name() }
func (p *Process) Role() process.Role               { return p.base.Role() }
func (p *Process) Index() int                       { return p.base.Index() }
func (p *Process) Stop(timeout time.Duration) error { return p.base.Stop(timeout) }
func (p *Process) Logs() (io.ReadCloser, error)     { return p.base.Logs() }
func (p *Process) Close()                           { p.base.Close() }
func (p *Process) RelocateLogs(path string)         { p.base.RelocateLogs(path) }
