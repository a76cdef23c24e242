package hstore

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

// DefaultAdminPort is the admin port of the storage node.
const DefaultAdminPort = 6440

// ConfigPath is the in-node path of the store configuration generated by
// ld-dev-cluster.
const ConfigPath = process.DataMountPath + "/logdevice.conf"

var (
	_ process.Handle       = (*Process)(nil)
	_ process.LogRelocator = (*Process)(nil)
)

// Config holds the configuration for a storage node.
type Config struct {
	Runtime       string // container runtime CLI
	Image         string
	ContainerName string
	Host          string // address the node binds to
	AdminPort     int    // 0 means DefaultAdminPort
	DataDir       string // session data dir, mounted as the store root
	FixtureDir    string // optional security fixtures

	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
}

func (c Config) validate() error {
	var errs []error
	if c.Runtime == "" {
		errs = append(errs, errors.New("runtime must not be empty"))
	}
	if c.Image == "" {
		errs = append(errs, errors.New("image must not be empty"))
	}
	if c.ContainerName == "" {
		errs = append(errs, errors.New("container name must not be empty"))
	}
	if c.Host == "" {
		errs = append(errs, errors.New("host must not be empty"))
	}
	if c.AdminPort < 0 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("admin port %d out of range", c.AdminPort))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data dir must not be empty"))
	}
	return errors.Join(errs...)
}

// Process manages a storage node container.
type Process struct {
	config Config
	base   process.BaseProcess
}

// New returns a storage Process. It performs no I/O.
func New(cfg Config) (*Process, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid hstore config: %w", err)
	}
	if cfg.AdminPort == 0 {
		cfg.AdminPort = DefaultAdminPort
	}
	return &Process{
		config: cfg,
		base:   process.NewBaseProcess(process.RoleStorage, 0, cfg.Logger),
	}, nil
}

func (p *Process) args() []string {
	return []string{
		"ld-dev-cluster",
		"--root", process.DataMountPath,
		"--use-tcp",
		"--tcp-host", p.config.Host,
		"--user-admin-port", strconv.Itoa(p.config.AdminPort),
		"--no-interactive",
	}
}

func (p *Process) containerSpec() process.ContainerSpec {
	return process.ContainerSpec{
		Runtime: p.config.Runtime,
		Image:   p.config.Image,
		Name:    p.config.ContainerName,
		Mounts:  process.SessionMounts(p.config.DataDir, p.config.FixtureDir),
		Args:    p.args(),
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
		return fmt.Errorf("setup and start hstore: %w", err)
	}
	return nil
}

// Host returns the address the node binds to.
func (p *Process) Host() string { return p.config.Host }

// AdminPort returns the admin port.
func (p *Process) AdminPort() int { return p.config.AdminPort }

// AdminEndpoint returns host:port of the admin server.
func (p *Process) AdminEndpoint() string {
	return net.JoinHostPort(p.config.Host, strconv.Itoa(p.config.AdminPort))
}

// Name returns "hstore".
func (p *Process) Name() string { return p.base.Name() }

// Role returns process.RoleStorage.
func (p *Process) Role() process.Role { return p.base.Role() }

// Index returns 0.
func (p *Process) Index() int { return p.base.Index() }

// Stop terminates the container client, which removes the container.
func (p *Process) Stop(timeout time.Duration) error { return p.base.Stop(timeout) }

// Logs opens hstore.log.
func (p *Process) Logs() (io.ReadCloser, error) { return p.base.Logs() }

// Close releases the log file handle.
func (p *Process) Close() { p.base.Close() }

// RelocateLogs points Logs at a copy of hstore.log.
func (p *Process) RelocateLogs(path string) { p.base.RelocateLogs(path) }
