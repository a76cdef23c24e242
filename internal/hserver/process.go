package hserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/giantswarm/hstreamenv/internal/hstore"
	"github.com/giantswarm/hstreamenv/internal/netutil"
	"github.com/giantswarm/hstreamenv/internal/process"
	"github.com/giantswarm/hstreamenv/internal/security"
)

var (
	_ process.Handle       = (*Process)(nil)
	_ process.LogRelocator = (*Process)(nil)
)

// Config holds the configuration for a broker node.
type Config struct {
	Runtime       string // container runtime CLI
	Image         string
	ContainerName string
	Index         int
	Address       netutil.Address
	SeedNodes     []string // internal endpoints of every broker, index order
	MetastoreURI  string   // e.g. zk://127.0.0.1:2181
	StoreAdmin    string   // host of the storage admin server
	StorePort     int      // port of the storage admin server
	DataDir       string   // session data dir; receives hserver-<i>.log
	Security      security.Profile

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
	if c.Index < 0 {
		errs = append(errs, fmt.Errorf("index %d must not be negative", c.Index))
	}
	if c.Address.Host == "" || c.Address.ClientPort <= 0 || c.Address.InternalPort <= 0 {
		errs = append(errs, fmt.Errorf("incomplete address %+v", c.Address))
	}
	if len(c.SeedNodes) == 0 {
		errs = append(errs, errors.New("seed nodes must not be empty"))
	}
	if c.MetastoreURI == "" {
		errs = append(errs, errors.New("metastore uri must not be empty"))
	}
	if c.StoreAdmin == "" || c.StorePort <= 0 {
		errs = append(errs, errors.New("store admin address must be set"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data dir must not be empty"))
	}
	return errors.Join(errs...)
}

// Process manages a broker container.
type Process struct {
	config Config
	base   process.BaseProcess
}

// New returns a broker Process. It performs no I/O.
func New(cfg Config) (*Process, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid hserver config: %w", err)
	}
	return &Process{
		config: cfg,
		base:   process.NewBaseProcess(process.RoleBroker, cfg.Index, cfg.Logger),
	}, nil
}

func (p *Process) args() []string {
	c := p.config
	args := []string{
		"hstream-server",
		"--bind-address", c.Address.Host,
		"--advertised-address", c.Address.Host,
		"--port", strconv.Itoa(c.Address.ClientPort),
		"--internal-port", strconv.Itoa(c.Address.InternalPort),
		"--server-id", strconv.Itoa(c.Index),
		"--seed-nodes", strings.Join(c.SeedNodes, ","),
		"--metastore-uri", c.MetastoreURI,
		"--store-config", hstore.ConfigPath,
		"--store-admin-host", c.StoreAdmin,
		"--store-admin-port", strconv.Itoa(c.StorePort),
		"--log-level", "debug",
	}
	if c.Security.Encryption {
		args = append(args,
			"--enable-tls",
			"--tls-key-path", c.Security.KeyPath,
			"--tls-cert-path", c.Security.CertPath,
		)
	}
	if c.Security.MutualAuth {
		args = append(args, "--tls-ca-path", c.Security.CAPath)
	}
	return args
}

func (p *Process) containerSpec() process.ContainerSpec {
	return process.ContainerSpec{
		Runtime: p.config.Runtime,
		Image:   p.config.Image,
		Name:    p.config.ContainerName,
		Mounts:  process.SessionMounts(p.config.DataDir, p.config.Security.FixtureDir),
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
		return fmt.Errorf("setup and start %s: %w", p.base.Name(), err)
	}
	return nil
}

// Endpoint returns the client endpoint, host:port.
func (p *Process) Endpoint() string {
	return p.config.Address.ClientEndpoint()
}

func (p *Process) Name() string                     { return p.base.Name() }
func (p *Process) Role() process.Role               { return p.base.Role() }
func (p *Process) Index() int                       { return p.base.Index() }
func (p *Process) Stop(timeout time.Duration) error { return p.base.Stop(timeout) }
func (p *Process) Logs() (io.ReadCloser, error)     { return p.base.Logs() }
func (p *Process) Close()                           { p.base.Close() }
func (p *Process) RelocateLogs(path string)         { p.base.RelocateLogs(path) }
