package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/giantswarm/hstreamenv/internal/hserver"
	"github.com/giantswarm/hstreamenv/internal/hstore"
	"github.com/giantswarm/hstreamenv/internal/netutil"
	"github.com/giantswarm/hstreamenv/internal/process"
	"github.com/giantswarm/hstreamenv/internal/security"
	"github.com/giantswarm/hstreamenv/internal/zookeeper"
)

// NodeSpec is everything a Launcher needs to start one node. Fields that do
// not apply to a role are zero.
type NodeSpec struct {
	SessionID string
	DataDir   string
	Profile   security.Profile
	Logger    *slog.Logger

	// Broker only.
	Index        int
	Address      netutil.Address
	SeedNodes    []string
	MetastoreURI string
	StoreAdmin   string
	StorePort    int
}

// Launcher starts the processes of a session. A returned handle is owned by
// the caller. On error the launcher must not leave a process running.
type Launcher interface {
	StartCoordinator(ctx context.Context, spec NodeSpec) (process.Handle, error)
	StartStorage(ctx context.Context, spec NodeSpec) (process.Handle, error)
	StartBroker(ctx context.Context, spec NodeSpec) (process.Handle, error)
}

// ContainerLauncher starts every node as a container through a
// docker-compatible CLI on the host network.
type ContainerLauncher struct {
	Runtime          string
	CoordinatorImage string
	NodeImage        string
	Host             string
	StoreAdminPort   int
}

var _ Launcher = ContainerLauncher{}

// ContainerName returns the container name of a node, unique per session.
func ContainerName(sessionID, node string) string {
	return fmt.Sprintf("hstreamenv-%s-%s", sessionID, node)
}

// StartCoordinator implements Launcher.
func (l ContainerLauncher) StartCoordinator(ctx context.Context, spec NodeSpec) (process.Handle, error) {
	p, err := zookeeper.New(zookeeper.Config{
		Runtime:       l.Runtime,
		Image:         l.CoordinatorImage,
		ContainerName: ContainerName(spec.SessionID, process.RoleCoordinator.String()),
		Host:          l.Host,
		DataDir:       spec.DataDir,
		FixtureDir:    spec.Profile.FixtureDir,
		Logger:        spec.Logger,
	})
	if err != nil {
		return nil, err
	}
	if err := p.Start(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// StartStorage implements Launcher.
func (l ContainerLauncher) StartStorage(ctx context.Context, spec NodeSpec) (process.Handle, error) {
	p, err := hstore.New(hstore.Config{
		Runtime:       l.Runtime,
		Image:         l.NodeImage,
		ContainerName: ContainerName(spec.SessionID, process.RoleStorage.String()),
		Host:          l.Host,
		AdminPort:     l.StoreAdminPort,
		DataDir:       spec.DataDir,
		FixtureDir:    spec.Profile.FixtureDir,
		Logger:        spec.Logger,
	})
	if err != nil {
		return nil, err
	}
	if err := p.Start(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// StartBroker implements Launcher.
func (l ContainerLauncher) StartBroker(ctx context.Context, spec NodeSpec) (process.Handle, error) {
	p, err := hserver.New(hserver.Config{
		Runtime:       l.Runtime,
		Image:         l.NodeImage,
		ContainerName: ContainerName(spec.SessionID, fmt.Sprintf("%s-%d", process.RoleBroker, spec.Index)),
		Index:         spec.Index,
		Address:       spec.Address,
		SeedNodes:     spec.SeedNodes,
		MetastoreURI:  spec.MetastoreURI,
		StoreAdmin:    spec.StoreAdmin,
		StorePort:     spec.StorePort,
		DataDir:       spec.DataDir,
		Security:      spec.Profile,
		Logger:        spec.Logger,
	})
	if err != nil {
		return nil, err
	}
	if err := p.Start(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}
