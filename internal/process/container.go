package process

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"

	"github.com/giantswarm/hstreamenv/internal/security"
)

// DataMountPath is where the session data directory appears inside nodes.
const DataMountPath = "/data/store"

// Mount binds a host path into the container.
type Mount struct {
	HostPath      string
	ContainerPath string
	ReadOnly      bool
}

// ContainerSpec describes how to launch one node from an image through a
// docker-compatible runtime CLI. The runtime client stays in the foreground
// (no --detach) so that signals sent to it reach the container and its output
// streams straight into the process log file.
type ContainerSpec struct {
	Runtime string // runtime CLI, e.g. "docker" or "podman"
	Image   string
	Name    string // container name; must be unique on the host
	Mounts  []Mount
	Env     map[string]string
	Args    []string // arguments passed to the image entrypoint
}

// SessionMounts returns the bind mounts every node of a session gets: the
// session data directory and, if fixtureDir is set, the security fixtures
// (read-only).
func SessionMounts(dataDir, fixtureDir string) []Mount {
	mounts := []Mount{{HostPath: dataDir, ContainerPath: DataMountPath}}
	if fixtureDir != "" {
		mounts = append(mounts, Mount{
			HostPath:      fixtureDir,
			ContainerPath: security.NodeFixtureDir,
			ReadOnly:      true,
		})
	}
	return mounts
}

func (s ContainerSpec) validate() error {
	var errs []error
	if s.Runtime == "" {
		errs = append(errs, errors.New("container runtime must not be empty"))
	}
	if s.Image == "" {
		errs = append(errs, errors.New("image must not be empty"))
	}
	if s.Name == "" {
		errs = append(errs, errors.New("container name must not be empty"))
	}
	for _, m := range s.Mounts {
		if m.HostPath == "" || m.ContainerPath == "" {
			errs = append(errs, fmt.Errorf("mount %q -> %q: both paths are required", m.HostPath, m.ContainerPath))
		}
	}
	return errors.Join(errs...)
}

// RunArgs returns the runtime CLI arguments. Nodes share the host network
// namespace so loopback addresses work across the cluster and from the test.
func (s ContainerSpec) RunArgs() []string {
	args := []string{"run", "--rm", "--name", s.Name, "--network", "host"}
	for _, m := range s.Mounts {
		v := m.HostPath + ":" + m.ContainerPath
		if m.ReadOnly {
			v += ":ro"
		}
		args = append(args, "-v", v)
	}
	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-e", k+"="+s.Env[k])
	}
	args = append(args, s.Image)
	return append(args, s.Args...)
}

// Command builds the exec.Cmd for the spec. ctx governs the lifetime of the
// runtime client process, not the start call.
func (s ContainerSpec) Command(ctx context.Context) (*exec.Cmd, error) {
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid container spec: %w", err)
	}
	return exec.CommandContext(ctx, s.Runtime, s.RunArgs()...), nil
}
