package netutil

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// maxPort is the highest valid TCP port.
const maxPort = 65535

// Address is the network identity of one broker.
type Address struct {
	Host         string
	ClientPort   int // client-facing port
	InternalPort int // inter-node port
}

// ClientEndpoint returns the "host:port" string clients connect to.
func (a Address) ClientEndpoint() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.ClientPort))
}

// InternalEndpoint returns the "host:port" string peers use.
func (a Address) InternalEndpoint() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.InternalPort))
}

// Allocator maps broker indexes in [0, Size) to addresses. All validation
// happens in NewAllocator; Allocate itself cannot fail.
type Allocator struct {
	host             string
	baseClientPort   int
	baseInternalPort int
	size             int
}

// NewAllocator returns an Allocator for size brokers on host. It rejects
// configurations whose port ranges would leave the valid port space or
// overlap each other.
func NewAllocator(host string, baseClientPort, baseInternalPort, size int) (*Allocator, error) {
	var errs []error
	if host == "" {
		errs = append(errs, errors.New("host must not be empty"))
	}
	if size < 1 {
		errs = append(errs, fmt.Errorf("cluster size must be at least 1, got %d", size))
	}
	if baseClientPort < 1 || baseClientPort+size-1 > maxPort {
		errs = append(errs, fmt.Errorf("client ports %d..%d out of range", baseClientPort, baseClientPort+size-1))
	}
	if baseInternalPort < 1 || baseInternalPort+size-1 > maxPort {
		errs = append(errs, fmt.Errorf("internal ports %d..%d out of range", baseInternalPort, baseInternalPort+size-1))
	}
	if size >= 1 && rangesOverlap(baseClientPort, baseInternalPort, size) {
		errs = append(errs, fmt.Errorf("client ports from %d and internal ports from %d overlap for %d brokers",
			baseClientPort, baseInternalPort, size))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid address allocator: %w", err)
	}
	return &Allocator{
		host:             host,
		baseClientPort:   baseClientPort,
		baseInternalPort: baseInternalPort,
		size:             size,
	}, nil
}

func rangesOverlap(a, b, n int) bool {
	return a < b+n && b < a+n
}

// Size returns the number of brokers the allocator serves.
func (a *Allocator) Size() int { return a.size }

// Host returns the shared loopback host.
func (a *Allocator) Host() string { return a.host }

// Allocate returns the address of broker i. i must be in [0, Size()); an
// index outside that range is a programming error and panics.
func (a *Allocator) Allocate(i int) Address {
	if i < 0 || i >= a.size {
		panic(fmt.Sprintf("hstreamenv: broker index %d outside [0, %d)", i, a.size))
	}
	return Address{
		Host:         a.host,
		ClientPort:   a.baseClientPort + i,
		InternalPort: a.baseInternalPort + i,
	}
}

// All returns the addresses of every broker in index order.
func (a *Allocator) All() []Address {
	out := make([]Address, a.size)
	for i := range out {
		out[i] = a.Allocate(i)
	}
	return out
}
