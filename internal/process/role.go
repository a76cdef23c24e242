package process

import "fmt"

// Role identifies which part of the cluster a process plays. The set is closed:
// every session has exactly one coordinator, one storage node and a fixed
// number of brokers.
type Role int

const (
	// RoleCoordinator is the coordination service (ZooKeeper).
	RoleCoordinator Role = iota
	// RoleStorage is the log storage node (HStore).
	RoleStorage
	// RoleBroker is a client-facing broker node (HServer).
	RoleBroker
)

// String returns the short role name used in log artifacts and container names.
func (r Role) String() string {
	switch r {
	case RoleCoordinator:
		return "zk"
	case RoleStorage:
		return "hstore"
	case RoleBroker:
		return "hserver"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// IsValid reports whether r is one of the three known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleCoordinator, RoleStorage, RoleBroker:
		return true
	default:
		return false
	}
}
