package watcher

import (
	"fmt"
	"time"
)

// ServiceSpec describes one service to watch. It is built once from
// configuration at startup and never mutated afterwards.
type ServiceSpec struct {
	// Name is the logical identifier, used for logging and metrics.
	Name string

	// Command is the check command line. Exit code 0 means healthy.
	Command string

	// RefreshInterval is the minimum time between successive checks.
	RefreshInterval time.Duration

	// RegistrationPath is the registry namespace for this service.
	RegistrationPath string

	// ServicePort is the port advertised in the registry entry key.
	ServicePort int

	// Payload is attached to the registry entry. May be empty.
	Payload map[string]string
}

// RegistrationKey derives the registry key for this service on the given
// host. One watcher per service per host, so the key is unique within a
// daemon instance.
func (s ServiceSpec) RegistrationKey(host string) string {
	return fmt.Sprintf("%s/%s:%d", s.RegistrationPath, host, s.ServicePort)
}
