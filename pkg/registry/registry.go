package registry

// Registry publishes the health of a service instance under a registration
// key. Implementations must be safe for concurrent use from many watchers.
type Registry interface {
	// Register reflects the current health of the instance at key.
	// Repeated calls with the same key overwrite the prior entry, so the
	// call is idempotent. A healthy=false call removes the entry.
	Register(key string, payload map[string]string, healthy bool) error

	// Close releases the registry connection. Ephemeral entries created
	// by this instance expire with the session.
	Close() error
}
