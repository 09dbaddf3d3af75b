package registry

import (
	"encoding/json"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-zookeeper/zk"

	"github.com/zk-tools/zk-watcher-go/pkg/errors"
	"github.com/zk-tools/zk-watcher-go/pkg/logging"
)

// DefaultSessionTimeout is the ZooKeeper session timeout used when none is
// configured. The client library requires at least one second.
const DefaultSessionTimeout = 5 * time.Second

type ZooKeeperOptions struct {
	Servers        []string
	SessionTimeout time.Duration
}

// zooKeeperRegistry publishes entries as ephemeral znodes whose data is the
// JSON-encoded payload. The connection is established lazily on the first
// Register call; a dropped session removes the ephemeral entries, so the
// next scheduled check re-creates them on reconnect.
type zooKeeperRegistry struct {
	options ZooKeeperOptions
	logger  logging.Logger

	mutex sync.Mutex
	conn  *zk.Conn
}

func NewZooKeeperRegistry(options ZooKeeperOptions, logger logging.Logger) (Registry, error) {
	if len(options.Servers) == 0 {
		return nil, errors.NewValidationError("at least one ZooKeeper server is required", nil)
	}
	for _, server := range options.Servers {
		if strings.TrimSpace(server) == "" {
			return nil, errors.NewValidationError("ZooKeeper server address cannot be empty", nil)
		}
	}
	if options.SessionTimeout < time.Second {
		options.SessionTimeout = DefaultSessionTimeout
	}

	return &zooKeeperRegistry{
		options: options,
		logger:  logger,
	}, nil
}

func (r *zooKeeperRegistry) Register(key string, payload map[string]string, healthy bool) error {
	if err := validateKey(key); err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	conn, err := r.connection()
	if err != nil {
		return err
	}

	if healthy {
		return r.create(conn, key, payload)
	}
	return r.remove(conn, key)
}

func (r *zooKeeperRegistry) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.conn != nil {
		r.logger.Infof("Closing ZooKeeper connection")
		r.conn.Close()
		r.conn = nil
	}
	return nil
}

// connection returns the live ZooKeeper connection, dialing on first use.
// Callers must hold the mutex.
func (r *zooKeeperRegistry) connection() (*zk.Conn, error) {
	if r.conn != nil {
		return r.conn, nil
	}

	r.logger.Infof("Connecting to ZooKeeper, servers: %v, session timeout: %v",
		r.options.Servers, r.options.SessionTimeout)

	conn, _, err := zk.Connect(r.options.Servers, r.options.SessionTimeout,
		zk.WithLogger(&zkLogAdapter{logger: r.logger}))
	if err != nil {
		return nil, errors.NewRegistryError("failed to connect to ZooKeeper", err).WithContext("servers", strings.Join(r.options.Servers, ","))
	}

	r.conn = conn
	return conn, nil
}

func (r *zooKeeperRegistry) create(conn *zk.Conn, key string, payload map[string]string) error {
	data, err := encodePayload(payload)
	if err != nil {
		return errors.NewRegistryError("failed to encode payload", err).WithContext("key", key)
	}

	if err := r.ensureParents(conn, key); err != nil {
		return err
	}

	_, err = conn.Create(key, data, zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	if err == zk.ErrNodeExists {
		// Idempotent overwrite of our own prior registration.
		_, err = conn.Set(key, data, -1)
	}
	if err != nil {
		return errors.NewRegistryError("failed to register entry", err).WithContext("key", key)
	}

	r.logger.Debugf("Registered entry, key: %s", key)
	return nil
}

func (r *zooKeeperRegistry) remove(conn *zk.Conn, key string) error {
	err := conn.Delete(key, -1)
	if err != nil && err != zk.ErrNoNode {
		return errors.NewRegistryError("failed to deregister entry", err).WithContext("key", key)
	}

	r.logger.Debugf("Deregistered entry, key: %s", key)
	return nil
}

// ensureParents creates the persistent ancestor chain of key, shortest
// path first. Existing nodes are fine.
func (r *zooKeeperRegistry) ensureParents(conn *zk.Conn, key string) error {
	for _, parent := range parentPaths(key) {
		_, err := conn.Create(parent, nil, 0, zk.WorldACL(zk.PermAll))
		if err != nil && err != zk.ErrNodeExists {
			return errors.NewRegistryError("failed to create parent path", err).WithContext("path", parent)
		}
	}
	return nil
}

// parentPaths returns the ancestors of key from shortest to longest,
// excluding the root and key itself.
func parentPaths(key string) []string {
	var parents []string
	for p := path.Dir(key); p != "/" && p != "."; p = path.Dir(p) {
		parents = append([]string{p}, parents...)
	}
	return parents
}

func encodePayload(payload map[string]string) ([]byte, error) {
	if payload == nil {
		payload = map[string]string{}
	}
	return json.Marshal(payload)
}

func validateKey(key string) error {
	if !strings.HasPrefix(key, "/") || len(key) < 2 {
		return errors.NewValidationError("registration key must be an absolute path", nil).WithContext("key", key)
	}
	if strings.HasSuffix(key, "/") {
		return errors.NewValidationError("registration key cannot end with a slash", nil).WithContext("key", key)
	}
	return nil
}

// zkLogAdapter routes the ZooKeeper client's internal logging through the
// daemon logger at debug level.
type zkLogAdapter struct {
	logger logging.Logger
}

func (a *zkLogAdapter) Printf(format string, args ...interface{}) {
	a.logger.Debugf(format, args...)
}
