package daemon

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zk-tools/zk-watcher-go/pkg/errors"
	"github.com/zk-tools/zk-watcher-go/pkg/logging"
	"github.com/zk-tools/zk-watcher-go/pkg/watcher"
)

const (
	DefaultZooKeeperServer      = "localhost:2181"
	DefaultForceShutdownTimeout = 30 * time.Second
	DefaultRefreshSeconds       = 15
)

// Config represents the top-level configuration file structure
type Config struct {
	Daemon   DaemonConfigOptions `yaml:"daemon"`
	Services []ServiceConfig     `yaml:"services"`
}

// DaemonConfigOptions represents daemon-level configuration
type DaemonConfigOptions struct {
	ZooKeeperServers     []string      `yaml:"zookeeper_servers,omitempty"`
	SessionTimeout       time.Duration `yaml:"session_timeout,omitempty"`
	ForceShutdownTimeout time.Duration `yaml:"force_shutdown_timeout,omitempty"`
	HostIdentifier       string        `yaml:"host_identifier,omitempty"`
	MetricsListenAddress string        `yaml:"metrics_listen_address,omitempty"`
	LogLevel             string        `yaml:"log_level,omitempty"`
}

// ServiceConfig represents a single watched service
type ServiceConfig struct {
	Name          string            `yaml:"name"`
	Command       string            `yaml:"cmd"`
	Refresh       int               `yaml:"refresh,omitempty"` // seconds
	ServicePort   int               `yaml:"service_port"`
	ZooKeeperPath string            `yaml:"zookeeper_path"`
	ZooKeeperData map[string]string `yaml:"zookeeper_data,omitempty"`
	Enabled       *bool             `yaml:"enabled,omitempty"` // pointer to distinguish unset from false
}

// LoadConfigFromFile loads daemon configuration from a YAML file
func LoadConfigFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.NewValidationError("failed to parse YAML configuration", err).WithContext("filename", filename)
	}

	setConfigDefaults(&config)

	return &config, nil
}

func setConfigDefaults(config *Config) {
	if len(config.Daemon.ZooKeeperServers) == 0 {
		config.Daemon.ZooKeeperServers = []string{DefaultZooKeeperServer}
	}
	if config.Daemon.ForceShutdownTimeout == 0 {
		config.Daemon.ForceShutdownTimeout = DefaultForceShutdownTimeout
	}
	if config.Daemon.LogLevel == "" {
		config.Daemon.LogLevel = "info"
	}

	for i := range config.Services {
		if config.Services[i].Refresh == 0 {
			config.Services[i].Refresh = DefaultRefreshSeconds
		}
	}
}

// ValidateConfig validates the entire configuration structure
func ValidateConfig(config *Config) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}

	if err := validateDaemonConfig(&config.Daemon); err != nil {
		return errors.NewValidationError("invalid daemon configuration", err)
	}

	if err := validateServicesConfig(config.Services); err != nil {
		return errors.NewValidationError("invalid services configuration", err)
	}

	return nil
}

func validateDaemonConfig(options *DaemonConfigOptions) error {
	if len(options.ZooKeeperServers) == 0 {
		return errors.NewValidationError("at least one ZooKeeper server is required", nil)
	}
	if options.SessionTimeout < 0 {
		return errors.NewValidationError("session timeout cannot be negative", nil)
	}
	if options.ForceShutdownTimeout < 0 {
		return errors.NewValidationError("force shutdown timeout cannot be negative", nil)
	}
	return nil
}

func validateServicesConfig(services []ServiceConfig) error {
	enabled := 0
	seen := make(map[string]string) // registration path:port -> service name

	for i, service := range services {
		if service.Enabled != nil && !*service.Enabled {
			continue
		}
		enabled++

		spec := serviceSpecFromConfig(service)
		if err := watcher.ValidateServiceSpec(spec); err != nil {
			return errors.NewValidationError(
				fmt.Sprintf("invalid service at index %d", i),
				err,
			).WithContext("service", service.Name)
		}

		// One watcher per service per host: the registration path and
		// port pair must be unique within a daemon instance.
		key := fmt.Sprintf("%s:%d", service.ZooKeeperPath, service.ServicePort)
		if other, exists := seen[key]; exists {
			return errors.NewValidationError("duplicate registration path and port", nil).
				WithContext("service", service.Name).
				WithContext("conflicts_with", other)
		}
		seen[key] = service.Name
	}

	if enabled == 0 {
		return errors.NewValidationError("at least one enabled service is required", nil)
	}

	return nil
}

// ServiceSpecsFromConfig converts the configured services into immutable
// specs, skipping services explicitly disabled.
func ServiceSpecsFromConfig(config *Config, logger logging.Logger) []watcher.ServiceSpec {
	var specs []watcher.ServiceSpec
	for _, service := range config.Services {
		if service.Enabled != nil && !*service.Enabled {
			logger.Infof("Skipping disabled service, name: %s", service.Name)
			continue
		}
		specs = append(specs, serviceSpecFromConfig(service))
	}
	return specs
}

func serviceSpecFromConfig(service ServiceConfig) watcher.ServiceSpec {
	return watcher.ServiceSpec{
		Name:             service.Name,
		Command:          service.Command,
		RefreshInterval:  time.Duration(service.Refresh) * time.Second,
		RegistrationPath: service.ZooKeeperPath,
		ServicePort:      service.ServicePort,
		Payload:          service.ZooKeeperData,
	}
}
