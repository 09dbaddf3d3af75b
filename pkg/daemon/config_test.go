package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zk-tools/zk-watcher-go/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const sampleConfig = `
daemon:
  zookeeper_servers: ["zk1:2181", "zk2:2181"]
  host_identifier: web42.example.com
services:
  - name: memcache
    cmd: pgrep memcached
    refresh: 30
    service_port: 11211
    zookeeper_path: /services/prod-uswest1-mc
    zookeeper_data:
      foo: bar
  - name: web
    cmd: curl -sf http://localhost:8080/health
    service_port: 8080
    zookeeper_path: /services/prod-uswest1-web
`

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfigFile(t, sampleConfig)

	config, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"zk1:2181", "zk2:2181"}, config.Daemon.ZooKeeperServers)
	assert.Equal(t, "web42.example.com", config.Daemon.HostIdentifier)
	assert.Equal(t, DefaultForceShutdownTimeout, config.Daemon.ForceShutdownTimeout)
	assert.Equal(t, "info", config.Daemon.LogLevel)

	require.Len(t, config.Services, 2)
	assert.Equal(t, "memcache", config.Services[0].Name)
	assert.Equal(t, "pgrep memcached", config.Services[0].Command)
	assert.Equal(t, 30, config.Services[0].Refresh)
	assert.Equal(t, map[string]string{"foo": "bar"}, config.Services[0].ZooKeeperData)

	// Unset refresh falls back to the default.
	assert.Equal(t, DefaultRefreshSeconds, config.Services[1].Refresh)

	assert.NoError(t, ValidateConfig(config))
}

func TestLoadConfigFromFile_Defaults(t *testing.T) {
	path := writeConfigFile(t, `
services:
  - name: web
    cmd: "true"
    service_port: 8080
    zookeeper_path: /services/web
`)

	config, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{DefaultZooKeeperServer}, config.Daemon.ZooKeeperServers)
}

func TestLoadConfigFromFile_Missing(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigFromFile_BadYAML(t *testing.T) {
	path := writeConfigFile(t, "services: [unterminated")
	_, err := LoadConfigFromFile(path)
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	boolPtr := func(b bool) *bool { return &b }

	valid := ServiceConfig{
		Name:          "web",
		Command:       "true",
		Refresh:       15,
		ServicePort:   8080,
		ZooKeeperPath: "/services/web",
	}

	tests := []struct {
		name      string
		config    Config
		shouldErr bool
	}{
		{
			name: "valid_config",
			config: Config{
				Daemon:   DaemonConfigOptions{ZooKeeperServers: []string{"localhost:2181"}},
				Services: []ServiceConfig{valid},
			},
			shouldErr: false,
		},
		{
			name: "no_services",
			config: Config{
				Daemon: DaemonConfigOptions{ZooKeeperServers: []string{"localhost:2181"}},
			},
			shouldErr: true,
		},
		{
			name: "all_services_disabled",
			config: Config{
				Daemon: DaemonConfigOptions{ZooKeeperServers: []string{"localhost:2181"}},
				Services: []ServiceConfig{
					{Name: "web", Command: "true", Refresh: 15, ServicePort: 8080, ZooKeeperPath: "/services/web", Enabled: boolPtr(false)},
				},
			},
			shouldErr: true,
		},
		{
			name: "no_zookeeper_servers",
			config: Config{
				Services: []ServiceConfig{valid},
			},
			shouldErr: true,
		},
		{
			name: "invalid_service",
			config: Config{
				Daemon: DaemonConfigOptions{ZooKeeperServers: []string{"localhost:2181"}},
				Services: []ServiceConfig{
					{Name: "web", Command: "", Refresh: 15, ServicePort: 8080, ZooKeeperPath: "/services/web"},
				},
			},
			shouldErr: true,
		},
		{
			name: "duplicate_registration_key",
			config: Config{
				Daemon: DaemonConfigOptions{ZooKeeperServers: []string{"localhost:2181"}},
				Services: []ServiceConfig{
					valid,
					{Name: "web-clone", Command: "true", Refresh: 15, ServicePort: 8080, ZooKeeperPath: "/services/web"},
				},
			},
			shouldErr: true,
		},
		{
			name: "same_path_different_port",
			config: Config{
				Daemon: DaemonConfigOptions{ZooKeeperServers: []string{"localhost:2181"}},
				Services: []ServiceConfig{
					valid,
					{Name: "web-alt", Command: "true", Refresh: 15, ServicePort: 8081, ZooKeeperPath: "/services/web"},
				},
			},
			shouldErr: false,
		},
		{
			name: "duplicate_key_on_disabled_service_is_fine",
			config: Config{
				Daemon: DaemonConfigOptions{ZooKeeperServers: []string{"localhost:2181"}},
				Services: []ServiceConfig{
					valid,
					{Name: "web-clone", Command: "true", Refresh: 15, ServicePort: 8080, ZooKeeperPath: "/services/web", Enabled: boolPtr(false)},
				},
			},
			shouldErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(&tt.config)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestServiceSpecsFromConfig(t *testing.T) {
	boolPtr := func(b bool) *bool { return &b }
	logger := logging.NewLogger("", logging.LogFuncs{})

	config := &Config{
		Services: []ServiceConfig{
			{Name: "web", Command: "true", Refresh: 30, ServicePort: 8080, ZooKeeperPath: "/services/web"},
			{Name: "off", Command: "true", Refresh: 30, ServicePort: 9090, ZooKeeperPath: "/services/off", Enabled: boolPtr(false)},
		},
	}

	specs := ServiceSpecsFromConfig(config, logger)

	require.Len(t, specs, 1)
	assert.Equal(t, "web", specs[0].Name)
	assert.Equal(t, 30*time.Second, specs[0].RefreshInterval)
	assert.Equal(t, "/services/web", specs[0].RegistrationPath)
	assert.Equal(t, 8080, specs[0].ServicePort)
}
