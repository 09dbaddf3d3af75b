package daemon

import (
	"net"
	"os"
	"strings"

	"github.com/zk-tools/zk-watcher-go/pkg/errors"
)

// ResolveHostIdentifier returns the fully-qualified name of the local host,
// resolved once at process start. Falls back to the bare hostname when
// reverse resolution is unavailable.
func ResolveHostIdentifier() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", errors.NewIOError("failed to determine hostname", err)
	}

	addrs, err := net.LookupHost(hostname)
	if err != nil {
		return hostname, nil
	}

	for _, addr := range addrs {
		names, err := net.LookupAddr(addr)
		if err != nil {
			continue
		}
		for _, name := range names {
			name = strings.TrimSuffix(name, ".")
			if name != "" && name != "localhost" {
				return name, nil
			}
		}
	}

	return hostname, nil
}
