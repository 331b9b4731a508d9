package config

import (
	"net"
	"net/url"
	"os"
	"sync"
)

// EnvNoHostRewrite disables the loopback rewrite when set to any non-empty
// value. Needed when the process runs in a container but the endpoint
// really is loopback, for example a tunnelled port or a test server bound
// to 127.0.0.1.
const EnvNoHostRewrite = "GRAPHSCOUT_NO_HOST_REWRITE"

var (
	inDockerOnce sync.Once
	inDocker     bool
)

// IsRunningInDocker reports whether the process runs inside a container,
// detected once via /.dockerenv.
func IsRunningInDocker() bool {
	inDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		inDocker = err == nil
	})
	return inDocker
}

// ResolveHostForDocker maps loopback hosts to host.docker.internal when
// containerized, so an endpoint configured as localhost still reaches the
// graph database running on the host machine. Any other host, or a
// non-container run, passes through unchanged. EnvNoHostRewrite turns the
// mapping off entirely.
func ResolveHostForDocker(host string) string {
	if os.Getenv(EnvNoHostRewrite) != "" {
		return host
	}
	if IsRunningInDocker() && (host == "localhost" || host == "127.0.0.1") {
		return "host.docker.internal"
	}
	return host
}

// ResolveEndpointForDocker applies ResolveHostForDocker to the host part of
// an endpoint URL (bolt://, http://, https://). Endpoints that do not parse
// as URLs, or that name any non-localhost host, pass through unchanged.
func ResolveEndpointForDocker(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}

	host := ResolveHostForDocker(u.Hostname())
	if host == u.Hostname() {
		return endpoint
	}

	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else {
		u.Host = host
	}
	return u.String()
}
